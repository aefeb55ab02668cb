package notify

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Permission is the display permission state.
type Permission string

// Permission states.
const (
	PermissionDefault     Permission = "default"
	PermissionGranted     Permission = "granted"
	PermissionDenied      Permission = "denied"
	PermissionUnsupported Permission = "unsupported"
)

// Display is one notification shown outside the Center.
type Display struct {
	Title string
	Body  string

	// Tag identifies the notification so repeated displays replace each
	// other instead of stacking.
	Tag string

	// RequireInteraction keeps the notification visible until dismissed.
	RequireInteraction bool
}

// Notifier is a display channel (desktop, log, webhook, mailbox).
type Notifier interface {
	// RequestPermission asks the channel whether it may display.
	RequestPermission(ctx context.Context) (Permission, error)

	// Show displays one notification.
	Show(ctx context.Context, d Display) error
}

// Gate tracks permission for a Notifier and only displays once granted.
// After a denial it never prompts again for the lifetime of the Gate.
type Gate struct {
	notifier Notifier
	logger   *zap.Logger

	mu    sync.Mutex
	state Permission
}

// NewGate wraps notifier. A nil notifier yields a gate that reports
// PermissionUnsupported and displays nothing.
func NewGate(notifier Notifier, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	state := PermissionDefault
	if notifier == nil {
		state = PermissionUnsupported
	}
	return &Gate{notifier: notifier, logger: logger, state: state}
}

// Permission returns the current state without prompting.
func (g *Gate) Permission() Permission {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Granted reports whether displays are allowed.
func (g *Gate) Granted() bool { return g.Permission() == PermissionGranted }

// RequestPermission prompts the notifier once while the state is default.
// Granted and denied states are answered from memory.
func (g *Gate) RequestPermission(ctx context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case PermissionGranted:
		return true
	case PermissionDenied, PermissionUnsupported:
		return false
	}

	p, err := g.notifier.RequestPermission(ctx)
	if err != nil {
		g.logger.Warn("requesting notification permission", zap.Error(err))
		return false
	}
	if p != PermissionGranted && p != PermissionDenied {
		return false
	}
	g.state = p
	g.logger.Info("notification permission", zap.String("state", string(p)))
	return p == PermissionGranted
}

// Revoke moves the gate to denied.
func (g *Gate) Revoke() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != PermissionUnsupported {
		g.state = PermissionDenied
	}
}

// Show displays d if permission has been granted. Failures are logged.
func (g *Gate) Show(ctx context.Context, d Display) {
	if !g.Granted() {
		return
	}
	if err := g.notifier.Show(ctx, d); err != nil {
		g.logger.Warn("displaying notification",
			zap.String("tag", d.Tag), zap.Error(err))
	}
}

// Fanout displays on several notifiers at once.
type Fanout []Notifier

// RequestPermission is granted if any notifier grants it, denied if all
// deny, and default otherwise.
func (f Fanout) RequestPermission(ctx context.Context) (Permission, error) {
	if len(f) == 0 {
		return PermissionUnsupported, nil
	}

	denied := 0
	var errs []error
	for _, n := range f {
		p, err := n.RequestPermission(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		switch p {
		case PermissionGranted:
			return PermissionGranted, nil
		case PermissionDenied:
			denied++
		}
	}
	if denied == len(f) {
		return PermissionDenied, nil
	}
	return PermissionDefault, errors.Join(errs...)
}

// Show displays on every notifier and joins the failures.
func (f Fanout) Show(ctx context.Context, d Display) error {
	var errs []error
	for _, n := range f {
		if err := n.Show(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
