package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// LogNotifier displays notifications as structured log lines. It is always
// permitted.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// RequestPermission always grants.
func (l *LogNotifier) RequestPermission(context.Context) (Permission, error) {
	return PermissionGranted, nil
}

// Show logs d.
func (l *LogNotifier) Show(_ context.Context, d Display) error {
	l.logger.Info(d.Title,
		zap.String("body", d.Body),
		zap.String("tag", d.Tag),
		zap.Bool("require_interaction", d.RequireInteraction),
	)
	return nil
}

// Throttled limits how many displays per minute reach the wrapped notifier.
// Displays over the limit are dropped; the Center still records them.
type Throttled struct {
	next    Notifier
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewThrottled allows perMinute displays per minute with a burst of the
// same size. A non-positive perMinute disables throttling.
func NewThrottled(next Notifier, perMinute int, logger *zap.Logger) *Throttled {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	burst := 1
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
		burst = perMinute
	}
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// RequestPermission delegates to the wrapped notifier.
func (t *Throttled) RequestPermission(ctx context.Context) (Permission, error) {
	return t.next.RequestPermission(ctx)
}

// Show forwards d if the rate allows it.
func (t *Throttled) Show(ctx context.Context, d Display) error {
	if !t.limiter.Allow() {
		t.logger.Debug("display throttled", zap.String("tag", d.Tag))
		return nil
	}
	return t.next.Show(ctx, d)
}
