package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/realtime"
)

// ControllerConfig tunes the background producers a Controller owns.
type ControllerConfig struct {
	Interval        time.Duration
	Lookahead       time.Duration
	CoalesceRepeats bool
	Now             func() time.Time
}

// ControllerStatus is a point-in-time view of a Controller.
type ControllerStatus struct {
	UserID           string
	Permission       Permission
	SchedulerRunning bool
	DispatcherActive bool
	LastCheck        SchedulerStatus
}

// Controller owns the per-session notification producers. It keeps at
// most one Dispatcher and one Scheduler alive and starts or stops them
// as the user signs in or out, preferences change, or permission moves.
//
// The Dispatcher runs for any signed-in user. The Scheduler additionally
// needs reminders enabled and display permission granted.
type Controller struct {
	center *Center
	gate   *Gate
	tasks  TaskLister
	hub    *realtime.Hub
	cfg    ControllerConfig
	logger *zap.Logger

	mu          sync.Mutex
	userID      string
	lastPrefs   model.NotificationPreferences
	watcher     *DueWatcher
	scheduler   *Scheduler
	dispatcher  *Dispatcher
	unsubscribe func()
	closed      bool
}

// NewController creates a Controller with no user.
func NewController(
	center *Center,
	gate *Gate,
	tasks TaskLister,
	hub *realtime.Hub,
	cfg ControllerConfig,
	logger *zap.Logger,
) *Controller {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		center:    center,
		gate:      gate,
		tasks:     tasks,
		hub:       hub,
		cfg:       cfg,
		logger:    logger,
		lastPrefs: center.Preferences(),
	}
	c.unsubscribe = center.Subscribe(c.onSnapshot)
	return c
}

// SetUser switches the session user. An empty id signs out.
func (c *Controller) SetUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || userID == c.userID {
		return
	}
	c.teardownLocked()
	c.userID = userID
	c.reconcileLocked()
}

// RequestPermission asks for display permission and re-evaluates the
// producers.
func (c *Controller) RequestPermission(ctx context.Context) bool {
	granted := c.gate.RequestPermission(ctx)
	c.Refresh()
	return granted
}

// RevokePermission denies display permission and stops the Scheduler.
func (c *Controller) RevokePermission() {
	c.gate.Revoke()
	c.Refresh()
}

// Refresh re-evaluates which producers should be running.
func (c *Controller) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.reconcileLocked()
	}
}

// CheckNow runs one reminder pass for the current user, whether or not
// the background loop is running.
func (c *Controller) CheckNow(ctx context.Context) (int, error) {
	c.mu.Lock()
	if c.userID == "" {
		c.mu.Unlock()
		return 0, fmt.Errorf("checking reminders: no signed-in user")
	}
	sched := c.scheduler
	if sched == nil {
		sched = c.newSchedulerLocked()
	}
	c.mu.Unlock()

	return sched.Check(ctx)
}

// Status reports the current session state.
func (c *Controller) Status() ControllerStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := ControllerStatus{
		UserID:     c.userID,
		Permission: c.gate.Permission(),
	}
	if c.scheduler != nil {
		st.SchedulerRunning = c.scheduler.Running()
		st.LastCheck = c.scheduler.Status()
	}
	if c.dispatcher != nil {
		st.DispatcherActive = c.dispatcher.Active()
	}
	return st
}

// Close stops all producers and detaches from the Center.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.teardownLocked()
	c.unsubscribe()
}

// onSnapshot reacts to preference changes only.
func (c *Controller) onSnapshot(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || s.Preferences == c.lastPrefs {
		return
	}
	c.lastPrefs = s.Preferences
	c.reconcileLocked()
}

func (c *Controller) reconcileLocked() {
	if c.userID == "" {
		c.teardownLocked()
		return
	}

	if c.watcher == nil {
		c.watcher = NewDueWatcher(c.center, c.gate, c.cfg.CoalesceRepeats, c.logger)
	}

	if c.dispatcher == nil {
		c.dispatcher = NewDispatcher(c.hub, c.userID, c.center, c.watcher, c.cfg.Now, c.logger)
		c.dispatcher.Start()
	}

	prefs := c.center.Preferences()
	wantScheduler := prefs.RemindersWanted() && c.gate.Granted()
	switch {
	case wantScheduler && c.scheduler == nil:
		c.scheduler = c.newSchedulerLocked()
		c.scheduler.Start()
		c.logger.Info("reminder scheduler started", zap.String("user_id", c.userID))
	case !wantScheduler && c.scheduler != nil:
		c.scheduler.Stop()
		c.scheduler = nil
		c.logger.Info("reminder scheduler stopped", zap.String("user_id", c.userID))
	}
}

func (c *Controller) newSchedulerLocked() *Scheduler {
	watcher := c.watcher
	if watcher == nil {
		watcher = NewDueWatcher(c.center, c.gate, c.cfg.CoalesceRepeats, c.logger)
	}
	return NewScheduler(c.tasks, c.userID, c.center, watcher, SchedulerConfig{
		Interval:  c.cfg.Interval,
		Lookahead: c.cfg.Lookahead,
		Now:       c.cfg.Now,
	}, c.logger)
}

func (c *Controller) teardownLocked() {
	if c.scheduler != nil {
		c.scheduler.Stop()
		c.scheduler = nil
	}
	if c.dispatcher != nil {
		c.dispatcher.Stop()
		c.dispatcher = nil
	}
	c.watcher = nil
}
