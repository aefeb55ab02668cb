package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/store"
)

// Scheduler defaults.
const (
	DefaultReminderInterval = 5 * time.Minute
	DefaultLookahead        = 24 * time.Hour
)

// checkTimeout is the maximum time allowed for a single reminder check.
const checkTimeout = 30 * time.Second

// TaskLister is the part of the gateway the Scheduler reads.
type TaskLister interface {
	ListTasks(ctx context.Context, filter store.TaskFilter) ([]model.Task, error)
}

// CheckState is the state of the reminder loop.
type CheckState int

const (
	CheckIdle CheckState = iota
	CheckRunning
	CheckError
)

// SchedulerStatus describes the last reminder check.
type SchedulerStatus struct {
	State     CheckState
	LastCheck time.Time
	Emitted   int
	Error     error
}

// SchedulerConfig tunes a Scheduler.
type SchedulerConfig struct {
	Interval  time.Duration
	Lookahead time.Duration
	Now       func() time.Time
}

// Scheduler periodically looks for the user's open tasks nearing or past
// their due date and reports them to a DueWatcher.
type Scheduler struct {
	tasks   TaskLister
	userID  string
	center  *Center
	watcher *DueWatcher
	logger  *zap.Logger

	interval  time.Duration
	lookahead time.Duration
	now       func() time.Time

	triggerCh chan struct{}

	mu      sync.Mutex
	stopCh  chan struct{}
	running bool
	status  SchedulerStatus
}

// NewScheduler creates a Scheduler for one user.
func NewScheduler(
	tasks TaskLister,
	userID string,
	center *Center,
	watcher *DueWatcher,
	cfg SchedulerConfig,
	logger *zap.Logger,
) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultReminderInterval
	}
	if cfg.Lookahead <= 0 {
		cfg.Lookahead = DefaultLookahead
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		tasks:     tasks,
		userID:    userID,
		center:    center,
		watcher:   watcher,
		logger:    logger.With(zap.String("user_id", userID)),
		interval:  cfg.Interval,
		lookahead: cfg.Lookahead,
		now:       cfg.Now,
		triggerCh: make(chan struct{}, 1),
	}
}

// Start launches the reminder loop: one immediate check, then one per
// interval until Stop. Calling Start on a running Scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	go s.loop(s.stopCh)
}

// Stop halts the loop. A check already in flight finishes on its own.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Trigger asks the loop for an immediate check.
func (s *Scheduler) Trigger() {
	select {
	case s.triggerCh <- struct{}{}:
	default:
		// A check is already pending.
	}
}

// Status returns the outcome of the last check.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Scheduler) loop(stopCh chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runCheck()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.runCheck()
		case <-s.triggerCh:
			s.runCheck()
		}
	}
}

func (s *Scheduler) runCheck() {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	if _, err := s.Check(ctx); err != nil {
		s.logger.Warn("reminder check failed", zap.Error(err))
	}
}

// Check runs one reminder pass and returns how many notifications it
// recorded.
func (s *Scheduler) Check(ctx context.Context) (int, error) {
	s.setStatus(CheckRunning, 0, nil)

	now := s.now()
	horizon := now.Add(s.lookahead)
	open := false
	tasks, err := s.tasks.ListTasks(ctx, store.TaskFilter{
		UserID:    s.userID,
		Completed: &open,
		DueBefore: &horizon,
	})
	if err != nil {
		err = fmt.Errorf("listing tasks due before %s: %w", horizon.Format(time.RFC3339), err)
		s.setStatus(CheckError, 0, err)
		return 0, err
	}

	prefs := s.center.Preferences()
	emitted := 0
	for _, t := range tasks {
		if t.ID == "" || t.Title == "" {
			continue
		}
		kind, ok := ClassifyDue(t, now, prefs)
		if !ok {
			continue
		}
		if s.watcher.Offer(ctx, kind, t, now) {
			emitted++
		}
	}

	s.setStatus(CheckIdle, emitted, nil)
	s.logger.Debug("reminder check",
		zap.Int("candidates", len(tasks)), zap.Int("emitted", emitted))
	return emitted, nil
}

func (s *Scheduler) setStatus(state CheckState, emitted int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.State = state
	s.status.Error = err
	if state == CheckIdle && err == nil {
		s.status.LastCheck = s.now()
		s.status.Emitted = emitted
	}
}
