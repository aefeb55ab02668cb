package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/realtime"
)

// ChannelName is the logical change-feed channel for a user's tasks.
func ChannelName(userID string) string {
	return "task-changes-" + userID
}

// Dispatcher turns task change events for one user into notifications.
type Dispatcher struct {
	hub     *realtime.Hub
	userID  string
	center  *Center
	watcher *DueWatcher
	now     func() time.Time
	logger  *zap.Logger

	mu      sync.Mutex
	channel *realtime.Channel
}

// NewDispatcher creates a Dispatcher. now may be nil.
func NewDispatcher(
	hub *realtime.Hub,
	userID string,
	center *Center,
	watcher *DueWatcher,
	now func() time.Time,
	logger *zap.Logger,
) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		hub:     hub,
		userID:  userID,
		center:  center,
		watcher: watcher,
		now:     now,
		logger:  logger.With(zap.String("user_id", userID)),
	}
}

// Start subscribes to the user's task changes. Any existing channel with
// the same name, including one from an earlier Dispatcher, is replaced.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.channel != nil {
		return
	}
	d.channel = d.hub.Subscribe(
		ChannelName(d.userID),
		realtime.Filter{Table: model.TableTasks, UserID: d.userID},
		d.handle,
	)
}

// Active reports whether the Dispatcher holds a channel.
func (d *Dispatcher) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.channel != nil
}

// Stop unsubscribes. Teardown errors are logged.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	ch := d.channel
	d.channel = nil
	d.mu.Unlock()

	if ch == nil {
		return
	}
	if err := ch.Unsubscribe(); err != nil {
		d.logger.Warn("unsubscribing from task changes",
			zap.String("channel", ch.Name()), zap.Error(err))
	}
}

func (d *Dispatcher) handle(e model.ChangeEvent) {
	d.Dispatch(context.Background(), e)
}

// Dispatch applies the change rules to one event and returns the
// notification type recorded, if any.
func (d *Dispatcher) Dispatch(ctx context.Context, e model.ChangeEvent) (model.NotificationType, bool) {
	now := d.now()

	// Completed or deleted tasks will not be reminded about again.
	switch {
	case e.Type == model.ChangeDelete && e.OldTask != nil:
		d.watcher.Forget(e.OldTask.ID)
	case e.NewTask != nil && (e.NewTask.IsCompleted || e.NewTask.IsDeleted()):
		d.watcher.Forget(e.NewTask.ID)
	}

	kind, ok := ClassifyChange(e, now, d.center.Preferences())
	if !ok {
		return "", false
	}

	task := *e.NewTask
	switch kind {
	case model.NotificationTaskDue, model.NotificationTaskOverdue:
		ok = d.watcher.Offer(ctx, kind, task, now)
	default:
		ok = d.watcher.Emit(ctx, Draft(kind, task, now))
	}
	if ok {
		d.logger.Debug("change notification",
			zap.String("type", string(kind)), zap.String("task_id", task.ID))
	}
	return kind, ok
}
