package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/taskflow/internal/model"
)

type dueKey struct {
	kind   model.NotificationType
	taskID string
	due    int64
}

// DueWatcher is the single sink that both the reminder poll and the
// change feed report due-date findings to. With coalescing on, each
// (type, task, due date) triple is recorded once; a changed due date or a
// due-to-overdue transition produces a fresh notification. With
// coalescing off every finding is recorded, and repeats only collapse at
// display level through the shared tag.
type DueWatcher struct {
	center   *Center
	gate     *Gate
	coalesce bool
	logger   *zap.Logger

	mu   sync.Mutex
	seen map[dueKey]struct{}
}

// NewDueWatcher creates a watcher that records into center and displays
// through gate. gate may be nil.
func NewDueWatcher(center *Center, gate *Gate, coalesce bool, logger *zap.Logger) *DueWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DueWatcher{
		center:   center,
		gate:     gate,
		coalesce: coalesce,
		logger:   logger,
		seen:     make(map[dueKey]struct{}),
	}
}

// Offer reports a due or overdue finding for task. It returns true if a
// notification was recorded.
func (w *DueWatcher) Offer(
	ctx context.Context,
	kind model.NotificationType,
	task model.Task,
	now time.Time,
) bool {
	if task.DueDate == nil {
		return false
	}

	key := dueKey{kind: kind, taskID: task.ID, due: task.DueDate.Unix()}
	if w.coalesce {
		w.mu.Lock()
		if _, dup := w.seen[key]; dup {
			w.mu.Unlock()
			w.logger.Debug("coalesced repeat reminder",
				zap.String("type", string(kind)), zap.String("task_id", task.ID))
			return false
		}
		w.seen[key] = struct{}{}
		w.mu.Unlock()
	}

	if !w.Emit(ctx, Draft(kind, task, now)) {
		w.mu.Lock()
		delete(w.seen, key)
		w.mu.Unlock()
		return false
	}
	return true
}

// Emit records draft in the Center and, when browser notifications are
// enabled, displays it. It returns false if the Center rejected the draft.
func (w *DueWatcher) Emit(ctx context.Context, draft model.NotificationDraft) bool {
	if _, ok := w.center.Add(draft); !ok {
		return false
	}
	if w.gate != nil && w.center.Preferences().BrowserNotifications {
		w.gate.Show(ctx, DisplayFor(draft))
	}
	return true
}

// Forget drops every recorded finding for a task, e.g. after it is
// completed or deleted.
func (w *DueWatcher) Forget(taskID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for k := range w.seen {
		if k.taskID == taskID {
			delete(w.seen, k)
		}
	}
}

// Reset drops every recorded finding.
func (w *DueWatcher) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	clear(w.seen)
}
