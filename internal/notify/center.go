// Package notify holds the notification layer: the in-memory Center, the
// permission gate and display channels, and the two producers that feed
// the Center (the reminder Scheduler and the change-feed Dispatcher).
package notify

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhle/taskflow/internal/model"
)

// PreferencesKey is the durable storage key for the preferences blob.
const PreferencesKey = "taskflow-notification-preferences"

// DefaultMaxItems bounds the notification list.
const DefaultMaxItems = 50

// PreferenceStorage is durable key-value storage for the preferences blob.
type PreferenceStorage interface {
	GetValue(ctx context.Context, key string) (string, bool, error)
	SetValue(ctx context.Context, key, value string) error
}

// Snapshot is the state handed to observers.
type Snapshot struct {
	Items       []model.Notification
	Unread      int
	Preferences model.NotificationPreferences
}

// Observer receives a Snapshot after every state change.
type Observer func(Snapshot)

type observerEntry struct {
	id int
	fn Observer
}

// Center is the process-wide notification store. It is built once by the
// composition root and shared by everything that produces or shows
// notifications.
type Center struct {
	storage  PreferenceStorage
	logger   *zap.Logger
	now      func() time.Time
	maxItems int

	mu        sync.Mutex
	items     []model.Notification
	prefs     model.NotificationPreferences
	observers []observerEntry
	nextObsID int
}

// CenterOption configures a Center.
type CenterOption func(*Center)

// WithMaxItems overrides the list bound.
func WithMaxItems(n int) CenterOption {
	return func(c *Center) {
		if n > 0 {
			c.maxItems = n
		}
	}
}

// WithCenterClock overrides the clock used for CreatedAt.
func WithCenterClock(now func() time.Time) CenterOption {
	return func(c *Center) { c.now = now }
}

// NewCenter creates a Center and loads saved preferences. Storage may be
// nil, in which case preferences live only in memory.
func NewCenter(storage PreferenceStorage, logger *zap.Logger, opts ...CenterOption) *Center {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Center{
		storage:  storage,
		logger:   logger,
		now:      time.Now,
		maxItems: DefaultMaxItems,
		prefs:    model.DefaultNotificationPreferences(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.prefs = c.loadPreferences()
	return c
}

// Add records a new notification at the head of the list and returns it.
// A draft whose title is blank is ignored.
func (c *Center) Add(draft model.NotificationDraft) (model.Notification, bool) {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return model.Notification{}, false
	}

	n := model.Notification{
		ID:        uuid.New().String(),
		Type:      draft.Type,
		Title:     title,
		Message:   draft.Message,
		TaskID:    draft.TaskID,
		CreatedAt: c.now(),
	}

	c.mu.Lock()
	items := make([]model.Notification, 0, min(len(c.items)+1, c.maxItems))
	items = append(items, n)
	for _, it := range c.items {
		if len(items) == c.maxItems {
			break
		}
		items = append(items, it)
	}
	c.items = items
	c.mu.Unlock()

	c.notify()
	return n, true
}

// MarkAsRead flags one notification as read. Nothing is published when the
// notification is missing or already read.
func (c *Center) MarkAsRead(id string) {
	c.mu.Lock()
	changed := false
	for i := range c.items {
		if c.items[i].ID == id && !c.items[i].Read {
			c.items[i].Read = true
			changed = true
			break
		}
	}
	c.mu.Unlock()

	if changed {
		c.notify()
	}
}

// MarkAllAsRead flags every notification as read.
func (c *Center) MarkAllAsRead() {
	c.mu.Lock()
	changed := false
	for i := range c.items {
		if !c.items[i].Read {
			c.items[i].Read = true
			changed = true
		}
	}
	c.mu.Unlock()

	if changed {
		c.notify()
	}
}

// Delete removes one notification.
func (c *Center) Delete(id string) {
	c.mu.Lock()
	changed := false
	for i := range c.items {
		if c.items[i].ID == id {
			c.items = append(c.items[:i:i], c.items[i+1:]...)
			changed = true
			break
		}
	}
	c.mu.Unlock()

	if changed {
		c.notify()
	}
}

// ClearAll removes every notification.
func (c *Center) ClearAll() {
	c.mu.Lock()
	changed := len(c.items) > 0
	c.items = nil
	c.mu.Unlock()

	if changed {
		c.notify()
	}
}

// Items returns a copy of the list, most recent first.
func (c *Center) Items() []model.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Notification(nil), c.items...)
}

// UnreadCount returns the number of unread notifications.
func (c *Center) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unreadLocked()
}

// Preferences returns the current preferences.
func (c *Center) Preferences() model.NotificationPreferences {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prefs
}

// UpdatePreferences merges patch into the preferences, persists them and
// notifies observers. Storage failures are logged, never returned.
func (c *Center) UpdatePreferences(patch model.PreferencesPatch) model.NotificationPreferences {
	c.mu.Lock()
	c.prefs = c.prefs.Merge(patch)
	prefs := c.prefs
	c.mu.Unlock()

	c.savePreferences(prefs)
	c.notify()
	return prefs
}

// Subscribe registers an observer and returns a function that removes it.
func (c *Center) Subscribe(fn Observer) (unsubscribe func()) {
	c.mu.Lock()
	c.nextObsID++
	id := c.nextObsID
	c.observers = append(c.observers, observerEntry{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, o := range c.observers {
				if o.id == id {
					c.observers = append(c.observers[:i:i], c.observers[i+1:]...)
					return
				}
			}
		})
	}
}

// Snapshot returns the current state.
func (c *Center) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Center) snapshotLocked() Snapshot {
	return Snapshot{
		Items:       append([]model.Notification(nil), c.items...),
		Unread:      c.unreadLocked(),
		Preferences: c.prefs,
	}
}

func (c *Center) unreadLocked() int {
	n := 0
	for _, it := range c.items {
		if !it.Read {
			n++
		}
	}
	return n
}

// notify delivers a snapshot to every observer, outside the lock.
func (c *Center) notify() {
	c.mu.Lock()
	snap := c.snapshotLocked()
	observers := append([]observerEntry(nil), c.observers...)
	c.mu.Unlock()

	for _, o := range observers {
		o.fn(snap)
	}
}

func (c *Center) loadPreferences() model.NotificationPreferences {
	prefs := model.DefaultNotificationPreferences()
	if c.storage == nil {
		return prefs
	}

	raw, ok, err := c.storage.GetValue(context.Background(), PreferencesKey)
	if err != nil {
		c.logger.Warn("loading notification preferences", zap.Error(err))
		return prefs
	}
	if !ok {
		return prefs
	}

	// Unmarshal over the defaults so missing fields keep their default.
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		c.logger.Warn("parsing notification preferences", zap.Error(err))
		return model.DefaultNotificationPreferences()
	}
	return prefs
}

func (c *Center) savePreferences(prefs model.NotificationPreferences) {
	if c.storage == nil {
		return
	}

	data, err := json.Marshal(prefs)
	if err != nil {
		c.logger.Error("encoding notification preferences", zap.Error(err))
		return
	}
	if err := c.storage.SetValue(context.Background(), PreferencesKey, string(data)); err != nil {
		c.logger.Warn("saving notification preferences", zap.Error(err))
	}
}
