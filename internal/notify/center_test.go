package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nhle/taskflow/internal/model"
)

type memStorage struct {
	values  map[string]string
	failGet bool
	failSet bool
	sets    int
}

func newMemStorage() *memStorage { return &memStorage{values: map[string]string{}} }

func (m *memStorage) GetValue(_ context.Context, key string) (string, bool, error) {
	if m.failGet {
		return "", false, errors.New("disk on fire")
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memStorage) SetValue(_ context.Context, key, value string) error {
	m.sets++
	if m.failSet {
		return errors.New("disk full")
	}
	m.values[key] = value
	return nil
}

func ptr[T any](v T) *T { return &v }

func TestCenter_BoundedAndMostRecentFirst(t *testing.T) {
	c := NewCenter(nil, nil)

	for i := 0; i < 120; i++ {
		c.Add(model.NotificationDraft{Type: model.NotificationTaskCreated, Title: fmt.Sprintf("n%d", i)})
		if got := len(c.Items()); got > DefaultMaxItems {
			t.Fatalf("after %d adds the center holds %d items", i+1, got)
		}
	}

	items := c.Items()
	if len(items) != DefaultMaxItems {
		t.Fatalf("expected %d items; got %d", DefaultMaxItems, len(items))
	}
	if items[0].Title != "n119" || items[len(items)-1].Title != "n70" {
		t.Fatalf("expected newest first: first=%s last=%s", items[0].Title, items[len(items)-1].Title)
	}
}

func TestCenter_AddRejectsBlankTitle(t *testing.T) {
	c := NewCenter(nil, nil)

	calls := 0
	c.Subscribe(func(Snapshot) { calls++ })

	if _, ok := c.Add(model.NotificationDraft{Title: "  \t "}); ok {
		t.Fatalf("expected blank title rejected")
	}
	if len(c.Items()) != 0 || calls != 0 {
		t.Fatalf("expected no state change and no notification; items=%d calls=%d", len(c.Items()), calls)
	}

	n, ok := c.Add(model.NotificationDraft{Title: " Hello ", TaskID: "t1"})
	if !ok || n.ID == "" || n.Title != "Hello" || n.Read || n.CreatedAt.IsZero() {
		t.Fatalf("unexpected notification: %+v", n)
	}
}

func TestCenter_MarkAllAsReadIdempotent(t *testing.T) {
	c := NewCenter(nil, nil)
	c.Add(model.NotificationDraft{Title: "a"})
	c.Add(model.NotificationDraft{Title: "b"})

	calls := 0
	c.Subscribe(func(s Snapshot) {
		calls++
		if s.Unread != 0 {
			t.Errorf("expected 0 unread in snapshot; got %d", s.Unread)
		}
	})

	c.MarkAllAsRead()
	c.MarkAllAsRead()

	if calls != 1 {
		t.Fatalf("expected exactly one notification; got %d", calls)
	}
}

func TestCenter_MarkDeleteClearNotifyOnlyOnChange(t *testing.T) {
	c := NewCenter(nil, nil)
	n, _ := c.Add(model.NotificationDraft{Title: "a"})

	calls := 0
	c.Subscribe(func(Snapshot) { calls++ })

	c.MarkAsRead("missing")
	c.MarkAsRead(n.ID)
	c.MarkAsRead(n.ID)
	if calls != 1 || c.UnreadCount() != 0 {
		t.Fatalf("MarkAsRead: calls=%d unread=%d", calls, c.UnreadCount())
	}

	c.Delete("missing")
	c.Delete(n.ID)
	if calls != 2 || len(c.Items()) != 0 {
		t.Fatalf("Delete: calls=%d items=%d", calls, len(c.Items()))
	}

	c.ClearAll()
	if calls != 2 {
		t.Fatalf("ClearAll on empty list must not notify; calls=%d", calls)
	}

	c.Add(model.NotificationDraft{Title: "b"})
	c.ClearAll()
	if calls != 4 || len(c.Items()) != 0 {
		t.Fatalf("ClearAll: calls=%d items=%d", calls, len(c.Items()))
	}
}

func TestCenter_MultipleObserversAndUnsubscribe(t *testing.T) {
	c := NewCenter(nil, nil)

	var a, b int
	unsubA := c.Subscribe(func(Snapshot) { a++ })
	c.Subscribe(func(Snapshot) { b++ })

	c.Add(model.NotificationDraft{Title: "one"})
	unsubA()
	unsubA()
	c.Add(model.NotificationDraft{Title: "two"})

	if a != 1 || b != 2 {
		t.Fatalf("a=%d b=%d; want 1, 2", a, b)
	}
}

func TestCenter_PreferencesPersistAndReload(t *testing.T) {
	storage := newMemStorage()
	c := NewCenter(storage, nil)

	if c.Preferences() != model.DefaultNotificationPreferences() {
		t.Fatalf("expected defaults; got %+v", c.Preferences())
	}

	var seen model.NotificationPreferences
	c.Subscribe(func(s Snapshot) { seen = s.Preferences })

	got := c.UpdatePreferences(model.PreferencesPatch{ReminderMinutes: ptr(15), TaskCompletions: ptr(false)})
	if got.ReminderMinutes != 15 || got.TaskCompletions || !got.TaskReminders {
		t.Fatalf("unexpected merge result: %+v", got)
	}
	if seen != got {
		t.Fatalf("observer saw %+v, want %+v", seen, got)
	}
	if _, ok := storage.values[PreferencesKey]; !ok {
		t.Fatalf("expected preferences saved under %s", PreferencesKey)
	}

	reloaded := NewCenter(storage, nil)
	if reloaded.Preferences() != got {
		t.Fatalf("reloaded %+v, want %+v", reloaded.Preferences(), got)
	}
}

func TestCenter_PreferencesPartialBlobKeepsDefaults(t *testing.T) {
	storage := newMemStorage()
	storage.values[PreferencesKey] = `{"reminderMinutes":5}`

	c := NewCenter(storage, nil)
	p := c.Preferences()
	if p.ReminderMinutes != 5 || !p.TaskReminders || !p.DueDateAlerts {
		t.Fatalf("unexpected preferences: %+v", p)
	}
}

func TestCenter_StorageFailuresAreSwallowed(t *testing.T) {
	storage := newMemStorage()
	storage.failGet = true
	storage.failSet = true

	c := NewCenter(storage, nil)
	if c.Preferences() != model.DefaultNotificationPreferences() {
		t.Fatalf("expected defaults when storage read fails")
	}

	got := c.UpdatePreferences(model.PreferencesPatch{DueDateAlerts: ptr(false)})
	if got.DueDateAlerts {
		t.Fatalf("expected in-memory update despite storage failure")
	}
	if storage.sets != 1 {
		t.Fatalf("expected one save attempt; got %d", storage.sets)
	}

	storage.failGet = false
	storage.values[PreferencesKey] = "{broken"
	if NewCenter(storage, nil).Preferences() != model.DefaultNotificationPreferences() {
		t.Fatalf("expected defaults for unreadable blob")
	}
}
