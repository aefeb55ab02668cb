package notify

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/realtime"
	"github.com/nhle/taskflow/internal/store"
	"github.com/nhle/taskflow/internal/testutil"
)

func newTestDispatcher(hub *realtime.Hub, center *Center) *Dispatcher {
	watcher := NewDueWatcher(center, nil, true, nil)
	return NewDispatcher(hub, "u1", center, watcher, func() time.Time { return fixedNow }, nil)
}

func countTypes(items []model.Notification) map[model.NotificationType]int {
	out := map[model.NotificationType]int{}
	for _, it := range items {
		out[it.Type]++
	}
	return out
}

func TestDispatch_CompletionOnly(t *testing.T) {
	center := NewCenter(nil, nil)
	d := newTestDispatcher(realtime.NewHub(nil), center)

	past := fixedNow.Add(-time.Hour)
	old := model.Task{ID: "t1", UserID: "u1", Title: "Ship it", DueDate: &past}
	updated := old
	updated.IsCompleted = true

	d.Dispatch(context.Background(), model.ChangeEvent{
		Table: model.TableTasks, Type: model.ChangeUpdate, UserID: "u1",
		OldTask: &old, NewTask: &updated,
	})

	kinds := countTypes(center.Items())
	if kinds[model.NotificationTaskCompleted] != 1 || len(center.Items()) != 1 {
		t.Fatalf("expected exactly one completed notification; got %v", kinds)
	}
}

func TestDispatch_Rules(t *testing.T) {
	soon := fixedNow.Add(20 * time.Minute)
	late := fixedNow.Add(-20 * time.Minute)
	far := fixedNow.Add(5 * time.Hour)

	tests := []struct {
		name  string
		event model.ChangeEvent
		want  model.NotificationType
		ok    bool
	}{
		{
			name:  "insert",
			event: model.ChangeEvent{Type: model.ChangeInsert, NewTask: &model.Task{ID: "t", Title: "New"}},
			want:  model.NotificationTaskCreated, ok: true,
		},
		{
			name:  "insert without title",
			event: model.ChangeEvent{Type: model.ChangeInsert, NewTask: &model.Task{ID: "t"}},
		},
		{
			name: "update to overdue",
			event: model.ChangeEvent{Type: model.ChangeUpdate,
				OldTask: &model.Task{ID: "t", Title: "x"}, NewTask: &model.Task{ID: "t", Title: "x", DueDate: &late}},
			want: model.NotificationTaskOverdue, ok: true,
		},
		{
			name: "update due soon",
			event: model.ChangeEvent{Type: model.ChangeUpdate,
				OldTask: &model.Task{ID: "t", Title: "x"}, NewTask: &model.Task{ID: "t", Title: "x", DueDate: &soon}},
			want: model.NotificationTaskDue, ok: true,
		},
		{
			name: "update due far away",
			event: model.ChangeEvent{Type: model.ChangeUpdate,
				OldTask: &model.Task{ID: "t", Title: "x"}, NewTask: &model.Task{ID: "t", Title: "x", DueDate: &far}},
		},
		{
			name: "update already completed",
			event: model.ChangeEvent{Type: model.ChangeUpdate,
				OldTask: &model.Task{ID: "t", Title: "x", IsCompleted: true}, NewTask: &model.Task{ID: "t", Title: "x", IsCompleted: true, DueDate: &late}},
		},
		{
			name:  "delete",
			event: model.ChangeEvent{Type: model.ChangeDelete, OldTask: &model.Task{ID: "t", Title: "x"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.event.Table = model.TableTasks
			got, ok := ClassifyChange(tt.event, fixedNow, model.DefaultNotificationPreferences())
			if got != tt.want || ok != tt.ok {
				t.Fatalf("ClassifyChange = %q,%v; want %q,%v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestDispatch_PreferenceGates(t *testing.T) {
	center := NewCenter(nil, nil)
	center.UpdatePreferences(model.PreferencesPatch{
		TaskReminders:   ptr(false),
		TaskCompletions: ptr(false),
	})
	d := newTestDispatcher(realtime.NewHub(nil), center)
	ctx := context.Background()

	d.Dispatch(ctx, model.ChangeEvent{Table: model.TableTasks, Type: model.ChangeInsert,
		NewTask: &model.Task{ID: "t", Title: "x"}})
	d.Dispatch(ctx, model.ChangeEvent{Table: model.TableTasks, Type: model.ChangeUpdate,
		OldTask: &model.Task{ID: "t", Title: "x"}, NewTask: &model.Task{ID: "t", Title: "x", IsCompleted: true}})
	if len(center.Items()) != 0 {
		t.Fatalf("expected gated events to be dropped; got %+v", center.Items())
	}

	late := fixedNow.Add(-time.Minute)
	d.Dispatch(ctx, model.ChangeEvent{Table: model.TableTasks, Type: model.ChangeUpdate,
		OldTask: &model.Task{ID: "t", Title: "x"}, NewTask: &model.Task{ID: "t", Title: "x", DueDate: &late}})
	if len(center.Items()) != 1 {
		t.Fatalf("expected due-date alerts still enabled")
	}
}

func TestDispatcher_EndToEndThroughStore(t *testing.T) {
	hub := realtime.NewHub(nil)
	st := testutil.NewTestStore(t, store.WithPublisher(hub))
	uid := testutil.SeedProfile(t, st, "feed@example.com")
	other := testutil.SeedProfile(t, st, "other@example.com")

	center := NewCenter(nil, nil)
	watcher := NewDueWatcher(center, nil, true, nil)
	d := NewDispatcher(hub, uid, center, watcher, nil, nil)
	d.Start()
	d.Start()
	defer d.Stop()

	if hub.Len() != 1 {
		t.Fatalf("expected one channel; got %d", hub.Len())
	}

	task := testutil.SeedTask(t, st, model.Task{UserID: uid, Title: "Water plants"})
	testutil.SeedTask(t, st, model.Task{UserID: other, Title: "Not mine"})

	if _, err := st.UpdateTask(context.Background(), uid, task.ID, model.TaskPatch{IsCompleted: ptr(true)}); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	kinds := countTypes(center.Items())
	if kinds[model.NotificationTaskCreated] != 1 || kinds[model.NotificationTaskCompleted] != 1 || len(center.Items()) != 2 {
		t.Fatalf("unexpected notifications: %v", kinds)
	}
	if center.Items()[0].Type != model.NotificationTaskCompleted {
		t.Fatalf("expected newest first")
	}

	d.Stop()
	d.Stop()
	if hub.Len() != 0 || d.Active() {
		t.Fatalf("expected channel torn down")
	}
}

func TestDispatcher_ReplacesChannelWithSameName(t *testing.T) {
	hub := realtime.NewHub(nil)
	center := NewCenter(nil, nil)

	first := newTestDispatcher(hub, center)
	first.Start()
	second := newTestDispatcher(hub, center)
	second.Start()

	hub.Publish(model.ChangeEvent{Table: model.TableTasks, Type: model.ChangeInsert, UserID: "u1",
		NewTask: &model.Task{ID: "t", UserID: "u1", Title: "once"}})

	if got := len(center.Items()); got != 1 {
		t.Fatalf("expected a single listener; got %d notifications", got)
	}

	// Stopping the replaced dispatcher logs and leaves the live one alone.
	first.Stop()
	if hub.Len() != 1 {
		t.Fatalf("expected the live channel to survive")
	}
	second.Stop()
}
