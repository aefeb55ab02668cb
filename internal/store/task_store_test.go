package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/store"
	"github.com/nhle/taskflow/internal/testutil"
)

type recordingPublisher struct {
	events []model.ChangeEvent
}

func (r *recordingPublisher) Publish(e model.ChangeEvent) {
	r.events = append(r.events, e)
}

func ptr[T any](v T) *T { return &v }

func TestCreateTask_AssignsSortOrderAndDefaults(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	uid := testutil.SeedProfile(t, s, "a@example.com")

	first := testutil.SeedTask(t, s, model.Task{UserID: uid, Title: "first"})
	second := testutil.SeedTask(t, s, model.Task{UserID: uid, Title: "second"})

	if first.ID == "" || second.ID == "" {
		t.Fatalf("expected generated ids")
	}
	if first.SortOrder != 1 || second.SortOrder != 2 {
		t.Fatalf("expected sort orders 1,2; got %d,%d", first.SortOrder, second.SortOrder)
	}
	if first.Priority != model.PriorityMedium {
		t.Fatalf("expected default priority medium; got %q", first.Priority)
	}

	if _, err := s.CreateTask(ctx, model.Task{UserID: uid, Title: "   "}); err == nil {
		t.Fatalf("expected error for blank title")
	}
}

func TestListTasks_ExcludesSoftDeletedAndOtherUsers(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	alice := testutil.SeedProfile(t, s, "alice@example.com")
	bob := testutil.SeedProfile(t, s, "bob@example.com")

	keep := testutil.SeedTask(t, s, model.Task{UserID: alice, Title: "keep"})
	gone := testutil.SeedTask(t, s, model.Task{UserID: alice, Title: "gone"})
	testutil.SeedTask(t, s, model.Task{UserID: bob, Title: "bob's"})

	if _, err := s.SoftDeleteTask(ctx, alice, gone.ID); err != nil {
		t.Fatalf("SoftDeleteTask: %v", err)
	}

	tasks, err := s.ListTasks(ctx, store.TaskFilter{UserID: alice})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != keep.ID {
		t.Fatalf("expected only %q; got %+v", keep.ID, tasks)
	}

	all, err := s.ListTasks(ctx, store.TaskFilter{UserID: alice, IncludeDeleted: true})
	if err != nil {
		t.Fatalf("ListTasks include deleted: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 tasks including deleted; got %d", len(all))
	}

	restored, err := s.RestoreTask(ctx, alice, gone.ID)
	if err != nil {
		t.Fatalf("RestoreTask: %v", err)
	}
	if restored.DeletedAt != nil {
		t.Fatalf("expected deleted_at cleared")
	}

	if _, err := s.GetTask(ctx, bob, keep.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound reading another user's task; got %v", err)
	}
}

func TestListTasks_Filters(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	uid := testutil.SeedProfile(t, s, "f@example.com")
	now := time.Now().UTC()

	testutil.SeedTask(t, s, model.Task{UserID: uid, Title: "write report", Priority: model.PriorityHigh, DueDate: ptr(now.Add(2 * time.Hour))})
	testutil.SeedTask(t, s, model.Task{UserID: uid, Title: "groceries", Description: ptr("milk and report paper"), DueDate: ptr(now.Add(72 * time.Hour))})
	testutil.SeedTask(t, s, model.Task{UserID: uid, Title: "done thing", IsCompleted: true})

	got, err := s.ListTasks(ctx, store.TaskFilter{UserID: uid, Query: ptr("report")})
	if err != nil {
		t.Fatalf("ListTasks query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches for 'report'; got %d", len(got))
	}

	got, err = s.ListTasks(ctx, store.TaskFilter{UserID: uid, Completed: ptr(false), DueBefore: ptr(now.Add(24 * time.Hour))})
	if err != nil {
		t.Fatalf("ListTasks due: %v", err)
	}
	if len(got) != 1 || got[0].Title != "write report" {
		t.Fatalf("expected only 'write report' due within 24h; got %+v", got)
	}

	got, err = s.ListTasks(ctx, store.TaskFilter{UserID: uid, Priority: ptr(model.PriorityHigh)})
	if err != nil {
		t.Fatalf("ListTasks priority: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 high priority task; got %d", len(got))
	}
}

func TestUpdateTask_ManagesCompletedAtAndPublishes(t *testing.T) {
	pub := &recordingPublisher{}
	s := testutil.NewTestStore(t, store.WithPublisher(pub))
	ctx := context.Background()
	uid := testutil.SeedProfile(t, s, "u@example.com")
	task := testutil.SeedTask(t, s, model.Task{UserID: uid, Title: "finish"})

	updated, err := s.UpdateTask(ctx, uid, task.ID, model.TaskPatch{IsCompleted: ptr(true)})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if !updated.IsCompleted || updated.CompletedAt == nil {
		t.Fatalf("expected completed with completed_at; got %+v", updated)
	}

	reopened, err := s.UpdateTask(ctx, uid, task.ID, model.TaskPatch{IsCompleted: ptr(false)})
	if err != nil {
		t.Fatalf("UpdateTask reopen: %v", err)
	}
	if reopened.CompletedAt != nil {
		t.Fatalf("expected completed_at cleared")
	}

	if len(pub.events) != 3 {
		t.Fatalf("expected insert + 2 updates published; got %d", len(pub.events))
	}
	ev := pub.events[1]
	if ev.Type != model.ChangeUpdate || ev.OldTask == nil || ev.NewTask == nil {
		t.Fatalf("expected update with both snapshots; got %+v", ev)
	}
	if ev.OldTask.IsCompleted || !ev.NewTask.IsCompleted {
		t.Fatalf("expected old=open new=completed")
	}
	if pub.events[0].Type != model.ChangeInsert || pub.events[0].OldTask != nil {
		t.Fatalf("expected insert event without old snapshot")
	}
}

func TestDeleteTask_Hard(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	uid := testutil.SeedProfile(t, s, "h@example.com")
	task := testutil.SeedTask(t, s, model.Task{UserID: uid, Title: "temp"})

	if err := s.DeleteTask(ctx, uid, task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if err := s.DeleteTask(ctx, uid, task.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete; got %v", err)
	}
}

func TestTaskStats(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	uid := testutil.SeedProfile(t, s, "stats@example.com")

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	testutil.SeedTask(t, s, model.Task{UserID: uid, Title: "overdue", DueDate: ptr(now.Add(-26 * time.Hour))})
	testutil.SeedTask(t, s, model.Task{UserID: uid, Title: "later today", DueDate: ptr(now.Add(3 * time.Hour))})
	testutil.SeedTask(t, s, model.Task{UserID: uid, Title: "done", IsCompleted: true})
	deleted := testutil.SeedTask(t, s, model.Task{UserID: uid, Title: "deleted"})
	if _, err := s.SoftDeleteTask(ctx, uid, deleted.ID); err != nil {
		t.Fatalf("SoftDeleteTask: %v", err)
	}

	stats, err := s.TaskStats(ctx, uid, now)
	if err != nil {
		t.Fatalf("TaskStats: %v", err)
	}
	want := model.TaskStats{Total: 3, Completed: 1, Pending: 2, Overdue: 1, DueToday: 1}
	if *stats != want {
		t.Fatalf("stats = %+v, want %+v", *stats, want)
	}
}

func TestValues_RoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.GetValue(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing key; ok=%v err=%v", ok, err)
	}
	if err := s.SetValue(ctx, "k", "v1"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if err := s.SetValue(ctx, "k", "v2"); err != nil {
		t.Fatalf("SetValue overwrite: %v", err)
	}
	v, ok, err := s.GetValue(ctx, "k")
	if err != nil || !ok || v != "v2" {
		t.Fatalf("GetValue = %q,%v,%v; want v2,true,nil", v, ok, err)
	}
}

func TestReorderTasks_AllOrNothing(t *testing.T) {
	pub := &recordingPublisher{}
	s := testutil.NewTestStore(t, store.WithPublisher(pub))
	ctx := context.Background()
	uid := testutil.SeedProfile(t, s, "order@example.com")
	a := testutil.SeedTask(t, s, model.Task{UserID: uid, Title: "a"})
	b := testutil.SeedTask(t, s, model.Task{UserID: uid, Title: "b"})
	c := testutil.SeedTask(t, s, model.Task{UserID: uid, Title: "c"})
	if _, err := s.SoftDeleteTask(ctx, uid, c.ID); err != nil {
		t.Fatalf("SoftDeleteTask: %v", err)
	}
	published := len(pub.events)

	if _, err := s.ReorderTasks(ctx, uid, []string{b.ID, a.ID, c.ID}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for deleted task; got %v", err)
	}
	tasks, err := s.ListTasks(ctx, store.TaskFilter{UserID: uid})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if tasks[0].ID != a.ID || tasks[0].SortOrder != 1 || tasks[1].ID != b.ID || tasks[1].SortOrder != 2 {
		t.Fatalf("failed reorder must leave sort orders untouched; got %+v", tasks)
	}
	if len(pub.events) != published {
		t.Fatalf("failed reorder must not publish; got %d new events", len(pub.events)-published)
	}

	updated, err := s.ReorderTasks(ctx, uid, []string{b.ID, a.ID})
	if err != nil {
		t.Fatalf("ReorderTasks: %v", err)
	}
	if len(updated) != 2 || updated[0].ID != b.ID || updated[0].SortOrder != 1 || updated[1].SortOrder != 2 {
		t.Fatalf("unexpected reorder result: %+v", updated)
	}
	if len(pub.events) != published+2 {
		t.Fatalf("expected one update per moved task; got %d", len(pub.events)-published)
	}
}

func TestTask_CategoryMustBelongToUser(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	alice := testutil.SeedProfile(t, s, "alice@example.com")
	bob := testutil.SeedProfile(t, s, "bob@example.com")

	secret, err := s.CreateCategory(ctx, model.Category{UserID: bob, Name: "Secret"})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	if _, err := s.CreateTask(ctx, model.Task{UserID: alice, Title: "sneaky", CategoryID: &secret.ID}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound creating into another user's category; got %v", err)
	}

	task := testutil.SeedTask(t, s, model.Task{UserID: alice, Title: "mine"})
	if _, err := s.UpdateTask(ctx, alice, task.ID, model.TaskPatch{CategoryID: &secret.ID}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound moving into another user's category; got %v", err)
	}
	got, err := s.GetTask(ctx, alice, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.CategoryID != nil {
		t.Fatalf("category must be unchanged; got %v", *got.CategoryID)
	}

	own, err := s.CreateCategory(ctx, model.Category{UserID: alice, Name: "Home"})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if _, err := s.UpdateTask(ctx, alice, task.ID, model.TaskPatch{CategoryID: &own.ID}); err != nil {
		t.Fatalf("UpdateTask into own category: %v", err)
	}
}
