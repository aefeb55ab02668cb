package model

import (
	"testing"
	"time"
)

func TestTaskPatch_Apply(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	due := now.Add(time.Hour)
	cat := "c1"
	task := Task{Title: "draft", CategoryID: &cat, DueDate: &due}

	done := true
	got := TaskPatch{IsCompleted: &done, ClearDueDate: true, ClearCategory: true}.Apply(task, now)
	if !got.IsCompleted || got.CompletedAt == nil || !got.CompletedAt.Equal(now) {
		t.Fatalf("expected completed at now; got %+v", got)
	}
	if got.DueDate != nil || got.CategoryID != nil {
		t.Fatalf("expected due date and category cleared")
	}
	if task.DueDate == nil {
		t.Fatalf("Apply must not modify its input")
	}

	open := false
	reopened := TaskPatch{IsCompleted: &open}.Apply(got, now)
	if reopened.CompletedAt != nil {
		t.Fatalf("expected completed_at cleared on reopen")
	}
}

func TestTask_DueHelpers(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	later := now.Add(3 * time.Hour)

	if !(Task{DueDate: &past}).IsOverdue(now) {
		t.Fatalf("expected overdue")
	}
	if (Task{DueDate: &past, IsCompleted: true}).IsOverdue(now) {
		t.Fatalf("completed tasks are never overdue")
	}
	if !(Task{DueDate: &later}).IsDueOn(now) {
		t.Fatalf("expected due today")
	}
	if Priority("urgent").Valid() || !PriorityHigh.Valid() {
		t.Fatalf("unexpected priority validity")
	}
}
