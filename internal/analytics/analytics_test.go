package analytics

import (
	"testing"
	"time"

	"github.com/nhle/taskflow/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	work := model.Category{ID: "c1", Name: "Work", Color: model.ColorBlue}
	home := model.Category{ID: "c2", Name: "Home", Color: model.ColorGreen}

	tasks := []model.Task{
		{ID: "1", Title: "done today", Priority: model.PriorityHigh, CategoryID: ptr("c1"),
			IsCompleted: true, CompletedAt: ptr(now.Add(-time.Hour))},
		{ID: "2", Title: "done last week", Priority: model.PriorityLow, CategoryID: ptr("c1"),
			IsCompleted: true, CompletedAt: ptr(now.AddDate(0, 0, -6))},
		{ID: "3", Title: "done long ago", Priority: model.PriorityLow,
			IsCompleted: true, CompletedAt: ptr(now.AddDate(0, 0, -30))},
		{ID: "4", Title: "overdue", Priority: model.PriorityMedium, DueDate: ptr(now.Add(-2 * time.Hour))},
		{ID: "5", Title: "due tonight", Priority: model.PriorityMedium, DueDate: ptr(now.Add(6 * time.Hour))},
		{ID: "6", Title: "deleted", Priority: model.PriorityHigh, DeletedAt: ptr(now)},
	}

	s := Summarize(tasks, []model.Category{work, home}, now)

	want := model.TaskStats{Total: 5, Completed: 3, Pending: 2, Overdue: 1, DueToday: 2}
	if s.TaskStats != want {
		t.Fatalf("stats = %+v, want %+v", s.TaskStats, want)
	}
	if s.CompletionRate != 60 {
		t.Fatalf("completion rate = %v", s.CompletionRate)
	}
	if s.ByPriority[model.PriorityLow] != 2 || s.ByPriority[model.PriorityHigh] != 1 {
		t.Fatalf("by priority = %v", s.ByPriority)
	}

	if len(s.ByCategory) != 3 {
		t.Fatalf("expected work, home, uncategorized; got %+v", s.ByCategory)
	}
	if s.ByCategory[0].Name != "Work" || s.ByCategory[0].Total != 2 || s.ByCategory[0].Completed != 2 {
		t.Fatalf("work bucket = %+v", s.ByCategory[0])
	}
	if last := s.ByCategory[2]; last.Name != "Uncategorized" || last.Total != 3 {
		t.Fatalf("uncategorized bucket = %+v", last)
	}

	if len(s.CompletedByDay) != 7 {
		t.Fatalf("expected 7 days; got %d", len(s.CompletedByDay))
	}
	if s.CompletedByDay[0].Count != 1 || s.CompletedByDay[6].Count != 1 {
		t.Fatalf("completed by day = %+v", s.CompletedByDay)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, nil, time.Now())
	if s.Total != 0 || s.CompletionRate != 0 || len(s.ByCategory) != 0 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func TestTaskCounts(t *testing.T) {
	counts := TaskCounts([]model.Task{
		{CategoryID: ptr("a")},
		{CategoryID: ptr("a")},
		{CategoryID: ptr("b"), DeletedAt: ptr(time.Now())},
		{},
	})
	if counts["a"] != 2 || counts["b"] != 0 || len(counts) != 1 {
		t.Fatalf("counts = %v", counts)
	}
}
