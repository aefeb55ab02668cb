// Package analytics derives dashboard figures from the locally cached
// tasks and categories.
package analytics

import (
	"sort"
	"time"

	"github.com/nhle/taskflow/internal/model"
)

// CategoryCount is the task tally for one category. An empty CategoryID
// is the uncategorized bucket.
type CategoryCount struct {
	CategoryID string              `json:"category_id,omitempty"`
	Name       string              `json:"name"`
	Color      model.CategoryColor `json:"color,omitempty"`
	Total      int                 `json:"total"`
	Completed  int                 `json:"completed"`
}

// DayCount is the number of tasks completed on one calendar day.
type DayCount struct {
	Day   time.Time `json:"day"`
	Count int       `json:"count"`
}

// Summary is the analytics view of a task list.
type Summary struct {
	model.TaskStats

	// CompletionRate is Completed/Total as a percentage, 0 for no tasks.
	CompletionRate float64 `json:"completion_rate"`

	ByPriority map[model.Priority]int `json:"by_priority"`
	ByCategory []CategoryCount        `json:"by_category"`

	// CompletedByDay covers the seven days ending today, oldest first.
	CompletedByDay []DayCount `json:"completed_by_day"`
}

// Summarize computes a Summary at now. Soft-deleted tasks are ignored.
func Summarize(tasks []model.Task, categories []model.Category, now time.Time) Summary {
	s := Summary{
		ByPriority: map[model.Priority]int{
			model.PriorityLow:    0,
			model.PriorityMedium: 0,
			model.PriorityHigh:   0,
		},
	}

	byCat := make(map[string]*CategoryCount, len(categories))
	for _, c := range categories {
		byCat[c.ID] = &CategoryCount{CategoryID: c.ID, Name: c.Name, Color: c.Color}
	}
	uncategorized := &CategoryCount{Name: "Uncategorized"}

	today := startOfDay(now)
	firstDay := today.AddDate(0, 0, -6)
	days := make([]DayCount, 7)
	for i := range days {
		days[i].Day = firstDay.AddDate(0, 0, i)
	}

	for _, t := range tasks {
		if t.IsDeleted() {
			continue
		}

		s.Total++
		if t.IsCompleted {
			s.Completed++
		} else {
			s.Pending++
		}
		if t.IsOverdue(now) {
			s.Overdue++
		}
		if !t.IsCompleted && t.IsDueOn(now) {
			s.DueToday++
		}
		s.ByPriority[t.Priority]++

		bucket := uncategorized
		if t.CategoryID != nil {
			if c, ok := byCat[*t.CategoryID]; ok {
				bucket = c
			}
		}
		bucket.Total++
		if t.IsCompleted {
			bucket.Completed++
		}

		if t.IsCompleted && t.CompletedAt != nil {
			day := startOfDay(t.CompletedAt.In(now.Location()))
			if idx := daysBetween(firstDay, day); idx >= 0 && idx < len(days) {
				days[idx].Count++
			}
		}
	}

	if s.Total > 0 {
		s.CompletionRate = float64(s.Completed) * 100 / float64(s.Total)
	}

	for _, c := range categories {
		s.ByCategory = append(s.ByCategory, *byCat[c.ID])
	}
	sort.SliceStable(s.ByCategory, func(i, j int) bool {
		return s.ByCategory[i].Total > s.ByCategory[j].Total
	})
	if uncategorized.Total > 0 {
		s.ByCategory = append(s.ByCategory, *uncategorized)
	}
	s.CompletedByDay = days
	return s
}

// TaskCounts returns the number of live tasks per category id.
func TaskCounts(tasks []model.Task) map[string]int {
	counts := make(map[string]int)
	for _, t := range tasks {
		if t.IsDeleted() || t.CategoryID == nil {
			continue
		}
		counts[*t.CategoryID]++
	}
	return counts
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween counts calendar days from a to b, both at midnight.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
