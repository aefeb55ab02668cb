package model

import "time"

// Subtask is a checklist entry within a task. Its lifecycle is bound to
// the parent task (CASCADE delete).
type Subtask struct {
	ID          string    `json:"id" db:"id"`
	TaskID      string    `json:"task_id" db:"task_id"`
	Title       string    `json:"title" db:"title"`
	IsCompleted bool      `json:"is_completed" db:"is_completed"`
	SortOrder   int       `json:"sort_order" db:"sort_order"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// SubtaskPatch is a partial update to a subtask.
type SubtaskPatch struct {
	Title       *string
	IsCompleted *bool
	SortOrder   *int
}

// Apply returns a copy of s with the patch applied.
func (p SubtaskPatch) Apply(s Subtask, now time.Time) Subtask {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.IsCompleted != nil {
		s.IsCompleted = *p.IsCompleted
	}
	if p.SortOrder != nil {
		s.SortOrder = *p.SortOrder
	}
	s.UpdatedAt = now
	return s
}
