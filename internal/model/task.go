package model

import "time"

// Priority is the urgency level of a task.
type Priority string

// Priority constants.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is a unit of work owned by a single user.
type Task struct {
	// ID is the server-generated unique identifier.
	ID string `json:"id" db:"id"`

	// UserID is the owning user. Set at creation and never changed.
	UserID string `json:"user_id" db:"user_id"`

	// CategoryID optionally groups the task under a category.
	CategoryID *string `json:"category_id,omitempty" db:"category_id"`

	Title       string  `json:"title" db:"title"`
	Description *string `json:"description,omitempty" db:"description"`

	IsCompleted bool       `json:"is_completed" db:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`

	Priority Priority   `json:"priority" db:"priority"`
	DueDate  *time.Time `json:"due_date,omitempty" db:"due_date"`

	SortOrder int `json:"sort_order" db:"sort_order"`

	// DeletedAt marks a soft-deleted task. Soft-deleted tasks are
	// excluded from every default listing.
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsDeleted reports whether the task has been soft-deleted.
func (t Task) IsDeleted() bool { return t.DeletedAt != nil }

// IsOverdue reports whether an open task is past its due date at now.
func (t Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && !t.IsCompleted && now.After(*t.DueDate)
}

// IsDueOn reports whether the task's due date falls on the same calendar
// day as now, in now's location.
func (t Task) IsDueOn(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	d := t.DueDate.In(now.Location())
	y1, m1, d1 := d.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// TaskPatch carries a partial update to a task. Nil fields are left
// untouched. ClearDueDate and ClearCategory explicitly null the column.
type TaskPatch struct {
	Title         *string
	Description   *string
	CategoryID    *string
	ClearCategory bool
	Priority      *Priority
	DueDate       *time.Time
	ClearDueDate  bool
	IsCompleted   *bool
	SortOrder     *int
}

// Apply returns a copy of t with the patch applied. Completion toggles
// keep CompletedAt consistent with IsCompleted.
func (p TaskPatch) Apply(t Task, now time.Time) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		desc := *p.Description
		t.Description = &desc
	}
	if p.ClearCategory {
		t.CategoryID = nil
	} else if p.CategoryID != nil {
		id := *p.CategoryID
		t.CategoryID = &id
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.ClearDueDate {
		t.DueDate = nil
	} else if p.DueDate != nil {
		due := *p.DueDate
		t.DueDate = &due
	}
	if p.IsCompleted != nil && *p.IsCompleted != t.IsCompleted {
		t.IsCompleted = *p.IsCompleted
		if t.IsCompleted {
			at := now
			t.CompletedAt = &at
		} else {
			t.CompletedAt = nil
		}
	}
	if p.SortOrder != nil {
		t.SortOrder = *p.SortOrder
	}
	t.UpdatedAt = now
	return t
}

// TaskStats is the per-user aggregate returned by the gateway.
type TaskStats struct {
	Total     int `json:"total" db:"total"`
	Completed int `json:"completed" db:"completed"`
	Pending   int `json:"pending" db:"pending"`
	Overdue   int `json:"overdue" db:"overdue"`
	DueToday  int `json:"due_today" db:"due_today"`
}
