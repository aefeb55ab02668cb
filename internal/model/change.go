package model

import "time"

// ChangeType is the kind of row-level change carried by the change feed.
type ChangeType string

// Change type constants.
const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// TableTasks is the table name published on the change feed.
const TableTasks = "tasks"

// ChangeEvent is a single row change pushed to change-feed subscribers.
// OldTask is nil for inserts and NewTask is nil for deletes.
type ChangeEvent struct {
	Table     string     `json:"table"`
	Type      ChangeType `json:"type"`
	UserID    string     `json:"user_id"`
	CommitAt  time.Time  `json:"commit_at"`
	NewTask   *Task      `json:"new_task,omitempty"`
	OldTask   *Task      `json:"old_task,omitempty"`
}
