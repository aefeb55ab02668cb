package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/taskflow/internal/model"
)

// ErrNotFound is returned when a row does not exist or is not owned by
// the requesting user.
var ErrNotFound = errors.New("not found")

// TaskFilter controls filtering and pagination for task queries.
// Results are always ordered by sort_order ascending, then created_at
// descending.
type TaskFilter struct {
	UserID         string           // required
	Completed      *bool            // nil (all), true, or false
	CategoryID     *string          // category UUID, "none" (NULL category_id), or nil (all)
	Priority       *model.Priority  // nil (all)
	DueBefore      *time.Time       // due_date <= DueBefore
	DueAfter       *time.Time       // due_date >= DueAfter
	Query          *string          // search title + description
	IncludeDeleted bool             // include soft-deleted rows
	Limit          int
	Offset         int
}

// Publisher receives row changes after they are committed.
type Publisher interface {
	Publish(event model.ChangeEvent)
}

// Store is the backend gateway: authenticated CRUD over tasks,
// categories, subtasks and profiles, an aggregate statistics query,
// and a small key-value area for durable local preferences.
type Store interface {
	// === Tasks ===

	ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)
	GetTask(ctx context.Context, userID, id string) (*model.Task, error)
	CreateTask(ctx context.Context, task model.Task) (*model.Task, error)
	UpdateTask(ctx context.Context, userID, id string, patch model.TaskPatch) (*model.Task, error)
	ReorderTasks(ctx context.Context, userID string, ids []string) ([]model.Task, error)
	SoftDeleteTask(ctx context.Context, userID, id string) (*model.Task, error)
	RestoreTask(ctx context.Context, userID, id string) (*model.Task, error)
	DeleteTask(ctx context.Context, userID, id string) error
	TaskStats(ctx context.Context, userID string, now time.Time) (*model.TaskStats, error)

	// === Categories ===

	ListCategories(ctx context.Context, userID string) ([]model.Category, error)
	CreateCategory(ctx context.Context, category model.Category) (*model.Category, error)
	UpdateCategory(ctx context.Context, userID, id string, patch model.CategoryPatch) (*model.Category, error)
	DeleteCategory(ctx context.Context, userID, id string) error

	// === Subtasks ===

	ListSubtasks(ctx context.Context, userID, taskID string) ([]model.Subtask, error)
	CreateSubtask(ctx context.Context, userID string, subtask model.Subtask) (*model.Subtask, error)
	UpdateSubtask(ctx context.Context, userID, id string, patch model.SubtaskPatch) (*model.Subtask, error)
	ToggleSubtask(ctx context.Context, userID, id string) (*model.Subtask, error)
	DeleteSubtask(ctx context.Context, userID, id string) error

	// === Profiles ===

	CreateProfile(ctx context.Context, profile model.Profile) (*model.Profile, error)
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*model.Profile, error)

	// === Local storage ===

	GetValue(ctx context.Context, key string) (string, bool, error)
	SetValue(ctx context.Context, key, value string) error
}
