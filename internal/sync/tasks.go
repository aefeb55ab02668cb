package sync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/store"
	"github.com/nhle/taskflow/internal/validate"
)

func taskID(t model.Task) string { return t.ID }

// Tasks is the signed-in user's task list with optimistic edits.
type Tasks struct {
	*Collection[model.Task]

	gw     store.Store
	userID string
	now    func() time.Time
}

// NewTasks creates an empty task list for userID.
func NewTasks(gw store.Store, userID string, logger *zap.Logger) *Tasks {
	return &Tasks{
		Collection: NewCollection(taskID, logger),
		gw:         gw,
		userID:     userID,
		now:        time.Now,
	}
}

// Load fetches tasks matching filter. The filter is always scoped to the
// collection's user.
func (t *Tasks) Load(ctx context.Context, filter store.TaskFilter) Result[[]model.Task] {
	filter.UserID = t.userID
	tasks, err := protect(func() ([]model.Task, error) {
		return t.gw.ListTasks(ctx, filter)
	})
	if err != nil {
		return fail[[]model.Task](fmt.Errorf("loading tasks: %w", err))
	}
	t.replace(tasks)
	return succeed(tasks)
}

// Create validates in and inserts the task once the backend has assigned
// its id and sort order.
func (t *Tasks) Create(ctx context.Context, in validate.TaskInput) Result[model.Task] {
	if err := validate.Task(in); err != nil {
		return fail[model.Task](err)
	}

	task := model.Task{
		UserID:   t.userID,
		Title:    in.Title,
		Priority: model.Priority(in.Priority),
		DueDate:  in.DueDate,
	}
	if in.Description != "" {
		task.Description = &in.Description
	}
	if in.CategoryID != "" {
		task.CategoryID = &in.CategoryID
	}

	created, err := protect(func() (*model.Task, error) {
		return t.gw.CreateTask(ctx, task)
	})
	if err != nil {
		return fail[model.Task](fmt.Errorf("creating task: %w", err))
	}
	t.edit(func(items []model.Task) []model.Task { return append(items, *created) })
	return succeed(*created)
}

// Update applies patch optimistically.
func (t *Tasks) Update(ctx context.Context, id string, patch model.TaskPatch) Result[model.Task] {
	res := Optimistic(t.Collection,
		func(items []model.Task) ([]model.Task, error) {
			i := indexOf(items, taskID, id)
			if i < 0 {
				return nil, fmt.Errorf("task %s: %w", id, ErrUnknownID)
			}
			next := patch.Apply(items[i], t.now())
			if err := validate.Task(taskInput(next)); err != nil {
				return nil, err
			}
			items[i] = next
			return items, nil
		},
		func() (*model.Task, error) { return t.gw.UpdateTask(ctx, t.userID, id, patch) },
		func(items []model.Task, server *model.Task) []model.Task {
			if server == nil {
				return items
			}
			return replaceByID(items, taskID, *server)
		},
	)
	return deref(res)
}

// ToggleComplete flips the completion flag.
func (t *Tasks) ToggleComplete(ctx context.Context, id string) Result[model.Task] {
	current, ok := t.Get(id)
	if !ok {
		return fail[model.Task](fmt.Errorf("task %s: %w", id, ErrUnknownID))
	}
	done := !current.IsCompleted
	return t.Update(ctx, id, model.TaskPatch{IsCompleted: &done})
}

// Delete soft-deletes a task, removing it from the list at once.
func (t *Tasks) Delete(ctx context.Context, id string) Result[model.Task] {
	res := Optimistic(t.Collection,
		func(items []model.Task) ([]model.Task, error) {
			if indexOf(items, taskID, id) < 0 {
				return nil, fmt.Errorf("task %s: %w", id, ErrUnknownID)
			}
			return removeByID(items, taskID, id), nil
		},
		func() (*model.Task, error) { return t.gw.SoftDeleteTask(ctx, t.userID, id) },
		func(items []model.Task, _ *model.Task) []model.Task { return items },
	)
	return deref(res)
}

// Restore undoes a soft delete and puts the task back in the list.
func (t *Tasks) Restore(ctx context.Context, id string) Result[model.Task] {
	restored, err := protect(func() (*model.Task, error) {
		return t.gw.RestoreTask(ctx, t.userID, id)
	})
	if err != nil {
		return fail[model.Task](fmt.Errorf("restoring task: %w", err))
	}
	t.edit(func(items []model.Task) []model.Task {
		if indexOf(items, taskID, id) >= 0 {
			return replaceByID(items, taskID, *restored)
		}
		return append(items, *restored)
	})
	return succeed(*restored)
}

// Reorder assigns sort orders 1..n following ids and moves the list into
// that order. Tasks not named keep their relative order after them.
func (t *Tasks) Reorder(ctx context.Context, ids []string) Result[[]model.Task] {
	now := t.now()
	return Optimistic(t.Collection,
		func(items []model.Task) ([]model.Task, error) {
			out := make([]model.Task, 0, len(items))
			picked := make(map[string]bool, len(ids))
			for i, id := range ids {
				j := indexOf(items, taskID, id)
				if j < 0 {
					return nil, fmt.Errorf("task %s: %w", id, ErrUnknownID)
				}
				order := i + 1
				out = append(out, model.TaskPatch{SortOrder: &order}.Apply(items[j], now))
				picked[id] = true
			}
			for _, it := range items {
				if !picked[it.ID] {
					out = append(out, it)
				}
			}
			return out, nil
		},
		func() ([]model.Task, error) { return t.gw.ReorderTasks(ctx, t.userID, ids) },
		func(items []model.Task, server []model.Task) []model.Task {
			for _, task := range server {
				items = replaceByID(items, taskID, task)
			}
			return items
		},
	)
}

// taskInput is the validation shape of an existing task.
func taskInput(t model.Task) validate.TaskInput {
	in := validate.TaskInput{
		Title:    t.Title,
		Priority: string(t.Priority),
		DueDate:  t.DueDate,
	}
	if t.Description != nil {
		in.Description = *t.Description
	}
	if t.CategoryID != nil {
		in.CategoryID = *t.CategoryID
	}
	return in
}

// deref turns a pointer result into a value result.
func deref[T any](r Result[*T]) Result[T] {
	out := Result[T]{Success: r.Success, Err: r.Err}
	if r.Data != nil {
		out.Data = *r.Data
	}
	return out
}
