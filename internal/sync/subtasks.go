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

func subtaskID(s model.Subtask) string { return s.ID }

// Subtasks is the checklist of one task.
type Subtasks struct {
	*Collection[model.Subtask]

	gw     store.Store
	userID string
	taskID string
	now    func() time.Time
}

// Progress summarizes a checklist.
type Progress struct {
	Done    int
	Total   int
	Percent int
}

// NewSubtasks creates an empty checklist for taskID.
func NewSubtasks(gw store.Store, userID, taskID string, logger *zap.Logger) *Subtasks {
	return &Subtasks{
		Collection: NewCollection(subtaskID, logger),
		gw:         gw,
		userID:     userID,
		taskID:     taskID,
		now:        time.Now,
	}
}

// Load fetches the task's subtasks in sort order.
func (s *Subtasks) Load(ctx context.Context) Result[[]model.Subtask] {
	subs, err := protect(func() ([]model.Subtask, error) {
		return s.gw.ListSubtasks(ctx, s.userID, s.taskID)
	})
	if err != nil {
		return fail[[]model.Subtask](fmt.Errorf("loading subtasks: %w", err))
	}
	s.replace(subs)
	return succeed(subs)
}

// Create appends a subtask once the backend has assigned its sort order.
func (s *Subtasks) Create(ctx context.Context, title string) Result[model.Subtask] {
	if err := validate.Subtask(validate.SubtaskInput{TaskID: s.taskID, Title: title}); err != nil {
		return fail[model.Subtask](err)
	}

	created, err := protect(func() (*model.Subtask, error) {
		return s.gw.CreateSubtask(ctx, s.userID, model.Subtask{TaskID: s.taskID, Title: title})
	})
	if err != nil {
		return fail[model.Subtask](fmt.Errorf("creating subtask: %w", err))
	}
	s.edit(func(items []model.Subtask) []model.Subtask { return append(items, *created) })
	return succeed(*created)
}

// Update applies patch optimistically.
func (s *Subtasks) Update(ctx context.Context, id string, patch model.SubtaskPatch) Result[model.Subtask] {
	res := Optimistic(s.Collection,
		func(items []model.Subtask) ([]model.Subtask, error) {
			i := indexOf(items, subtaskID, id)
			if i < 0 {
				return nil, fmt.Errorf("subtask %s: %w", id, ErrUnknownID)
			}
			next := patch.Apply(items[i], s.now())
			if err := validate.Subtask(validate.SubtaskInput{TaskID: next.TaskID, Title: next.Title}); err != nil {
				return nil, err
			}
			items[i] = next
			return items, nil
		},
		func() (*model.Subtask, error) { return s.gw.UpdateSubtask(ctx, s.userID, id, patch) },
		func(items []model.Subtask, server *model.Subtask) []model.Subtask {
			if server == nil {
				return items
			}
			return replaceByID(items, subtaskID, *server)
		},
	)
	return deref(res)
}

// Toggle flips a subtask's completion flag.
func (s *Subtasks) Toggle(ctx context.Context, id string) Result[model.Subtask] {
	res := Optimistic(s.Collection,
		func(items []model.Subtask) ([]model.Subtask, error) {
			i := indexOf(items, subtaskID, id)
			if i < 0 {
				return nil, fmt.Errorf("subtask %s: %w", id, ErrUnknownID)
			}
			done := !items[i].IsCompleted
			items[i] = model.SubtaskPatch{IsCompleted: &done}.Apply(items[i], s.now())
			return items, nil
		},
		func() (*model.Subtask, error) { return s.gw.ToggleSubtask(ctx, s.userID, id) },
		func(items []model.Subtask, server *model.Subtask) []model.Subtask {
			if server == nil {
				return items
			}
			return replaceByID(items, subtaskID, *server)
		},
	)
	return deref(res)
}

// Delete removes a subtask.
func (s *Subtasks) Delete(ctx context.Context, id string) Result[struct{}] {
	return Optimistic(s.Collection,
		func(items []model.Subtask) ([]model.Subtask, error) {
			if indexOf(items, subtaskID, id) < 0 {
				return nil, fmt.Errorf("subtask %s: %w", id, ErrUnknownID)
			}
			return removeByID(items, subtaskID, id), nil
		},
		func() (struct{}, error) { return struct{}{}, s.gw.DeleteSubtask(ctx, s.userID, id) },
		func(items []model.Subtask, _ struct{}) []model.Subtask { return items },
	)
}

// Progress counts completed subtasks.
func (s *Subtasks) Progress() Progress {
	items := s.Items()
	p := Progress{Total: len(items)}
	for _, it := range items {
		if it.IsCompleted {
			p.Done++
		}
	}
	if p.Total > 0 {
		p.Percent = p.Done * 100 / p.Total
	}
	return p
}
