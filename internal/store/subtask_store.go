package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nhle/taskflow/internal/model"
)

// ownedSubtask restricts subtask statements to rows whose parent task
// belongs to the given user.
const ownedSubtask = "task_id IN (SELECT id FROM tasks WHERE user_id = ?)"

// ListSubtasks returns all subtasks for a task, ordered by sort_order.
func (s *SQLiteStore) ListSubtasks(
	ctx context.Context,
	userID, taskID string,
) ([]model.Subtask, error) {
	var subtasks []model.Subtask
	err := s.db.SelectContext(ctx, &subtasks,
		"SELECT * FROM subtasks WHERE task_id = ? AND "+ownedSubtask+" ORDER BY sort_order",
		taskID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying subtasks: %w", err)
	}
	return subtasks, nil
}

// getSubtask retrieves a single subtask owned (through its task) by userID.
func (s *SQLiteStore) getSubtask(
	ctx context.Context,
	userID, id string,
) (*model.Subtask, error) {
	var subtask model.Subtask
	err := s.db.GetContext(ctx, &subtask,
		"SELECT * FROM subtasks WHERE id = ? AND "+ownedSubtask, id, userID)
	if err != nil {
		return nil, notFound(err, "getting subtask %s", id)
	}
	return &subtask, nil
}

// CreateSubtask inserts a new subtask after the task's last one. The
// sort order is always max(existing)+1, regardless of the caller's value.
func (s *SQLiteStore) CreateSubtask(
	ctx context.Context,
	userID string,
	subtask model.Subtask,
) (*model.Subtask, error) {
	if strings.TrimSpace(subtask.Title) == "" {
		return nil, fmt.Errorf("subtask title must not be empty")
	}
	if _, err := s.GetTask(ctx, userID, subtask.TaskID); err != nil {
		return nil, fmt.Errorf("creating subtask: %w", err)
	}
	if subtask.ID == "" {
		subtask.ID = uuid.New().String()
	}
	now := s.timestamp()
	subtask.CreatedAt = now
	subtask.UpdatedAt = now

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var maxOrder int
	err = tx.GetContext(ctx, &maxOrder,
		"SELECT COALESCE(MAX(sort_order), 0) FROM subtasks WHERE task_id = ?",
		subtask.TaskID)
	if err != nil {
		return nil, fmt.Errorf("getting max subtask sort_order: %w", err)
	}
	subtask.SortOrder = maxOrder + 1

	_, err = tx.ExecContext(ctx, `
		INSERT INTO subtasks (id, task_id, title, is_completed, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		subtask.ID, subtask.TaskID, subtask.Title, boolToInt(subtask.IsCompleted),
		subtask.SortOrder, subtask.CreatedAt, subtask.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("adding subtask: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing subtask: %w", err)
	}

	return s.getSubtask(ctx, userID, subtask.ID)
}

// UpdateSubtask applies patch to an existing subtask.
func (s *SQLiteStore) UpdateSubtask(
	ctx context.Context,
	userID, id string,
	patch model.SubtaskPatch,
) (*model.Subtask, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, fmt.Errorf("subtask title must not be empty")
	}

	existing, err := s.getSubtask(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	next := patch.Apply(*existing, s.timestamp())

	result, err := s.db.ExecContext(ctx,
		"UPDATE subtasks SET title = ?, is_completed = ?, sort_order = ?, updated_at = ? WHERE id = ?",
		next.Title, boolToInt(next.IsCompleted), next.SortOrder, next.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating subtask %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, fmt.Errorf("subtask %s: %w", id, ErrNotFound)
	}
	return s.getSubtask(ctx, userID, id)
}

// ToggleSubtask flips the completion state of a subtask.
func (s *SQLiteStore) ToggleSubtask(
	ctx context.Context,
	userID, id string,
) (*model.Subtask, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE subtasks SET is_completed = CASE WHEN is_completed = 0 THEN 1 ELSE 0 END, updated_at = ? WHERE id = ? AND "+ownedSubtask,
		s.timestamp(), id, userID)
	if err != nil {
		return nil, fmt.Errorf("toggling subtask %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, fmt.Errorf("subtask %s: %w", id, ErrNotFound)
	}
	return s.getSubtask(ctx, userID, id)
}

// DeleteSubtask removes a subtask by ID.
func (s *SQLiteStore) DeleteSubtask(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM subtasks WHERE id = ? AND "+ownedSubtask, id, userID)
	if err != nil {
		return fmt.Errorf("deleting subtask %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("subtask %s: %w", id, ErrNotFound)
	}
	return nil
}
