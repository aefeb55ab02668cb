package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/taskflow/internal/model"
)

// ListTasks retrieves the user's tasks matching the filter.
func (s *SQLiteStore) ListTasks(
	ctx context.Context,
	filter TaskFilter,
) ([]model.Task, error) {
	if filter.UserID == "" {
		return nil, fmt.Errorf("listing tasks: user id must not be empty")
	}

	query, args := buildTaskQuery("SELECT *", filter)

	var tasks []model.Task
	if err := s.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	return tasks, nil
}

// GetTask retrieves a single task owned by userID, including soft-deleted
// ones.
func (s *SQLiteStore) GetTask(
	ctx context.Context,
	userID, id string,
) (*model.Task, error) {
	var task model.Task
	err := s.db.GetContext(ctx, &task,
		"SELECT * FROM tasks WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return nil, notFound(err, "getting task %s", id)
	}
	return &task, nil
}

// CreateTask inserts a new task and returns the stored row. Generates a
// UUID if ID is empty and appends the task after the user's last one.
func (s *SQLiteStore) CreateTask(
	ctx context.Context,
	task model.Task,
) (*model.Task, error) {
	if strings.TrimSpace(task.Title) == "" {
		return nil, fmt.Errorf("task title must not be empty")
	}
	if task.UserID == "" {
		return nil, fmt.Errorf("task user id must not be empty")
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if !task.Priority.Valid() {
		task.Priority = model.PriorityMedium
	}
	now := s.timestamp()
	task.CreatedAt = now
	task.UpdatedAt = now
	task.DeletedAt = nil
	if task.IsCompleted && task.CompletedAt == nil {
		task.CompletedAt = &now
	}
	if err := s.checkCategory(ctx, task.UserID, task.CategoryID); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	// Default sort_order to max+1.
	if task.SortOrder == 0 {
		var maxOrder int
		err := s.db.GetContext(ctx, &maxOrder,
			"SELECT COALESCE(MAX(sort_order), 0) FROM tasks WHERE user_id = ?",
			task.UserID)
		if err != nil {
			return nil, fmt.Errorf("getting max sort_order: %w", err)
		}
		task.SortOrder = maxOrder + 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (
			id, user_id, category_id, title, description,
			is_completed, completed_at, priority, due_date,
			sort_order, deleted_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.UserID, task.CategoryID, task.Title, task.Description,
		boolToInt(task.IsCompleted), utcPtr(task.CompletedAt), string(task.Priority),
		utcPtr(task.DueDate), task.SortOrder, nil, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	created, err := s.GetTask(ctx, task.UserID, task.ID)
	if err != nil {
		return nil, err
	}
	s.publish(model.ChangeInsert, task.UserID, nil, created)
	return created, nil
}

// UpdateTask applies patch to the user's task and returns the stored row.
// completed_at is managed from is_completed.
func (s *SQLiteStore) UpdateTask(
	ctx context.Context,
	userID, id string,
	patch model.TaskPatch,
) (*model.Task, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, fmt.Errorf("task title must not be empty")
	}

	old, err := s.GetTask(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if old.IsDeleted() {
		return nil, fmt.Errorf("updating task %s: %w", id, ErrNotFound)
	}

	next := patch.Apply(*old, s.timestamp())
	if !next.Priority.Valid() {
		return nil, fmt.Errorf("invalid priority %q", next.Priority)
	}
	if err := s.checkCategory(ctx, userID, next.CategoryID); err != nil {
		return nil, fmt.Errorf("updating task %s: %w", id, err)
	}

	if err := s.writeTask(ctx, next); err != nil {
		return nil, err
	}

	updated, err := s.GetTask(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	s.publish(model.ChangeUpdate, userID, old, updated)
	return updated, nil
}

// ReorderTasks sets sort_order 1..n following ids in one transaction.
// Either every task moves or none does.
func (s *SQLiteStore) ReorderTasks(
	ctx context.Context,
	userID string,
	ids []string,
) ([]model.Task, error) {
	olds := make([]model.Task, 0, len(ids))
	now := s.timestamp()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for i, id := range ids {
		var old model.Task
		err := tx.GetContext(ctx, &old,
			"SELECT * FROM tasks WHERE id = ? AND user_id = ? AND deleted_at IS NULL",
			id, userID)
		if err != nil {
			return nil, notFound(err, "reordering task %s", id)
		}
		olds = append(olds, old)

		_, err = tx.ExecContext(ctx,
			"UPDATE tasks SET sort_order = ?, updated_at = ? WHERE id = ? AND user_id = ?",
			i+1, now, id, userID)
		if err != nil {
			return nil, fmt.Errorf("reordering task %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing reorder: %w", err)
	}

	updated := make([]model.Task, 0, len(ids))
	for i, id := range ids {
		task, err := s.GetTask(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		s.publish(model.ChangeUpdate, userID, &olds[i], task)
		updated = append(updated, *task)
	}
	return updated, nil
}

// checkCategory verifies that a task's category belongs to userID.
func (s *SQLiteStore) checkCategory(ctx context.Context, userID string, categoryID *string) error {
	if categoryID == nil {
		return nil
	}
	_, err := s.getCategory(ctx, userID, *categoryID)
	return err
}

// SoftDeleteTask stamps deleted_at, hiding the task from default listings.
func (s *SQLiteStore) SoftDeleteTask(
	ctx context.Context,
	userID, id string,
) (*model.Task, error) {
	return s.setDeletedAt(ctx, userID, id, true)
}

// RestoreTask clears deleted_at on a soft-deleted task.
func (s *SQLiteStore) RestoreTask(
	ctx context.Context,
	userID, id string,
) (*model.Task, error) {
	return s.setDeletedAt(ctx, userID, id, false)
}

func (s *SQLiteStore) setDeletedAt(
	ctx context.Context,
	userID, id string,
	deleted bool,
) (*model.Task, error) {
	old, err := s.GetTask(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	var deletedAt *time.Time
	if deleted {
		deletedAt = &now
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET deleted_at = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		deletedAt, now, id, userID)
	if err != nil {
		return nil, fmt.Errorf("setting deleted_at on task %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	updated, err := s.GetTask(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	s.publish(model.ChangeUpdate, userID, old, updated)
	return updated, nil
}

// DeleteTask permanently removes a task. Cascades to subtasks.
func (s *SQLiteStore) DeleteTask(ctx context.Context, userID, id string) error {
	old, err := s.GetTask(ctx, userID, id)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM tasks WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	s.publish(model.ChangeDelete, userID, old, nil)
	return nil
}

// TaskStats returns aggregate counts over the user's live tasks. "Due
// today" is evaluated against the calendar day of now in now's location.
func (s *SQLiteStore) TaskStats(
	ctx context.Context,
	userID string,
	now time.Time,
) (*model.TaskStats, error) {
	y, m, d := now.Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	var stats model.TaskStats
	err := s.db.GetContext(ctx, &stats, `
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN is_completed = 1 THEN 1 ELSE 0 END), 0) AS completed,
			COALESCE(SUM(CASE WHEN is_completed = 0 THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN is_completed = 0 AND due_date IS NOT NULL
				AND due_date < ? THEN 1 ELSE 0 END), 0) AS overdue,
			COALESCE(SUM(CASE WHEN is_completed = 0 AND due_date >= ?
				AND due_date < ? THEN 1 ELSE 0 END), 0) AS due_today
		FROM tasks
		WHERE user_id = ? AND deleted_at IS NULL`,
		now.UTC(), startOfDay.UTC(), endOfDay.UTC(), userID,
	)
	if err != nil {
		return nil, fmt.Errorf("computing task stats: %w", err)
	}
	return &stats, nil
}

// writeTask persists every mutable column of task.
func (s *SQLiteStore) writeTask(ctx context.Context, task model.Task) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET
			category_id = ?, title = ?, description = ?,
			is_completed = ?, completed_at = ?, priority = ?,
			due_date = ?, sort_order = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		task.CategoryID, task.Title, task.Description,
		boolToInt(task.IsCompleted), utcPtr(task.CompletedAt), string(task.Priority),
		utcPtr(task.DueDate), task.SortOrder, task.UpdatedAt.UTC(),
		task.ID, task.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating task %s: %w", task.ID, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s: %w", task.ID, ErrNotFound)
	}
	return nil
}

// buildTaskQuery constructs the SQL query and args for a TaskFilter.
func buildTaskQuery(selectClause string, filter TaskFilter) (string, []interface{}) {
	conditions := []string{"user_id = ?"}
	args := []interface{}{filter.UserID}

	if !filter.IncludeDeleted {
		conditions = append(conditions, "deleted_at IS NULL")
	}
	if filter.Completed != nil {
		conditions = append(conditions, "is_completed = ?")
		args = append(args, boolToInt(*filter.Completed))
	}
	if filter.CategoryID != nil {
		if *filter.CategoryID == "none" {
			conditions = append(conditions, "category_id IS NULL")
		} else {
			conditions = append(conditions, "category_id = ?")
			args = append(args, *filter.CategoryID)
		}
	}
	if filter.Priority != nil {
		conditions = append(conditions, "priority = ?")
		args = append(args, string(*filter.Priority))
	}
	if filter.DueBefore != nil {
		conditions = append(conditions, "due_date IS NOT NULL AND due_date <= ?")
		args = append(args, filter.DueBefore.UTC())
	}
	if filter.DueAfter != nil {
		conditions = append(conditions, "due_date IS NOT NULL AND due_date >= ?")
		args = append(args, filter.DueAfter.UTC())
	}
	if filter.Query != nil && *filter.Query != "" {
		conditions = append(conditions,
			"(title LIKE ? OR COALESCE(description, '') LIKE ?)")
		q := "%" + *filter.Query + "%"
		args = append(args, q, q)
	}

	query := selectClause + " FROM tasks WHERE " + strings.Join(conditions, " AND ")
	query += " ORDER BY sort_order ASC, created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	return query, args
}
