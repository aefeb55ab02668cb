package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nhle/taskflow/internal/model"
)

// ListCategories retrieves all of the user's categories ordered by name.
func (s *SQLiteStore) ListCategories(
	ctx context.Context,
	userID string,
) ([]model.Category, error) {
	var categories []model.Category
	err := s.db.SelectContext(ctx, &categories,
		"SELECT * FROM categories WHERE user_id = ? ORDER BY name", userID)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	return categories, nil
}

// getCategory retrieves a single category owned by userID.
func (s *SQLiteStore) getCategory(
	ctx context.Context,
	userID, id string,
) (*model.Category, error) {
	var category model.Category
	err := s.db.GetContext(ctx, &category,
		"SELECT * FROM categories WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return nil, notFound(err, "getting category %s", id)
	}
	return &category, nil
}

// CreateCategory inserts a new category and returns the stored row.
func (s *SQLiteStore) CreateCategory(
	ctx context.Context,
	category model.Category,
) (*model.Category, error) {
	if strings.TrimSpace(category.Name) == "" {
		return nil, fmt.Errorf("category name must not be empty")
	}
	if category.ID == "" {
		category.ID = uuid.New().String()
	}
	if category.Color == "" {
		category.Color = model.ColorBlue
	}
	now := s.timestamp()
	category.CreatedAt = now
	category.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name, color, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		category.ID, category.UserID, category.Name, string(category.Color),
		category.Description, category.CreatedAt, category.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}
	return s.getCategory(ctx, category.UserID, category.ID)
}

// UpdateCategory applies patch to an existing category.
func (s *SQLiteStore) UpdateCategory(
	ctx context.Context,
	userID, id string,
	patch model.CategoryPatch,
) (*model.Category, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, fmt.Errorf("category name must not be empty")
	}

	existing, err := s.getCategory(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	next := patch.Apply(*existing, s.timestamp())

	result, err := s.db.ExecContext(ctx, `
		UPDATE categories SET
			name = ?, color = ?, description = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		next.Name, string(next.Color), next.Description, next.UpdatedAt,
		id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating category %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	return s.getCategory(ctx, userID, id)
}

// DeleteCategory removes a category. Associated tasks get category_id set
// to NULL.
func (s *SQLiteStore) DeleteCategory(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM categories WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting category %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	return nil
}
