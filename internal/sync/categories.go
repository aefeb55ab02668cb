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

func categoryID(c model.Category) string { return c.ID }

// Categories is the signed-in user's category list.
type Categories struct {
	*Collection[model.Category]

	gw     store.Store
	userID string
	now    func() time.Time
}

// NewCategories creates an empty category list for userID.
func NewCategories(gw store.Store, userID string, logger *zap.Logger) *Categories {
	return &Categories{
		Collection: NewCollection(categoryID, logger),
		gw:         gw,
		userID:     userID,
		now:        time.Now,
	}
}

// Load fetches every category of the user.
func (c *Categories) Load(ctx context.Context) Result[[]model.Category] {
	cats, err := protect(func() ([]model.Category, error) {
		return c.gw.ListCategories(ctx, c.userID)
	})
	if err != nil {
		return fail[[]model.Category](fmt.Errorf("loading categories: %w", err))
	}
	c.replace(cats)
	return succeed(cats)
}

// Create validates in and inserts the category returned by the backend.
func (c *Categories) Create(ctx context.Context, in validate.CategoryInput) Result[model.Category] {
	if err := validate.Category(in); err != nil {
		return fail[model.Category](err)
	}

	cat := model.Category{
		UserID: c.userID,
		Name:   in.Name,
		Color:  model.CategoryColor(in.Color),
	}
	if in.Description != "" {
		cat.Description = &in.Description
	}

	created, err := protect(func() (*model.Category, error) {
		return c.gw.CreateCategory(ctx, cat)
	})
	if err != nil {
		return fail[model.Category](fmt.Errorf("creating category: %w", err))
	}
	c.edit(func(items []model.Category) []model.Category { return append(items, *created) })
	return succeed(*created)
}

// Update applies patch optimistically.
func (c *Categories) Update(ctx context.Context, id string, patch model.CategoryPatch) Result[model.Category] {
	res := Optimistic(c.Collection,
		func(items []model.Category) ([]model.Category, error) {
			i := indexOf(items, categoryID, id)
			if i < 0 {
				return nil, fmt.Errorf("category %s: %w", id, ErrUnknownID)
			}
			next := patch.Apply(items[i], c.now())
			if err := validate.Category(categoryInput(next)); err != nil {
				return nil, err
			}
			items[i] = next
			return items, nil
		},
		func() (*model.Category, error) { return c.gw.UpdateCategory(ctx, c.userID, id, patch) },
		func(items []model.Category, server *model.Category) []model.Category {
			if server == nil {
				return items
			}
			return replaceByID(items, categoryID, *server)
		},
	)
	return deref(res)
}

// Delete removes a category. Tasks in it become uncategorized.
func (c *Categories) Delete(ctx context.Context, id string) Result[struct{}] {
	return Optimistic(c.Collection,
		func(items []model.Category) ([]model.Category, error) {
			if indexOf(items, categoryID, id) < 0 {
				return nil, fmt.Errorf("category %s: %w", id, ErrUnknownID)
			}
			return removeByID(items, categoryID, id), nil
		},
		func() (struct{}, error) { return struct{}{}, c.gw.DeleteCategory(ctx, c.userID, id) },
		func(items []model.Category, _ struct{}) []model.Category { return items },
	)
}

func categoryInput(c model.Category) validate.CategoryInput {
	in := validate.CategoryInput{Name: c.Name, Color: string(c.Color)}
	if c.Description != nil {
		in.Description = *c.Description
	}
	return in
}
