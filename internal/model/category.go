package model

import "time"

// CategoryColor is the fixed palette a category may use.
type CategoryColor string

// Category color constants.
const (
	ColorBlue   CategoryColor = "blue"
	ColorGreen  CategoryColor = "green"
	ColorPurple CategoryColor = "purple"
	ColorOrange CategoryColor = "orange"
	ColorRed    CategoryColor = "red"
	ColorYellow CategoryColor = "yellow"
	ColorPink   CategoryColor = "pink"
	ColorGray   CategoryColor = "gray"
)

// CategoryColors lists every allowed color in display order.
var CategoryColors = []CategoryColor{
	ColorBlue, ColorGreen, ColorPurple, ColorOrange,
	ColorRed, ColorYellow, ColorPink, ColorGray,
}

// Category is a user-defined grouping for tasks.
type Category struct {
	ID          string        `json:"id" db:"id"`
	UserID      string        `json:"user_id" db:"user_id"`
	Name        string        `json:"name" db:"name"`
	Color       CategoryColor `json:"color" db:"color"`
	Description *string       `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// CategoryPatch is a partial update to a category.
type CategoryPatch struct {
	Name        *string
	Color       *CategoryColor
	Description *string
}

// Apply returns a copy of c with the patch applied.
func (p CategoryPatch) Apply(c Category, now time.Time) Category {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	if p.Description != nil {
		desc := *p.Description
		c.Description = &desc
	}
	c.UpdatedAt = now
	return c
}
