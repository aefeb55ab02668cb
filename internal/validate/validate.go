// Package validate holds the pure input checks run before any gateway
// call. A failed check never touches local or remote state.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Errors maps a field name to a user-facing message.
type Errors map[string]string

// Error renders the field errors in a stable order.
func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e[f]))
	}
	return strings.Join(parts, "; ")
}

// Field returns the message for a field, or "".
func (e Errors) Field(name string) string { return e[name] }

// TaskInput is the user-editable shape of a task.
type TaskInput struct {
	Title       string     `json:"title" validate:"notblank,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	CategoryID  string     `json:"category_id" validate:"omitempty,uuid"`
	DueDate     *time.Time `json:"due_date"`
}

// CategoryInput is the user-editable shape of a category.
type CategoryInput struct {
	Name        string `json:"name" validate:"notblank,max=50"`
	Color       string `json:"color" validate:"omitempty,oneof=blue green purple orange red yellow pink gray"`
	Description string `json:"description" validate:"max=200"`
}

// SubtaskInput is the user-editable shape of a subtask. The parent task
// id is mandatory.
type SubtaskInput struct {
	TaskID string `json:"task_id" validate:"required"`
	Title  string `json:"title" validate:"notblank,max=200"`
}

// SignUpInput is the registration form.
type SignUpInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"max=100"`
}

// SignInInput is the login form.
type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()

	// Report json names instead of Go field names.
	val.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	_ = val.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return val
}

// Task validates a task form.
func Task(in TaskInput) error { return check(in) }

// Category validates a category form.
func Category(in CategoryInput) error { return check(in) }

// Subtask validates a subtask form.
func Subtask(in SubtaskInput) error { return check(in) }

// SignUp validates a registration form.
func SignUp(in SignUpInput) error { return check(in) }

// SignIn validates a login form.
func SignIn(in SignInInput) error { return check(in) }

// check runs struct validation and converts failures into Errors.
func check(in any) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating input: %w", err)
	}

	out := make(Errors, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid id"
	}
	return fmt.Sprintf("failed %s check", fe.Tag())
}
