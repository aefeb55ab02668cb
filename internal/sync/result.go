package sync

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by operations on a closed collection.
	ErrClosed = errors.New("collection closed")

	// ErrUnknownID is returned when an operation names an entity that is
	// not in the collection.
	ErrUnknownID = errors.New("not in collection")
)

// Result is the uniform outcome of a collection operation. Callers branch
// on Success instead of handling panics or sentinel values.
type Result[T any] struct {
	Success bool
	Data    T
	Err     error
}

func succeed[T any](v T) Result[T] {
	return Result[T]{Success: true, Data: v}
}

func fail[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

// Message returns a user-facing description of a failed result, or "".
func (r Result[T]) Message() string {
	if r.Success || r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// protect runs fn, converting a panic into an error.
func protect[R any](fn func() (R, error)) (res R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected failure: %v", r)
		}
	}()
	return fn()
}
