package sync

import (
	"fmt"
	gosync "sync"

	"go.uber.org/zap"
)

// Collection is a locally cached list of entities that supports
// optimistic mutation: capture a snapshot, apply the change, call the
// backend, then commit the server's answer or restore the snapshot.
//
// Close detaches the collection; responses arriving afterwards are
// dropped rather than applied.
type Collection[T any] struct {
	id     func(T) string
	logger *zap.Logger

	mu        gosync.Mutex
	items     []T
	closed    bool
	observers map[int]func([]T)
	nextObsID int
}

// NewCollection creates an empty collection keyed by id.
func NewCollection[T any](id func(T) string, logger *zap.Logger) *Collection[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collection[T]{
		id:        id,
		logger:    logger,
		observers: make(map[int]func([]T)),
	}
}

// Items returns a copy of the current items.
func (c *Collection[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return clone(c.items)
}

// Len returns the number of items.
func (c *Collection[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Get returns the item with the given id.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := indexOf(c.items, c.id, id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

// Subscribe registers fn to receive the items after every change.
func (c *Collection[T]) Subscribe(fn func([]T)) (unsubscribe func()) {
	c.mu.Lock()
	c.nextObsID++
	id := c.nextObsID
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers, id)
	}
}

// Close detaches the collection. Pending operations still reach the
// backend, but their results are no longer applied locally.
func (c *Collection[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.observers = make(map[int]func([]T))
}

// Closed reports whether Close has been called.
func (c *Collection[T]) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// RenderKeys returns one unique key per item, combining the id with the
// list position. Repeated ids are logged as a data-integrity problem.
func (c *Collection[T]) RenderKeys() []string {
	c.mu.Lock()
	items := clone(c.items)
	c.mu.Unlock()

	keys := make([]string, len(items))
	seen := make(map[string]int, len(items))
	for i, it := range items {
		id := c.id(it)
		if first, dup := seen[id]; dup {
			c.logger.Warn("duplicate id in collection",
				zap.String("id", id), zap.Int("first_index", first), zap.Int("index", i))
		} else {
			seen[id] = i
		}
		keys[i] = fmt.Sprintf("%s#%d", id, i)
	}
	return keys
}

// replace swaps in a freshly loaded list.
func (c *Collection[T]) replace(items []T) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.items = clone(items)
	c.mu.Unlock()

	c.notify()
	return true
}

// edit applies fn to the items under the lock. It is used for
// non-optimistic changes that follow a successful backend call.
func (c *Collection[T]) edit(fn func([]T) []T) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.items = fn(clone(c.items))
	c.mu.Unlock()

	c.notify()
	return true
}

func (c *Collection[T]) notify() {
	c.mu.Lock()
	items := clone(c.items)
	observers := make([]func([]T), 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.mu.Unlock()

	for _, fn := range observers {
		fn(items)
	}
}

// Optimistic runs one optimistic mutation on c.
//
// apply receives a copy of the items and returns the optimistic list, or
// an error to abort before anything changes. remote performs the backend
// call. On failure the items are restored to the exact pre-change
// snapshot; on success commit folds the server's answer into the list.
// If c is closed by the time remote returns, nothing is applied.
func Optimistic[T, R any](
	c *Collection[T],
	apply func([]T) ([]T, error),
	remote func() (R, error),
	commit func([]T, R) []T,
) Result[R] {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fail[R](ErrClosed)
	}
	snapshot := clone(c.items)
	next, err := apply(clone(c.items))
	if err != nil {
		c.mu.Unlock()
		return fail[R](err)
	}
	c.items = next
	c.mu.Unlock()
	c.notify()

	res, err := protect(remote)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.logger.Debug("dropping result for closed collection", zap.Error(err))
		if err != nil {
			return fail[R](err)
		}
		return succeed(res)
	}
	if err != nil {
		c.items = snapshot
	} else {
		c.items = commit(clone(c.items), res)
	}
	c.mu.Unlock()
	c.notify()

	if err != nil {
		c.logger.Warn("optimistic change rolled back", zap.Error(err))
		return fail[R](err)
	}
	return succeed(res)
}

// replaceByID swaps the entry with v's id for v. Entries removed in the
// meantime stay removed.
func replaceByID[T any](items []T, id func(T) string, v T) []T {
	if i := indexOf(items, id, id(v)); i >= 0 {
		items[i] = v
	}
	return items
}

// removeByID deletes the entry with the given id.
func removeByID[T any](items []T, id func(T) string, target string) []T {
	if i := indexOf(items, id, target); i >= 0 {
		return append(items[:i], items[i+1:]...)
	}
	return items
}

func indexOf[T any](items []T, id func(T) string, target string) int {
	for i, it := range items {
		if id(it) == target {
			return i
		}
	}
	return -1
}

func clone[T any](items []T) []T {
	if items == nil {
		return nil
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}
