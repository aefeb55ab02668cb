package realtime

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nhle/taskflow/internal/model"
)

// Filter selects which change events a channel receives.
type Filter struct {
	// Table must match the event table.
	Table string

	// UserID, when set, restricts delivery to rows owned by that user
	// (the "user_id=eq.<id>" filter of the managed feed).
	UserID string
}

// Matches reports whether e passes the filter.
func (f Filter) Matches(e model.ChangeEvent) bool {
	if f.Table != "" && f.Table != e.Table {
		return false
	}
	if f.UserID != "" && f.UserID != e.UserID {
		return false
	}
	return true
}

// String renders the filter in the managed feed's syntax.
func (f Filter) String() string {
	if f.UserID == "" {
		return f.Table
	}
	return fmt.Sprintf("%s:user_id=eq.%s", f.Table, f.UserID)
}

// Handler receives change events for a subscribed channel.
type Handler func(model.ChangeEvent)

// Channel is a live subscription returned by Hub.Subscribe.
type Channel struct {
	hub     *Hub
	name    string
	filter  Filter
	handler Handler
}

// Name returns the logical channel name.
func (c *Channel) Name() string { return c.name }

// Unsubscribe removes the channel from the hub. It is safe to call more
// than once; later calls return an error that callers are expected to
// log and ignore.
func (c *Channel) Unsubscribe() error {
	return c.hub.remove(c)
}

// Hub is an in-process change feed. Events published to the hub are
// delivered synchronously, outside the hub's lock, to every channel
// whose filter matches.
type Hub struct {
	logger *zap.Logger

	mu       sync.RWMutex
	channels map[string]*Channel
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:   logger,
		channels: make(map[string]*Channel),
	}
}

// Subscribe registers handler under a logical channel name. Any existing
// channel with the same name is torn down first, so a name never has more
// than one listener.
func (h *Hub) Subscribe(name string, filter Filter, handler Handler) *Channel {
	ch := &Channel{hub: h, name: name, filter: filter, handler: handler}

	h.mu.Lock()
	_, replaced := h.channels[name]
	h.channels[name] = ch
	h.mu.Unlock()

	if replaced {
		h.logger.Debug("replaced existing realtime channel", zap.String("channel", name))
	}
	h.logger.Debug("realtime channel subscribed",
		zap.String("channel", name), zap.Stringer("filter", filter))
	return ch
}

// Publish delivers e to every matching channel.
func (h *Hub) Publish(e model.ChangeEvent) {
	h.mu.RLock()
	targets := make([]*Channel, 0, len(h.channels))
	for _, ch := range h.channels {
		if ch.filter.Matches(e) {
			targets = append(targets, ch)
		}
	}
	h.mu.RUnlock()

	for _, ch := range targets {
		h.deliver(ch, e)
	}
}

// deliver invokes a handler, containing any panic so one bad listener
// cannot break the publisher.
func (h *Hub) deliver(ch *Channel, e model.ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("realtime handler panicked",
				zap.String("channel", ch.name), zap.Any("panic", r))
		}
	}()
	ch.handler(e)
}

// Len returns the number of live channels.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}

func (h *Hub) remove(ch *Channel) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	current, ok := h.channels[ch.name]
	if !ok || current != ch {
		return fmt.Errorf("channel %s is not subscribed", ch.name)
	}
	delete(h.channels, ch.name)
	return nil
}
