// Package state holds immutable view-state snapshots and publishes every
// replacement to subscribers.
//
// A Cell never hands out a pointer to its value. Writers compute a new
// snapshot from the current one inside Update; the swap and the fan-out happen
// under one lock, so renderers only ever observe whole snapshots.
package state

import (
	"log/slog"
	"sync"

	"github.com/trashtalkapp/trashtalk-client/internal/id"
)

// Cell is an observable holder of one snapshot value.
// T must be treated as immutable by callers: copy slices before changing them.
type Cell[T any] struct {
	mu     sync.Mutex
	value  T
	subs   map[string]chan T
	closed bool
	name   string
	logger *slog.Logger
}

// NewCell creates a cell holding initial. name appears in log lines.
func NewCell[T any](name string, initial T, logger *slog.Logger) *Cell[T] {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cell[T]{
		value:  initial,
		subs:   make(map[string]chan T),
		name:   name,
		logger: logger,
	}
}

// Get returns the current snapshot.
func (c *Cell[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Update replaces the snapshot with fn(current) and publishes it.
// fn runs under the cell lock and must not call back into the cell.
func (c *Cell[T]) Update(fn func(T) T) T {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = fn(c.value)
	c.publish(c.value)
	return c.value
}

// Modify is Update with a veto: when fn reports false the snapshot is left
// as it was and nothing is published.
func (c *Cell[T]) Modify(fn func(T) (T, bool)) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, ok := fn(c.value)
	if !ok {
		return c.value, false
	}
	c.value = next
	c.publish(c.value)
	return c.value, true
}

// Subscribe returns a channel that receives the current snapshot immediately
// and every later one. Delivery is latest-wins: a subscriber that falls behind
// skips intermediate snapshots but always sees the newest. Call cancel to stop.
func (c *Cell[T]) Subscribe() (<-chan T, func()) {
	subID := id.MustGenerate("sub")
	ch := make(chan T, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	c.subs[subID] = ch
	ch <- c.value
	total := len(c.subs)
	c.mu.Unlock()

	c.logger.Debug("snapshot subscriber added",
		slog.String("cell", c.name),
		slog.String("subscriber_id", subID),
		slog.Int("total_subscribers", total))

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[subID]; ok {
				delete(c.subs, subID)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// SubscriberCount returns the number of live subscribers.
func (c *Cell[T]) SubscriberCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Close closes every subscriber channel. Later updates still replace the
// value but publish nowhere.
func (c *Cell[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for subID, ch := range c.subs {
		close(ch)
		delete(c.subs, subID)
	}
	c.closed = true
}

// publish must be called with c.mu held.
func (c *Cell[T]) publish(v T) {
	var replaced int
	for _, ch := range c.subs {
		select {
		case ch <- v:
			continue
		default:
		}
		// Buffer holds an older snapshot the subscriber hasn't read yet.
		select {
		case <-ch:
			replaced++
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
	if replaced > 0 {
		c.logger.Debug("skipped stale snapshots for slow subscribers",
			slog.String("cell", c.name),
			slog.Int("subscribers", replaced))
	}
}
