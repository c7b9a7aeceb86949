package watch

import (
	"context"
	"sync/atomic"
)

type state[T any] struct {
	value    T
	ok       bool
	outdated chan struct{}
}

// Cell holds the latest published value of type T and wakes waiting
// subscribers whenever it is replaced. Single writer, any number of
// readers. A reader never observes a half-written value: the whole
// state is swapped atomically.
type Cell[T any] struct {
	cur atomic.Pointer[state[T]]
}

func NewCell[T any]() *Cell[T] {
	c := &Cell[T]{}
	c.cur.Store(&state[T]{outdated: make(chan struct{})})
	return c
}

// Set replaces the current value and wakes every subscriber waiting in
// NextChange. Previous values are not queued anywhere: a slow
// subscriber only ever sees the latest one.
func (c *Cell[T]) Set(v T) {
	prev := c.cur.Swap(&state[T]{value: v, ok: true, outdated: make(chan struct{})})
	close(prev.outdated)
}

// Get returns the current value, with ok=false before the first Set.
func (c *Cell[T]) Get() (T, bool) {
	st := c.cur.Load()
	return st.value, st.ok
}

// Subscribe returns an independent view of the cell. Each subscription
// tracks which state it has already observed, so concurrent
// subscribers don't steal each other's wakeups.
func (c *Cell[T]) Subscribe() *Subscription[T] {
	return &Subscription[T]{cell: c, seen: c.cur.Load()}
}

type Subscription[T any] struct {
	cell *Cell[T]
	seen *state[T]
}

// Current returns the latest value without consuming the pending
// change notification, with ok=false before the first Set.
func (s *Subscription[T]) Current() (T, bool) {
	return s.cell.Get()
}

// NextChange blocks until the cell holds a state this subscription has
// not observed yet, then returns it. Returns immediately if a Set
// happened since the last NextChange (or since Subscribe).
func (s *Subscription[T]) NextChange(ctx context.Context) (T, bool, error) {
	for {
		cur := s.cell.cur.Load()
		if cur != s.seen {
			s.seen = cur
			return cur.value, cur.ok, nil
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, false, ctx.Err()
		case <-cur.outdated:
		}
	}
}
