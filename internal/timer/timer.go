// Package timer provides the single-slot timers behind debounced commits.
package timer

import (
	"sync"
	"time"
)

type Stopper interface {
	Stop() bool
}

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Stopper
}

type realClock struct{}

func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// Slot holds at most one pending timer. Arming cancels whatever was pending.
// Each arm gets a generation number so a callback that was already running
// when it got cancelled does nothing.
type Slot struct {
	clock Clock

	mu      sync.Mutex
	pending Stopper
	gen     uint64
}

func NewSlot(c Clock) *Slot {
	if c == nil {
		c = Real()
	}
	return &Slot{clock: c}
}

func (s *Slot) Arm(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.gen++
	gen := s.gen
	s.pending = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		if s.gen != gen || s.pending == nil {
			s.mu.Unlock()
			return
		}
		s.pending = nil
		s.mu.Unlock()
		fn()
	})
}

// Cancel reports whether a timer was pending.
func (s *Slot) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	had := s.pending != nil
	s.stopLocked()
	s.gen++
	return had
}

func (s *Slot) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

func (s *Slot) stopLocked() {
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}

// Debouncer is a trailing-edge debounce: fn runs once, with the arguments of
// the last Call, after wait has passed without another Call.
type Debouncer[T any] struct {
	slot *Slot
	wait time.Duration
	fn   func(T)
}

func NewDebouncer[T any](c Clock, wait time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{slot: NewSlot(c), wait: wait, fn: fn}
}

func (d *Debouncer[T]) Call(arg T) {
	d.slot.Arm(d.wait, func() { d.fn(arg) })
}

func (d *Debouncer[T]) Cancel() bool { return d.slot.Cancel() }

func (d *Debouncer[T]) Pending() bool { return d.slot.Pending() }
