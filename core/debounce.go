package core

import (
	"sync"
	"time"

	"pkt.systems/cmdweb/schema"
)

const defaultDebounceInterval = schema.DefaultDebounceInterval

// timerHandle is the subset of *time.Timer the debouncer needs.
type timerHandle interface {
	Stop() bool
}

// afterFunc schedules f after d. Production code uses time.AfterFunc.
type afterFunc func(d time.Duration, f func()) timerHandle

func realAfterFunc(d time.Duration, f func()) timerHandle {
	return time.AfterFunc(d, f)
}

// Debouncer delays fn until interval has passed without another Call.
// Only the value passed to the most recent Call reaches fn.
type Debouncer[T any] struct {
	mu       sync.Mutex
	interval time.Duration
	fn       func(T)
	after    afterFunc
	timer    timerHandle
	gen      uint64
	closed   bool
}

// NewDebouncer returns a debouncer for fn. A non-positive interval uses
// schema.DefaultDebounceInterval.
func NewDebouncer[T any](interval time.Duration, fn func(T)) *Debouncer[T] {
	return newDebouncer(interval, fn, nil)
}

func newDebouncer[T any](interval time.Duration, fn func(T), after afterFunc) *Debouncer[T] {
	if interval <= 0 {
		interval = defaultDebounceInterval
	}
	if after == nil {
		after = realAfterFunc
	}
	return &Debouncer[T]{interval: interval, fn: fn, after: after}
}

// Call reschedules the pending invocation with v.
func (d *Debouncer[T]) Call(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.fn == nil {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.after(d.interval, func() { d.fire(gen, v) })
}

// fire runs fn unless the call was superseded. A timer can fire while Stop
// races with it, so the generation is the source of truth.
func (d *Debouncer[T]) fire(gen uint64, v T) {
	d.mu.Lock()
	if d.closed || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	fn := d.fn
	d.mu.Unlock()
	fn(v)
}

// Cancel drops the pending invocation, if any.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

func (d *Debouncer[T]) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

// Pending reports whether an invocation is scheduled.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Close cancels the pending invocation and ignores later calls.
func (d *Debouncer[T]) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.closed = true
}
