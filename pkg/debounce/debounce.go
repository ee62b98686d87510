// Package debounce provides a single-slot timer that delays propagation of a
// rapidly-changing value until a quiet period elapses.
package debounce

import (
	"sync"
	"time"
)

// Debouncer delays delivery of the most recently scheduled value until no new
// value has been scheduled for the configured delay. The timer is single-slot:
// scheduling again before expiry replaces the pending value, it is never
// queued behind it.
type Debouncer[T any] struct {
	mu      sync.Mutex
	delay   time.Duration
	fire    func(T)
	timer   *time.Timer
	stopped bool
}

// New creates a Debouncer that invokes fire with the last scheduled value
// after delay of quiet time. A delay of zero still fires asynchronously on
// the timer goroutine, never from inside Schedule, so callers can rely on
// Schedule returning before fire runs.
func New[T any](delay time.Duration, fire func(T)) *Debouncer[T] {
	if delay < 0 {
		delay = 0
	}
	return &Debouncer[T]{
		delay: delay,
		fire:  fire,
	}
}

// Schedule arms the timer for value, cancelling any pending invocation.
// Only the value from the last Schedule call before expiry is delivered.
func (d *Debouncer[T]) Schedule(value T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.stopped {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()

		d.fire(value)
	})
}

// Stop cancels any pending invocation and prevents all future ones.
// Stop is idempotent; Schedule after Stop is a no-op.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Delay returns the configured quiet period.
func (d *Debouncer[T]) Delay() time.Duration {
	return d.delay
}
