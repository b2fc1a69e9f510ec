// Package dispatch runs tasks posted from any goroutine on a single
// consumer goroutine, in posting order.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrClosed is returned when posting to a closed Dispatcher.
var ErrClosed = errors.New("dispatcher closed")

// Dispatcher is an unbounded FIFO of tasks. Post never blocks. Run executes
// tasks one at a time, so tasks never overlap and see each other's effects
// in posting order.
type Dispatcher struct {
	log *slog.Logger

	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{} // Capacity 1; signalled when queue grows or on close
}

// New creates a Dispatcher. Nothing runs until Run is called.
func New(log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		log:  log.With("component", "dispatch"),
		wake: make(chan struct{}, 1),
	}
}

// Post enqueues fn. It reports false if the dispatcher is closed.
// Safe for concurrent use.
func (d *Dispatcher) Post(fn func()) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	d.queue = append(d.queue, fn)
	d.mu.Unlock()

	d.signal()
	return true
}

// Call posts fn and waits until it has run or ctx is done.
// It must not be called from a task; that would deadlock.
func (d *Dispatcher) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !d.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks. Tasks already queued still run; Run returns
// once they are drained.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.signal()
}

// Run consumes tasks until the dispatcher is closed and drained, or ctx is
// done. A panicking task is logged and does not stop the loop.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		batch, closed := d.take()
		for _, fn := range batch {
			d.run(fn)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return nil
		}

		select {
		case <-d.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// take removes every queued task.
func (d *Dispatcher) take() ([]func(), bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	batch := d.queue
	d.queue = nil
	return batch, d.closed
}

func (d *Dispatcher) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("task panicked", "panic", r)
		}
	}()
	fn()
}

func (d *Dispatcher) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}
