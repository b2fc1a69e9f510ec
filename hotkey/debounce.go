// Package hotkey turns raw copy-shortcut pulses into activations.
package hotkey

import (
	"slices"
	"sync"
	"time"
)

// Defaults for a double copy press.
const (
	DefaultWindow    = time.Second
	DefaultThreshold = 2
)

// Debouncer fires an activation when enough signals land inside a trailing
// window. Firing clears the window, so a third press does not re-trigger
// until a fresh pair arrives.
type Debouncer struct {
	window     time.Duration
	threshold  int
	onActivate func()
	now        func() time.Time

	mu    sync.Mutex
	times []time.Time // Within window of the latest signal, oldest first
}

// NewDebouncer creates a Debouncer. Non-positive window or threshold use
// the defaults. onActivate may be nil.
func NewDebouncer(window time.Duration, threshold int, onActivate func()) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Debouncer{
		window:     window,
		threshold:  threshold,
		onActivate: onActivate,
		now:        time.Now,
	}
}

// Signal records one key pulse and reports whether it completed an
// activation. Safe for concurrent use. onActivate runs on the caller's
// goroutine, outside the lock.
func (d *Debouncer) Signal() bool {
	d.mu.Lock()
	now := d.now()
	d.times = append(d.times, now)

	// Boundary is inclusive: a signal exactly window ago still counts.
	stale := 0
	for stale < len(d.times) && now.Sub(d.times[stale]) > d.window {
		stale++
	}
	d.times = slices.Delete(d.times, 0, stale)

	fire := len(d.times) >= d.threshold
	if fire {
		d.times = d.times[:0]
	}
	d.mu.Unlock()

	if fire && d.onActivate != nil {
		d.onActivate()
	}
	return fire
}

// Reset drops every pending signal.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	d.times = d.times[:0]
	d.mu.Unlock()
}
