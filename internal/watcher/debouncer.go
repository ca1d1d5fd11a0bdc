// Package watcher turns bursts of page change notifications into single sync requests.
package watcher

import (
	"sync"
	"time"
)

// Debouncer calls fire once a quiet period has passed since the last Notify.
// Every Notify cancels the pending timer and schedules a new one.
type Debouncer struct {
	window time.Duration
	fire   func()

	mu         sync.Mutex
	timer      *time.Timer
	deadline   time.Time
	generation uint64 // invalidates timers that were stopped too late
	stopped    bool
}

func NewDebouncer(window time.Duration, fire func()) *Debouncer {
	return &Debouncer{window: window, fire: fire}
}

// Notify records a change and restarts the quiet period.
func (d *Debouncer) Notify() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.generation++
	gen := d.generation
	d.deadline = time.Now().Add(d.window)
	d.timer = time.AfterFunc(d.window, func() { d.elapsed(gen) })
}

func (d *Debouncer) elapsed(gen uint64) {
	d.mu.Lock()
	if gen != d.generation || d.stopped {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.deadline = time.Time{}
	d.mu.Unlock()

	d.fire()
}

// Pending reports whether a fire is scheduled and when.
func (d *Debouncer) Pending() (bool, time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil, d.deadline
}

// Stop cancels a pending fire. Later calls to Notify are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.deadline = time.Time{}
}
