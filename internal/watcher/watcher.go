package watcher

import (
	"log/slog"
	"time"
)

// Watcher debounces change notifications and requests sync passes on Fired.
// A request made while an earlier one is still unclaimed is merged into it, so a
// consumer that is busy with a pass finds at most one more request waiting.
type Watcher struct {
	debouncer *Debouncer
	fired     chan struct{}
}

func New(quietPeriod time.Duration) *Watcher {
	w := &Watcher{fired: make(chan struct{}, 1)}
	w.debouncer = NewDebouncer(quietPeriod, w.Trigger)
	return w
}

// Notify records a page change.
func (w *Watcher) Notify() {
	w.debouncer.Notify()
}

// Trigger requests a pass immediately.
func (w *Watcher) Trigger() {
	select {
	case w.fired <- struct{}{}:
	default:
		slog.Debug("Sync already requested")
	}
}

// Fired delivers one value per requested pass.
func (w *Watcher) Fired() <-chan struct{} {
	return w.fired
}

// Pending reports whether a debounced request is scheduled.
func (w *Watcher) Pending() bool {
	pending, _ := w.debouncer.Pending()
	return pending
}

func (w *Watcher) Stop() {
	w.debouncer.Stop()
}
