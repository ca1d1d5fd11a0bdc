package watcher

import (
	"sync/atomic"
	"testing"
	"time"
)

const window = 50 * time.Millisecond

func TestDebouncer_BurstFiresOnce(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(window, func() { calls.Add(1) })
	defer d.Stop()

	start := time.Now()
	var last time.Time
	for i := 0; i < 10; i++ {
		d.Notify()
		last = time.Now()
		time.Sleep(window / 10)
	}
	if pending, deadline := d.Pending(); !pending || deadline.Before(last) {
		t.Errorf("Expected pending fire after the last notify, got %v %v", pending, deadline)
	}

	time.Sleep(3 * window)
	if n := calls.Load(); n != 1 {
		t.Errorf("Expected 1 fire for a burst, got %d", n)
	}
	if time.Since(start) < window {
		t.Error("Fire must not happen before the quiet period")
	}
	if pending, _ := d.Pending(); pending {
		t.Error("Expected nothing pending after the fire")
	}
}

func TestDebouncer_FiresAfterLastEvent(t *testing.T) {
	fired := make(chan time.Time, 1)
	d := NewDebouncer(window, func() { fired <- time.Now() })
	defer d.Stop()

	d.Notify()
	time.Sleep(window / 2)
	last := time.Now()
	d.Notify()

	select {
	case at := <-fired:
		if at.Sub(last) < window {
			t.Errorf("Fired %s after the last event, want at least %s", at.Sub(last), window)
		}
	case <-time.After(5 * window):
		t.Fatal("Debouncer never fired")
	}
}

func TestDebouncer_SpacedEventsFireEach(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(window, func() { calls.Add(1) })
	defer d.Stop()

	for i := 0; i < 3; i++ {
		d.Notify()
		time.Sleep(3 * window)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("Expected 3 fires for spaced events, got %d", n)
	}
}

func TestDebouncer_Stop(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(window, func() { calls.Add(1) })

	d.Notify()
	d.Stop()
	d.Notify()
	time.Sleep(3 * window)
	if n := calls.Load(); n != 0 {
		t.Errorf("Expected no fire after Stop, got %d", n)
	}
}

func TestWatcher_CoalescesRequests(t *testing.T) {
	w := New(window)
	defer w.Stop()

	w.Trigger()
	w.Trigger()
	w.Notify()
	time.Sleep(3 * window)

	select {
	case <-w.Fired():
	default:
		t.Fatal("Expected a pending request")
	}
	select {
	case <-w.Fired():
		t.Error("Expected requests to be merged into one")
	default:
	}
}

func TestWatcher_NotifyFires(t *testing.T) {
	w := New(window)
	defer w.Stop()

	for i := 0; i < 5; i++ {
		w.Notify()
	}
	if !w.Pending() {
		t.Error("Expected a scheduled request")
	}
	select {
	case <-w.Fired():
	case <-time.After(5 * window):
		t.Fatal("Watcher never fired")
	}
}
