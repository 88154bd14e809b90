package validation

import (
	"sync"
	"time"
)

// DefaultDebounce is the pause the debouncer waits for before firing.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer coalesces rapid triggers per key: a new trigger for key K cancels
// and restarts K's own pending timer only, while other keys run their own
// timers untouched. Close cancels everything still pending, so a disposed
// form never observes a late fire.
type Debouncer struct {
	mu     sync.Mutex
	delay  time.Duration
	fn     func(key string)
	timers map[string]*time.Timer
	closed bool
}

// NewDebouncer builds a debouncer invoking fn after delay of inactivity per
// key. A non-positive delay falls back to DefaultDebounce.
func NewDebouncer(delay time.Duration, fn func(key string)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{
		delay:  delay,
		fn:     fn,
		timers: make(map[string]*time.Timer),
	}
}

// Trigger schedules (or reschedules) the key's timer.
func (d *Debouncer) Trigger(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.fn == nil {
		return
	}
	if timer, ok := d.timers[key]; ok {
		timer.Stop()
	}
	d.timers[key] = time.AfterFunc(d.delay, func() {
		d.fire(key)
	})
}

// Flush fires every pending key immediately. Intended for tests and for
// forced synchronous validation before a step transition.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	keys := make([]string, 0, len(d.timers))
	for key, timer := range d.timers {
		timer.Stop()
		keys = append(keys, key)
	}
	d.timers = make(map[string]*time.Timer)
	fn := d.fn
	d.mu.Unlock()

	for _, key := range keys {
		fn(key)
	}
}

// Close cancels all pending timers; triggers after Close are ignored.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for _, timer := range d.timers {
		timer.Stop()
	}
	d.timers = make(map[string]*time.Timer)
}

func (d *Debouncer) fire(key string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	delete(d.timers, key)
	fn := d.fn
	d.mu.Unlock()
	fn(key)
}
