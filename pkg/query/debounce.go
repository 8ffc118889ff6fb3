package query

import (
	"sync"
	"time"
)

// DefaultDebounceDelay is the quiet period after the last keystroke
// before a pending query commits.
const DefaultDebounceDelay = 300 * time.Millisecond

// Debouncer buffers rapid query updates and commits the latest value
// once input has been quiet for the configured delay. At most one timer
// is pending at a time; every update cancels and restarts it, so a
// burst of keystrokes produces exactly one commit.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	gen     uint64
	pending string
	commit  func(string)
}

// NewDebouncer creates a debouncer that calls commit with the settled
// value. A non-positive delay falls back to DefaultDebounceDelay.
func NewDebouncer(delay time.Duration, commit func(string)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	return &Debouncer{delay: delay, commit: commit}
}

// Update replaces the pending value and restarts the timer.
func (d *Debouncer) Update(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = value
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Flush commits the pending value immediately, cancelling any timer.
// Used when the caller submits explicitly instead of waiting out the
// delay.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer.Stop()
	d.timer = nil
	value := d.pending
	d.mu.Unlock()

	d.commit(value)
}

// Cancel drops the pending value without committing it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.timer == nil || gen != d.gen {
		// Cancelled or superseded between the timer firing and this
		// goroutine taking the lock. The pending value belongs to a
		// newer timer now and keeps its full quiet period.
		d.mu.Unlock()
		return
	}
	d.timer = nil
	value := d.pending
	d.mu.Unlock()

	d.commit(value)
}
