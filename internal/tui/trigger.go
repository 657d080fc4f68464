package tui

import "time"

// Trigger counts activation taps inside a rolling time window. It fires once
// the configured number of taps lands within the window; a tap arriving after
// the window elapsed starts a fresh count.
type Trigger struct {
	required int
	window   time.Duration

	count       int
	windowStart time.Time

	// For mocking in tests
	now func() time.Time
}

// NewTrigger creates a trigger that fires after required taps within window.
func NewTrigger(required int, window time.Duration) *Trigger {
	if required < 1 {
		required = 1
	}
	return &Trigger{
		required: required,
		window:   window,
		now:      time.Now,
	}
}

// Tap records one tap and reports whether the trigger fired. Firing resets
// the count so the next tap starts a new round.
func (t *Trigger) Tap() bool {
	now := t.now()
	if t.count == 0 || now.Sub(t.windowStart) > t.window {
		t.count = 0
		t.windowStart = now
	}
	t.count++
	if t.count >= t.required {
		t.Reset()
		return true
	}
	return false
}

// Progress returns the current tap count and the required total.
func (t *Trigger) Progress() (count, required int) {
	if t.count > 0 && t.now().Sub(t.windowStart) > t.window {
		return 0, t.required
	}
	return t.count, t.required
}

// Reset discards any taps counted so far.
func (t *Trigger) Reset() {
	t.count = 0
	t.windowStart = time.Time{}
}
