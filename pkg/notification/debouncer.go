package notification

import (
	"bytes"
	"time"

	"github.com/Veraticus/claude-pty-notify/pkg/interfaces"
)

// Debouncer decides, per relayed output chunk, whether to fire a
// notification. A line submitted on stdin arms a one-shot pending latch;
// the next output fires if the cooldown allows it. Without interactive
// stdin every chunk is eligible. Debouncer is owned by the relay loop and
// is not safe for concurrent use.
type Debouncer struct {
	notifier    Notifier
	limiter     interfaces.RateLimiter
	template    Notification
	enabled     bool
	interactive bool
	now         func() time.Time

	pending   bool
	lastFired time.Time
	fired     int
}

// Ensure Debouncer observes both relay directions
var _ interfaces.TrafficObserver = (*Debouncer)(nil)

// DebouncerOption configures a Debouncer.
type DebouncerOption func(*Debouncer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) DebouncerOption {
	return func(d *Debouncer) {
		d.now = now
	}
}

// WithTemplate sets the title and message of fired notifications.
func WithTemplate(title, message string) DebouncerOption {
	return func(d *Debouncer) {
		d.template.Title = title
		d.template.Message = message
	}
}

// NewDebouncer creates a debouncer. When enabled is false OnOutput never fires.
func NewDebouncer(notifier Notifier, cooldown time.Duration, enabled bool, opts ...DebouncerOption) *Debouncer {
	d := &Debouncer{
		notifier: notifier,
		template: Notification{
			Title:   "Claude",
			Message: "Claude response arrived.",
			Event:   EventResponse,
		},
		enabled: enabled,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.limiter = NewCooldownLimiter(cooldown, d.now)
	return d
}

// SetInteractive records whether a real terminal feeds stdin. Only
// interactive sessions require the pending latch.
func (d *Debouncer) SetInteractive(interactive bool) {
	d.interactive = interactive
}

// OnInput arms the pending latch when data contains a line terminator.
func (d *Debouncer) OnInput(data []byte) {
	if bytes.IndexByte(data, '\n') >= 0 || bytes.IndexByte(data, '\r') >= 0 {
		d.pending = true
	}
}

// OnOutput is called after a non-empty output chunk has been relayed.
func (d *Debouncer) OnOutput() bool {
	if !d.enabled || d.notifier == nil {
		return false
	}
	if d.interactive && !d.pending {
		return false
	}

	if !d.limiter.Allow() {
		return false
	}
	now := d.now()

	n := d.template
	n.Time = now
	// Delivery failures never affect the relay.
	_ = d.notifier.Send(n)

	d.lastFired = now
	d.pending = false
	d.fired++
	return true
}

// Pending reports whether a submitted line is still waiting for output.
func (d *Debouncer) Pending() bool {
	return d.pending
}

// LastFired returns when the last notification fired, zero if never.
func (d *Debouncer) LastFired() time.Time {
	return d.lastFired
}

// Fired returns how many notifications fired.
func (d *Debouncer) Fired() int {
	return d.fired
}
