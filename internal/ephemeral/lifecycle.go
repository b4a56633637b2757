// Package ephemeral implements the lifecycle and reveal gating of self-destructing
// photo and video messages.
package ephemeral

import (
	"fmt"
	"sync"
	"time"
)

// TickInterval is the countdown recompute period.
const TickInterval = time.Second

// ParseExpiresAt reads an ISO-8601 expiry. A nil input means the message is not
// time-limited. Anything unparseable is reported as already expired.
func ParseExpiresAt(raw *string) *time.Time {
	if raw == nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, *raw)
	if err != nil {
		expired := time.Unix(0, 0).UTC()
		return &expired
	}
	return &t
}

// SecondsRemaining returns the whole seconds left before expiresAt, floored and
// clamped at zero, or nil when expiresAt is nil.
func SecondsRemaining(expiresAt *time.Time, now time.Time) *int {
	if expiresAt == nil {
		return nil
	}
	left := int(expiresAt.Sub(now) / time.Second)
	if left < 0 {
		left = 0
	}
	return &left
}

// FormatCountdown renders seconds as M:SS from one minute up, and as Ns below.
func FormatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	if seconds >= 60 {
		return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
	}
	return fmt.Sprintf("%ds", seconds)
}

// Countdown tracks the time left on one expiry timestamp. It recomputes once on
// Bind and then every TickInterval until it reaches zero, at which point onExpire
// fires once and the periodic task is cancelled.
type Countdown struct {
	clock    Clock
	onTick   func(remaining int)
	onExpire func()

	mu        sync.Mutex
	gen       uint64
	expiresAt *time.Time
	remaining *int
	expired   bool
	cancel    func()
}

// NewCountdown builds an unbound countdown. Either callback may be nil. Callbacks
// run without the countdown's lock held.
func NewCountdown(clock Clock, onTick func(remaining int), onExpire func()) *Countdown {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Countdown{clock: clock, onTick: onTick, onExpire: onExpire}
}

// Bind discards any previous timer and starts counting toward expiresAt.
func (c *Countdown) Bind(expiresAt *time.Time) {
	c.mu.Lock()
	c.stopLocked()
	c.gen++
	gen := c.gen
	c.expiresAt = expiresAt
	c.remaining = nil
	c.expired = false
	c.mu.Unlock()

	if expiresAt == nil {
		return
	}

	if c.recompute(gen) {
		return
	}

	cancel := c.clock.Every(TickInterval, func() { c.recompute(gen) })

	c.mu.Lock()
	if c.gen != gen || c.expired {
		c.mu.Unlock()
		cancel()
		return
	}
	c.cancel = cancel
	c.mu.Unlock()
}

// recompute refreshes the remaining seconds for binding gen and reports whether
// the countdown is finished.
func (c *Countdown) recompute(gen uint64) bool {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return true
	}
	if c.expired {
		c.mu.Unlock()
		return true
	}
	left := SecondsRemaining(c.expiresAt, c.clock.Now())
	c.remaining = left
	done := *left == 0
	if done {
		c.expired = true
		c.stopLocked()
	}
	onTick, onExpire := c.onTick, c.onExpire
	c.mu.Unlock()

	if onTick != nil {
		onTick(*left)
	}
	if done && onExpire != nil {
		onExpire()
	}
	return done
}

// Remaining returns the last computed value, or nil when not time-limited.
func (c *Countdown) Remaining() *int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remaining == nil {
		return nil
	}
	v := *c.remaining
	return &v
}

// Label formats the last computed value, or returns "" when not time-limited.
func (c *Countdown) Label() string {
	left := c.Remaining()
	if left == nil {
		return ""
	}
	return FormatCountdown(*left)
}

// Expired reports whether the bound timestamp has been reached.
func (c *Countdown) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

// Stop cancels the periodic task. Callbacks from a task already in flight are dropped.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.gen++
}

func (c *Countdown) stopLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
