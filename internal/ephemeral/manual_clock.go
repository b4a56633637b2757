package ephemeral

import (
	"sync"
	"time"
)

// ManualClock only moves when Advance is called. Periodic tasks run synchronously
// on the goroutine calling Advance, in due order.
type ManualClock struct {
	mu    sync.Mutex
	now   time.Time
	tasks []*manualTask
}

type manualTask struct {
	period    time.Duration
	next      time.Time
	fn        func()
	cancelled bool
}

// NewManualClock returns a clock frozen at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Every(period time.Duration, fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	task := &manualTask{period: period, next: c.now.Add(period), fn: fn}
	c.tasks = append(c.tasks, task)
	return func() {
		c.mu.Lock()
		task.cancelled = true
		c.mu.Unlock()
	}
}

// Advance moves the clock forward by d, firing every task that falls due.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		task := c.nextDue(target)
		if task == nil {
			break
		}
		c.now = task.next
		task.next = task.next.Add(task.period)
		c.mu.Unlock()
		task.fn()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

// PendingTasks reports how many periodic tasks are still scheduled.
func (c *ManualClock) PendingTasks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.tasks {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// nextDue must be called with c.mu held.
func (c *ManualClock) nextDue(target time.Time) *manualTask {
	live := c.tasks[:0]
	var due *manualTask
	for _, t := range c.tasks {
		if t.cancelled {
			continue
		}
		live = append(live, t)
		if t.next.After(target) {
			continue
		}
		if due == nil || t.next.Before(due.next) {
			due = t
		}
	}
	c.tasks = live
	return due
}
