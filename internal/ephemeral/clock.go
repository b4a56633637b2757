package ephemeral

import (
	"sync"
	"time"
)

// Clock is the time source used by countdowns.
type Clock interface {
	Now() time.Time
	// Every runs fn once per period until the returned cancel func is called.
	Every(period time.Duration, fn func()) (cancel func())
}

// SystemClock is backed by the runtime clock and a time.Ticker per task.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

func (SystemClock) Every(period time.Duration, fn func()) func() {
	ticker := time.NewTicker(period)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}
