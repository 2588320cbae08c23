package watch

import (
	"sync"
	"time"
)

// fakeClock hands out manually fired timer channels so the tests control
// every timeout.
type fakeClock struct {
	mu         sync.Mutex
	now        time.Time
	timers     []chan time.Time
	afterCalls chan struct{}
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		afterCalls: make(chan struct{}, 64),
	}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(time.Duration) <-chan time.Time {
	c.mu.Lock()
	ch := make(chan time.Time, 1)
	c.timers = append(c.timers, ch)
	c.mu.Unlock()
	c.afterCalls <- struct{}{}
	return ch
}

// waitForTimer blocks until After has been called n more times.
func (c *fakeClock) waitForTimer(n int) {
	for i := 0; i < n; i++ {
		select {
		case <-c.afterCalls:
		case <-time.After(2 * time.Second):
			panic("timed out waiting for a timer to be armed")
		}
	}
}

// fire releases every armed timer.
func (c *fakeClock) fire() {
	c.mu.Lock()
	timers := c.timers
	c.timers = nil
	c.mu.Unlock()
	for _, ch := range timers {
		ch <- c.Now()
	}
}
