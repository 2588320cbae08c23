package watch

import "time"

// Clock abstracts timers so the watcher, debounce and retry logic can be
// tested without real waiting.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock is the wall-clock implementation used outside tests.
var RealClock Clock = realClock{}
