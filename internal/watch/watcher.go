package watch

import (
	"sync"
	"time"

	"codetracker/internal/page"
)

// WatchState is the lifecycle of a single Watch call.
type WatchState int

const (
	StateIdle WatchState = iota
	StateWatching
	StateFound
	StateTimedOut
)

// DefaultWatchTimeout bounds how long a watch waits for content before
// forcing the fallback path.
const DefaultWatchTimeout = 5 * time.Second

// ContentWatcher waits for a selector to match in a page handle.
//
// Semantics:
//   - If the selector already matches, onFound(true) runs synchronously
//     inside Watch and no subscription is installed.
//   - Otherwise a mutation subscription is installed; the first match
//     fires onFound(true) exactly once and the subscription is removed.
//   - If nothing matches within the timeout, onFound(false) fires exactly
//     once and the subscription is removed.
//   - Only one subscription is live at a time: a new Watch cancels the
//     previous one without firing its callback.
type ContentWatcher struct {
	page    *page.Handle
	clock   Clock
	timeout time.Duration

	mu     sync.Mutex
	state  WatchState
	gen    int
	cancel func()
}

func NewContentWatcher(h *page.Handle, timeout time.Duration, clock Clock) *ContentWatcher {
	if timeout <= 0 {
		timeout = DefaultWatchTimeout
	}
	if clock == nil {
		clock = RealClock
	}
	return &ContentWatcher{page: h, clock: clock, timeout: timeout}
}

// State reports the state of the most recent Watch call.
func (w *ContentWatcher) State() WatchState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Cancel aborts any outstanding subscription without firing its callback.
func (w *ContentWatcher) Cancel() {
	w.mu.Lock()
	w.gen++
	w.dropSubscriptionLocked()
	w.state = StateIdle
	w.mu.Unlock()
}

// Watch starts waiting for selector. onFound receives true when the
// selector matched and false when the timeout forced the fallback.
func (w *ContentWatcher) Watch(selector string, onFound func(found bool)) {
	w.mu.Lock()
	w.gen++
	gen := w.gen
	w.dropSubscriptionLocked()

	if w.page.Matches(selector) {
		w.state = StateFound
		w.mu.Unlock()
		onFound(true)
		return
	}

	w.state = StateWatching
	mutations, cancel := w.page.Subscribe()
	w.cancel = cancel
	w.mu.Unlock()

	timeoutCh := w.clock.After(w.timeout)
	go func() {
		defer cancel()
		// A mutation applied between the Matches check above and Subscribe
		// produced no notification; re-check before waiting.
		if w.page.Matches(selector) {
			if w.finish(gen, StateFound) {
				onFound(true)
			}
			return
		}
		for {
			select {
			case <-mutations:
				if !w.page.Matches(selector) {
					continue
				}
				if w.finish(gen, StateFound) {
					onFound(true)
				}
				return
			case <-timeoutCh:
				if w.finish(gen, StateTimedOut) {
					onFound(false)
				}
				return
			}
		}
	}()
}

// finish transitions out of Watching if this goroutine still owns the
// current generation; it returns whether the callback may fire.
func (w *ContentWatcher) finish(gen int, state WatchState) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen != gen {
		return false
	}
	w.state = state
	w.cancel = nil
	return true
}

func (w *ContentWatcher) dropSubscriptionLocked() {
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}
