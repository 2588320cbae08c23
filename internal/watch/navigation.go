package watch

import (
	"context"
	"time"
)

// DefaultNavigationDebounce lets the new view render before re-running
// detection after a client-side navigation.
const DefaultNavigationDebounce = 200 * time.Millisecond

// NavigationMonitor turns a stream of URL-change events into debounced
// onNavigate calls. It fires once eagerly for the initial URL, covering
// the case where monitoring starts after the page already navigated.
type NavigationMonitor struct {
	events     chan string
	debounce   time.Duration
	clock      Clock
	onNavigate func(url string)
}

func NewNavigationMonitor(debounce time.Duration, clock Clock, onNavigate func(url string)) *NavigationMonitor {
	if debounce <= 0 {
		debounce = DefaultNavigationDebounce
	}
	if clock == nil {
		clock = RealClock
	}
	return &NavigationMonitor{
		events:     make(chan string, 16),
		debounce:   debounce,
		clock:      clock,
		onNavigate: onNavigate,
	}
}

// URLChanged reports a navigation (push, replace, or back/forward).
func (m *NavigationMonitor) URLChanged(url string) {
	select {
	case m.events <- url:
	default:
		// Event queue full under a navigation storm; the debounce collapses
		// intermediate URLs anyway, so dropping is safe.
	}
}

// Run processes events until ctx is done. Rapid successive navigations
// collapse into one onNavigate for the last URL seen.
func (m *NavigationMonitor) Run(ctx context.Context, initialURL string) {
	m.onNavigate(initialURL)

	var (
		pending string
		timer   <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return
		case url := <-m.events:
			pending = url
			timer = m.clock.After(m.debounce)
		case <-timer:
			timer = nil
			m.onNavigate(pending)
		}
	}
}
