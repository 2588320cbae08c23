package page

import (
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// Handle holds the current parsed document of a page whose content can
// arrive after the initial load. Applying new HTML replaces the document
// and notifies subscribers, the way a DOM mutation batch would.
type Handle struct {
	mu      sync.Mutex
	url     string
	doc     *goquery.Document
	subs    map[int]chan struct{}
	nextSub int
}

func NewHandle() *Handle {
	return &Handle{subs: make(map[int]chan struct{})}
}

// Navigate replaces both the URL and the document.
func (h *Handle) Navigate(url, html string) error {
	doc, err := parse(html)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.url = url
	h.doc = doc
	h.mu.Unlock()
	h.notify()
	return nil
}

// Apply replaces the document in place, keeping the URL. Used when
// client-rendered content shows up after the shell HTML.
func (h *Handle) Apply(html string) error {
	doc, err := parse(html)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.doc = doc
	h.mu.Unlock()
	h.notify()
	return nil
}

func parse(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (h *Handle) URL() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.url
}

// Document returns the current parsed document, or nil before the first
// Navigate. The returned document is a snapshot; later Apply calls build
// a fresh one rather than mutating it.
func (h *Handle) Document() *goquery.Document {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.doc
}

// Matches reports whether the selector currently matches any element.
func (h *Handle) Matches(selector string) bool {
	doc := h.Document()
	if doc == nil {
		return false
	}
	return doc.Find(selector).Length() > 0
}

// Title returns the trimmed document title, "" when absent.
func (h *Handle) Title() string {
	doc := h.Document()
	if doc == nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// Subscribe registers for mutation notifications. The channel is signaled
// (coalesced, buffer 1) on every document change. The returned func
// removes the subscription; calling it more than once is safe.
func (h *Handle) Subscribe() (<-chan struct{}, func()) {
	h.mu.Lock()
	id := h.nextSub
	h.nextSub++
	ch := make(chan struct{}, 1)
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// SubscriberCount reports live subscriptions; the watcher's
// single-outstanding-subscription invariant is asserted against it.
func (h *Handle) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Handle) notify() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
