package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/net/html/charset"

	"codetracker/internal/config"
)

const maxHops = 15

// Fetcher downloads problem pages. It normalizes the charset, refuses
// captcha interstitials, and can honor robots.txt per host.
type Fetcher struct {
	client        *http.Client
	userAgent     string
	respectRobots bool

	mu     sync.Mutex
	robots map[string]*robotstxt.Group
}

func New(cfg config.FetchConfig) *Fetcher {
	jar, _ := cookiejar.New(nil)
	return &Fetcher{
		client: &http.Client{
			Transport: &http.Transport{
				DisableKeepAlives: true,
			},
			Jar:     jar,
			Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxHops {
					return fmt.Errorf("stopped after %d redirects", maxHops)
				}
				return nil
			},
		},
		userAgent:     cfg.UserAgent,
		respectRobots: cfg.RespectRobots,
		robots:        make(map[string]*robotstxt.Group),
	}
}

// Fetch returns the UTF-8 body of the page at urlStr.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string) (string, error) {
	if f.respectRobots {
		if allowed, err := f.allowedByRobots(ctx, urlStr); err == nil && !allowed {
			return "", fmt.Errorf("disallowed by robots.txt: %s", urlStr)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Referer", "https://www.google.com/")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d fetching %s", resp.StatusCode, urlStr)
	}

	utf8Reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		utf8Reader = resp.Body
	}
	body, err := io.ReadAll(utf8Reader)
	if err != nil {
		return "", err
	}

	text := string(body)
	lower := strings.ToLower(text)
	if strings.Contains(lower, "captcha") || strings.Contains(lower, "security check") {
		return "", fmt.Errorf("captcha detected at %s", urlStr)
	}
	return text, nil
}

// allowedByRobots lazily loads robots.txt per host. Load failures are
// treated as allow.
func (f *Fetcher) allowedByRobots(ctx context.Context, urlStr string) (bool, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return false, err
	}

	f.mu.Lock()
	group, ok := f.robots[parsed.Host]
	f.mu.Unlock()

	if !ok {
		group = f.loadRobots(ctx, parsed)
		f.mu.Lock()
		f.robots[parsed.Host] = group
		f.mu.Unlock()
	}
	if group == nil {
		return true, nil
	}
	return group.Test(parsed.Path), nil
}

func (f *Fetcher) loadRobots(ctx context.Context, u *url.URL) *robotstxt.Group {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", f.userAgent)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return data.FindGroup(f.userAgent)
}
