package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codetracker/internal/config"
)

func testFetcher(respectRobots bool) *Fetcher {
	return New(config.FetchConfig{
		UserAgent:     "codetracker-test",
		TimeoutSec:    5,
		RespectRobots: respectRobots,
	})
}

func TestFetchReturnsBodyAndSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "codetracker-test", r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("Referer"))
		fmt.Fprint(w, "<html><body><h1>Two Sum</h1></body></html>")
	}))
	defer srv.Close()

	body, err := testFetcher(false).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, body, "Two Sum")
}

func TestFetchNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testFetcher(false).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestFetchRejectsCaptchaInterstitial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>Please complete this CAPTCHA to continue</body></html>")
	}))
	defer srv.Close()

	_, err := testFetcher(false).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "captcha")
}

func TestFetchFollowsRedirectsUpToCap(t *testing.T) {
	hops := 0
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hops < 3 {
			hops++
			http.Redirect(w, r, srv.URL+fmt.Sprintf("/hop%d", hops), http.StatusFound)
			return
		}
		fmt.Fprint(w, "<html><body>landed</body></html>")
	}))
	defer srv.Close()

	body, err := testFetcher(false).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, body, "landed")
}

func TestFetchStopsRedirectLoop(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/again", http.StatusFound)
	}))
	defer srv.Close()

	_, err := testFetcher(false).Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestFetchHonorsRobots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
			return
		}
		fmt.Fprint(w, "<html><body>public</body></html>")
	}))
	defer srv.Close()

	f := testFetcher(true)

	body, err := f.Fetch(context.Background(), srv.URL+"/public/page")
	require.NoError(t, err)
	assert.Contains(t, body, "public")

	_, err = f.Fetch(context.Background(), srv.URL+"/private/page")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "robots.txt")
}

func TestFetchDecodesLegacyCharset(t *testing.T) {
	// ISO-8859-1 body with accented bytes that are invalid UTF-8 as-is.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write([]byte("<html><body>probl\xe8me r\xe9solu</body></html>"))
	}))
	defer srv.Close()

	body, err := testFetcher(false).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, body, "problème résolu")
}
