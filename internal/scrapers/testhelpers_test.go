package scrapers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonathan/nyc-theater/internal/fetch"
	"github.com/rs/zerolog"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// newTestServer serves fixed bodies by path; unknown paths return 404.
func newTestServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if r.URL.RawQuery != "" {
			path += "?" + r.URL.RawQuery
		}
		body, ok := pages[path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testDeps() Deps {
	client := fetch.NewClient(&fetch.Options{MinDelay: 0, MaxAttempts: 1, Timeout: 5 * time.Second}, zerolog.Nop())
	return Deps{
		Getter: client,
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return testNow },
	}
}

type fakeRenderer struct {
	html     string
	found    bool
	err      error
	gotURL   string
	gotWait  string
	gotLimit time.Duration
}

func (r *fakeRenderer) Render(_ context.Context, url, waitSelector string, waitTimeout time.Duration) (string, bool, error) {
	r.gotURL, r.gotWait, r.gotLimit = url, waitSelector, waitTimeout
	return r.html, r.found, r.err
}
