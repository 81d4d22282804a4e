// Package fetch provides the shared, rate-limited HTTP client used by every
// scraper, an on-disk response cache and a headless browser renderer.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is a desktop browser user agent. Several venue sites
// serve empty pages to unknown clients.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Defaults for politeness and retries.
const (
	DefaultMinDelay    = time.Second
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 2 * time.Second
)

// Result holds the raw content from a URL fetch.
type Result struct {
	URL         string
	HTML        string
	ContentType string
	StatusCode  int
}

// Error represents an error during URL fetching.
type Error struct {
	URL        string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Getter fetches a page body. Client and CachedFetcher implement it.
type Getter interface {
	Get(ctx context.Context, url string) (*Result, error)
}

// Options configures the fetch behavior.
type Options struct {
	Timeout     time.Duration
	UserAgent   string
	Headers     map[string]string
	MinDelay    time.Duration // minimum spacing between outbound requests
	MaxAttempts int
	BaseDelay   time.Duration // retry k waits 2^(k-1) * BaseDelay
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:     DefaultTimeout,
		UserAgent:   DefaultUserAgent,
		MinDelay:    DefaultMinDelay,
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
	}
}

// Client is a retrying HTTP client gated by a shared rate limiter. It is safe
// for concurrent use; concurrent callers are spaced by MinDelay in aggregate.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	opts    Options
	logger  zerolog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client. A nil opts uses DefaultOptions.
func NewClient(opts *Options, logger zerolog.Logger) *Client {
	if opts == nil {
		opts = DefaultOptions()
	}
	o := *opts
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 1
	}

	httpClient := resty.New().
		SetTimeout(o.Timeout).
		SetHeader("User-Agent", o.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.8,*/*;q=0.7").
		SetHeader("Accept-Language", "en-US,en;q=0.9").
		SetHeaders(o.Headers)

	return &Client{
		http:    httpClient,
		limiter: NewLimiter(o.MinDelay),
		opts:    o,
		logger:  logger.With().Str("component", "fetch").Logger(),
		sleep:   sleepContext,
	}
}

// NewLimiter returns a limiter that admits one request per minDelay.
// A zero delay disables limiting.
func NewLimiter(minDelay time.Duration) *rate.Limiter {
	if minDelay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(minDelay), 1)
}

// Limiter returns the client's limiter so other request paths (the browser
// renderer) can share the same budget.
func (c *Client) Limiter() *rate.Limiter {
	return c.limiter
}

// BackoffDelay returns the wait before retry number k (k >= 1).
func BackoffDelay(base time.Duration, k int) time.Duration {
	if k < 1 {
		return 0
	}
	return base * time.Duration(1<<(k-1))
}

// Get retrieves a URL, retrying network errors, 429 and 5xx responses with
// exponential backoff. Other non-2xx statuses fail immediately.
func (c *Client) Get(ctx context.Context, urlStr string) (*Result, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, &Error{
			URL:     urlStr,
			Message: "invalid URL",
			Cause:   err,
		}
	}

	var lastErr *Error
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := BackoffDelay(c.opts.BaseDelay, attempt-1)
			c.logger.Debug().Str("url", urlStr).Int("attempt", attempt).Dur("delay", delay).Msg("retrying")
			if err := c.sleep(ctx, delay); err != nil {
				return nil, &Error{URL: urlStr, Message: "interrupted during backoff", Cause: err}
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &Error{URL: urlStr, Message: "rate limiter wait failed", Cause: err}
		}

		result, fetchErr := c.do(ctx, urlStr)
		if fetchErr == nil {
			return result, nil
		}
		lastErr = fetchErr
		if !fetchErr.Retryable {
			return result, fetchErr
		}
		c.logger.Warn().Err(fetchErr).Str("url", urlStr).Int("attempt", attempt).Msg("fetch attempt failed")
	}

	lastErr.Message = fmt.Sprintf("%s (gave up after %d attempts)", lastErr.Message, c.opts.MaxAttempts)
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, urlStr string) (*Result, *Error) {
	resp, err := c.http.R().SetContext(ctx).Get(urlStr)
	if err != nil {
		return nil, &Error{
			URL:       urlStr,
			Message:   "HTTP request failed",
			Retryable: ctx.Err() == nil && !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	result := &Result{
		URL:         urlStr,
		HTML:        string(resp.Body()),
		ContentType: resp.Header().Get("Content-Type"),
		StatusCode:  resp.StatusCode(),
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return result, &Error{
			URL:        urlStr,
			Message:    fmt.Sprintf("HTTP status %d", resp.StatusCode()),
			StatusCode: resp.StatusCode(),
			Retryable:  resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500,
		}
	}

	return result, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
