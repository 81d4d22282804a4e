// Package fetch - browser.go provides headless browser rendering for calendars
// that are built client-side.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Renderer loads a page in a browser and returns the rendered HTML. found
// reports whether waitSelector appeared within waitTimeout; a selector that
// never appears is not an error.
type Renderer interface {
	Render(ctx context.Context, url, waitSelector string, waitTimeout time.Duration) (html string, found bool, err error)
}

// ChromeRenderer renders pages with headless Chrome. Requires Chrome/Chromium
// to be installed on the system.
type ChromeRenderer struct {
	limiter   *rate.Limiter
	timeout   time.Duration
	userAgent string
	logger    zerolog.Logger
}

// NewChromeRenderer creates a renderer sharing the given limiter. A nil
// limiter disables throttling.
func NewChromeRenderer(limiter *rate.Limiter, timeout time.Duration, logger zerolog.Logger) *ChromeRenderer {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if limiter == nil {
		limiter = NewLimiter(0)
	}
	return &ChromeRenderer{
		limiter:   limiter,
		timeout:   timeout,
		userAgent: DefaultUserAgent,
		logger:    logger.With().Str("component", "browser").Logger(),
	}
}

// Render implements Renderer.
func (r *ChromeRenderer) Render(ctx context.Context, url, waitSelector string, waitTimeout time.Duration) (string, bool, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", false, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	r.logger.Debug().Str("url", url).Msg("starting headless browser")

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(r.userAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, r.timeout)
	defer cancel()

	if err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	); err != nil {
		return "", false, fmt.Errorf("browser navigation failed: %w", err)
	}

	found := true
	if waitSelector != "" {
		waitCtx, waitCancel := context.WithTimeout(browserCtx, waitTimeout)
		err := chromedp.Run(waitCtx, chromedp.WaitReady(waitSelector, chromedp.ByQuery))
		waitCancel()
		if err != nil {
			if !errors.Is(err, context.DeadlineExceeded) || browserCtx.Err() != nil {
				return "", false, fmt.Errorf("browser wait failed: %w", err)
			}
			found = false
			r.logger.Debug().Str("url", url).Str("selector", waitSelector).Msg("selector never appeared")
		}
	}

	var html string
	if err := chromedp.Run(browserCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", false, fmt.Errorf("browser rendering failed: %w", err)
	}

	r.logger.Debug().Str("url", url).Int("bytes", len(html)).Msg("rendered page")
	return html, found, nil
}
