// Package scrapers holds one extractor per venue website platform and the
// factory that maps a configured platform to its extractor. Extractors only
// produce candidate records; persistence belongs to the store.
package scrapers

import (
	"context"
	"time"

	"github.com/jonathan/nyc-theater/internal/fetch"
	"github.com/jonathan/nyc-theater/internal/types"
	"github.com/rs/zerolog"
)

// Result is the tagged outcome of an extractor call. Expected failures
// (missing calendar, unreachable endpoint) are reported with Success false
// rather than as a Go error.
type Result[T any] struct {
	Success   bool
	Data      T
	Error     string
	Source    string
	ScrapedAt time.Time
}

// VenueBatch is the payload of a discovery call.
type VenueBatch struct {
	Venues     []types.Venue
	TotalFound int
}

// ShowBatch is the payload of a show scrape.
type ShowBatch struct {
	Shows      []types.Show
	TotalFound int
	PageURL    string // page or endpoint the shows were read from
}

// Scraper is implemented by every platform extractor. A returned error means
// something exceptional (cancellation, broken configuration); the caller
// still has to tolerate panics.
type Scraper interface {
	Name() string
	DiscoverVenues(ctx context.Context) (Result[VenueBatch], error)
	ScrapeShows(ctx context.Context, venueID, venueURL string) (Result[ShowBatch], error)
}

// Deps are the shared collaborators handed to every extractor.
type Deps struct {
	Getter   fetch.Getter
	Renderer fetch.Renderer
	Logger   zerolog.Logger
	Now      func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

func succeed[T any](source string, data T, at time.Time) Result[T] {
	return Result[T]{Success: true, Data: data, Source: source, ScrapedAt: at}
}

func fail[T any](source, msg string, at time.Time) Result[T] {
	return Result[T]{Success: false, Error: msg, Source: source, ScrapedAt: at}
}

func showBatch(shows []types.Show, pageURL string) ShowBatch {
	return ShowBatch{Shows: shows, TotalFound: len(shows), PageURL: pageURL}
}

// noDiscovery gives venue-bound extractors the trivial discovery result.
type noDiscovery struct {
	name string
	deps Deps
}

func (n noDiscovery) DiscoverVenues(_ context.Context) (Result[VenueBatch], error) {
	return succeed(n.name, VenueBatch{}, n.deps.now()), nil
}
