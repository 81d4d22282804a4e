// Package jobs runs the batch jobs: venue discovery and show scraping. Each
// run is recorded in the store's audit log and sealed with its counts.
package jobs

import (
	"context"
	"time"

	"github.com/jonathan/nyc-theater/internal/db"
	"github.com/jonathan/nyc-theater/internal/types"
)

// Job names recorded on scraper runs.
const (
	DiscoverJobName = "discover_venues"
	ScrapeJobName   = "scrape_shows"
)

// Store is the persistence surface the jobs need. *db.DB satisfies it.
type Store interface {
	CreateRun(ctx context.Context, jobName string) (int64, error)
	CompleteRun(ctx context.Context, runID int64, stats db.RunStats) error
	UpsertVenue(ctx context.Context, candidate types.Venue, source string) (*db.UpsertResult, error)
	UpsertShow(ctx context.Context, candidate types.Show, source, scrapedURL string) (*db.UpsertResult, error)
	SweepExpiredShows(ctx context.Context, asOf time.Time) (int64, error)
	ListVenues(ctx context.Context, filter db.VenueFilter) ([]types.Venue, error)
	MarkVenueScraped(ctx context.Context, venueID string) error
	SetVenueActive(ctx context.Context, venueID string, active bool) error
	GetShow(ctx context.Context, id string) (*types.Show, error)
}

// GenreClassifier assigns a genre to a show the keyword inference left as other.
type GenreClassifier interface {
	ClassifyGenre(ctx context.Context, title, description string) (types.Genre, error)
}

// ProgressEvent is a progress update emitted while a job runs.
type ProgressEvent struct {
	Step    string `json:"step"`
	Venue   string `json:"venue,omitempty"`
	Message string `json:"message"`
	RunID   int64  `json:"run_id,omitempty"`
}

// ProgressCallback receives progress events. It may be called from several
// goroutines when venues are scraped concurrently.
type ProgressCallback func(event ProgressEvent)

func emit(cb ProgressCallback, event ProgressEvent) {
	if cb != nil {
		cb(event)
	}
}

// Report summarizes a finished run.
type Report struct {
	RunID          int64
	JobName        string
	StartedAt      time.Time
	CompletedAt    time.Time
	ItemsProcessed int
	ItemsAdded     int
	ItemsUpdated   int
	VenuesScraped  int
	ShowsExpired   int64
	Warnings       []string
	Errors         []string
	Success        bool
}

func (r *Report) stats() db.RunStats {
	return db.RunStats{
		Success:        r.Success,
		ItemsProcessed: r.ItemsProcessed,
		ItemsAdded:     r.ItemsAdded,
		ItemsUpdated:   r.ItemsUpdated,
		Errors:         r.Errors,
	}
}

// seal completes the run record. It detaches from ctx cancellation so an
// interrupted job still records its outcome.
func seal(ctx context.Context, store Store, report *Report, now time.Time) error {
	report.CompletedAt = now
	report.Success = len(report.Errors) == 0
	return store.CompleteRun(context.WithoutCancel(ctx), report.RunID, report.stats())
}

func tally(report *Report, res *db.UpsertResult) {
	if res.Created {
		report.ItemsAdded++
	} else {
		report.ItemsUpdated++
	}
}
