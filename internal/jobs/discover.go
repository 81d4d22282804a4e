package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/nyc-theater/internal/scrapers"
	"github.com/rs/zerolog"
)

// DiscoverOptions configures a discovery run.
type DiscoverOptions struct {
	Now        func() time.Time
	OnProgress ProgressCallback
}

// DiscoverVenues runs every discovery source and upserts each venue it
// yields. Source failures and per-venue errors are recorded on the run; the
// returned error is reserved for failures that prevent the run itself.
func DiscoverVenues(ctx context.Context, store Store, sources []scrapers.Scraper, logger zerolog.Logger, opts DiscoverOptions) (*Report, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger = logger.With().Str("component", "discover").Logger()

	runID, err := store.CreateRun(ctx, DiscoverJobName)
	if err != nil {
		return nil, fmt.Errorf("failed to start discovery run: %w", err)
	}
	report := &Report{RunID: runID, JobName: DiscoverJobName, StartedAt: now()}
	emit(opts.OnProgress, ProgressEvent{Step: "start", RunID: runID, Message: fmt.Sprintf("%d sources", len(sources))})

	for _, source := range sources {
		if ctx.Err() != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("run interrupted: %v", ctx.Err()))
			break
		}
		discoverSource(ctx, store, source, report, logger)
		emit(opts.OnProgress, ProgressEvent{Step: "source", Venue: source.Name(), RunID: runID, Message: "done"})
	}

	if err := seal(ctx, store, report, now()); err != nil {
		return report, fmt.Errorf("failed to seal discovery run %d: %w", runID, err)
	}
	logger.Info().
		Int64("run_id", runID).
		Int("processed", report.ItemsProcessed).
		Int("added", report.ItemsAdded).
		Int("updated", report.ItemsUpdated).
		Int("errors", len(report.Errors)).
		Msg("discovery finished")
	return report, nil
}

func discoverSource(ctx context.Context, store Store, source scrapers.Scraper, report *Report, logger zerolog.Logger) {
	name := source.Name()
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("source", name).Interface("panic", r).Msg("discovery source panicked")
			report.Errors = append(report.Errors, fmt.Sprintf("%s: panic: %v", name, r))
		}
	}()

	res, err := source.DiscoverVenues(ctx)
	if err != nil {
		logger.Error().Err(err).Str("source", name).Msg("discovery source failed")
		report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", name, err))
		return
	}
	if !res.Success {
		logger.Warn().Str("source", name).Str("reason", res.Error).Msg("discovery source returned nothing")
		report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %s", name, res.Error))
		return
	}

	for _, venue := range res.Data.Venues {
		report.ItemsProcessed++
		up, err := store.UpsertVenue(ctx, venue, res.Source)
		if err != nil {
			logger.Warn().Err(err).Str("source", name).Str("venue", venue.Name).Msg("failed to save venue")
			report.Errors = append(report.Errors, fmt.Sprintf("%s: venue %q: %v", name, venue.Name, err))
			continue
		}
		tally(report, up)
	}
	report.VenuesScraped++
}
