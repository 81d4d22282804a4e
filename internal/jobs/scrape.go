package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/nyc-theater/internal/config"
	"github.com/jonathan/nyc-theater/internal/db"
	"github.com/jonathan/nyc-theater/internal/scrapers"
	"github.com/jonathan/nyc-theater/internal/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ScrapeOptions scopes and tunes a show scrape.
type ScrapeOptions struct {
	// Only limits the run to venues whose registry key, name, id or
	// platform equals this value (case-insensitive).
	Only        string
	Concurrency int
	OnProgress  ProgressCallback
}

// ShowScraper runs the show scrape job over the active venues.
type ShowScraper struct {
	store      Store
	factory    *scrapers.Factory
	registry   *config.Registry
	classifier GenreClassifier
	logger     zerolog.Logger
	now        func() time.Time
}

// Option configures a ShowScraper.
type Option func(*ShowScraper)

// WithClassifier enables genre classification for shows left as other.
func WithClassifier(c GenreClassifier) Option { return func(s *ShowScraper) { s.classifier = c } }

// WithClock sets the time source used for the sweep and run timestamps.
func WithClock(now func() time.Time) Option { return func(s *ShowScraper) { s.now = now } }

// NewShowScraper creates the show scrape job.
func NewShowScraper(store Store, factory *scrapers.Factory, registry *config.Registry, logger zerolog.Logger, opts ...Option) *ShowScraper {
	s := &ShowScraper{
		store:    store,
		factory:  factory,
		registry: registry,
		logger:   logger.With().Str("component", "scrape").Logger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// venueWork pairs a stored venue with its registry entry and extractor.
type venueWork struct {
	venue   types.Venue
	entry   config.VenueEntry
	scraper scrapers.Scraper
}

// venueOutcome is the per-venue slice of a run report.
type venueOutcome struct {
	processed int
	added     int
	updated   int
	scraped   bool
	warnings  []string
	errors    []string
}

// Run sweeps expired shows, then scrapes every active venue that has a
// registry entry. A venue's failure never stops the others. The returned
// error is reserved for failures that abort the whole run; the report is
// still returned when the run record was created.
func (s *ShowScraper) Run(ctx context.Context, opts ScrapeOptions) (*Report, error) {
	runID, err := s.store.CreateRun(ctx, ScrapeJobName)
	if err != nil {
		return nil, fmt.Errorf("failed to start scrape run: %w", err)
	}
	report := &Report{RunID: runID, JobName: ScrapeJobName, StartedAt: s.now()}
	emit(opts.OnProgress, ProgressEvent{Step: "start", RunID: runID, Message: "sweeping expired shows"})

	fatal := func(err error) (*Report, error) {
		report.Errors = append(report.Errors, err.Error())
		if sealErr := seal(ctx, s.store, report, s.now()); sealErr != nil {
			s.logger.Error().Err(sealErr).Int64("run_id", runID).Msg("failed to seal aborted run")
		}
		return report, err
	}

	expired, err := s.store.SweepExpiredShows(ctx, s.now())
	if err != nil {
		return fatal(fmt.Errorf("failed to sweep expired shows: %w", err))
	}
	report.ShowsExpired = expired
	s.logger.Info().Int64("expired", expired).Msg("swept expired shows")

	venues, err := s.store.ListVenues(ctx, db.VenueFilter{})
	if err != nil {
		return fatal(fmt.Errorf("failed to list venues: %w", err))
	}
	venues = s.syncActive(ctx, venues, report)

	work := s.plan(venues, opts.Only, report)
	emit(opts.OnProgress, ProgressEvent{Step: "plan", RunID: runID, Message: fmt.Sprintf("%d venues to scrape", len(work))})

	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}
	outcomes := make([]venueOutcome, len(work))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, w := range work {
		g.Go(func() error {
			outcomes[i] = s.scrapeVenue(ctx, w)
			emit(opts.OnProgress, ProgressEvent{Step: "venue", Venue: w.venue.Name, RunID: runID, Message: "done"})
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		report.ItemsProcessed += o.processed
		report.ItemsAdded += o.added
		report.ItemsUpdated += o.updated
		if o.scraped {
			report.VenuesScraped++
		}
		report.Warnings = append(report.Warnings, o.warnings...)
		report.Errors = append(report.Errors, o.errors...)
	}

	if err := seal(ctx, s.store, report, s.now()); err != nil {
		return report, fmt.Errorf("failed to seal scrape run %d: %w", runID, err)
	}
	s.logger.Info().
		Int64("run_id", runID).
		Int("venues", report.VenuesScraped).
		Int("processed", report.ItemsProcessed).
		Int("added", report.ItemsAdded).
		Int("updated", report.ItemsUpdated).
		Int("warnings", len(report.Warnings)).
		Int("errors", len(report.Errors)).
		Msg("scrape finished")
	return report, nil
}

// syncActive applies the registry's active flags to the stored venues that
// have an entry and returns the venues that are active afterwards. Venues
// without an entry keep their stored flag.
func (s *ShowScraper) syncActive(ctx context.Context, venues []types.Venue, report *Report) []types.Venue {
	byID := make(map[string]bool)
	byName := make(map[string]bool)
	if s.registry != nil {
		for _, e := range s.registry.Entries() {
			byID[db.DeriveVenueID(e.Name, e.Address)] = e.IsActive()
			name := db.NormalizeName(e.Name)
			byName[name] = byName[name] || e.IsActive()
		}
	}

	var active []types.Venue
	for _, v := range venues {
		want, ok := byID[v.ID]
		if !ok {
			want, ok = byName[db.NormalizeName(v.Name)]
		}
		if ok && want != v.IsActive {
			if err := s.store.SetVenueActive(ctx, v.ID, want); err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", v.Name, err))
				continue
			}
			s.logger.Info().Str("venue", v.Name).Bool("active", want).Msg("applied registry active flag")
			v.IsActive = want
		}
		if v.IsActive {
			active = append(active, v)
		}
	}
	return active
}

// plan matches venues to registry entries and resolves their extractors.
// Unknown platforms are warnings; broken venue configuration is an error.
func (s *ShowScraper) plan(venues []types.Venue, only string, report *Report) []venueWork {
	byID := make(map[string]config.VenueEntry)
	byName := make(map[string]config.VenueEntry)
	if s.registry != nil {
		for _, e := range s.registry.ActiveEntries() {
			byID[db.DeriveVenueID(e.Name, e.Address)] = e
			byName[db.NormalizeName(e.Name)] = e
		}
	}

	only = strings.ToLower(strings.TrimSpace(only))
	var work []venueWork
	for _, v := range venues {
		entry, ok := byID[v.ID]
		if !ok {
			entry, ok = byName[db.NormalizeName(v.Name)]
		}
		if !ok {
			s.logger.Debug().Str("venue", v.Name).Msg("no registry entry; skipping")
			continue
		}
		if only != "" && !matchesOnly(only, v, entry) {
			continue
		}

		scraper, err := s.factory.ForVenue(entry)
		if err != nil {
			var unknown *scrapers.UnknownPlatformError
			if errors.As(err, &unknown) {
				s.logger.Warn().Str("venue", v.Name).Str("platform", unknown.Platform).Msg("no extractor for platform")
				report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %v", v.Name, err))
				continue
			}
			s.logger.Error().Err(err).Str("venue", v.Name).Msg("failed to build extractor")
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", v.Name, err))
			continue
		}
		work = append(work, venueWork{venue: v, entry: entry, scraper: scraper})
	}

	if only != "" && len(work) == 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("no active venue matched %q", only))
	}
	return work
}

func matchesOnly(only string, v types.Venue, e config.VenueEntry) bool {
	for _, candidate := range []string{e.Key, e.Name, e.Platform, v.Name, v.ID} {
		if strings.ToLower(candidate) == only {
			return true
		}
	}
	return false
}

// scrapeVenue runs one venue end to end on the calling goroutine, so its
// requests stay in order. Panics are recovered into the venue's errors.
func (s *ShowScraper) scrapeVenue(ctx context.Context, w venueWork) (out venueOutcome) {
	logger := s.logger.With().Str("venue", w.venue.Name).Str("platform", w.scraper.Name()).Logger()
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("extractor panicked")
			out.errors = append(out.errors, fmt.Sprintf("%s: panic: %v", w.venue.Name, r))
		}
	}()

	venueURL := w.entry.URL
	if venueURL == "" {
		venueURL = w.venue.Website
	}

	logger.Debug().Str("url", venueURL).Msg("fetching")
	res, err := w.scraper.ScrapeShows(ctx, w.venue.ID, venueURL)
	if err != nil {
		logger.Error().Err(err).Msg("extractor failed")
		out.errors = append(out.errors, fmt.Sprintf("%s: %v", w.venue.Name, err))
		return out
	}
	if !res.Success {
		logger.Warn().Str("reason", res.Error).Msg("fetch failed")
		out.warnings = append(out.warnings, fmt.Sprintf("%s: %s", w.venue.Name, res.Error))
		return out
	}
	if len(res.Data.Shows) == 0 {
		logger.Warn().Msg("no shows found")
		out.warnings = append(out.warnings, fmt.Sprintf("%s: no shows found", w.venue.Name))
	}

	for _, show := range res.Data.Shows {
		out.processed++
		show.VenueID = w.venue.ID
		if show.Genre == types.GenreOther || show.Genre == "" {
			show.Genre = s.classify(ctx, show, logger)
		}
		scrapedURL := res.Data.PageURL
		if scrapedURL == "" {
			scrapedURL = venueURL
		}
		up, err := s.store.UpsertShow(ctx, show, res.Source, scrapedURL)
		if err != nil {
			logger.Warn().Err(err).Str("show", show.Title).Msg("failed to save show")
			out.errors = append(out.errors, fmt.Sprintf("%s: show %q: %v", w.venue.Name, show.Title, err))
			continue
		}
		if up.Created {
			out.added++
		} else {
			out.updated++
		}
	}

	if err := s.store.MarkVenueScraped(ctx, w.venue.ID); err != nil {
		out.errors = append(out.errors, fmt.Sprintf("%s: %v", w.venue.Name, err))
	}
	out.scraped = true
	logger.Info().Int("shows", out.processed).Int("added", out.added).Int("updated", out.updated).Msg("venue done")
	return out
}

// classify reuses the stored genre of a known show and only asks the
// classifier about new ones.
func (s *ShowScraper) classify(ctx context.Context, show types.Show, logger zerolog.Logger) types.Genre {
	if s.classifier == nil {
		return types.GenreOther
	}
	stored, err := s.store.GetShow(ctx, db.DeriveShowID(show.VenueID, show.Title, show.StartDate))
	if err != nil {
		logger.Warn().Err(err).Str("show", show.Title).Msg("failed to look up stored show")
	}
	if stored != nil && stored.Genre != "" && stored.Genre != types.GenreOther {
		return stored.Genre
	}
	genre, err := s.classifier.ClassifyGenre(ctx, show.Title, show.Description)
	if err != nil {
		logger.Warn().Err(err).Str("show", show.Title).Msg("genre classification failed")
		return types.GenreOther
	}
	return genre
}
