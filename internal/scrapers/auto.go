package scrapers

import (
	"context"
	"regexp"

	"github.com/jonathan/nyc-theater/internal/config"
	"github.com/jonathan/nyc-theater/internal/fetch"
	"github.com/rs/zerolog"
)

var ovationTixStoreRe = regexp.MustCompile(`ovationtix\.com/trs/(?:cal|pr|pe)/(\d+)`)

// autoScraper detects a venue's platform from its home page and delegates.
type autoScraper struct {
	noDiscovery
	factory *Factory
	entry   config.VenueEntry
	logger  zerolog.Logger
}

func newAutoScraper(f *Factory, deps Deps, entry config.VenueEntry) *autoScraper {
	return &autoScraper{
		noDiscovery: noDiscovery{name: "auto", deps: deps},
		factory:     f,
		entry:       entry,
		logger:      deps.Logger.With().Str("scraper", "auto").Str("venue", entry.Key).Logger(),
	}
}

func (s *autoScraper) Name() string { return s.name }

func (s *autoScraper) ScrapeShows(ctx context.Context, venueID, venueURL string) (Result[ShowBatch], error) {
	res, err := s.deps.Getter.Get(ctx, venueURL)
	if err != nil {
		if isContextErr(err) {
			return Result[ShowBatch]{}, err
		}
		return fail[ShowBatch](s.name, err.Error(), s.deps.now()), nil
	}

	platform := fetch.DetectPlatform(venueURL, res.HTML)
	s.logger.Info().Str("platform", string(platform)).Msg("detected platform")
	if platform == fetch.PlatformUnknown {
		return succeed(s.name, ShowBatch{}, s.deps.now()), nil
	}

	entry := s.entry
	entry.Options = make(map[string]any, len(s.entry.Options)+1)
	for k, v := range s.entry.Options {
		entry.Options[k] = v
	}
	if platform == fetch.PlatformOvationTix {
		if m := ovationTixStoreRe.FindStringSubmatch(venueURL + " " + res.HTML); m != nil {
			if _, set := entry.Options["storeId"]; !set {
				entry.Options["storeId"] = m[1]
			}
		}
	}

	delegate, err := s.factory.build(string(platform), entry)
	if err != nil {
		return Result[ShowBatch]{}, err
	}
	return delegate.ScrapeShows(ctx, venueID, venueURL)
}
