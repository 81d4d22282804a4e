package scrapers

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/nyc-theater/internal/config"
	"github.com/jonathan/nyc-theater/internal/parsing"
	"github.com/jonathan/nyc-theater/internal/types"
	"github.com/rs/zerolog"
)

var capacityRe = regexp.MustCompile(`\d[\d,]*`)

// DirectoryScraper discovers venues from an aggregator listing page using
// configured card selectors. It never yields shows.
type DirectoryScraper struct {
	deps   Deps
	source config.DiscoverySource
	logger zerolog.Logger
}

// NewDirectoryScraper builds a discovery extractor for one directory source.
func NewDirectoryScraper(deps Deps, source config.DiscoverySource) *DirectoryScraper {
	return &DirectoryScraper{
		deps:   deps,
		source: source,
		logger: deps.Logger.With().Str("scraper", "directory").Str("source", source.Name).Logger(),
	}
}

// Name returns the directory source name.
func (s *DirectoryScraper) Name() string { return s.source.Name }

// DiscoverVenues reads one venue per matched card.
func (s *DirectoryScraper) DiscoverVenues(ctx context.Context) (Result[VenueBatch], error) {
	res, err := s.deps.Getter.Get(ctx, s.source.URL)
	if err != nil {
		if isContextErr(err) {
			return Result[VenueBatch]{}, err
		}
		s.logger.Warn().Err(err).Msg("directory fetch failed")
		return fail[VenueBatch](s.Name(), err.Error(), s.deps.now()), nil
	}
	doc, err := newDocument(res.HTML)
	if err != nil {
		return fail[VenueBatch](s.Name(), err.Error(), s.deps.now()), nil
	}

	sel := s.source.Selectors
	category := types.ParseCategory(s.source.Category)
	seen := make(map[string]bool)
	var venues []types.Venue
	doc.Find(sel.Item).Each(func(_ int, card *goquery.Selection) {
		name := pick(card, sel.Name)
		if name == "" || seen[strings.ToLower(name)] {
			return
		}
		seen[strings.ToLower(name)] = true

		venue := types.Venue{
			Name:         name,
			Address:      pick(card, sel.Address),
			Neighborhood: pick(card, sel.Neighborhood),
			Category:     category,
			Source:       s.Name(),
		}
		if sel.Website != "" {
			href, _ := card.Find(sel.Website).First().Attr("href")
			venue.Website = parsing.NormalizeURL(href, s.source.URL)
		}
		if sel.Capacity != "" {
			venue.SeatingCapacity = parseCapacity(pick(card, sel.Capacity))
		}
		venues = append(venues, venue)
	})

	s.logger.Info().Int("venues", len(venues)).Msg("directory scanned")
	return succeed(s.Name(), VenueBatch{Venues: venues, TotalFound: len(venues)}, s.deps.now()), nil
}

// ScrapeShows is a no-op for directory sources.
func (s *DirectoryScraper) ScrapeShows(_ context.Context, _, _ string) (Result[ShowBatch], error) {
	return succeed(s.Name(), ShowBatch{}, s.deps.now()), nil
}

func pick(card *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return parsing.CleanText(card.Find(selector).First().Text())
}

func parseCapacity(text string) *int {
	m := capacityRe.FindString(text)
	if m == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// RegistrySource turns configured registry entries into candidate venues so
// every configured venue exists in the store before shows are scraped.
type RegistrySource struct {
	entries []config.VenueEntry
	deps    Deps
}

// NewRegistrySource builds the registry discovery source from active entries.
func NewRegistrySource(deps Deps, entries []config.VenueEntry) *RegistrySource {
	return &RegistrySource{entries: entries, deps: deps}
}

// Name returns "registry".
func (s *RegistrySource) Name() string { return "registry" }

// DiscoverVenues maps each entry to a venue candidate.
func (s *RegistrySource) DiscoverVenues(_ context.Context) (Result[VenueBatch], error) {
	venues := make([]types.Venue, 0, len(s.entries))
	for _, e := range s.entries {
		if !e.IsActive() {
			continue
		}
		venues = append(venues, types.Venue{
			Name:         e.Name,
			Address:      e.Address,
			Neighborhood: e.Neighborhood,
			Category:     types.ParseCategory(e.Category),
			Website:      e.URL,
			Source:       "registry",
		})
	}
	return succeed(s.Name(), VenueBatch{Venues: venues, TotalFound: len(venues)}, s.deps.now()), nil
}

// ScrapeShows is a no-op for the registry source.
func (s *RegistrySource) ScrapeShows(_ context.Context, _, _ string) (Result[ShowBatch], error) {
	return succeed(s.Name(), ShowBatch{}, s.deps.now()), nil
}
