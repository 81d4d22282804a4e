package scrapers

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/nyc-theater/internal/parsing"
	"github.com/jonathan/nyc-theater/internal/types"
	"github.com/rs/zerolog"
)

const (
	ovationTixOrigin       = "https://web.ovationtix.com"
	ovationTixCalendarBase = ovationTixOrigin + "/trs/cal/"
	ovationTixRowSelector  = "table tbody tr"
)

// OvationTixScraper reads an OvationTix hosted calendar, which only renders
// its listing table client-side.
type OvationTixScraper struct {
	noDiscovery
	storeID     string
	calendarURL string
	wait        time.Duration
	logger      zerolog.Logger
}

// NewOvationTixScraper builds an OvationTix extractor. The storeId option is
// required; waitSeconds bounds the wait for the listing table (default 10).
func NewOvationTixScraper(deps Deps, venue string, opts map[string]any) (*OvationTixScraper, error) {
	storeID := optString(opts, "storeId", optString(opts, "store_id", ""))
	if storeID == "" {
		return nil, &ConfigError{Venue: venue, Message: "ovationtix requires a storeId option"}
	}
	if deps.Renderer == nil {
		return nil, &ConfigError{Venue: venue, Message: "ovationtix requires a browser renderer"}
	}
	base := optString(opts, "calendarBase", ovationTixCalendarBase)
	return &OvationTixScraper{
		noDiscovery: noDiscovery{name: "ovationtix", deps: deps},
		storeID:     storeID,
		calendarURL: strings.TrimRight(base, "/") + "/" + storeID,
		wait:        optSeconds(opts, "waitSeconds", 10*time.Second),
		logger:      deps.Logger.With().Str("scraper", "ovationtix").Str("store_id", storeID).Logger(),
	}, nil
}

// Name returns the extractor name.
func (s *OvationTixScraper) Name() string { return s.name }

// ScrapeShows renders the calendar and reads one show per table row.
func (s *OvationTixScraper) ScrapeShows(ctx context.Context, venueID, _ string) (Result[ShowBatch], error) {
	html, found, err := s.deps.Renderer.Render(ctx, s.calendarURL, ovationTixRowSelector, s.wait)
	if err != nil {
		if isContextErr(ctx.Err()) {
			return Result[ShowBatch]{}, ctx.Err()
		}
		s.logger.Warn().Err(err).Str("venue_id", venueID).Msg("calendar render failed")
		return fail[ShowBatch](s.name, err.Error(), s.deps.now()), nil
	}
	if !found {
		s.logger.Info().Str("venue_id", venueID).Msg("calendar table never appeared")
		return succeed(s.name, ShowBatch{}, s.deps.now()), nil
	}

	doc, err := newDocument(html)
	if err != nil {
		return fail[ShowBatch](s.name, err.Error(), s.deps.now()), nil
	}

	ref := s.deps.now()
	var shows []types.Show
	doc.Find(ovationTixRowSelector).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 5 {
			return
		}
		cell := func(i int) string { return parsing.CleanText(cells.Eq(i).Text()) }

		var parts []string
		for i := 1; i <= 3; i++ {
			if t := cell(i); t != "" {
				parts = append(parts, t)
			}
		}
		title := strings.Join(parts, " - ")
		start, end := parsing.ParseDateRangeRelative(cell(0), ref)
		link, _ := cells.Eq(2).Find("a").First().Attr("href")
		if link == "" {
			link, _ = row.Find("a").First().Attr("href")
		}
		rowText := spacedText(row)

		shows = append(shows, types.Show{
			Title:     title,
			VenueID:   venueID,
			StartDate: start,
			EndDate:   end,
			Website:   parsing.NormalizeURL(link, ovationTixOrigin),
			Status:    InferStatus(rowText),
			Genre:     InferGenre(title, ""),
			Source:    "ovationtix",
		})
	})

	shows = finalizeShows(shows, s.logger)
	return succeed(s.name, showBatch(shows, s.calendarURL), ref), nil
}
