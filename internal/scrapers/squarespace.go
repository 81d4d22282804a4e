package scrapers

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/nyc-theater/internal/parsing"
	"github.com/jonathan/nyc-theater/internal/types"
	"github.com/rs/zerolog"
)

// squarespaceContainers are event container selectors, most specific first.
var squarespaceContainers = []string{
	"div.eventlist-column-info",
	"article.eventlist-event",
	"article[class*='event-item']",
	"div[class*='calendar-event']",
}

// SquarespaceScraper reads the events collection of a Squarespace site.
type SquarespaceScraper struct {
	noDiscovery
	calendarPath string
	calendarURL  string
	logger       zerolog.Logger
}

// NewSquarespaceScraper builds a Squarespace extractor. Recognized options:
// calendarPath (default /calendar) and calendarUrl (absolute override).
func NewSquarespaceScraper(deps Deps, opts map[string]any) *SquarespaceScraper {
	return &SquarespaceScraper{
		noDiscovery:  noDiscovery{name: "squarespace", deps: deps},
		calendarPath: optString(opts, "calendarPath", "/calendar"),
		calendarURL:  optString(opts, "calendarUrl", ""),
		logger:       deps.Logger.With().Str("scraper", "squarespace").Logger(),
	}
}

// Name returns the extractor name.
func (s *SquarespaceScraper) Name() string { return s.name }

// ScrapeShows fetches the calendar page and maps each event container to a show.
func (s *SquarespaceScraper) ScrapeShows(ctx context.Context, venueID, venueURL string) (Result[ShowBatch], error) {
	pageURL := s.calendarURL
	if pageURL == "" {
		pageURL = joinURL(venueURL, s.calendarPath)
	}

	res, err := s.deps.Getter.Get(ctx, pageURL)
	if err != nil {
		if isContextErr(err) {
			return Result[ShowBatch]{}, err
		}
		s.logger.Warn().Err(err).Str("venue_id", venueID).Str("url", pageURL).Msg("calendar fetch failed")
		return fail[ShowBatch](s.name, err.Error(), s.deps.now()), nil
	}

	doc, err := newDocument(res.HTML)
	if err != nil {
		return fail[ShowBatch](s.name, err.Error(), s.deps.now()), nil
	}

	var containers *goquery.Selection
	for _, sel := range squarespaceContainers {
		if found := doc.Find(sel); found.Length() > 0 {
			containers = found
			s.logger.Debug().Str("selector", sel).Int("count", found.Length()).Msg("matched event containers")
			break
		}
	}
	if containers == nil {
		s.logger.Info().Str("venue_id", venueID).Msg("no event containers on calendar page")
		return succeed(s.name, ShowBatch{}, s.deps.now()), nil
	}

	now := s.deps.now()
	var shows []types.Show
	containers.Each(func(_ int, el *goquery.Selection) {
		if show, ok := s.parseEvent(el, pageURL); ok {
			show.VenueID = venueID
			shows = append(shows, show)
		}
	})

	shows = finalizeShows(shows, s.logger)
	return succeed(s.name, showBatch(shows, pageURL), now), nil
}

func (s *SquarespaceScraper) parseEvent(el *goquery.Selection, pageURL string) (types.Show, bool) {
	scope := el
	if article := el.Closest("article"); article.Length() > 0 {
		scope = article
	}

	title := firstText(el, "h1.eventlist-title", "h2.eventlist-title", ".eventlist-title", ".event-title", "h1", "h2", "h3")
	if title == "" {
		return types.Show{}, false
	}

	link := firstAttr(scope, "href", "a.eventlist-title-link", ".eventlist-title a", ".event-title a", "a.eventlist-column-thumbnail", "a")
	show := types.Show{
		Title:   title,
		Website: parsing.NormalizeURL(link, pageURL),
		Source:  "squarespace",
	}

	start, end := s.parseDates(scope)
	show.StartDate, show.EndDate = start, end

	description := firstText(scope, ".eventlist-excerpt", ".eventlist-description", ".event-excerpt", ".event-description", "p")
	show.Description = parsing.Truncate(description, parsing.MaxDescriptionLength)

	img := firstAttr(scope, "data-src", "img")
	if img == "" {
		img = firstAttr(scope, "src", "img")
	}
	show.ImageURL = parsing.NormalizeURL(img, pageURL)

	text := spacedText(scope)
	show.PriceRange = parsing.ExtractPriceRange(text)
	show.RuntimeMinutes = parsing.ExtractRuntime(text)
	show.Status = InferStatus(text)
	show.Genre = InferGenre(title, description)
	return show, true
}

// parseDates prefers machine-readable datetime attributes and falls back to
// the visible date text.
func (s *SquarespaceScraper) parseDates(scope *goquery.Selection) (string, string) {
	ref := s.deps.now()
	var start, end string

	times := scope.Find("time.event-date")
	if v, ok := times.First().Attr("datetime"); ok {
		start = parsing.ParseDateRelative(v, ref)
	}
	if v, ok := scope.Find("time.event-date-end").First().Attr("datetime"); ok {
		end = parsing.ParseDateRelative(v, ref)
	} else if times.Length() > 1 {
		if v, ok := times.Last().Attr("datetime"); ok {
			end = parsing.ParseDateRelative(v, ref)
		}
	}

	if start == "" {
		text := firstText(scope, ".eventlist-meta-date", ".event-date", ".event-dates", "time")
		start, end = parsing.ParseDateRangeRelative(text, ref)
	}
	if end == "" || end < start {
		end = start
	}
	return strings.TrimSpace(start), strings.TrimSpace(end)
}
