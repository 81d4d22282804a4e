package scrapers

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/nyc-theater/internal/parsing"
	"github.com/jonathan/nyc-theater/internal/types"
	"github.com/rs/zerolog"
)

// JSONLDScraper reads schema.org Event objects published in
// application/ld+json script blocks.
type JSONLDScraper struct {
	noDiscovery
	pageURL string
	logger  zerolog.Logger
}

// NewJSONLDScraper builds a structured-data extractor. The eventsUrl option
// points at the listing page when it differs from the venue URL.
func NewJSONLDScraper(deps Deps, opts map[string]any) *JSONLDScraper {
	return &JSONLDScraper{
		noDiscovery: noDiscovery{name: "jsonld", deps: deps},
		pageURL:     optString(opts, "eventsUrl", ""),
		logger:      deps.Logger.With().Str("scraper", "jsonld").Logger(),
	}
}

// Name returns the extractor name.
func (s *JSONLDScraper) Name() string { return s.name }

// ScrapeShows fetches the listing page and maps every event object found.
func (s *JSONLDScraper) ScrapeShows(ctx context.Context, venueID, venueURL string) (Result[ShowBatch], error) {
	pageURL := s.pageURL
	if pageURL == "" {
		pageURL = venueURL
	}
	res, err := s.deps.Getter.Get(ctx, pageURL)
	if err != nil {
		if isContextErr(err) {
			return Result[ShowBatch]{}, err
		}
		s.logger.Warn().Err(err).Str("venue_id", venueID).Msg("page fetch failed")
		return fail[ShowBatch](s.name, err.Error(), s.deps.now()), nil
	}

	doc, err := newDocument(res.HTML)
	if err != nil {
		return fail[ShowBatch](s.name, err.Error(), s.deps.now()), nil
	}

	var events []map[string]any
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, script *goquery.Selection) {
		var payload any
		if err := json.Unmarshal([]byte(script.Text()), &payload); err != nil {
			s.logger.Debug().Err(err).Msg("skipping malformed ld+json block")
			return
		}
		events = collectEvents(payload, events)
	})

	ref := s.deps.now()
	shows := make([]types.Show, 0, len(events))
	for _, ev := range events {
		title := htmlToText(field(ev, "name"))
		description := parsing.Truncate(htmlToText(field(ev, "description")), parsing.MaxDescriptionLength)
		status := InferStatus(title)
		if strings.Contains(strings.ToLower(field(ev, "eventStatus")), "cancel") {
			status = types.StatusCanceled
		}
		shows = append(shows, types.Show{
			Title:       title,
			VenueID:     venueID,
			Description: description,
			StartDate:   parsing.ParseDateRelative(field(ev, "startDate"), ref),
			EndDate:     parsing.ParseDateRelative(field(ev, "endDate"), ref),
			Website:     parsing.NormalizeURL(field(ev, "url"), pageURL),
			ImageURL:    parsing.NormalizeURL(imageOf(ev["image"]), pageURL),
			PriceRange:  offersPrice(ev["offers"]),
			Status:      status,
			Genre:       InferGenre(title, description),
			Source:      "jsonld",
		})
	}

	shows = finalizeShows(shows, s.logger)
	return succeed(s.name, showBatch(shows, pageURL), ref), nil
}

// collectEvents walks a decoded ld+json payload gathering Event-typed objects.
func collectEvents(v any, acc []map[string]any) []map[string]any {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			acc = collectEvents(item, acc)
		}
	case map[string]any:
		if isEventType(t["@type"]) {
			acc = append(acc, t)
		}
		if graph, ok := t["@graph"]; ok {
			acc = collectEvents(graph, acc)
		}
	}
	return acc
}

func isEventType(v any) bool {
	switch t := v.(type) {
	case string:
		return strings.HasSuffix(t, "Event")
	case []any:
		for _, x := range t {
			if isEventType(x) {
				return true
			}
		}
	}
	return false
}

func imageOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		return field(t, "url", "contentUrl")
	case []any:
		for _, x := range t {
			if s := imageOf(x); s != "" {
				return s
			}
		}
	}
	return ""
}

func offersPrice(v any) *types.PriceRange {
	var offers []map[string]any
	switch t := v.(type) {
	case map[string]any:
		offers = append(offers, t)
	case []any:
		for _, x := range t {
			if m, ok := x.(map[string]any); ok {
				offers = append(offers, m)
			}
		}
	}

	var pr *types.PriceRange
	for _, o := range offers {
		for _, key := range []string{"price", "lowPrice", "highPrice"} {
			amount, ok := numericPrice(o[key])
			if !ok {
				continue
			}
			if pr == nil {
				lo, hi := amount, amount
				pr = &types.PriceRange{Min: &lo, Max: &hi}
				continue
			}
			if amount < *pr.Min {
				*pr.Min = amount
			}
			if amount > *pr.Max {
				*pr.Max = amount
			}
		}
	}
	return pr
}

func numericPrice(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, t >= 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(t), "$"), 64)
		return f, err == nil && f >= 0
	}
	return 0, false
}
