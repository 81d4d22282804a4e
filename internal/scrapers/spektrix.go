package scrapers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/jonathan/nyc-theater/internal/parsing"
	"github.com/jonathan/nyc-theater/internal/types"
	"github.com/rs/zerolog"
)

// SpektrixScraper reads WordPress sites backed by Spektrix ticketing. It tries
// the site's JSON endpoints first and falls back to an events array embedded
// in the page script.
type SpektrixScraper struct {
	noDiscovery
	apiBase   string
	endpoints []string
	prefixes  []string
	eventsURL string
	logger    zerolog.Logger
}

// NewSpektrixScraper builds a Spektrix extractor. Recognized options: apiBase
// (absolute), apiPath (relative to the venue URL), endpoints, prefixes and
// eventsUrl (page carrying the embedded array).
func NewSpektrixScraper(deps Deps, opts map[string]any) *SpektrixScraper {
	return &SpektrixScraper{
		noDiscovery: noDiscovery{name: "spektrix", deps: deps},
		apiBase:     optString(opts, "apiBase", ""),
		endpoints:   optStrings(opts, "endpoints", []string{"events", "performances", "calendar"}),
		prefixes:    optStrings(opts, "prefixes", []string{"var events", "const events", "let events"}),
		eventsURL:   optString(opts, "eventsUrl", ""),
		logger:      deps.Logger.With().Str("scraper", "spektrix").Logger(),
	}
}

// Name returns the extractor name.
func (s *SpektrixScraper) Name() string { return s.name }

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// ScrapeShows tries each API endpoint in order, then the embedded page array.
func (s *SpektrixScraper) ScrapeShows(ctx context.Context, venueID, venueURL string) (Result[ShowBatch], error) {
	apiBase := s.apiBase
	if apiBase == "" {
		apiBase = joinURL(venueURL, "/wp-json/spektrix/v1")
	}

	var lastErr error
	for _, ep := range s.endpoints {
		endpoint := joinURL(apiBase, ep)
		res, err := s.deps.Getter.Get(ctx, endpoint)
		if err != nil {
			if isContextErr(err) {
				return Result[ShowBatch]{}, err
			}
			lastErr = err
			s.logger.Debug().Err(err).Str("endpoint", endpoint).Msg("endpoint unavailable")
			continue
		}

		var payload any
		if err := json.Unmarshal([]byte(res.HTML), &payload); err != nil {
			s.logger.Debug().Err(err).Str("endpoint", endpoint).Msg("endpoint returned non-JSON body")
			continue
		}
		shows := s.mapItems(eventItems(payload), venueID, venueURL)
		if len(shows) > 0 {
			s.logger.Info().Str("endpoint", endpoint).Int("shows", len(shows)).Msg("scraped from API")
			return succeed(s.name, showBatch(shows, endpoint), s.deps.now()), nil
		}
	}

	pageURL := s.eventsURL
	if pageURL == "" {
		pageURL = venueURL
	}
	res, err := s.deps.Getter.Get(ctx, pageURL)
	if err != nil {
		if isContextErr(err) {
			return Result[ShowBatch]{}, err
		}
		if lastErr == nil {
			lastErr = err
		}
		s.logger.Warn().Err(err).Str("venue_id", venueID).Msg("API and page fallback both failed")
		return fail[ShowBatch](s.name, lastErr.Error(), s.deps.now()), nil
	}

	for _, prefix := range s.prefixes {
		items := parsing.ExtractEmbeddedArray(res.HTML, prefix)
		if len(items) == 0 {
			continue
		}
		shows := s.mapItems(items, venueID, venueURL)
		s.logger.Info().Str("prefix", prefix).Int("shows", len(shows)).Msg("scraped from embedded array")
		return succeed(s.name, showBatch(shows, pageURL), s.deps.now()), nil
	}

	s.logger.Info().Str("venue_id", venueID).Msg("no events found")
	return succeed(s.name, ShowBatch{}, s.deps.now()), nil
}

// eventItems unwraps the list forms the endpoints return.
func eventItems(payload any) []any {
	switch v := payload.(type) {
	case []any:
		return v
	case map[string]any:
		for _, key := range []string{"events", "performances", "data"} {
			if items, ok := v[key].([]any); ok {
				return items
			}
		}
	}
	return nil
}

func (s *SpektrixScraper) mapItems(items []any, venueID, venueURL string) []types.Show {
	ref := s.deps.now()
	shows := make([]types.Show, 0, len(items))
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		title := htmlToText(field(item, "title", "name"))
		description := parsing.Truncate(htmlToText(field(item, "description", "synopsis")), parsing.MaxDescriptionLength)
		show := types.Show{
			Title:       title,
			VenueID:     venueID,
			Description: description,
			StartDate:   parsing.ParseDateRelative(field(item, "start", "start_date", "startDate", "firstPerformance"), ref),
			EndDate:     parsing.ParseDateRelative(field(item, "end", "end_date", "endDate", "lastPerformance"), ref),
			ImageURL:    parsing.NormalizeURL(field(item, "image", "imageUrl"), venueURL),
			Source:      "spektrix",
			Genre:       InferGenre(title, description),
		}

		if link := field(item, "url", "link"); link != "" {
			show.Website = parsing.NormalizeURL(link, venueURL)
		} else if id := field(item, "instance_id", "instanceId"); id != "" {
			show.Website = joinURL(venueURL, "/performances/?instanceId="+id)
		}

		show.PriceRange = spektrixPrice(item["price"], item["pricing"])
		show.RuntimeMinutes = spektrixRuntime(item["duration"], item["runtime"])
		show.Status = spektrixStatus(field(item, "status"), field(item, "className"), title+" "+description)
		shows = append(shows, show)
	}
	return finalizeShows(shows, s.logger)
}

// field returns the first non-empty scalar under the given keys, as a string.
func field(item map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := item[k].(type) {
		case string:
			if t := strings.TrimSpace(v); t != "" {
				return t
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func spektrixPrice(values ...any) *types.PriceRange {
	for _, v := range values {
		if amount, ok := numericPrice(v); ok {
			lo, hi := amount, amount
			return &types.PriceRange{Min: &lo, Max: &hi}
		}
		if t, ok := v.(string); ok {
			if pr := parsing.ExtractPriceRange(t); pr != nil {
				return pr
			}
		}
	}
	return nil
}

func spektrixRuntime(values ...any) *int {
	for _, v := range values {
		switch t := v.(type) {
		case float64:
			if t > 0 {
				m := int(t)
				return &m
			}
		case string:
			if m := parsing.ExtractRuntime(t); m != nil {
				return m
			}
			if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil && n > 0 {
				return &n
			}
		}
	}
	return nil
}

func spektrixStatus(status, className, text string) types.ShowStatus {
	combined := strings.ToLower(status + " " + className)
	switch {
	case strings.Contains(combined, "cancel"):
		return types.StatusCanceled
	case strings.Contains(combined, "closed") || strings.Contains(combined, "past"):
		return types.StatusClosed
	case strings.Contains(combined, "main-stage") || strings.Contains(combined, "perfs") || strings.Contains(combined, "running"):
		return types.StatusRunning
	}
	return InferStatus(text)
}
