package scrapers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/nyc-theater/internal/parsing"
	"github.com/jonathan/nyc-theater/internal/types"
	"github.com/rs/zerolog"
)

var canceledRe = regexp.MustCompile(`(?i)\bcancel+ed\b`)

// InferStatus scans listing text for status keywords. A sold out listing is
// still upcoming.
func InferStatus(text string) types.ShowStatus {
	if canceledRe.MatchString(text) {
		return types.StatusCanceled
	}
	return types.StatusUpcoming
}

// genreKeywords are checked in order; the first genre with a hit wins.
var genreKeywords = []struct {
	genre types.Genre
	re    *regexp.Regexp
}{
	{types.GenreOpera, regexp.MustCompile(`(?i)\b(opera|operetta|libretto)\b`)},
	{types.GenreMusical, regexp.MustCompile(`(?i)\b(musical|songs by|book and lyrics|music and lyrics)\b`)},
	{types.GenreDance, regexp.MustCompile(`(?i)\b(dance|ballet|choreograph\w*|tap)\b`)},
	{types.GenreCabaret, regexp.MustCompile(`(?i)\b(cabaret|burlesque|drag)\b`)},
	{types.GenreFamily, regexp.MustCompile(`(?i)\b(family|kids|children'?s|all ages)\b`)},
	{types.GenreSolo, regexp.MustCompile(`(?i)\b(solo show|one-(?:wo)?man|one-person|solo performance)\b`)},
	{types.GenreComedy, regexp.MustCompile(`(?i)\b(comedy|comedic|stand-?up|improv|sketch)\b`)},
	{types.GenreExperimental, regexp.MustCompile(`(?i)\b(experimental|immersive|devised|avant-garde|performance art)\b`)},
	{types.GenreDrama, regexp.MustCompile(`(?i)\b(drama|play|tragedy|new play|premiere)\b`)},
}

// InferGenre guesses a genre from title and description keywords, or other.
func InferGenre(title, description string) types.Genre {
	text := title + " " + description
	for _, g := range genreKeywords {
		if g.re.MatchString(text) {
			return g.genre
		}
	}
	return types.GenreOther
}

func newDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// firstText returns the cleaned text of the first selector that matches
// non-empty text inside sel.
func firstText(sel *goquery.Selection, selectors ...string) string {
	for _, s := range selectors {
		if t := parsing.CleanText(sel.Find(s).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

// spacedText returns the cleaned text of sel with a space between every text
// node, so adjacent cells and inline elements do not run together.
func spacedText(sel *goquery.Selection) string {
	var parts []string
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			switch goquery.NodeName(c) {
			case "#text":
				parts = append(parts, c.Text())
			case "script", "style", "#comment":
			default:
				walk(c)
			}
		})
	}
	walk(sel)
	return parsing.CleanText(strings.Join(parts, " "))
}

// firstAttr returns the first non-empty attribute value across selectors.
func firstAttr(sel *goquery.Selection, attr string, selectors ...string) string {
	for _, s := range selectors {
		if v, ok := sel.Find(s).First().Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// htmlToText flattens an HTML fragment to clean text.
func htmlToText(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return parsing.CleanText(fragment)
	}
	doc, err := newDocument(fragment)
	if err != nil {
		return parsing.CleanText(fragment)
	}
	return parsing.CleanText(doc.Text())
}

// finalizeShows fills defaults, drops candidates with no start date and
// collapses duplicates (same title and start) within one batch.
func finalizeShows(shows []types.Show, logger zerolog.Logger) []types.Show {
	out := make([]types.Show, 0, len(shows))
	seen := make(map[string]bool, len(shows))
	for _, s := range shows {
		if s.Title == "" || s.StartDate == "" {
			logger.Debug().Str("title", s.Title).Msg("dropping listing without title or start date")
			continue
		}
		s.Normalize()
		if s.EndDate < s.StartDate {
			s.EndDate = s.StartDate
		}
		key := strings.ToLower(s.Title) + "|" + s.StartDate
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// Option helpers read loosely typed values from a merged options map.

func optString(opts map[string]any, key, def string) string {
	if v, ok := opts[key]; ok {
		switch t := v.(type) {
		case string:
			if t != "" {
				return t
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case int:
			return strconv.Itoa(t)
		}
	}
	return def
}

func optStrings(opts map[string]any, key string, def []string) []string {
	raw, ok := opts[key].([]any)
	if !ok {
		if s, ok := opts[key].([]string); ok && len(s) > 0 {
			return s
		}
		return def
	}
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func optSeconds(opts map[string]any, key string, def time.Duration) time.Duration {
	switch v := opts[key].(type) {
	case float64:
		return time.Duration(v * float64(time.Second))
	case int:
		return time.Duration(v) * time.Second
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
