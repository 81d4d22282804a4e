package parsing

import (
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// MaxDescriptionLength is the longest description kept on a show.
const MaxDescriptionLength = 500

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	invisibleRe  = regexp.MustCompile(`[\x{00A0}\x{2007}\x{202F}]`)
	zeroWidthRe  = regexp.MustCompile(`[\x{200B}\x{200C}\x{200D}\x{2060}\x{FEFF}]`)

	hoursMinutesRe = regexp.MustCompile(`(?i)(\d+)\s*(?:hrs?|hours?)\b\s*(?:(?:and\s+)?(\d+)\s*(?:mins?|minutes?)\b)?`)
	minutesRe      = regexp.MustCompile(`(?i)(\d+)\s*(?:mins?|minutes?)\b`)
)

// CleanText decodes HTML entities, strips non-breaking and zero-width
// characters, collapses whitespace and trims.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = html.UnescapeString(text)
	text = invisibleRe.ReplaceAllString(text, " ")
	text = zeroWidthRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Truncate shortens text to at most n runes, ending with "..." when cut.
func Truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return strings.TrimSpace(string(runes[:n-3])) + "..."
}

// ExtractRuntime returns the running time in minutes found in text such as
// "90 minutes", "2 hours" or "1hr 30min", or nil.
func ExtractRuntime(text string) *int {
	if m := hoursMinutesRe.FindStringSubmatch(text); m != nil {
		total := atoi(m[1]) * 60
		if m[2] != "" {
			total += atoi(m[2])
		}
		if total > 0 {
			return &total
		}
	}
	if m := minutesRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return &n
		}
	}
	return nil
}

// NormalizeURL resolves href against base and returns an absolute URL.
// Protocol-relative links get https. Returns "" for empty or unparseable input.
func NormalizeURL(href, base string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	baseURL, err := url.Parse(base)
	if err != nil || !baseURL.IsAbs() {
		return ""
	}
	return baseURL.ResolveReference(ref).String()
}
