package parsing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const dateLayout = "2006-01-02"

var monthNumbers = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

const monthAlt = `(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?`

var (
	isoDateRe     = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})`)
	monthFirstRe  = regexp.MustCompile(`(?i)\b` + monthAlt + `\s+(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s+(\d{4})\b)?`)
	dayFirstRe    = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+` + monthAlt + `(?:,?\s+(\d{4})\b)?`)
	usNumericRe   = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
	monthTokenRe  = regexp.MustCompile(`(?i)\b` + monthAlt)
	yearTokenRe   = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
	clockPrefixRe = regexp.MustCompile(`(?i)^\d{1,2}(?::\d{2}|\s*(?:am|pm)\b)`)
	timeOnlyRe    = regexp.MustCompile(`(?i)^\d{1,2}(?::\d{2})\s*(?:am|pm)?$|^\d{1,2}\s*(?:am|pm)$`)
)

// rangeSeparators are tried in order; spaced forms first so that hyphenated
// words are not split.
var rangeSeparators = []string{" to ", " through ", " thru ", " - ", " – ", " — ", " & ", "–", "—", "-"}

// ParseDate parses a loosely formatted date into YYYY-MM-DD. It returns ""
// when the text cannot be parsed. A missing year is taken from the current year.
func ParseDate(text string) string {
	return ParseDateRelative(text, time.Now())
}

// ParseDateRelative is ParseDate with an explicit reference time for year inference.
func ParseDateRelative(text string, ref time.Time) string {
	text = CleanText(text)
	if text == "" {
		return ""
	}

	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		return buildDate(atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3]))
	}
	if date, ok := parseNamedMonth(text, ref); ok {
		return date
	}
	if m := usNumericRe.FindStringSubmatch(text); m != nil {
		year := ref.Year()
		if m[3] != "" {
			year = atoi(m[3])
			if year < 100 {
				year += 2000
			}
		}
		return buildDate(year, time.Month(atoi(m[1])), atoi(m[2]))
	}

	t, err := dateparse.ParseIn(text, time.UTC)
	if err != nil {
		return ""
	}
	return t.Format(dateLayout)
}

// parseNamedMonth handles "Nov 15" and "15 Nov". When both shapes appear the
// earlier one wins, and a month followed by a clock time ("Nov 7:30") is not
// read as a day.
func parseNamedMonth(text string, ref time.Time) (string, bool) {
	mf := monthFirstRe.FindStringSubmatchIndex(text)
	if mf != nil && isClockTime(text[mf[4]:]) {
		mf = nil
	}
	df := dayFirstRe.FindStringSubmatchIndex(text)
	if df != nil && isClockTime(text[df[2]:]) {
		df = nil
	}

	group := func(loc []int, n int) string {
		if loc[2*n] < 0 {
			return ""
		}
		return text[loc[2*n]:loc[2*n+1]]
	}
	switch {
	case mf != nil && (df == nil || mf[0] <= df[0]):
		month := monthNumbers[strings.ToLower(group(mf, 1)[:3])]
		return buildDate(yearOr(group(mf, 3), ref), month, atoi(group(mf, 2))), true
	case df != nil:
		month := monthNumbers[strings.ToLower(group(df, 2)[:3])]
		return buildDate(yearOr(group(df, 3), ref), month, atoi(group(df, 1))), true
	}
	return "", false
}

// isClockTime reports whether s starts with an hour such as "7:30" or "7pm".
func isClockTime(s string) bool {
	return clockPrefixRe.MatchString(s)
}

// ParseDateRange splits a date range such as "Nov 14-22, 2025" or
// "Feb 21 - Mar 29" into ISO start and end dates. A single date yields the
// same value for both. Either value is "" when it cannot be parsed.
func ParseDateRange(text string) (string, string) {
	return ParseDateRangeRelative(text, time.Now())
}

// ParseDateRangeRelative is ParseDateRange with an explicit reference time.
func ParseDateRangeRelative(text string, ref time.Time) (string, string) {
	text = CleanText(text)
	if text == "" {
		return "", ""
	}

	if isos := isoDateRe.FindAllString(text, 2); len(isos) == 2 {
		return ParseDateRelative(isos[0], ref), ParseDateRelative(isos[1], ref)
	} else if len(isos) == 1 {
		d := ParseDateRelative(isos[0], ref)
		return d, d
	}

	left, right, ok := splitRange(text)
	if !ok || timeOnlyRe.MatchString(right) {
		d := ParseDateRelative(text, ref)
		return d, d
	}

	leftHadYear := yearTokenRe.MatchString(left)
	rightHadYear := yearTokenRe.MatchString(right)

	if !monthTokenRe.MatchString(right) && !strings.Contains(right, "/") {
		if month := monthTokenRe.FindString(left); month != "" {
			right = month + " " + right
		}
	}
	if !leftHadYear && rightHadYear {
		left = withYear(left, yearTokenRe.FindString(right))
	}

	start := ParseDateRelative(left, ref)
	end := ParseDateRelative(right, ref)
	if start == "" || end == "" || end >= start {
		return start, end
	}

	// The range wraps a year boundary, e.g. "Dec 28 - Jan 4".
	switch {
	case !leftHadYear && rightHadYear:
		start = shiftYear(start, -1)
	case !rightHadYear:
		end = shiftYear(end, 1)
	}
	return start, end
}

func splitRange(text string) (string, string, bool) {
	for _, sep := range rangeSeparators {
		if idx := strings.Index(text, sep); idx > 0 {
			left := strings.TrimSpace(text[:idx])
			right := strings.TrimSpace(text[idx+len(sep):])
			if left != "" && right != "" {
				return left, right, true
			}
		}
	}
	return "", "", false
}

func withYear(s, year string) string {
	if usNumericRe.MatchString(s) {
		return s + "/" + year
	}
	return s + ", " + year
}

func shiftYear(iso string, delta int) string {
	t, err := time.Parse(dateLayout, iso)
	if err != nil {
		return iso
	}
	return t.AddDate(delta, 0, 0).Format(dateLayout)
}

// buildDate returns "" for impossible dates such as Feb 30.
func buildDate(year int, month time.Month, day int) string {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return ""
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, int(month), day)
}

func yearOr(s string, ref time.Time) int {
	if s == "" {
		return ref.Year()
	}
	return atoi(s)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
