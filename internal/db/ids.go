package db

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

var (
	venueNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("nyc-theater:venue"))
	showNamespace  = uuid.NewSHA1(uuid.NameSpaceURL, []byte("nyc-theater:show"))
)

// NormalizeName folds case, punctuation, whitespace and a leading "the" so
// that "The Tank" and " the  tank!" compare equal.
func NormalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.ReplaceAll(s, "theatre", "theater")
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(fields) > 1 && fields[0] == "the" {
		fields = fields[1:]
	}
	return strings.Join(fields, "")
}

var addressAbbreviations = map[string]string{
	"street": "st", "avenue": "ave", "av": "ave", "boulevard": "blvd", "place": "pl",
	"road": "rd", "square": "sq", "west": "w", "east": "e", "north": "n", "south": "s",
	"floor": "fl", "suite": "ste",
}

// NormalizeAddress reduces an address to its street line with common
// abbreviations folded, e.g. "312 West 36th Street, New York" -> "312 w 36th st".
func NormalizeAddress(address string) string {
	s := strings.ToLower(strings.TrimSpace(address))
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[:i]
	}
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, f := range fields {
		if abbr, ok := addressAbbreviations[f]; ok {
			fields[i] = abbr
		}
	}
	return strings.Join(fields, " ")
}

// DeriveVenueID returns the stable id for a venue.
func DeriveVenueID(name, address string) string {
	key := NormalizeName(name) + "|" + NormalizeAddress(address)
	return uuid.NewSHA1(venueNamespace, []byte(key)).String()
}

// DeriveShowID returns the stable id for a show listing.
func DeriveShowID(venueID, title, startDate string) string {
	key := venueID + "|" + NormalizeName(title) + "|" + strings.TrimSpace(startDate)
	return uuid.NewSHA1(showNamespace, []byte(key)).String()
}
