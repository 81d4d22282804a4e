package parsing

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jonathan/nyc-theater/internal/types"
)

const amount = `(\d{1,5}(?:,\d{3})*(?:\.\d{1,2})?)`

// Patterns are applied in order; the range must win over its looser prefixes.
var (
	priceRangeRe    = regexp.MustCompile(`\$\s*` + amount + `\s*(?:-|–|—|to)\s*\$?\s*` + amount)
	priceOpenRe     = regexp.MustCompile(`\$\s*` + amount + `\s*\+`)
	priceStartingRe = regexp.MustCompile(`(?i)(?:starting\s+(?:at|from)|from)\s*\$\s*` + amount)
	priceSingleRe   = regexp.MustCompile(`\$\s*` + amount)
)

// ExtractPriceRange finds a ticket price in free text. Recognized shapes, in
// precedence order: "$20-$65" (both bounds), "$20+" or "starting at $20"
// (minimum only), and "$35" (min equals max). Returns nil if no price is found.
func ExtractPriceRange(text string) *types.PriceRange {
	if text == "" {
		return nil
	}

	if m := priceRangeRe.FindStringSubmatch(text); m != nil {
		lo, hi := parseAmount(m[1]), parseAmount(m[2])
		if lo > hi {
			lo, hi = hi, lo
		}
		return &types.PriceRange{Min: &lo, Max: &hi}
	}
	if m := priceOpenRe.FindStringSubmatch(text); m != nil {
		lo := parseAmount(m[1])
		return &types.PriceRange{Min: &lo}
	}
	if m := priceStartingRe.FindStringSubmatch(text); m != nil {
		lo := parseAmount(m[1])
		return &types.PriceRange{Min: &lo}
	}
	if m := priceSingleRe.FindStringSubmatch(text); m != nil {
		p := parseAmount(m[1])
		hi := p
		return &types.PriceRange{Min: &p, Max: &hi}
	}
	return nil
}

func parseAmount(s string) float64 {
	f, _ := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	return f
}
