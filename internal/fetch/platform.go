// Package fetch - platform.go detects which ticketing or site platform serves a venue page.
package fetch

import (
	"net/url"
	"strings"
)

// Platform identifies a venue website or ticketing platform family.
type Platform string

const (
	// PlatformSquarespace is a Squarespace site with an events collection
	PlatformSquarespace Platform = "squarespace"
	// PlatformSpektrix is a WordPress site backed by Spektrix ticketing
	PlatformSpektrix Platform = "spektrix"
	// PlatformOvationTix is an OvationTix hosted calendar
	PlatformOvationTix Platform = "ovationtix"
	// PlatformJSONLD is any page publishing schema.org events
	PlatformJSONLD Platform = "jsonld"
	// PlatformUnknown is an unrecognized platform
	PlatformUnknown Platform = "unknown"
)

// DetectPlatform identifies the platform from a page URL and, when available,
// its HTML. Host patterns are checked before page markers.
func DetectPlatform(urlStr, html string) Platform {
	if parsed, err := url.Parse(urlStr); err == nil {
		host := strings.ToLower(parsed.Host)
		if strings.Contains(host, "ovationtix.com") {
			return PlatformOvationTix
		}
		if strings.Contains(host, "squarespace.com") {
			return PlatformSquarespace
		}
	}

	lower := strings.ToLower(html)
	switch {
	case strings.Contains(lower, "ovationtix.com/trs"):
		return PlatformOvationTix
	case strings.Contains(lower, "spektrix"):
		return PlatformSpektrix
	case strings.Contains(lower, "static1.squarespace.com") || strings.Contains(lower, "squarespace-cdn.com"):
		return PlatformSquarespace
	case strings.Contains(lower, "application/ld+json") && strings.Contains(lower, "event"):
		return PlatformJSONLD
	}
	return PlatformUnknown
}
