package scrapers

import (
	"fmt"
	"sort"

	"dario.cat/mergo"
	"github.com/jonathan/nyc-theater/internal/config"
)

// Constructor builds an extractor for one venue from its merged options.
type Constructor func(deps Deps, entry config.VenueEntry, opts map[string]any) (Scraper, error)

// builtinDefaults are the lowest-precedence options per platform.
var builtinDefaults = map[string]map[string]any{
	"squarespace": {"calendarPath": "/calendar"},
	"spektrix": {
		"endpoints": []any{"events", "performances", "calendar"},
		"prefixes":  []any{"var events", "const events", "let events"},
	},
	"ovationtix": {"calendarBase": ovationTixCalendarBase, "waitSeconds": 10},
}

// Factory maps a venue's configured platform to a constructed extractor.
type Factory struct {
	deps         Deps
	defaults     map[string]map[string]any
	constructors map[string]Constructor
}

// NewFactory creates a factory with every built-in platform registered.
// platformDefaults come from the registry file and override built-in defaults.
func NewFactory(deps Deps, platformDefaults map[string]map[string]any) *Factory {
	f := &Factory{
		deps:         deps,
		defaults:     platformDefaults,
		constructors: make(map[string]Constructor),
	}
	f.Register("squarespace", func(d Deps, _ config.VenueEntry, opts map[string]any) (Scraper, error) {
		return NewSquarespaceScraper(d, opts), nil
	})
	f.Register("spektrix", func(d Deps, _ config.VenueEntry, opts map[string]any) (Scraper, error) {
		return NewSpektrixScraper(d, opts), nil
	})
	f.Register("ovationtix", func(d Deps, e config.VenueEntry, opts map[string]any) (Scraper, error) {
		return NewOvationTixScraper(d, e.Key, opts)
	})
	f.Register("jsonld", func(d Deps, _ config.VenueEntry, opts map[string]any) (Scraper, error) {
		return NewJSONLDScraper(d, opts), nil
	})
	f.Register("auto", func(d Deps, e config.VenueEntry, _ map[string]any) (Scraper, error) {
		return newAutoScraper(f, d, e), nil
	})
	return f
}

// Register adds or replaces the constructor for a platform.
func (f *Factory) Register(platform string, c Constructor) {
	f.constructors[platform] = c
}

// Platforms lists registered platform ids, sorted.
func (f *Factory) Platforms() []string {
	out := make([]string, 0, len(f.constructors))
	for p := range f.constructors {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ForVenue resolves the extractor for a registry entry. An empty platform
// means auto-detection.
func (f *Factory) ForVenue(entry config.VenueEntry) (Scraper, error) {
	if !entry.IsActive() {
		return nil, ErrVenueDisabled
	}
	platform := entry.Platform
	if platform == "" {
		platform = "auto"
	}
	return f.build(platform, entry)
}

func (f *Factory) build(platform string, entry config.VenueEntry) (Scraper, error) {
	ctor, ok := f.constructors[platform]
	if !ok {
		return nil, &UnknownPlatformError{Platform: platform, Venue: entry.Key}
	}
	opts, err := f.mergedOptions(platform, entry.Options)
	if err != nil {
		return nil, err
	}
	return ctor(f.deps, entry, opts)
}

// mergedOptions layers venue options over registry platform defaults over
// built-in defaults. Existing keys are never overwritten by a lower layer.
func (f *Factory) mergedOptions(platform string, venueOpts map[string]any) (map[string]any, error) {
	opts := make(map[string]any, len(venueOpts))
	for k, v := range venueOpts {
		opts[k] = v
	}
	if err := mergo.Merge(&opts, f.defaults[platform]); err != nil {
		return nil, fmt.Errorf("failed to merge %s defaults: %w", platform, err)
	}
	if err := mergo.Merge(&opts, builtinDefaults[platform]); err != nil {
		return nil, fmt.Errorf("failed to merge built-in %s defaults: %w", platform, err)
	}
	return opts, nil
}

// DiscoverySources returns the discovery extractors: the registry source
// first, then every enabled directory source.
func (f *Factory) DiscoverySources(reg *config.Registry) []Scraper {
	sources := []Scraper{NewRegistrySource(f.deps, reg.ActiveEntries())}
	for _, src := range reg.Discovery {
		if !src.Enabled {
			continue
		}
		sources = append(sources, NewDirectoryScraper(f.deps, src))
	}
	return sources
}
