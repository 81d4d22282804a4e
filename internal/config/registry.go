package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/titanous/json5"
)

// VenueEntry is one configured venue: where its listings live and which
// extractor reads them. Options carries platform-specific overrides such as
// a ticketing store id or a calendar path.
type VenueEntry struct {
	Key          string         `json:"-"`
	Name         string         `json:"name"`
	URL          string         `json:"url"`
	Address      string         `json:"address,omitempty"`
	Neighborhood string         `json:"neighborhood,omitempty"`
	Category     string         `json:"category,omitempty"`
	Platform     string         `json:"platform"`
	Active       *bool          `json:"active,omitempty"`
	Options      map[string]any `json:"options,omitempty"`
}

// IsActive reports whether the entry is enabled. Entries default to active.
func (e VenueEntry) IsActive() bool {
	return e.Active == nil || *e.Active
}

// DirectorySelectors locate venue cards on an aggregator listing page.
type DirectorySelectors struct {
	Item         string `json:"item"`
	Name         string `json:"name"`
	Address      string `json:"address,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	Website      string `json:"website,omitempty"`
	Capacity     string `json:"capacity,omitempty"`
}

// DiscoverySource is an aggregator directory used for venue discovery.
type DiscoverySource struct {
	Name      string             `json:"name"`
	URL       string             `json:"url"`
	Enabled   bool               `json:"enabled"`
	Category  string             `json:"category,omitempty"`
	Selectors DirectorySelectors `json:"selectors"`
}

// Registry is the venue registry file.
type Registry struct {
	Venues           map[string]VenueEntry     `json:"venues"`
	Discovery        []DiscoverySource         `json:"discovery,omitempty"`
	PlatformDefaults map[string]map[string]any `json:"platform_defaults,omitempty"`
}

// LoadRegistry reads a JSON5 registry file.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return nil, fmt.Errorf("registry path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file %s: %w", path, err)
	}
	return ParseRegistry(data)
}

// ParseRegistry decodes and validates registry content.
func ParseRegistry(data []byte) (*Registry, error) {
	var reg Registry
	if err := json5.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}
	for key, entry := range reg.Venues {
		entry.Key = key
		entry.Platform = strings.ToLower(strings.TrimSpace(entry.Platform))
		reg.Venues[key] = entry
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Validate checks required fields. Unknown platforms are not rejected here;
// the scraper factory reports them per venue.
func (r *Registry) Validate() error {
	for key, entry := range r.Venues {
		if strings.TrimSpace(entry.Name) == "" {
			return fmt.Errorf("registry error: venue %q has no name", key)
		}
		if strings.TrimSpace(entry.URL) == "" {
			return fmt.Errorf("registry error: venue %q has no url", key)
		}
	}
	for i, src := range r.Discovery {
		if src.Name == "" || src.URL == "" {
			return fmt.Errorf("registry error: discovery source %d needs name and url", i)
		}
		if src.Selectors.Item == "" || src.Selectors.Name == "" {
			return fmt.Errorf("registry error: discovery source %q needs item and name selectors", src.Name)
		}
	}
	return nil
}

// Entries returns all venue entries sorted by key.
func (r *Registry) Entries() []VenueEntry {
	keys := make([]string, 0, len(r.Venues))
	for k := range r.Venues {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]VenueEntry, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.Venues[k])
	}
	return out
}

// ActiveEntries returns enabled entries sorted by key.
func (r *Registry) ActiveEntries() []VenueEntry {
	var out []VenueEntry
	for _, e := range r.Entries() {
		if e.IsActive() {
			out = append(out, e)
		}
	}
	return out
}
