// Package export projects the active store contents to the public theater
// data blob, validates it and writes or publishes it.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jonathan/nyc-theater/internal/db"
	jsonschema "github.com/jonathan/nyc-theater/internal/schemas"
	"github.com/jonathan/nyc-theater/internal/types"
	"github.com/jonathan/nyc-theater/schemas"
)

// FormatVersion is the blob format version written to metadata.
const FormatVersion = "1.0"

// Source reads venues and shows. *db.DB satisfies it.
type Source interface {
	ListVenues(ctx context.Context, filter db.VenueFilter) ([]types.Venue, error)
	ListShows(ctx context.Context, filter db.ShowFilter) ([]types.Show, error)
}

// Metadata is the blob envelope.
type Metadata struct {
	Version       string   `json:"version"`
	GeneratedAt   string   `json:"generatedAt"`
	TotalVenues   int      `json:"totalVenues"`
	TotalShows    int      `json:"totalShows"`
	ActiveShows   int      `json:"activeShows"`
	UpcomingShows int      `json:"upcomingShows"`
	Sources       []string `json:"sources"`
}

// Venue is the public venue projection.
type Venue struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Address         string   `json:"address"`
	Neighborhood    string   `json:"neighborhood"`
	Category        string   `json:"category"`
	Website         string   `json:"website,omitempty"`
	SeatingCapacity *int     `json:"seatingCapacity,omitempty"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
}

// PriceRange is only emitted when both bounds are known.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Show is the public show projection.
type Show struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	VenueID        string      `json:"venueId"`
	Description    string      `json:"description"`
	StartDate      string      `json:"startDate"`
	EndDate        string      `json:"endDate"`
	Genre          string      `json:"genre"`
	RuntimeMinutes *int        `json:"runtimeMinutes,omitempty"`
	PriceRange     *PriceRange `json:"priceRange,omitempty"`
	Website        string      `json:"website,omitempty"`
	ImageURL       string      `json:"imageUrl,omitempty"`
	Status         string      `json:"status"`
}

// Blob is the whole public document.
type Blob struct {
	Metadata Metadata `json:"metadata"`
	Venues   []Venue  `json:"venues"`
	Shows    []Show   `json:"shows"`
}

// Build reads the active venues and shows and projects them. Shows of an
// inactive venue are left out. Show counts are computed against the New York
// calendar date of now.
func Build(ctx context.Context, source Source, now time.Time) (*Blob, error) {
	venues, err := source.ListVenues(ctx, db.VenueFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read venues: %w", err)
	}
	shows, err := source.ListShows(ctx, db.ShowFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read shows: %w", err)
	}

	sort.SliceStable(venues, func(i, j int) bool {
		if venues[i].Name != venues[j].Name {
			return venues[i].Name < venues[j].Name
		}
		return venues[i].ID < venues[j].ID
	})
	sort.SliceStable(shows, func(i, j int) bool {
		a, b := shows[i], shows[j]
		if a.StartDate != b.StartDate {
			return a.StartDate < b.StartDate
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ID < b.ID
	})

	today := types.DateOf(now)
	blob := &Blob{
		Venues: make([]Venue, 0, len(venues)),
		Shows:  make([]Show, 0, len(shows)),
	}
	sources := map[string]bool{}
	exported := make(map[string]bool, len(venues))

	for _, v := range venues {
		exported[v.ID] = true
		blob.Venues = append(blob.Venues, projectVenue(v))
		if v.Source != "" {
			sources[v.Source] = true
		}
	}
	for _, s := range shows {
		if !exported[s.VenueID] {
			continue
		}
		blob.Shows = append(blob.Shows, projectShow(s))
		if s.Source != "" {
			sources[s.Source] = true
		}
		switch {
		case s.StartDate > today:
			blob.Metadata.UpcomingShows++
		case s.EndDate >= today:
			blob.Metadata.ActiveShows++
		}
	}

	blob.Metadata.Version = FormatVersion
	blob.Metadata.GeneratedAt = now.UTC().Format(time.RFC3339)
	blob.Metadata.TotalVenues = len(blob.Venues)
	blob.Metadata.TotalShows = len(blob.Shows)
	blob.Metadata.Sources = make([]string, 0, len(sources))
	for s := range sources {
		blob.Metadata.Sources = append(blob.Metadata.Sources, s)
	}
	sort.Strings(blob.Metadata.Sources)
	return blob, nil
}

func projectVenue(v types.Venue) Venue {
	return Venue{
		ID:              v.ID,
		Name:            v.Name,
		Address:         v.Address,
		Neighborhood:    v.Neighborhood,
		Category:        string(v.Category),
		Website:         v.Website,
		SeatingCapacity: v.SeatingCapacity,
		Latitude:        v.Latitude,
		Longitude:       v.Longitude,
	}
}

func projectShow(s types.Show) Show {
	out := Show{
		ID:             s.ID,
		Title:          s.Title,
		VenueID:        s.VenueID,
		Description:    s.Description,
		StartDate:      s.StartDate,
		EndDate:        s.EndDate,
		Genre:          string(s.Genre),
		RuntimeMinutes: s.RuntimeMinutes,
		Website:        s.Website,
		ImageURL:       s.ImageURL,
		Status:         string(s.Status),
	}
	if out.EndDate == "" {
		out.EndDate = out.StartDate
	}
	if s.PriceRange.Bounded() {
		out.PriceRange = &PriceRange{Min: *s.PriceRange.Min, Max: *s.PriceRange.Max}
	}
	return out
}

// Marshal renders the blob as indented JSON and validates it against the
// published schema.
func Marshal(blob *Blob) ([]byte, error) {
	data, err := json.MarshalIndent(blob, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export: %w", err)
	}
	data = append(data, '\n')
	if err := validateBlob(data); err != nil {
		return nil, err
	}
	return data, nil
}

var theaterSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.Compile("theater_data.schema.json", schemas.TheaterData)
})

func validateBlob(data []byte) error {
	schema, err := theaterSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(data); err != nil {
		return fmt.Errorf("export failed schema validation: %w", err)
	}
	return nil
}

// WriteFile writes data to path through a temp file in the same directory
// and a rename, so readers never observe a partial file.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close export: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set export permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move export into place: %w", err)
	}
	return nil
}

// Summary describes a written export.
type Summary struct {
	Path     string
	Bytes    int
	Metadata Metadata
}

// Generate builds, validates and writes the blob to path.
func Generate(ctx context.Context, source Source, path string, now time.Time) (*Summary, error) {
	blob, err := Build(ctx, source, now)
	if err != nil {
		return nil, err
	}
	data, err := Marshal(blob)
	if err != nil {
		return nil, err
	}
	if err := WriteFile(path, data); err != nil {
		return nil, err
	}
	return &Summary{Path: path, Bytes: len(data), Metadata: blob.Metadata}, nil
}
