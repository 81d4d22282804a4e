// Package types provides the domain model shared by scrapers, the store and the exporter.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strings"
	"time"
)

// DateLayout is the canonical calendar-date layout used for storage and export.
const DateLayout = "2006-01-02"

// Category classifies a venue.
type Category string

// Venue categories
const (
	CategoryPrincipal   Category = "principal"
	CategorySecondary   Category = "secondary"
	CategoryIndependent Category = "independent"
	CategoryNonProfit   Category = "non-profit"
)

// Categories lists every valid venue category.
var Categories = []Category{CategoryPrincipal, CategorySecondary, CategoryIndependent, CategoryNonProfit}

// ParseCategory maps free text onto a category. Unknown text maps to independent.
func ParseCategory(s string) Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "principal", "major", "broadway":
		return CategoryPrincipal
	case "secondary", "off-broadway", "off broadway":
		return CategorySecondary
	case "non-profit", "nonprofit", "non profit":
		return CategoryNonProfit
	default:
		return CategoryIndependent
	}
}

// Genre classifies a show.
type Genre string

// Show genres
const (
	GenreDrama        Genre = "drama"
	GenreComedy       Genre = "comedy"
	GenreMusical      Genre = "musical"
	GenreDance        Genre = "dance"
	GenreOpera        Genre = "opera"
	GenreExperimental Genre = "experimental"
	GenreFamily       Genre = "family"
	GenreSolo         Genre = "solo"
	GenreCabaret      Genre = "cabaret"
	GenreOther        Genre = "other"
)

// Genres lists every valid genre.
var Genres = []Genre{
	GenreDrama, GenreComedy, GenreMusical, GenreDance, GenreOpera,
	GenreExperimental, GenreFamily, GenreSolo, GenreCabaret, GenreOther,
}

// ParseGenre returns the genre named by s, or other.
func ParseGenre(s string) Genre {
	g := Genre(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Genres {
		if g == known {
			return g
		}
	}
	return GenreOther
}

// ShowStatus is the lifecycle status of a show listing.
type ShowStatus string

// Show statuses
const (
	StatusUpcoming ShowStatus = "upcoming"
	StatusRunning  ShowStatus = "running"
	StatusClosed   ShowStatus = "closed"
	StatusCanceled ShowStatus = "canceled"
)

// PriceRange holds ticket price bounds in dollars. Either bound may be unknown.
type PriceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Bounded reports whether both bounds are known.
func (p *PriceRange) Bounded() bool {
	return p != nil && p.Min != nil && p.Max != nil
}

// Venue is a physical theater or performance space.
type Venue struct {
	ID              string     `json:"id"`
	Name            string     `json:"name" validate:"required,max=300"`
	Address         string     `json:"address"`
	Neighborhood    string     `json:"neighborhood"`
	Category        Category   `json:"category" validate:"required,oneof=principal secondary independent non-profit"`
	Website         string     `json:"website,omitempty" validate:"omitempty,url"`
	SeatingCapacity *int       `json:"seating_capacity,omitempty" validate:"omitempty,gte=0"`
	Latitude        *float64   `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude       *float64   `json:"longitude,omitempty" validate:"omitempty,longitude"`
	Source          string     `json:"source"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastScrapedAt   *time.Time `json:"last_scraped_at,omitempty"`
}

// Show is one production's listing at a venue.
type Show struct {
	ID             string      `json:"id"`
	Title          string      `json:"title" validate:"required,max=500"`
	VenueID        string      `json:"venue_id"`
	Description    string      `json:"description"`
	StartDate      string      `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate        string      `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Genre          Genre       `json:"genre" validate:"required,oneof=drama comedy musical dance opera experimental family solo cabaret other"`
	RuntimeMinutes *int        `json:"runtime_minutes,omitempty" validate:"omitempty,gt=0"`
	PriceRange     *PriceRange `json:"price_range,omitempty"`
	Website        string      `json:"website,omitempty"`
	ImageURL       string      `json:"image_url,omitempty"`
	Status         ShowStatus  `json:"status" validate:"required,oneof=upcoming running closed canceled"`
	Source         string      `json:"source"`
	ScrapedURL     string      `json:"scraped_url,omitempty"`
	IsActive       bool        `json:"is_active"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Normalize fills defaults on a candidate show: a missing end date takes the
// start date, and empty genre and status take other and upcoming.
func (s *Show) Normalize() {
	if s.EndDate == "" {
		s.EndDate = s.StartDate
	}
	if s.Genre == "" {
		s.Genre = GenreOther
	}
	if s.Status == "" {
		s.Status = StatusUpcoming
	}
}

// ScraperRun is the audit record of one batch job execution.
type ScraperRun struct {
	ID             int64      `json:"id"`
	JobName        string     `json:"job_name"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Success        bool       `json:"success"`
	ItemsProcessed int        `json:"items_processed"`
	ItemsAdded     int        `json:"items_added"`
	ItemsUpdated   int        `json:"items_updated"`
	Errors         []string   `json:"errors"`
}

// Sealed reports whether the run has been completed.
func (r *ScraperRun) Sealed() bool {
	return r.CompletedAt != nil
}
