package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/jonathan/nyc-theater/internal/types"
)

// FuzzyNameThreshold is the Jaro-Winkler similarity at which two normalized
// venue names are treated as the same venue.
const FuzzyNameThreshold = 0.94

// UpsertResult reports the id a record was stored under and whether it was new.
type UpsertResult struct {
	ID      string
	Created bool
}

const venueColumns = `id, name, address, neighborhood, category, website, seating_capacity,
	latitude, longitude, source, is_active, created_at, updated_at, last_scraped_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVenue(row rowScanner) (*types.Venue, error) {
	var (
		v                    types.Venue
		category             string
		website, lastScraped sql.NullString
		capacity             sql.NullInt64
		lat, lng             sql.NullFloat64
		active               int
		createdAt, updatedAt string
	)
	err := row.Scan(&v.ID, &v.Name, &v.Address, &v.Neighborhood, &category, &website, &capacity,
		&lat, &lng, &v.Source, &active, &createdAt, &updatedAt, &lastScraped)
	if err != nil {
		return nil, err
	}
	v.Category = types.Category(category)
	v.Website = website.String
	v.SeatingCapacity = intPtr(capacity)
	v.Latitude = floatPtr(lat)
	v.Longitude = floatPtr(lng)
	v.IsActive = active == 1
	v.CreatedAt = parseTime(createdAt)
	v.UpdatedAt = parseTime(updatedAt)
	v.LastScrapedAt = timePtr(lastScraped)
	return &v, nil
}

// UpsertVenue stores a discovered venue. An existing venue is matched by
// derived id, then by normalized name, then by fuzzy name with a compatible
// address. Matches have their known fields refreshed; empty candidate fields
// never blank stored values. New venues are inserted active. Nothing is deleted.
func (db *DB) UpsertVenue(ctx context.Context, candidate types.Venue, source string) (*UpsertResult, error) {
	c := candidate
	c.Name = strings.TrimSpace(c.Name)
	c.Address = strings.TrimSpace(c.Address)
	if c.Category == "" {
		c.Category = types.CategoryIndependent
	}
	if err := c.Validate(); err != nil {
		return nil, &ValidationError{Message: "venue rejected", Cause: err}
	}
	if source == "" {
		source = c.Source
	}

	var result *UpsertResult
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := db.matchVenue(ctx, tx, c)
		if err != nil {
			return err
		}
		now := db.timestamp()

		if existing == nil {
			id := DeriveVenueID(c.Name, c.Address)
			_, err := tx.ExecContext(ctx, db.rebind(`
				INSERT INTO venues (id, name, name_normalized, address, neighborhood, category, website,
					seating_capacity, latitude, longitude, source, is_active, created_at, updated_at, last_scraped_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)`),
				id, c.Name, NormalizeName(c.Name), c.Address, c.Neighborhood, string(c.Category),
				nullString(c.Website), nullInt(c.SeatingCapacity), nullFloat(c.Latitude), nullFloat(c.Longitude),
				source, now, now, now)
			if err != nil {
				return fmt.Errorf("failed to insert venue %q: %w", c.Name, err)
			}
			result = &UpsertResult{ID: id, Created: true}
			return nil
		}

		merged := mergeVenue(*existing, c)
		updatedAt := now
		if prev := formatTime(existing.UpdatedAt); prev > updatedAt {
			updatedAt = prev
		}
		_, err = tx.ExecContext(ctx, db.rebind(`
			UPDATE venues SET name = ?, name_normalized = ?, address = ?, neighborhood = ?, category = ?,
				website = ?, seating_capacity = ?, latitude = ?, longitude = ?, source = ?,
				updated_at = ?, last_scraped_at = ?
			WHERE id = ?`),
			merged.Name, NormalizeName(merged.Name), merged.Address, merged.Neighborhood, string(merged.Category),
			nullString(merged.Website), nullInt(merged.SeatingCapacity), nullFloat(merged.Latitude),
			nullFloat(merged.Longitude), source, updatedAt, now, existing.ID)
		if err != nil {
			return fmt.Errorf("failed to update venue %q: %w", c.Name, err)
		}
		result = &UpsertResult{ID: existing.ID, Created: false}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func mergeVenue(existing, c types.Venue) types.Venue {
	m := existing
	if c.Name != "" {
		m.Name = c.Name
	}
	if c.Address != "" {
		m.Address = c.Address
	}
	if c.Neighborhood != "" {
		m.Neighborhood = c.Neighborhood
	}
	if c.Category != "" {
		m.Category = c.Category
	}
	if c.Website != "" {
		m.Website = c.Website
	}
	if c.SeatingCapacity != nil {
		m.SeatingCapacity = c.SeatingCapacity
	}
	if c.Latitude != nil && c.Longitude != nil {
		m.Latitude, m.Longitude = c.Latitude, c.Longitude
	}
	return m
}

func (db *DB) matchVenue(ctx context.Context, tx *sql.Tx, c types.Venue) (*types.Venue, error) {
	byID := tx.QueryRowContext(ctx, db.rebind(`SELECT `+venueColumns+` FROM venues WHERE id = ?`),
		DeriveVenueID(c.Name, c.Address))
	v, err := scanVenue(byID)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up venue: %w", err)
	}

	norm := NormalizeName(c.Name)
	byName := tx.QueryRowContext(ctx, db.rebind(`SELECT `+venueColumns+` FROM venues
		WHERE name_normalized = ? ORDER BY created_at, id LIMIT 1`), norm)
	v, err = scanVenue(byName)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up venue by name: %w", err)
	}

	return db.fuzzyMatchVenue(ctx, tx, norm, c.Address)
}

func (db *DB) fuzzyMatchVenue(ctx context.Context, tx *sql.Tx, norm, address string) (*types.Venue, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, name_normalized, address FROM venues`)
	if err != nil {
		return nil, fmt.Errorf("failed to scan venues for fuzzy match: %w", err)
	}
	defer func() { _ = rows.Close() }()

	bestID, bestScore := "", 0.0
	for rows.Next() {
		var id, otherNorm, otherAddr string
		if err := rows.Scan(&id, &otherNorm, &otherAddr); err != nil {
			return nil, fmt.Errorf("failed to read venue row: %w", err)
		}
		if !addressesCompatible(address, otherAddr) {
			continue
		}
		score := matchr.JaroWinkler(norm, otherNorm, false)
		if score >= FuzzyNameThreshold && score > bestScore {
			bestID, bestScore = id, score
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate venues: %w", err)
	}
	if bestID == "" {
		return nil, nil
	}

	row := tx.QueryRowContext(ctx, db.rebind(`SELECT `+venueColumns+` FROM venues WHERE id = ?`), bestID)
	v, err := scanVenue(row)
	if err != nil {
		return nil, fmt.Errorf("failed to load fuzzy venue match: %w", err)
	}
	return v, nil
}

// addressesCompatible treats an unknown address as compatible with anything.
func addressesCompatible(a, b string) bool {
	na, nb := NormalizeAddress(a), NormalizeAddress(b)
	return na == "" || nb == "" || na == nb
}

// GetVenue returns a venue by id, or nil if it does not exist.
func (db *DB) GetVenue(ctx context.Context, id string) (*types.Venue, error) {
	row := db.sql.QueryRowContext(ctx, db.rebind(`SELECT `+venueColumns+` FROM venues WHERE id = ?`), id)
	v, err := scanVenue(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get venue %s: %w", id, err)
	}
	return v, nil
}

// VenueFilter narrows ListVenues.
type VenueFilter struct {
	ActiveOnly bool
}

// ListVenues returns venues ordered by name then id.
func (db *DB) ListVenues(ctx context.Context, filter VenueFilter) ([]types.Venue, error) {
	query := `SELECT ` + venueColumns + ` FROM venues`
	if filter.ActiveOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name, id`

	rows, err := db.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list venues: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var venues []types.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan venue: %w", err)
		}
		venues = append(venues, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate venues: %w", err)
	}
	return venues, nil
}

// MarkVenueScraped records that the venue's listings were just fetched.
func (db *DB) MarkVenueScraped(ctx context.Context, venueID string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, db.rebind(`UPDATE venues SET last_scraped_at = ? WHERE id = ?`),
			db.timestamp(), venueID)
		if err != nil {
			return fmt.Errorf("failed to mark venue scraped: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("failed to mark venue %s scraped: %w", venueID, ErrVenueNotFound)
		}
		return nil
	})
}

// SetVenueActive soft-deletes or restores a venue.
func (db *DB) SetVenueActive(ctx context.Context, venueID string, active bool) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, db.rebind(`UPDATE venues SET is_active = ?, updated_at = ? WHERE id = ?`),
			boolToInt(active), db.timestamp(), venueID)
		if err != nil {
			return fmt.Errorf("failed to update venue: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("failed to update venue %s: %w", venueID, ErrVenueNotFound)
		}
		return nil
	})
}
