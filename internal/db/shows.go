package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/nyc-theater/internal/types"
)

const showColumns = `id, venue_id, title, description, start_date, end_date, genre, runtime_minutes,
	price_min, price_max, website, image_url, status, source, scraped_url, is_active, created_at, updated_at`

func scanShow(row rowScanner) (*types.Show, error) {
	var (
		s                             types.Show
		genre, status                 string
		runtime                       sql.NullInt64
		priceMin, priceMax            sql.NullFloat64
		website, imageURL, scrapedURL sql.NullString
		active                        int
		createdAt, updatedAt          string
	)
	err := row.Scan(&s.ID, &s.VenueID, &s.Title, &s.Description, &s.StartDate, &s.EndDate, &genre, &runtime,
		&priceMin, &priceMax, &website, &imageURL, &status, &s.Source, &scrapedURL, &active, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	s.Genre = types.Genre(genre)
	s.Status = types.ShowStatus(status)
	s.RuntimeMinutes = intPtr(runtime)
	if priceMin.Valid || priceMax.Valid {
		s.PriceRange = &types.PriceRange{Min: floatPtr(priceMin), Max: floatPtr(priceMax)}
	}
	s.Website = website.String
	s.ImageURL = imageURL.String
	s.ScrapedURL = scrapedURL.String
	s.IsActive = active == 1
	s.CreatedAt = parseTime(createdAt)
	s.UpdatedAt = parseTime(updatedAt)
	return &s, nil
}

// UpsertShow stores a scraped show under its derived id. A missing end date
// takes the start date. The venue must exist (active or not). New shows are
// inserted active; a re-seen show is reactivated only if it has not ended.
func (db *DB) UpsertShow(ctx context.Context, candidate types.Show, source, scrapedURL string) (*UpsertResult, error) {
	c := candidate
	c.Title = strings.TrimSpace(c.Title)
	c.Normalize()
	if c.VenueID == "" {
		return nil, &ValidationError{Message: fmt.Sprintf("show %q has no venue", c.Title)}
	}
	if err := c.Validate(); err != nil {
		return nil, &ValidationError{Message: "show rejected", Cause: err}
	}
	if source == "" {
		source = c.Source
	}
	if scrapedURL == "" {
		scrapedURL = c.ScrapedURL
	}

	id := DeriveShowID(c.VenueID, c.Title, c.StartDate)
	today := types.DateOf(db.now())

	var result *UpsertResult
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, db.rebind(`SELECT 1 FROM venues WHERE id = ?`), c.VenueID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("show %q references venue %s: %w", c.Title, c.VenueID, ErrVenueNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to check venue: %w", err)
		}

		existing, err := scanShow(tx.QueryRowContext(ctx, db.rebind(`SELECT `+showColumns+` FROM shows WHERE id = ?`), id))
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to look up show: %w", err)
		}
		now := db.timestamp()

		if existing == nil {
			_, err := tx.ExecContext(ctx, db.rebind(`
				INSERT INTO shows (id, venue_id, title, description, start_date, end_date, genre, runtime_minutes,
					price_min, price_max, website, image_url, status, source, scraped_url, is_active, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`),
				id, c.VenueID, c.Title, c.Description, c.StartDate, c.EndDate, string(c.Genre), nullInt(c.RuntimeMinutes),
				priceMin(c.PriceRange), priceMax(c.PriceRange), nullString(c.Website), nullString(c.ImageURL),
				string(c.Status), source, nullString(scrapedURL), now, now)
			if err != nil {
				return fmt.Errorf("failed to insert show %q: %w", c.Title, err)
			}
			result = &UpsertResult{ID: id, Created: true}
			return nil
		}

		m := mergeShow(*existing, c)
		active := existing.IsActive || m.EndDate >= today
		if !active && m.Status != types.StatusCanceled {
			m.Status = types.StatusClosed
		}
		updatedAt := now
		if prev := formatTime(existing.UpdatedAt); prev > updatedAt {
			updatedAt = prev
		}
		_, err = tx.ExecContext(ctx, db.rebind(`
			UPDATE shows SET title = ?, description = ?, end_date = ?, genre = ?, runtime_minutes = ?,
				price_min = ?, price_max = ?, website = ?, image_url = ?, status = ?, source = ?,
				scraped_url = ?, is_active = ?, updated_at = ?
			WHERE id = ?`),
			m.Title, m.Description, m.EndDate, string(m.Genre), nullInt(m.RuntimeMinutes),
			priceMin(m.PriceRange), priceMax(m.PriceRange), nullString(m.Website), nullString(m.ImageURL),
			string(m.Status), source, nullString(scrapedURL), boolToInt(active), updatedAt, id)
		if err != nil {
			return fmt.Errorf("failed to update show %q: %w", c.Title, err)
		}
		result = &UpsertResult{ID: id, Created: false}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// mergeShow refreshes a stored show from a candidate without blanking known
// fields, and never lets a genre fall back to other once classified.
func mergeShow(existing, c types.Show) types.Show {
	m := existing
	m.Title = c.Title
	if c.Description != "" {
		m.Description = c.Description
	}
	if c.EndDate != "" {
		m.EndDate = c.EndDate
	}
	if c.Genre != "" && c.Genre != types.GenreOther {
		m.Genre = c.Genre
	}
	if c.RuntimeMinutes != nil {
		m.RuntimeMinutes = c.RuntimeMinutes
	}
	if c.PriceRange != nil {
		m.PriceRange = c.PriceRange
	}
	if c.Website != "" {
		m.Website = c.Website
	}
	if c.ImageURL != "" {
		m.ImageURL = c.ImageURL
	}
	if c.Status != "" {
		m.Status = c.Status
	}
	return m
}

func priceMin(p *types.PriceRange) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return nullFloat(p.Min)
}

func priceMax(p *types.PriceRange) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return nullFloat(p.Max)
}

// SweepExpiredShows deactivates every active show whose end date is before
// asOf's NYC calendar date and marks it closed (canceled shows keep their
// status). Returns the number of shows affected.
func (db *DB) SweepExpiredShows(ctx context.Context, asOf time.Time) (int64, error) {
	asOfDate := types.DateOf(asOf)
	var affected int64
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, db.rebind(`
			UPDATE shows SET is_active = 0,
				status = CASE WHEN status = 'canceled' THEN status ELSE 'closed' END,
				updated_at = ?
			WHERE is_active = 1 AND end_date < ?`),
			db.timestamp(), asOfDate)
		if err != nil {
			return fmt.Errorf("failed to sweep expired shows: %w", err)
		}
		affected, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to count swept shows: %w", err)
		}
		return nil
	})
	return affected, err
}

// GetShow returns a show by id, or nil if it does not exist.
func (db *DB) GetShow(ctx context.Context, id string) (*types.Show, error) {
	row := db.sql.QueryRowContext(ctx, db.rebind(`SELECT `+showColumns+` FROM shows WHERE id = ?`), id)
	s, err := scanShow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get show %s: %w", id, err)
	}
	return s, nil
}

// ShowFilter narrows ListShows.
type ShowFilter struct {
	ActiveOnly bool
	VenueID    string
}

// ListShows returns shows ordered by start date, title and id.
func (db *DB) ListShows(ctx context.Context, filter ShowFilter) ([]types.Show, error) {
	var (
		where []string
		args  []any
	)
	if filter.ActiveOnly {
		where = append(where, "is_active = 1")
	}
	if filter.VenueID != "" {
		where = append(where, "venue_id = ?")
		args = append(args, filter.VenueID)
	}

	query := `SELECT ` + showColumns + ` FROM shows`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY start_date, title, id`

	rows, err := db.sql.QueryContext(ctx, db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list shows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var shows []types.Show
	for rows.Next() {
		s, err := scanShow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan show: %w", err)
		}
		shows = append(shows, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shows: %w", err)
	}
	return shows, nil
}
