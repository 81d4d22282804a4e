package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonathan/nyc-theater/internal/types"
)

// RunStats is the outcome recorded when a run is sealed.
type RunStats struct {
	Success        bool
	ItemsProcessed int
	ItemsAdded     int
	ItemsUpdated   int
	Errors         []string
}

// CreateRun opens an audit record for a job and returns its id.
func (db *DB) CreateRun(ctx context.Context, jobName string) (int64, error) {
	var id int64
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, db.rebind(`
			INSERT INTO scraper_runs (job_name, started_at, success, errors)
			VALUES (?, ?, 0, '[]')
			RETURNING id`),
			jobName, db.timestamp(),
		).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// CompleteRun seals a run. A run can be sealed once; later calls return ErrRunSealed.
func (db *DB) CompleteRun(ctx context.Context, runID int64, stats RunStats) error {
	errs := stats.Errors
	if errs == nil {
		errs = []string{}
	}
	errorsJSON, err := json.Marshal(errs)
	if err != nil {
		return fmt.Errorf("failed to marshal run errors: %w", err)
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, db.rebind(`
			UPDATE scraper_runs SET completed_at = ?, success = ?, items_processed = ?,
				items_added = ?, items_updated = ?, errors = ?
			WHERE id = ? AND completed_at IS NULL`),
			db.timestamp(), boolToInt(stats.Success), stats.ItemsProcessed,
			stats.ItemsAdded, stats.ItemsUpdated, string(errorsJSON), runID)
		if err != nil {
			return fmt.Errorf("failed to complete run: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}

		var one int
		err = tx.QueryRowContext(ctx, db.rebind(`SELECT 1 FROM scraper_runs WHERE id = ?`), runID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to complete run %d: %w", runID, ErrRunNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to check run: %w", err)
		}
		return fmt.Errorf("failed to complete run %d: %w", runID, ErrRunSealed)
	})
}

const runColumns = `id, job_name, started_at, completed_at, success, items_processed, items_added, items_updated, errors`

func scanRun(row rowScanner) (*types.ScraperRun, error) {
	var (
		r          types.ScraperRun
		startedAt  string
		completed  sql.NullString
		success    int
		errorsJSON string
	)
	if err := row.Scan(&r.ID, &r.JobName, &startedAt, &completed, &success,
		&r.ItemsProcessed, &r.ItemsAdded, &r.ItemsUpdated, &errorsJSON); err != nil {
		return nil, err
	}
	r.StartedAt = parseTime(startedAt)
	r.CompletedAt = timePtr(completed)
	r.Success = success == 1
	if err := json.Unmarshal([]byte(errorsJSON), &r.Errors); err != nil {
		r.Errors = []string{errorsJSON}
	}
	return &r, nil
}

// GetRun returns a run by id, or nil if it does not exist.
func (db *DB) GetRun(ctx context.Context, runID int64) (*types.ScraperRun, error) {
	row := db.sql.QueryRowContext(ctx, db.rebind(`SELECT `+runColumns+` FROM scraper_runs WHERE id = ?`), runID)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run %d: %w", runID, err)
	}
	return r, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]types.ScraperRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.sql.QueryContext(ctx,
		db.rebind(`SELECT `+runColumns+` FROM scraper_runs ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []types.ScraperRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// Stats summarizes table sizes for inspection.
type Stats struct {
	Venues       int
	ActiveVenues int
	Shows        int
	ActiveShows  int
	Runs         int
}

// Stats counts rows in each table.
func (db *DB) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	err := db.sql.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM venues),
			(SELECT COUNT(*) FROM venues WHERE is_active = 1),
			(SELECT COUNT(*) FROM shows),
			(SELECT COUNT(*) FROM shows WHERE is_active = 1),
			(SELECT COUNT(*) FROM scraper_runs)`,
	).Scan(&s.Venues, &s.ActiveVenues, &s.Shows, &s.ActiveShows, &s.Runs)
	if err != nil {
		return nil, fmt.Errorf("failed to collect stats: %w", err)
	}
	return &s, nil
}
