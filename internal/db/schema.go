package db

import (
	"fmt"
	"strings"
)

// schemaTemplate uses %[1]s for the run id column and %[2]s for floats.
// Dates are ISO text, timestamps fixed-width UTC text, booleans 0/1.
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS venues (
    id               TEXT PRIMARY KEY,
    name             TEXT NOT NULL,
    name_normalized  TEXT NOT NULL,
    address          TEXT NOT NULL DEFAULT '',
    neighborhood     TEXT NOT NULL DEFAULT '',
    category         TEXT NOT NULL,
    website          TEXT,
    seating_capacity INTEGER,
    latitude         %[2]s,
    longitude        %[2]s,
    source           TEXT NOT NULL,
    is_active        INTEGER NOT NULL DEFAULT 1,
    created_at       TEXT NOT NULL,
    updated_at       TEXT NOT NULL,
    last_scraped_at  TEXT
);
CREATE INDEX IF NOT EXISTS idx_venues_active ON venues(is_active);
CREATE INDEX IF NOT EXISTS idx_venues_name ON venues(name_normalized);

CREATE TABLE IF NOT EXISTS shows (
    id              TEXT PRIMARY KEY,
    venue_id        TEXT NOT NULL REFERENCES venues(id),
    title           TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    start_date      TEXT NOT NULL,
    end_date        TEXT NOT NULL,
    genre           TEXT NOT NULL DEFAULT 'other',
    runtime_minutes INTEGER,
    price_min       %[2]s,
    price_max       %[2]s,
    website         TEXT,
    image_url       TEXT,
    status          TEXT NOT NULL DEFAULT 'upcoming',
    source          TEXT NOT NULL,
    scraped_url     TEXT,
    is_active       INTEGER NOT NULL DEFAULT 1,
    created_at      TEXT NOT NULL,
    updated_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_shows_active ON shows(is_active);
CREATE INDEX IF NOT EXISTS idx_shows_venue ON shows(venue_id);
CREATE INDEX IF NOT EXISTS idx_shows_dates ON shows(start_date, end_date);

CREATE TABLE IF NOT EXISTS scraper_runs (
    id              %[1]s,
    job_name        TEXT NOT NULL,
    started_at      TEXT NOT NULL,
    completed_at    TEXT,
    success         INTEGER NOT NULL DEFAULT 0,
    items_processed INTEGER NOT NULL DEFAULT 0,
    items_added     INTEGER NOT NULL DEFAULT 0,
    items_updated   INTEGER NOT NULL DEFAULT 0,
    errors          TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_scraper_runs_job ON scraper_runs(job_name, started_at);
`

func schemaStatements(d dialect) []string {
	serial, float := "INTEGER PRIMARY KEY AUTOINCREMENT", "REAL"
	if d == dialectPostgres {
		serial, float = "BIGSERIAL PRIMARY KEY", "DOUBLE PRECISION"
	}

	var out []string
	for _, stmt := range strings.Split(fmt.Sprintf(schemaTemplate, serial, float), ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}
