// Package db is the reconciliation store: it owns venue, show and scraper-run
// persistence, stable identity and soft-deletion. SQLite (modernc) is the
// default backend; postgres:// URLs open PostgreSQL through pgx.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // "pgx" driver
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // "sqlite" driver
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// timestampLayout is fixed-width so stored timestamps order lexically.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// DB wraps the store connection. Writes are serialized through mu so a
// single process never interleaves two upserts.
type DB struct {
	sql     *sql.DB
	dialect dialect
	now     func() time.Time
	logger  zerolog.Logger
	mu      sync.Mutex
}

// Option customises Open behaviour.
type Option func(*DB)

// WithClock overrides the time source used for timestamps and "today".
func WithClock(now func() time.Time) Option { return func(db *DB) { db.now = now } }

// WithLogger sets the store logger.
func WithLogger(l zerolog.Logger) Option { return func(db *DB) { db.logger = l } }

// Open connects to the store and applies the schema. A postgres:// or
// postgresql:// DSN selects PostgreSQL; anything else is a SQLite file path.
func Open(ctx context.Context, dsn string, opts ...Option) (*DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is empty")
	}

	db := &DB{now: time.Now, logger: zerolog.Nop()}
	for _, o := range opts {
		o(db)
	}

	var err error
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db.dialect = dialectPostgres
		db.sql, err = sql.Open("pgx", dsn)
	} else {
		db.dialect = dialectSQLite
		db.sql, err = openSQLite(dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.sql.PingContext(ctx); err != nil {
		_ = db.sql.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.migrate(ctx); err != nil {
		_ = db.sql.Close()
		return nil, err
	}

	return db, nil
}

func openSQLite(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection: the store is single-writer, and ":memory:" is per connection.
	conn.SetMaxOpenConns(1)
	return conn, nil
}

// Close closes the connection.
func (db *DB) Close() error {
	if db.sql != nil {
		return db.sql.Close()
	}
	return nil
}

func (db *DB) migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements(db.dialect) {
		if _, err := db.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (db *DB) rebind(query string) string {
	if db.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// withTx runs fn in a transaction under the write lock.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (db *DB) timestamp() string {
	return db.now().UTC().Format(timestampLayout)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func timePtr(n sql.NullString) *time.Time {
	if !n.Valid || n.String == "" {
		return nil
	}
	t := parseTime(n.String)
	return &t
}
