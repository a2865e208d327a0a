// Package cache persists per-URL fetch outcomes in an embedded SQLite
// database so that re-runs skip already-processed URLs.
//
// Entries are keyed by the literal original URL string. There is no
// normalization: trailing slashes, query-parameter order, and scheme
// differences all produce distinct keys. That is a documented limitation
// carried over on purpose, since normalizing would change the
// de-duplication semantics the study's datasets were built on.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one cached fetch outcome. Entries are written once, on first
// resolution, and treated as authoritative by later runs.
type Entry struct {
	OriginalURL   string    `json:"original_url"`
	ResolvedURL   string    `json:"resolved_url"`
	StatusCode    int       `json:"status_code"`
	RedirectCount int       `json:"redirect_count"`
	Success       bool      `json:"success"`
	Outcome       string    `json:"outcome"`
	Error         string    `json:"error,omitempty"`
	ResponseTime  float64   `json:"response_time_seconds"`
	CachedAt      time.Time `json:"cached_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS url_cache (
	original_url   TEXT PRIMARY KEY,
	resolved_url   TEXT,
	status_code    INTEGER,
	redirect_count INTEGER,
	success        BOOLEAN,
	outcome        TEXT,
	error          TEXT,
	response_time  REAL,
	cached_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

// Store is a durable URL-keyed outcome cache shared by all workers in a run.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}

	// A single connection serializes writers and avoids SQLITE_BUSY under
	// concurrent worker upserts.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Get returns the cached entry for url, reporting whether one exists.
func (s *Store) Get(ctx context.Context, url string) (*Entry, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT original_url, resolved_url, status_code, redirect_count,
		       success, outcome, error, response_time, cached_at
		FROM url_cache WHERE original_url = ?`, url)

	var e Entry
	var cachedAt string
	err := row.Scan(&e.OriginalURL, &e.ResolvedURL, &e.StatusCode, &e.RedirectCount,
		&e.Success, &e.Outcome, &e.Error, &e.ResponseTime, &cachedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache read for %s: %w", url, err)
	}

	if t, err := time.Parse(time.RFC3339, cachedAt); err == nil {
		e.CachedAt = t
	} else if t, err := time.Parse("2006-01-02 15:04:05", cachedAt); err == nil {
		e.CachedAt = t
	}

	return &e, true, nil
}

// Put durably persists an entry, replacing any prior row for the same URL.
func (s *Store) Put(ctx context.Context, e *Entry) error {
	cachedAt := e.CachedAt
	if cachedAt.IsZero() {
		cachedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO url_cache
		(original_url, resolved_url, status_code, redirect_count,
		 success, outcome, error, response_time, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.OriginalURL, e.ResolvedURL, e.StatusCode, e.RedirectCount,
		e.Success, e.Outcome, e.Error, e.ResponseTime,
		cachedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("cache write for %s: %w", e.OriginalURL, err)
	}
	return nil
}

// Count returns the number of cached entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM url_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("cache count: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
