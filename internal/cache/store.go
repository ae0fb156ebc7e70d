package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists cache entries in SQLite so a restart does not re-analyze
// an unchanged tree.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore connects to the cache database at dbPath, creating it and its
// schema when missing.
func OpenStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	const schema = `CREATE TABLE IF NOT EXISTS cache_entries (
        path TEXT PRIMARY KEY,
        fingerprint TEXT NOT NULL,
        outcome_json TEXT NOT NULL,
        completeness REAL NOT NULL,
        fallbacks TEXT,
        stored_at TEXT NOT NULL
    )`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create cache schema: %w", err)
	}
	return nil
}

// Upsert writes one entry, replacing any previous row for the same path.
func (s *Store) Upsert(ctx context.Context, entry Entry) error {
	outcomeJSON, err := json.Marshal(entry.Outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (path, fingerprint, outcome_json, completeness, fallbacks, stored_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(path) DO UPDATE SET
            fingerprint = excluded.fingerprint,
            outcome_json = excluded.outcome_json,
            completeness = excluded.completeness,
            fallbacks = excluded.fallbacks,
            stored_at = excluded.stored_at`,
		entry.Path,
		entry.Fingerprint,
		string(outcomeJSON),
		entry.Outcome.Completeness,
		nullableString(strings.Join(entry.Outcome.FallbacksUsed, ",")),
		entry.StoredAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

// Get fetches one entry by path. A missing row returns (nil, nil).
func (s *Store) Get(ctx context.Context, path string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT path, fingerprint, outcome_json, stored_at FROM cache_entries WHERE path = ?`, path)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	return entry, nil
}

// LoadAll returns every persisted entry, newest first.
func (s *Store) LoadAll(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, fingerprint, outcome_json, stored_at FROM cache_entries ORDER BY stored_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("load cache entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cache entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cache entries: %w", err)
	}
	return entries, nil
}

// Delete removes one path's entry.
func (s *Store) Delete(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE path = ?`, path); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// DeleteAll empties the store.
func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("clear cache entries: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		entry       Entry
		outcomeJSON string
		storedAt    string
	)
	if err := row.Scan(&entry.Path, &entry.Fingerprint, &outcomeJSON, &storedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(outcomeJSON), &entry.Outcome); err != nil {
		return nil, fmt.Errorf("decode outcome: %w", err)
	}
	if ts, err := time.Parse(time.RFC3339Nano, storedAt); err == nil {
		entry.StoredAt = ts
	}
	return &entry, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
