// Package store persists extraction results between runs.
//
// The cache is a single SQLite table keyed by a content fingerprint. Workers
// read from it concurrently during extraction; misses are buffered in a
// BatchedStore and written back in one transaction after all workers finish.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sammcvicker/fruit-sub000/internal/extract"
)

// DefaultFileName is the cache file created in the user cache directory.
const DefaultFileName = "fruit-cache.db"

// Store is the SQLite-backed extraction cache.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db, path: dbPath}, nil
}

// Open opens and migrates the cache at dbPath, creating parent directories.
// An empty dbPath selects DefaultPath.
func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		dbPath = p
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	s, err := NewStore(dbPath)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// DefaultPath returns the cache location under the user cache directory.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locate cache directory: %w", err)
	}
	return filepath.Join(dir, "fruit", DefaultFileName), nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Migrate creates the cache table. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS extractions (
  fingerprint     TEXT PRIMARY KEY,
  path            TEXT NOT NULL,
  payload         TEXT,
  stored_at       TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_extractions_path ON extractions(path);
`

// Lookup returns the cached metadata for fingerprint. found is false on a
// miss. A hit may carry nil metadata: the file was examined and yielded
// nothing.
func (s *Store) Lookup(fingerprint string) (md *extract.Metadata, found bool, err error) {
	var payload sql.NullString
	err = s.db.QueryRow(
		"SELECT payload FROM extractions WHERE fingerprint = ?", fingerprint,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup %s: %w", fingerprint, err)
	}
	if !payload.Valid {
		return nil, true, nil
	}
	md = &extract.Metadata{}
	if err := json.Unmarshal([]byte(payload.String), md); err != nil {
		return nil, false, fmt.Errorf("decode cached payload: %w", err)
	}
	return md, true, nil
}

// Put stores one result directly, outside any batch.
func (s *Store) Put(e Entry) error {
	payload, err := encodePayload(e.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(upsertSQL, e.Fingerprint, e.Path, payload)
	if err != nil {
		return fmt.Errorf("put %s: %w", e.Path, err)
	}
	return nil
}

// Forget removes every cached result recorded for path.
func (s *Store) Forget(path string) error {
	if _, err := s.db.Exec("DELETE FROM extractions WHERE path = ?", path); err != nil {
		return fmt.Errorf("forget %s: %w", path, err)
	}
	return nil
}

// Count returns the number of cached results.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM extractions").Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

const upsertSQL = `INSERT INTO extractions (fingerprint, path, payload) VALUES (?, ?, ?)
ON CONFLICT(fingerprint) DO UPDATE SET payload = excluded.payload, stored_at = CURRENT_TIMESTAMP`

func encodePayload(md *extract.Metadata) (sql.NullString, error) {
	if md == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(md)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode payload: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
