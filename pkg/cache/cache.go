// Package cache stores compiled programs keyed by source hash.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrMiss indicates no cached entry exists for the requested key.
var ErrMiss = errors.New("cache miss")

// Entry is a cached compilation result.
type Entry struct {
	Key       string
	Data      []byte // serialized bytecode file
	BuildID   string
	Version   uint16
	CreatedAt time.Time
}

// Store handles SQLite storage for compiled programs.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Open opens (creating if needed) the cache database at dbPath.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		key TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		build_id TEXT NOT NULL,
		version INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Key returns the cache key for a source text.
func Key(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])
}

// Put stores a compiled program under key, replacing any previous entry.
func (s *Store) Put(key string, data []byte, buildID string, version uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO programs (key, data, build_id, version, created_at) VALUES (?, ?, ?, ?, ?)",
		key, data, buildID, version, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving program: %w", err)
	}
	return nil
}

// Get retrieves a cached entry. Returns ErrMiss if absent or if the entry
// was written by a different format version.
func (s *Store) Get(key string, version uint16) (*Entry, error) {
	var (
		e       Entry
		created int64
	)
	err := s.db.QueryRow(
		"SELECT data, build_id, version, created_at FROM programs WHERE key = ?", key,
	).Scan(&e.Data, &e.BuildID, &e.Version, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("querying program: %w", err)
	}
	if e.Version != version {
		return nil, ErrMiss
	}
	e.Key = key
	e.CreatedAt = time.Unix(created, 0)
	return &e, nil
}

// Delete removes a cached entry.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM programs WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting program: %w", err)
	}
	return nil
}

// Prune removes entries older than maxAge and returns how many were removed.
func (s *Store) Prune(maxAge time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge).Unix()
	res, err := s.db.Exec("DELETE FROM programs WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning programs: %w", err)
	}
	return res.RowsAffected()
}
