// Package store provides SQLite persistence for goldmine: analysis history,
// favorites and the result cache.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when an analysis or finding does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrFavoritesLimit is returned when a user already has the maximum
	// number of favorites.
	ErrFavoritesLimit = errors.New("store: favorites limit reached")
)

const (
	DefaultHistoryLimit   = 20
	DefaultFavoritesLimit = 50
)

// memSeq gives each in-memory store its own database.
var memSeq atomic.Uint64

// Store handles SQLite persistence. NOT an interface - concrete type.
// All methods are safe for concurrent use via internal mutex.
type Store struct {
	db             *sql.DB
	mu             sync.RWMutex
	historyLimit   int
	favoritesLimit int
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for file-based DBs.
func Open(dbPath string) (*Store, error) {
	inMemory := dbPath == ":memory:"

	connStr := dbPath
	if inMemory {
		// Shared cache so all pooled connections see the same database,
		// named so separate stores stay separate.
		connStr = fmt.Sprintf("file:goldmine-%d?mode=memory&cache=shared", memSeq.Add(1))
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if inMemory {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if !inMemory {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{
		db:             db,
		historyLimit:   DefaultHistoryLimit,
		favoritesLimit: DefaultFavoritesLimit,
	}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

// SetLimits changes the per-user history and favorites caps.
// Non-positive values keep the current limit.
func (s *Store) SetLimits(history, favorites int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if history > 0 {
		s.historyLimit = history
	}
	if favorites > 0 {
		s.favoritesLimit = favorites
	}
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS analyses (
		id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		topic TEXT NOT NULL,
		scan_window TEXT NOT NULL,
		scanned_at INTEGER NOT NULL,
		findings INTEGER NOT NULL,
		degraded INTEGER DEFAULT 0,
		payload TEXT NOT NULL,
		PRIMARY KEY (user_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_user ON analyses(user_id, scanned_at DESC);

	CREATE TABLE IF NOT EXISTS favorites (
		user_id TEXT NOT NULL,
		analysis_id TEXT NOT NULL,
		rank INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		finding TEXT NOT NULL,
		PRIMARY KEY (user_id, analysis_id, rank)
	);

	CREATE TABLE IF NOT EXISTS result_cache (
		cache_key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		expires_at INTEGER NOT NULL
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// boolToInt converts a bool to an int for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
