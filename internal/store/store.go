package store

import (
	"database/sql"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// Collection names. These mirror the logical collections the app persists;
// every read and write goes through one of them.
const (
	CollectionUsers     = "users"
	CollectionDiary     = "diary"
	CollectionMovieLogs = "movie_logs" // legacy log shape, merged with diary on read
	CollectionWatchlist = "watchlist"
	CollectionFavorites = "favorites"
	CollectionGroups    = "groups"
	CollectionSettings  = "settings"
	CollectionSession   = "session"
	CollectionPending   = "pending_registrations"
)

// Store is the local record store: named JSON collections persisted in
// sqlite. Every mutation is a full read-modify-write of a collection;
// concurrent writers from separate processes are last-write-wins at
// collection granularity.
type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Configure SQLite for concurrent access
	pragmas := []string{
		"PRAGMA journal_mode = WAL",   // Enable WAL mode for better concurrent access
		"PRAGMA synchronous = NORMAL", // Balance between performance and safety
		"PRAGMA temp_store = memory",  // Use memory for temporary tables
		"PRAGMA busy_timeout = 5000",  // Wait up to 5 seconds for locks
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create collections table: %w", err)
	}
	return nil
}

// ReadCollection decodes the named collection into out. A collection that
// was never written leaves out untouched and returns nil. Malformed stored
// JSON is treated the same way: logged and skipped, never an error.
func (s *Store) ReadCollection(name string, out any) error {
	var data string
	err := s.db.QueryRow(`SELECT data FROM collections WHERE name = ?`, name).Scan(&data)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read collection %s: %w", name, err)
	}

	raw := []byte(data)
	if !json.Valid(raw) {
		log.Warn().Str("collection", name).Msg("discarding malformed collection data")
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		log.Warn().Str("collection", name).Err(err).Msg("discarding unreadable collection data")
		return nil
	}
	return nil
}

// WriteCollection serializes v and overwrites the named collection in full.
func (s *Store) WriteCollection(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to serialize collection %s: %w", name, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO collections (name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, name, string(data), time.Now())
	if err != nil {
		return fmt.Errorf("failed to write collection %s: %w", name, err)
	}
	return nil
}

// DeleteCollection removes the named collection entirely.
func (s *Store) DeleteCollection(name string) error {
	if _, err := s.db.Exec(`DELETE FROM collections WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", name, err)
	}
	return nil
}
