// Package history keeps a SQLite log of recipe fetches.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// FileName is the default history database name inside ~/.recipys.
const FileName = "history.db"

// Outcome of a recorded fetch.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var ErrInvalidStatus = errors.New("status must be ok or error")

// Store manages fetch history using SQLite.
type Store struct {
	db *sql.DB
}

// Entry is one recorded fetch.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	Source    string    `json:"source"`
	URL       string    `json:"url"`
	Title     string    `json:"title,omitempty"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// NewStore opens (or creates) the history database at dsn.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the history table if it doesn't exist.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		url TEXT NOT NULL,
		title TEXT,
		status TEXT NOT NULL,
		error TEXT,
		fetched_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_fetched_at ON history (fetched_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores entry. A zero ID or FetchedAt is filled in, and the stored
// entry is returned.
func (s *Store) Record(entry Entry) (*Entry, error) {
	if entry.Status != StatusOK && entry.Status != StatusError {
		return nil, ErrInvalidStatus
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.FetchedAt.IsZero() {
		entry.FetchedAt = time.Now()
	}
	entry.FetchedAt = entry.FetchedAt.UTC().Truncate(0)

	query := `
		INSERT INTO history (id, source, url, title, status, error, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		entry.ID.String(),
		entry.Source,
		entry.URL,
		nullString(entry.Title),
		entry.Status,
		nullString(entry.Error),
		entry.FetchedAt.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert history entry: %w", err)
	}

	return &entry, nil
}

// List returns the most recent entries first. A limit of zero or less
// returns every entry.
func (s *Store) List(limit int) ([]Entry, error) {
	query := `
		SELECT id, source, url, title, status, error, fetched_at
		FROM history
		ORDER BY fetched_at DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var idStr, source, url, status, fetchedAtStr string
		var title, errText sql.NullString

		if err := rows.Scan(&idStr, &source, &url, &title, &status, &errText, &fetchedAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}

		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse history id: %w", err)
		}

		fetchedAt, err := time.Parse(timeLayout, fetchedAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse fetched_at: %w", err)
		}

		entries = append(entries, Entry{
			ID:        id,
			Source:    source,
			URL:       url,
			Title:     title.String,
			Status:    status,
			Error:     errText.String,
			FetchedAt: fetchedAt,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}

	return entries, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
