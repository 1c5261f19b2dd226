package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/wesm/zenhub-mirror/internal/models"
)

// DB is the SQLite log of repository change events.
type DB struct {
	*sql.DB
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Initialize creates the database schema if it doesn't exist
func (db *DB) Initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS change_events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		uuid TEXT NOT NULL UNIQUE,
		repo_id INTEGER NOT NULL,
		time INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_change_events_time ON change_events(time);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// SaveChangeEvent appends a change event. Saving the same UUID twice is a no-op.
func (db *DB) SaveChangeEvent(event models.RepositoryChangeEvent) error {
	query := `
	INSERT INTO change_events (uuid, repo_id, time)
	VALUES (?, ?, ?)
	ON CONFLICT(uuid) DO NOTHING
	`

	_, err := db.Exec(query, event.UUID, event.RepoID, event.Time)
	if err != nil {
		return fmt.Errorf("failed to save change event: %w", err)
	}

	return nil
}

// ChangeEventsSince returns events whose time is at or after since (unix
// milliseconds), in append order.
func (db *DB) ChangeEventsSince(since int64) ([]models.RepositoryChangeEvent, error) {
	query := `SELECT uuid, repo_id, time FROM change_events WHERE time >= ? ORDER BY seq`

	rows, err := db.Query(query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query change events: %w", err)
	}
	defer rows.Close()

	events := []models.RepositoryChangeEvent{}
	for rows.Next() {
		var e models.RepositoryChangeEvent
		if err := rows.Scan(&e.UUID, &e.RepoID, &e.Time); err != nil {
			return nil, fmt.Errorf("failed to scan change event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate change events: %w", err)
	}

	return events, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
