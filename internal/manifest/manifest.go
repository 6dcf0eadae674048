// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package manifest persists download records in a SQLite database so repeat
// mirror runs can skip assets that are already on disk.
package manifest

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is one persisted download record.
type Entry struct {
	ID           int64
	DisplayName  string
	LocalPath    string
	DownloadedAt time.Time
}

// Store is a manifest database. It is safe for the single-threaded mirror
// run; concurrent writers would need their own serialization.
type Store struct {
	db *sql.DB
}

// Open opens or creates the manifest database at path, creating the schema
// and any missing parent directories.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating manifest directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening manifest database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating manifest schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	const stmt = `CREATE TABLE IF NOT EXISTS downloads (
		id INTEGER PRIMARY KEY,
		display_name TEXT NOT NULL,
		local_path TEXT NOT NULL,
		downloaded_at TEXT NOT NULL
	)`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("executing schema statement: %w", err)
	}
	return nil
}

// Record upserts a download record for id.
func (s *Store) Record(id int64, displayName, localPath string) error {
	const stmt = `INSERT INTO downloads (id, display_name, local_path, downloaded_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			local_path = excluded.local_path,
			downloaded_at = excluded.downloaded_at`
	_, err := s.db.Exec(stmt, id, displayName, localPath, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording download %d: %w", id, err)
	}
	return nil
}

// Entries returns all download records ordered by file ID.
func (s *Store) Entries() ([]Entry, error) {
	rows, err := s.db.Query(`SELECT id, display_name, local_path, downloaded_at FROM downloads ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying downloads: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.ID, &e.DisplayName, &e.LocalPath, &at); err != nil {
			return nil, fmt.Errorf("scanning download row: %w", err)
		}
		if t, parseErr := time.Parse(time.RFC3339, at); parseErr == nil {
			e.DownloadedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
