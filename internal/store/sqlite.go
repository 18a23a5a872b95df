package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore records generated listings in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the generated_listings table exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS generated_listings (
		listing_id   TEXT PRIMARY KEY,
		generated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating generated_listings table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// HasGenerated returns true if an application was already generated for the
// listing in a previous run.
func (s *SQLiteStore) HasGenerated(listingID string) (bool, error) {
	var exists int
	err := s.db.QueryRow("SELECT 1 FROM generated_listings WHERE listing_id = ?", listingID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking generated status for %s: %w", listingID, err)
	}
	return true, nil
}

// MarkGenerated records a listing. Re-marking an existing listing is a no-op.
func (s *SQLiteStore) MarkGenerated(listingID string) error {
	_, err := s.db.Exec("INSERT OR IGNORE INTO generated_listings (listing_id) VALUES (?)", listingID)
	if err != nil {
		return fmt.Errorf("marking listing %s as generated: %w", listingID, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
