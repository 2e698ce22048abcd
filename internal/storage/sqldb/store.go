// Package sqldb is the SQLite implementation of the run audit store.
package sqldb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tjfontaine/geoscope/internal/storage"
)

// Store persists run records in SQLite.
type Store struct {
	db *sqlx.DB
}

var _ storage.RunStore = (*Store)(nil)

// New opens (or creates) the database at path and initializes the schema.
func New(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL keeps concurrent request handlers from serializing on writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
id TEXT PRIMARY KEY,
query TEXT NOT NULL,
status TEXT NOT NULL,
iterations INTEGER NOT NULL,
tools_used TEXT NOT NULL,
duration_ns INTEGER NOT NULL,
created_at TIMESTAMP NOT NULL
)`)
	return err
}

// SaveRun inserts one audit record, assigning an id and timestamp when the
// caller left them empty.
func (s *Store) SaveRun(ctx context.Context, record *storage.RunRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, query, status, iterations, tools_used, duration_ns, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.Query, record.Status, record.Iterations,
		record.ToolsUsed, int64(record.Duration), record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// RecentRuns returns the newest records, most recent first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*storage.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []*storage.RunRecord
	err := s.db.SelectContext(ctx, &records,
		`SELECT id, query, status, iterations, tools_used, duration_ns, created_at
FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return records, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
