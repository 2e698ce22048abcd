// Package storage defines the audit-trail store for completed analysis runs.
package storage

import (
	"context"
	"time"
)

// RunRecord is the audit row for one analysis run. ToolsUsed is the
// serialized invocation trace.
type RunRecord struct {
	ID         string        `db:"id"`
	Query      string        `db:"query"`
	Status     string        `db:"status"`
	Iterations int           `db:"iterations"`
	ToolsUsed  string        `db:"tools_used"`
	Duration   time.Duration `db:"duration_ns"`
	CreatedAt  time.Time     `db:"created_at"`
}

// Run statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunStore persists run audit records. Saving is best-effort from the
// handler's point of view; an audit failure never fails the request.
type RunStore interface {
	SaveRun(ctx context.Context, record *RunRecord) error
	RecentRuns(ctx context.Context, limit int) ([]*RunRecord, error)
	Close() error
}

// NopStore discards everything. Used when auditing is disabled.
type NopStore struct{}

func (NopStore) SaveRun(context.Context, *RunRecord) error { return nil }

func (NopStore) RecentRuns(context.Context, int) ([]*RunRecord, error) { return nil, nil }

func (NopStore) Close() error { return nil }
