package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
)

// RunRecord is one persisted run: its summary plus the slice of the event
// trace the run produced.
type RunRecord struct {
	// ID is the run identifier.
	ID string

	// CreatedAt is when the record was persisted.
	CreatedAt time.Time

	// Summary is the run's exported session summary.
	Summary domain.SessionSummary

	// Trace holds the run's events in publish order.
	Trace []domain.Event
}

// RunStore persists completed runs for later inspection. This is an
// optional best-effort history - the core's in-process trace remains the
// source of truth and a store failure never fails a run.
type RunStore interface {
	// SaveRun persists a completed run.
	SaveRun(ctx context.Context, rec RunRecord) error

	// GetRun retrieves a persisted run by ID.
	// Returns domain.ErrNotFound if no such run exists.
	GetRun(ctx context.Context, id string) (*RunRecord, error)

	// ListRuns returns up to limit persisted runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)

	// Close releases resources.
	Close() error
}
