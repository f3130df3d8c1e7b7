package driving

import "github.com/custodia-labs/quill-cli/internal/core/domain"

// ExportService provides read-only views over the event trace and the
// latest session summary.
type ExportService interface {
	// Summary returns the latest session summary.
	// Returns domain.ErrNoCompletedRun until a run has completed.
	Summary() (*domain.SessionSummary, error)

	// Trace returns a snapshot of all published events in order.
	Trace() []domain.Event

	// TraceNDJSON serialises the trace one JSON event per line.
	TraceNDJSON() ([]byte, error)

	// Bundle returns the latest summary together with the full trace.
	// Returns domain.ErrNoCompletedRun under the same condition as Summary.
	Bundle() (*domain.ExportBundle, error)
}
