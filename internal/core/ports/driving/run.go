package driving

import (
	"context"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
)

// RunService accepts and controls query runs. Submission is
// fire-and-forget: the run executes in the background and progress
// streams through the event bus.
type RunService interface {
	// Submit validates the request, assigns a run ID and starts the run
	// in the background. The returned ID tags every event the run
	// publishes.
	Submit(ctx context.Context, req domain.RunRequest) (string, error)

	// Cancel requests cancellation of an in-flight run. The run
	// publishes a terminal cancelled phase event before it stops.
	// Returns domain.ErrRunNotFound if the run is unknown or finished.
	Cancel(runID string) error
}
