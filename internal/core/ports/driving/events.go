package driving

import (
	"context"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
)

// EventStream lets observers follow run progress live. Adapters map the
// returned channel onto whatever push mechanism they use.
type EventStream interface {
	// Subscribe registers a new observer and returns its private event
	// channel. The observer receives every event published after
	// subscription, in publish order, until ctx is cancelled; events
	// published before subscription are available only via the trace.
	Subscribe(ctx context.Context) <-chan domain.Event
}
