package driving

import (
	"context"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
)

// RewriteService converts a raw question into a retrieval-optimised query
// plus structured filters. It always produces a usable result: a failed
// delegated rewrite silently degrades to the deterministic heuristic.
type RewriteService interface {
	Rewrite(ctx context.Context, original string, useLLM bool) domain.Rewrite
}
