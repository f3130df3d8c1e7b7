package driven

import (
	"context"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
)

// Corpus is an opaque reference to the document set a run is executed
// against. It is assembled by an external ingestion collaborator; the
// core only forwards it to the engine.
type Corpus any

// ChunkFunc receives incremental output chunks from a streaming engine
// call. Implementations must be safe to call from the engine's goroutine.
type ChunkFunc func(chunk string)

// AnswerEngine is the black-box retrieval-and-answer collaborator: given
// a question and a corpus it returns a synthesized answer plus ranked
// evidence. Document chunking, embedding, vector search and answer
// generation all live behind this single call.
type AnswerEngine interface {
	// Run executes one retrieval-and-answer pass. The settings carry
	// only the tuning fields the control layer is allowed to adjust.
	// When onChunk is non-nil the engine forwards incremental answer
	// chunks as they are produced.
	Run(ctx context.Context, question string, settings domain.EngineSettings, corpus Corpus, onChunk ChunkFunc) (*domain.Session, error)

	// Ping validates the engine is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
