// Package domain defines the core business entities for Quill.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Event: A typed progress event published during a query run
//   - Session: The retrieval-and-answer engine's run result
//   - Context: One evidence snippet with its source-document metadata
//   - SessionSummary: The durable snapshot exported after a run
//   - Filters / CurationSpec: Evidence curation rules
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
