package mcp

import (
	"github.com/custodia-labs/quill-cli/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Run submits and cancels query runs.
	Run driving.RunService

	// Rewrite converts raw questions into retrieval-optimised queries.
	Rewrite driving.RewriteService

	// Export provides the latest summary and the event trace.
	Export driving.ExportService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Rewrite == nil {
		return ErrMissingRewriteService
	}
	// Run and Export are optional; the matching tools and resources
	// report unavailability instead.
	return nil
}
