package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for Quill resources.
	uriScheme = "quill://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "summary",
		Name:        "summary",
		Description: "Summary of the most recently completed run: question, rewrite, answer and sources",
		MIMEType:    "application/json",
	}, s.handleSummaryResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "trace",
		Name:        "trace",
		Description: "Full event trace of this session, one JSON event per line",
		MIMEType:    "application/x-ndjson",
	}, s.handleTraceResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "bundle",
		Name:        "bundle",
		Description: "Latest run summary together with the full event trace",
		MIMEType:    "application/json",
	}, s.handleBundleResource)
}

// handleSummaryResource returns the latest session summary.
func (s *Server) handleSummaryResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Export == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	summary, err := s.ports.Export.Summary()
	if err != nil {
		if errors.Is(err, domain.ErrNoCompletedRun) {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		return nil, fmt.Errorf("getting summary: %w", err)
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling summary: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleTraceResource returns the session's event trace as NDJSON. An
// empty trace yields an empty document, not an error.
func (s *Server) handleTraceResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Export == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	data, err := s.ports.Export.TraceNDJSON()
	if err != nil {
		return nil, fmt.Errorf("serialising trace: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/x-ndjson",
			Text:     string(data),
		}},
	}, nil
}

// handleBundleResource returns the latest summary plus the full trace.
func (s *Server) handleBundleResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Export == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	bundle, err := s.ports.Export.Bundle()
	if err != nil {
		if errors.Is(err, domain.ErrNoCompletedRun) {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		return nil, fmt.Errorf("getting bundle: %w", err)
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling bundle: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
