package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
)

// ErrRunUnavailable is returned by the run tools when no run service is wired.
var ErrRunUnavailable = errors.New("mcp: run service unavailable")

// RewriteInput is the input schema for the rewrite_query tool.
type RewriteInput struct {
	Question string `json:"question" jsonschema:"the raw question to rewrite for retrieval"`
	UseLLM   bool   `json:"use_llm,omitempty" jsonschema:"delegate the rewrite to the configured LLM (falls back to the heuristic on failure)"`
}

// RewriteOutput is the output schema for the rewrite_query tool.
type RewriteOutput struct {
	Rewritten      string   `json:"rewritten"`
	Years          []int    `json:"years,omitempty"`
	Venues         []string `json:"venues,omitempty"`
	Fields         []string `json:"fields,omitempty"`
	SameAsOriginal bool     `json:"same_as_original"`
}

// SubmitInput is the input schema for the submit_run tool.
type SubmitInput struct {
	Question        string  `json:"question" jsonschema:"the question to run against the corpus"`
	UseLLM          bool    `json:"use_llm,omitempty" jsonschema:"delegate query rewriting to the configured LLM"`
	RelevanceCutoff float64 `json:"relevance_cutoff,omitempty" jsonschema:"minimum relevance score for evidence, between 0 and 1"`
	PerDocCap       int     `json:"per_doc_cap,omitempty" jsonschema:"maximum evidence snippets per document (0 = unlimited)"`
	MaxSources      int     `json:"max_sources,omitempty" jsonschema:"maximum sources in the answer (0 = default)"`
}

// SubmitOutput is the output schema for the submit_run tool.
type SubmitOutput struct {
	RunID string `json:"run_id"`
}

// CancelInput is the input schema for the cancel_run tool.
type CancelInput struct {
	RunID string `json:"run_id" jsonschema:"the ID of the run to cancel"`
}

// CancelOutput is the output schema for the cancel_run tool.
type CancelOutput struct {
	Cancelled bool `json:"cancelled"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rewrite_query",
		Description: "Rewrite a question into a retrieval-optimised query with structured filters",
	}, s.handleRewrite)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "submit_run",
		Description: "Submit a question for a background retrieval-and-answer run; read quill://summary once it completes",
	}, s.handleSubmit)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "cancel_run",
		Description: "Cancel an in-flight run by its ID",
	}, s.handleCancel)
}

// handleRewrite handles the rewrite_query tool invocation.
func (s *Server) handleRewrite(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RewriteInput,
) (*mcp.CallToolResult, RewriteOutput, error) {
	rw := s.ports.Rewrite.Rewrite(ctx, input.Question, input.UseLLM)

	output := RewriteOutput{
		Rewritten:      rw.Rewritten,
		SameAsOriginal: rw.SameAsOriginal,
	}
	if rw.Filters != nil {
		output.Years = rw.Filters.Years
		output.Venues = rw.Filters.Venues
		output.Fields = rw.Filters.Fields
	}

	return nil, output, nil
}

// handleSubmit handles the submit_run tool invocation.
func (s *Server) handleSubmit(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SubmitInput,
) (*mcp.CallToolResult, SubmitOutput, error) {
	if s.ports.Run == nil {
		return nil, SubmitOutput{}, ErrRunUnavailable
	}

	curation := domain.DefaultCurationSpec()
	if input.RelevanceCutoff > 0 {
		curation.RelevanceCutoff = input.RelevanceCutoff
	}
	if input.PerDocCap > 0 {
		curation.PerDocCap = input.PerDocCap
	}
	if input.MaxSources > 0 {
		curation.MaxSources = input.MaxSources
	}

	req := domain.RunRequest{
		Question: input.Question,
		Curation: curation,
	}
	rw := s.ports.Rewrite.Rewrite(ctx, input.Question, input.UseLLM)
	req.Rewrite = &rw

	runID, err := s.ports.Run.Submit(ctx, req)
	if err != nil {
		return nil, SubmitOutput{}, err
	}

	return nil, SubmitOutput{RunID: runID}, nil
}

// handleCancel handles the cancel_run tool invocation.
func (s *Server) handleCancel(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input CancelInput,
) (*mcp.CallToolResult, CancelOutput, error) {
	if s.ports.Run == nil {
		return nil, CancelOutput{}, ErrRunUnavailable
	}

	if err := s.ports.Run.Cancel(input.RunID); err != nil {
		return nil, CancelOutput{}, err
	}
	return nil, CancelOutput{Cancelled: true}, nil
}
