package mcp

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
)

// mockRunService is a mock implementation of driving.RunService.
type mockRunService struct {
	runID     string
	submitErr error
	cancelErr error
	gotReq    domain.RunRequest
	cancelled string
}

func (m *mockRunService) Submit(_ context.Context, req domain.RunRequest) (string, error) {
	m.gotReq = req
	return m.runID, m.submitErr
}

func (m *mockRunService) Cancel(runID string) error {
	m.cancelled = runID
	return m.cancelErr
}

// mockRewriteService is a mock implementation of driving.RewriteService.
type mockRewriteService struct {
	result    domain.Rewrite
	gotUseLLM bool
}

func (m *mockRewriteService) Rewrite(_ context.Context, _ string, useLLM bool) domain.Rewrite {
	m.gotUseLLM = useLLM
	return m.result
}

// mockExportService is a mock implementation of driving.ExportService.
type mockExportService struct {
	summary *domain.SessionSummary
	err     error
	trace   []domain.Event
}

func (m *mockExportService) Summary() (*domain.SessionSummary, error) {
	return m.summary, m.err
}

func (m *mockExportService) Trace() []domain.Event {
	return m.trace
}

func (m *mockExportService) TraceNDJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range m.trace {
		if err := enc.Encode(e); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (m *mockExportService) Bundle() (*domain.ExportBundle, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.ExportBundle{Session: m.summary, Trace: m.trace}, nil
}
