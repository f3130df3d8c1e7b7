package services

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driving"
)

// Ensure ExportService implements the interface.
var _ driving.ExportService = (*ExportService)(nil)

// ExportService provides read-only views over the event bus's trace and
// the latest stored session summary. It never mutates bus state.
type ExportService struct {
	bus *EventBus
}

// NewExportService creates an export service over the given bus.
func NewExportService(bus *EventBus) *ExportService {
	return &ExportService{bus: bus}
}

// Summary returns the latest session summary, or
// domain.ErrNoCompletedRun until a run has completed. That condition is
// expected, not a fault.
func (s *ExportService) Summary() (*domain.SessionSummary, error) {
	latest := s.bus.LatestSession()
	if latest == nil {
		return nil, domain.ErrNoCompletedRun
	}
	return latest, nil
}

// Trace returns a snapshot of all published events in order.
func (s *ExportService) Trace() []domain.Event {
	return s.bus.Trace()
}

// TraceNDJSON serialises the trace one JSON event per line.
func (s *ExportService) TraceNDJSON() ([]byte, error) {
	var buf bytes.Buffer
	for _, e := range s.bus.Trace() {
		line, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal event: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Bundle returns the latest summary together with the full trace.
func (s *ExportService) Bundle() (*domain.ExportBundle, error) {
	summary, err := s.Summary()
	if err != nil {
		return nil, err
	}
	return &domain.ExportBundle{
		Session: summary,
		Trace:   s.bus.Trace(),
	}, nil
}
