package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/custodia-labs/quill-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/quill-cli/internal/core/domain"
)

const testRunID = "run-test"

// stubRunService records submissions and returns a fixed run ID.
type stubRunService struct {
	runID     string
	submitErr error
	cancelErr error
	gotReq    domain.RunRequest
	cancelled string
}

func (s *stubRunService) Submit(_ context.Context, req domain.RunRequest) (string, error) {
	s.gotReq = req
	return s.runID, s.submitErr
}

func (s *stubRunService) Cancel(runID string) error {
	s.cancelled = runID
	return s.cancelErr
}

// stubRewriteService returns a fixed rewrite.
type stubRewriteService struct {
	result    domain.Rewrite
	gotUseLLM bool
}

func (s *stubRewriteService) Rewrite(_ context.Context, _ string, useLLM bool) domain.Rewrite {
	s.gotUseLLM = useLLM
	return s.result
}

// stubExportService serves a fixed summary and trace.
type stubExportService struct {
	summary *domain.SessionSummary
	err     error
	trace   []domain.Event
}

func (s *stubExportService) Summary() (*domain.SessionSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.summary, nil
}

func (s *stubExportService) Trace() []domain.Event { return s.trace }

func (s *stubExportService) TraceNDJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range s.trace {
		if err := enc.Encode(e); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (s *stubExportService) Bundle() (*domain.ExportBundle, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.ExportBundle{Session: s.summary, Trace: s.trace}, nil
}

// stubEventStream hands every subscriber the same prefilled channel.
type stubEventStream struct {
	events chan domain.Event
}

func (s *stubEventStream) Subscribe(_ context.Context) <-chan domain.Event {
	return s.events
}

// successfulRunEvents returns the event sequence of a completed run.
func successfulRunEvents(runID string) []domain.Event {
	return []domain.Event{
		domain.NewPhaseEvent(runID, domain.PhaseRetrieval, domain.PhaseStart),
		domain.NewEvent(runID, domain.MetricData{"elapsed_seconds": 0.2, "contexts_returned": 3}),
		domain.NewPhaseEvent(runID, domain.PhaseRetrieval, domain.PhaseEnd),
		domain.NewPhaseEvent(runID, domain.PhaseAnswer, domain.PhaseStart),
		domain.NewAnswerEvent(runID, "Mock answer."),
		domain.NewPhaseEvent(runID, domain.PhaseAnswer, domain.PhaseEnd),
		domain.NewEvent(runID, domain.MetricData{"contexts_selected": 2}),
	}
}

// setupTestServices wires stub services into the package-level vars and
// returns a cleanup function restoring the previous wiring.
func setupTestServices() func() {
	oldRun := runService
	oldRewrite := rewriteService
	oldExport := exportService
	oldStream := eventStream
	oldStore := runStore
	oldConfig := configStore
	oldCuration := defaultCuration

	events := make(chan domain.Event, 32)
	for _, e := range successfulRunEvents(testRunID) {
		events <- e
	}

	runService = &stubRunService{runID: testRunID}
	rewriteService = &stubRewriteService{
		result: domain.Rewrite{Rewritten: "mock rewritten query"},
	}
	exportService = &stubExportService{
		summary: &domain.SessionSummary{
			RunID:          testRunID,
			Question:       "test question",
			AnswerMarkdown: "Mock answer.",
			Sources: []domain.SourceRef{
				{Citation: "Doe et al. (2020)", Page: 3, Score: 0.91},
			},
		},
		trace: successfulRunEvents(testRunID),
	}
	eventStream = &stubEventStream{events: events}
	runStore = memory.NewRunStore()
	configStore = memory.NewConfigStore()
	defaultCuration = domain.DefaultCurationSpec()

	return func() {
		runService = oldRun
		rewriteService = oldRewrite
		exportService = oldExport
		eventStream = oldStream
		runStore = oldStore
		configStore = oldConfig
		defaultCuration = oldCuration
	}
}

var errService = errors.New("service failed")
