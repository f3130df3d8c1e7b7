package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driving"
	"github.com/custodia-labs/quill-cli/internal/logger"
)

// Ensure RunService implements the interface.
var _ driving.RunService = (*RunService)(nil)

// RunService orchestrates query runs: it publishes phase, metric, log and
// answer events to the bus while driving the external engine, curates the
// returned evidence and stores the resulting session summary.
type RunService struct {
	bus      *EventBus
	engine   driven.AnswerEngine
	settings domain.EngineSettings
	store    driven.RunStore // optional run history

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// NewRunService creates a run orchestrator. The engine is required;
// Submit fails with domain.ErrEngineUnavailable without one.
func NewRunService(bus *EventBus, engine driven.AnswerEngine, settings domain.EngineSettings) *RunService {
	return &RunService{
		bus:      bus,
		engine:   engine,
		settings: settings,
		active:   make(map[string]context.CancelFunc),
	}
}

// SetRunStore sets the optional run-history store. A nil store disables
// persistence; a failing store only logs.
func (s *RunService) SetRunStore(store driven.RunStore) {
	s.store = store
}

// Submit validates the request, assigns a run ID and starts the run in
// the background. The call returns as soon as the run is accepted;
// progress streams through the event bus.
func (s *RunService) Submit(_ context.Context, req domain.RunRequest) (string, error) {
	if s.engine == nil {
		return "", domain.ErrEngineUnavailable
	}
	if err := req.Validate(); err != nil {
		return "", err
	}

	runID := uuid.NewString()

	// The run deliberately outlives the submitting request: it is
	// cancelled through Cancel, not through the caller's context.
	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.active[runID] = cancel
	s.mu.Unlock()

	logger.Info("run %s: accepted question %q", runID, req.Question)
	go s.execute(runCtx, runID, req)

	return runID, nil
}

// Cancel requests cancellation of an in-flight run.
func (s *RunService) Cancel(runID string) error {
	s.mu.Lock()
	cancel, ok := s.active[runID]
	s.mu.Unlock()

	if !ok {
		return domain.ErrRunNotFound
	}
	cancel()
	return nil
}

// finish releases a run's cancellation handle.
func (s *RunService) finish(runID string) {
	s.mu.Lock()
	cancel, ok := s.active[runID]
	delete(s.active, runID)
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// execute drives one run through its linear phase sequence:
// retrieval:start -> engine call -> retrieval:end -> curation ->
// answer:start -> answer:end -> summary. An engine failure aborts the
// run, leaving the partial trace in place for diagnosis.
func (s *RunService) execute(ctx context.Context, runID string, req domain.RunRequest) {
	defer s.finish(runID)

	question := req.Question
	rewritten := ""
	var filters *domain.Filters
	if req.Rewrite != nil {
		filters = req.Rewrite.Filters
		if req.Rewrite.Rewritten != "" {
			question = req.Rewrite.Rewritten
			if !req.Rewrite.SameAsOriginal {
				rewritten = req.Rewrite.Rewritten
			}
		}
	}

	// Relevance cutoff and max sources shape what the engine retrieves,
	// so they are applied to the engine settings before the call.
	settings := s.settings
	settings.RelevanceCutoff = req.Curation.RelevanceCutoff
	if req.Curation.MaxSources > 0 {
		settings.MaxSources = req.Curation.MaxSources
	}

	s.bus.Publish(domain.NewPhaseEvent(runID, domain.PhaseRetrieval, domain.PhaseStart))

	// Streaming is a transparent relay: each engine chunk becomes a log
	// event immediately, with no extra buffering.
	var onChunk driven.ChunkFunc
	if req.Stream {
		onChunk = func(chunk string) {
			s.bus.Publish(domain.NewLogEvent(runID, chunk))
		}
	}

	started := time.Now()
	session, err := s.engine.Run(ctx, question, settings, req.Corpus, onChunk)
	if err != nil {
		if ctx.Err() != nil {
			logger.Info("run %s: cancelled", runID)
			s.bus.Publish(domain.NewPhaseEvent(runID, domain.PhaseRetrieval, domain.PhaseCancelled))
			return
		}
		logger.Warn("run %s: engine call failed: %v", runID, err)
		s.bus.Publish(domain.NewLogEvent(runID, "run failed: "+err.Error()))
		return
	}

	s.bus.Publish(domain.NewPhaseEvent(runID, domain.PhaseRetrieval, domain.PhaseEnd))
	s.bus.Publish(domain.NewEvent(runID, domain.MetricData{
		"elapsed_seconds":   time.Since(started).Seconds(),
		"contexts_returned": float64(len(session.Contexts)),
	}))

	// Curation runs exactly once, between the engine call and
	// summarisation: per-document cap first, then hard filters.
	ApplyPerDocCap(session, req.Curation.PerDocCap)
	ApplyHardFilters(session, filters)

	s.bus.Publish(domain.NewPhaseEvent(runID, domain.PhaseAnswer, domain.PhaseStart))
	if session.Answer != "" {
		s.bus.Publish(domain.NewAnswerEvent(runID, session.Answer))
	}
	s.bus.Publish(domain.NewPhaseEvent(runID, domain.PhaseAnswer, domain.PhaseEnd))
	s.bus.Publish(domain.NewEvent(runID, domain.MetricData{
		"contexts_selected": float64(len(session.Contexts)),
	}))

	summary := buildSummary(runID, req, rewritten, filters, session)
	s.bus.SetLatestSession(summary)
	logger.Info("run %s: completed with %d sources", runID, len(summary.Sources))

	s.persist(runID, summary)
}

// buildSummary snapshots a completed run, truncating sources to the
// configured maximum.
func buildSummary(runID string, req domain.RunRequest, rewritten string, filters *domain.Filters, session *domain.Session) *domain.SessionSummary {
	sources := make([]domain.SourceRef, 0, len(session.Contexts))
	for _, c := range session.Contexts {
		sources = append(sources, domain.SourceRef{
			Citation: c.Document.CitationText(),
			Page:     c.Page,
			Score:    c.Score,
		})
	}
	if max := req.Curation.MaxSources; max > 0 && len(sources) > max {
		sources = sources[:max]
	}

	return &domain.SessionSummary{
		RunID:          runID,
		Question:       req.Question,
		Rewritten:      rewritten,
		Filters:        filters,
		Curation:       req.Curation,
		AnswerMarkdown: session.Answer,
		Sources:        sources,
		CreatedAt:      time.Now(),
	}
}

// persist saves the run to the optional history store. Best effort: a
// store failure is logged, never surfaced.
func (s *RunService) persist(runID string, summary *domain.SessionSummary) {
	if s.store == nil {
		return
	}

	var trace []domain.Event
	for _, e := range s.bus.Trace() {
		if e.RunID == runID {
			trace = append(trace, e)
		}
	}

	rec := driven.RunRecord{
		ID:        runID,
		CreatedAt: time.Now(),
		Summary:   *summary,
		Trace:     trace,
	}
	if err := s.store.SaveRun(context.Background(), rec); err != nil {
		logger.Warn("run %s: history save failed: %v", runID, err)
	}
}
