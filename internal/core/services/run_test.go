package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driven"
)

// mockEngine is a scripted answer engine for orchestrator tests.
type mockEngine struct {
	session *domain.Session
	err     error
	chunks  []string
	block   bool // wait for ctx cancellation instead of returning

	mu          sync.Mutex
	gotQuestion string
	gotSettings domain.EngineSettings
	gotCorpus   driven.Corpus
}

func (m *mockEngine) Run(ctx context.Context, question string, settings domain.EngineSettings, corpus driven.Corpus, onChunk driven.ChunkFunc) (*domain.Session, error) {
	m.mu.Lock()
	m.gotQuestion = question
	m.gotSettings = settings
	m.gotCorpus = corpus
	m.mu.Unlock()

	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if onChunk != nil {
		for _, c := range m.chunks {
			onChunk(c)
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	// Copy so curation's in-place mutation does not leak between tests.
	s := *m.session
	s.Contexts = append([]domain.Context(nil), m.session.Contexts...)
	return &s, nil
}

func (m *mockEngine) Ping(context.Context) error { return nil }
func (m *mockEngine) Close() error               { return nil }

// mockRunStore records saved runs in memory.
type mockRunStore struct {
	mu    sync.Mutex
	saved []driven.RunRecord
	err   error
}

func (m *mockRunStore) SaveRun(_ context.Context, rec driven.RunRecord) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	m.saved = append(m.saved, rec)
	m.mu.Unlock()
	return nil
}

func (m *mockRunStore) GetRun(_ context.Context, id string) (*driven.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.saved {
		if m.saved[i].ID == id {
			return &m.saved[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockRunStore) ListRuns(_ context.Context, _ int) ([]driven.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved, nil
}

func (m *mockRunStore) records() []driven.RunRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]driven.RunRecord(nil), m.saved...)
}

func (m *mockRunStore) Close() error { return nil }

// waitForSummary blocks until the bus holds a completed-run summary.
func waitForSummary(t *testing.T, bus *EventBus) *domain.SessionSummary {
	t.Helper()
	require.Eventually(t, func() bool {
		return bus.LatestSession() != nil
	}, 2*time.Second, 5*time.Millisecond)
	return bus.LatestSession()
}

// waitForLog blocks until the trace contains a log event with the given
// message prefix.
func waitForLog(t *testing.T, bus *EventBus, prefix string) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, e := range bus.Trace() {
			if d, ok := e.Data.(domain.LogData); ok && len(d.Message) >= len(prefix) && d.Message[:len(prefix)] == prefix {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
}

// phaseEvents extracts the phase boundary sequence from a trace.
func phaseEvents(trace []domain.Event) []domain.PhaseData {
	var phases []domain.PhaseData
	for _, e := range trace {
		if d, ok := e.Data.(domain.PhaseData); ok {
			phases = append(phases, d)
		}
	}
	return phases
}

// TestRunService_EndToEnd tests a full run: phase sequence, metrics,
// curation and the resulting summary
func TestRunService_EndToEnd(t *testing.T) {
	engine := &mockEngine{session: &domain.Session{
		Answer: "**Answer** with sources.",
		Contexts: []domain.Context{
			{Document: domain.Document{Docname: "paper", Citation: "Smith 2020"}, Score: 0.9, Text: "a"},
			{Document: domain.Document{Docname: "paper", Citation: "Smith 2020"}, Score: 0.7, Text: "b"},
			{Document: domain.Document{Docname: "paper", Citation: "Smith 2020"}, Score: 0.5, Text: "c"},
		},
	}}
	bus := NewEventBus()
	svc := NewRunService(bus, engine, domain.EngineSettings{EvidenceK: 8})

	runID, err := svc.Submit(context.Background(), domain.RunRequest{
		Question: "what did smith find?",
		Curation: domain.CurationSpec{RelevanceCutoff: 0.0, PerDocCap: 1, MaxSources: 5},
	})
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	summary := waitForSummary(t, bus)
	assert.Equal(t, runID, summary.RunID)
	assert.Equal(t, "what did smith find?", summary.Question)
	assert.Empty(t, summary.Rewritten)
	assert.Equal(t, "**Answer** with sources.", summary.AnswerMarkdown)
	require.Len(t, summary.Sources, 1)
	assert.Equal(t, "Smith 2020", summary.Sources[0].Citation)
	assert.Equal(t, 0.9, summary.Sources[0].Score)

	phases := phaseEvents(bus.Trace())
	require.Len(t, phases, 4)
	assert.Equal(t, domain.PhaseData{Phase: domain.PhaseRetrieval, Status: domain.PhaseStart}, phases[0])
	assert.Equal(t, domain.PhaseData{Phase: domain.PhaseRetrieval, Status: domain.PhaseEnd}, phases[1])
	assert.Equal(t, domain.PhaseData{Phase: domain.PhaseAnswer, Status: domain.PhaseStart}, phases[2])
	assert.Equal(t, domain.PhaseData{Phase: domain.PhaseAnswer, Status: domain.PhaseEnd}, phases[3])

	// Every event carries the run's ID.
	for _, e := range bus.Trace() {
		assert.Equal(t, runID, e.RunID)
	}
}

// TestRunService_SettingsOverride tests that the request's curation knobs
// reach the engine
func TestRunService_SettingsOverride(t *testing.T) {
	engine := &mockEngine{session: &domain.Session{}}
	bus := NewEventBus()
	svc := NewRunService(bus, engine, domain.EngineSettings{RelevanceCutoff: 5, MaxSources: 10, EvidenceK: 8})

	_, err := svc.Submit(context.Background(), domain.RunRequest{
		Question: "q",
		Curation: domain.CurationSpec{RelevanceCutoff: 7.5, MaxSources: 3},
	})
	require.NoError(t, err)
	waitForSummary(t, bus)

	assert.Equal(t, 7.5, engine.gotSettings.RelevanceCutoff)
	assert.Equal(t, 3, engine.gotSettings.MaxSources)
	assert.Equal(t, 8, engine.gotSettings.EvidenceK)
}

// TestRunService_RewriteAdoption tests that a precomputed rewrite replaces
// the engine question and is recorded on the summary
func TestRunService_RewriteAdoption(t *testing.T) {
	engine := &mockEngine{session: &domain.Session{Answer: "a"}}
	bus := NewEventBus()
	svc := NewRunService(bus, engine, domain.EngineSettings{})

	_, err := svc.Submit(context.Background(), domain.RunRequest{
		Question: "what about   yeast?",
		Rewrite: &domain.Rewrite{
			Rewritten: "yeast genome retrieval query",
			Filters:   &domain.Filters{Years: []int{2020}},
		},
		Curation: domain.CurationSpec{},
	})
	require.NoError(t, err)

	summary := waitForSummary(t, bus)
	assert.Equal(t, "yeast genome retrieval query", engine.gotQuestion)
	assert.Equal(t, "what about   yeast?", summary.Question)
	assert.Equal(t, "yeast genome retrieval query", summary.Rewritten)
	require.NotNil(t, summary.Filters)
	assert.Equal(t, []int{2020}, summary.Filters.Years)
}

// TestRunService_HeuristicRewriteNotRecorded tests that a rewrite marked
// same-as-original leaves the summary's rewritten field empty
func TestRunService_HeuristicRewriteNotRecorded(t *testing.T) {
	engine := &mockEngine{session: &domain.Session{}}
	bus := NewEventBus()
	svc := NewRunService(bus, engine, domain.EngineSettings{})

	_, err := svc.Submit(context.Background(), domain.RunRequest{
		Question: "same question",
		Rewrite: &domain.Rewrite{
			Rewritten:      "same question",
			SameAsOriginal: true,
		},
	})
	require.NoError(t, err)

	summary := waitForSummary(t, bus)
	assert.Equal(t, "same question", engine.gotQuestion)
	assert.Empty(t, summary.Rewritten)
}

// TestRunService_StreamRelaysChunks tests transparent chunk relay as log
// events
func TestRunService_StreamRelaysChunks(t *testing.T) {
	engine := &mockEngine{
		session: &domain.Session{Answer: "done"},
		chunks:  []string{"part one ", "part two"},
	}
	bus := NewEventBus()
	svc := NewRunService(bus, engine, domain.EngineSettings{})

	_, err := svc.Submit(context.Background(), domain.RunRequest{Question: "q", Stream: true})
	require.NoError(t, err)
	waitForSummary(t, bus)

	var logs []string
	for _, e := range bus.Trace() {
		if d, ok := e.Data.(domain.LogData); ok {
			logs = append(logs, d.Message)
		}
	}
	assert.Equal(t, []string{"part one ", "part two"}, logs)
}

// TestRunService_NoStreamNoChunkRelay tests that chunk relay is off by
// default
func TestRunService_NoStreamNoChunkRelay(t *testing.T) {
	engine := &mockEngine{
		session: &domain.Session{Answer: "done"},
		chunks:  []string{"should not appear"},
	}
	bus := NewEventBus()
	svc := NewRunService(bus, engine, domain.EngineSettings{})

	_, err := svc.Submit(context.Background(), domain.RunRequest{Question: "q"})
	require.NoError(t, err)
	waitForSummary(t, bus)

	for _, e := range bus.Trace() {
		_, isLog := e.Data.(domain.LogData)
		assert.False(t, isLog)
	}
}

// TestRunService_EngineFailureLeavesPartialTrace tests the failure path:
// the run aborts, no summary is stored, and the open retrieval phase stays
// unclosed in the trace
func TestRunService_EngineFailureLeavesPartialTrace(t *testing.T) {
	engine := &mockEngine{err: errors.New("engine exploded")}
	bus := NewEventBus()
	svc := NewRunService(bus, engine, domain.EngineSettings{})

	_, err := svc.Submit(context.Background(), domain.RunRequest{Question: "q"})
	require.NoError(t, err)

	waitForLog(t, bus, "run failed: engine exploded")

	assert.Nil(t, bus.LatestSession())
	phases := phaseEvents(bus.Trace())
	require.Len(t, phases, 1)
	assert.Equal(t, domain.PhaseStart, phases[0].Status)
}

// TestRunService_Cancel tests cooperative cancellation of an in-flight run
func TestRunService_Cancel(t *testing.T) {
	engine := &mockEngine{block: true}
	bus := NewEventBus()
	svc := NewRunService(bus, engine, domain.EngineSettings{})

	runID, err := svc.Submit(context.Background(), domain.RunRequest{Question: "q"})
	require.NoError(t, err)

	// Wait for the run to reach the engine before cancelling.
	require.Eventually(t, func() bool {
		return len(phaseEvents(bus.Trace())) == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, svc.Cancel(runID))

	require.Eventually(t, func() bool {
		phases := phaseEvents(bus.Trace())
		return len(phases) == 2 && phases[1].Status == domain.PhaseCancelled
	}, 2*time.Second, 5*time.Millisecond)
	assert.Nil(t, bus.LatestSession())

	// The handle is released; a second cancel is an error.
	require.Eventually(t, func() bool {
		return errors.Is(svc.Cancel(runID), domain.ErrRunNotFound)
	}, 2*time.Second, 5*time.Millisecond)
}

// TestRunService_CancelUnknownRun tests the not-found error
func TestRunService_CancelUnknownRun(t *testing.T) {
	svc := NewRunService(NewEventBus(), &mockEngine{}, domain.EngineSettings{})

	err := svc.Cancel("no-such-run")

	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

// TestRunService_SubmitValidation tests request validation before any
// events are published
func TestRunService_SubmitValidation(t *testing.T) {
	bus := NewEventBus()
	svc := NewRunService(bus, &mockEngine{}, domain.EngineSettings{})

	_, err := svc.Submit(context.Background(), domain.RunRequest{Question: ""})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, bus.Trace())
}

// TestRunService_NoEngine tests submission without a configured engine
func TestRunService_NoEngine(t *testing.T) {
	svc := NewRunService(NewEventBus(), nil, domain.EngineSettings{})

	_, err := svc.Submit(context.Background(), domain.RunRequest{Question: "q"})

	assert.ErrorIs(t, err, domain.ErrEngineUnavailable)
}

// TestRunService_PersistsToStore tests best-effort history persistence
func TestRunService_PersistsToStore(t *testing.T) {
	engine := &mockEngine{session: &domain.Session{Answer: "a"}}
	bus := NewEventBus()
	store := &mockRunStore{}
	svc := NewRunService(bus, engine, domain.EngineSettings{})
	svc.SetRunStore(store)

	runID, err := svc.Submit(context.Background(), domain.RunRequest{Question: "q"})
	require.NoError(t, err)
	waitForSummary(t, bus)

	require.Eventually(t, func() bool {
		return len(store.records()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	rec := store.records()[0]
	assert.Equal(t, runID, rec.ID)
	assert.Equal(t, runID, rec.Summary.RunID)
	require.NotEmpty(t, rec.Trace)
	for _, e := range rec.Trace {
		assert.Equal(t, runID, e.RunID)
	}
}

// TestRunService_StoreFailureDoesNotFailRun tests that a broken store
// never surfaces to the run itself
func TestRunService_StoreFailureDoesNotFailRun(t *testing.T) {
	engine := &mockEngine{session: &domain.Session{Answer: "a"}}
	bus := NewEventBus()
	svc := NewRunService(bus, engine, domain.EngineSettings{})
	svc.SetRunStore(&mockRunStore{err: errors.New("disk full")})

	_, err := svc.Submit(context.Background(), domain.RunRequest{Question: "q"})
	require.NoError(t, err)

	summary := waitForSummary(t, bus)
	assert.Equal(t, "a", summary.AnswerMarkdown)
}

// TestRunService_ConcurrentRunsShareTrace tests that interleaved runs stay
// distinguishable by run ID
func TestRunService_ConcurrentRunsShareTrace(t *testing.T) {
	engine := &mockEngine{session: &domain.Session{Answer: "a"}}
	bus := NewEventBus()
	svc := NewRunService(bus, engine, domain.EngineSettings{})

	id1, err := svc.Submit(context.Background(), domain.RunRequest{Question: "one"})
	require.NoError(t, err)
	id2, err := svc.Submit(context.Background(), domain.RunRequest{Question: "two"})
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	// 7 events per successful run: 4 phases, 2 metrics, 1 answer.
	require.Eventually(t, func() bool {
		return len(bus.Trace()) == 14
	}, 2*time.Second, 5*time.Millisecond)

	byRun := map[string]int{}
	for _, e := range bus.Trace() {
		byRun[e.RunID]++
	}
	assert.Equal(t, 7, byRun[id1])
	assert.Equal(t, 7, byRun[id2])
}
