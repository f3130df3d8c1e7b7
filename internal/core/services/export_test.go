package services

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
)

// TestExport_SummaryBeforeAnyRun tests the expected no-run condition
func TestExport_SummaryBeforeAnyRun(t *testing.T) {
	svc := NewExportService(NewEventBus())

	_, err := svc.Summary()

	assert.ErrorIs(t, err, domain.ErrNoCompletedRun)
}

// TestExport_SummaryReturnsLatest tests that the summary view tracks the
// last completed run
func TestExport_SummaryReturnsLatest(t *testing.T) {
	bus := NewEventBus()
	bus.SetLatestSession(&domain.SessionSummary{RunID: "r1"})
	bus.SetLatestSession(&domain.SessionSummary{RunID: "r2"})
	svc := NewExportService(bus)

	summary, err := svc.Summary()

	require.NoError(t, err)
	assert.Equal(t, "r2", summary.RunID)
}

// TestExport_TraceNDJSON tests one-event-per-line serialisation that
// round-trips through the event decoder
func TestExport_TraceNDJSON(t *testing.T) {
	bus := NewEventBus()
	bus.Publish(domain.NewPhaseEvent("r1", domain.PhaseRetrieval, domain.PhaseStart))
	bus.Publish(domain.NewEvent("r1", domain.MetricData{"contexts_returned": 3}))
	bus.Publish(domain.NewAnswerEvent("r1", "answer text"))
	svc := NewExportService(bus)

	out, err := svc.TraceNDJSON()
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSuffix(out, []byte("\n")), []byte("\n"))
	require.Len(t, lines, 3)

	var first domain.Event
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, domain.EventPhase, first.Type)
	assert.Equal(t, "r1", first.RunID)
	assert.Equal(t, domain.PhaseData{Phase: domain.PhaseRetrieval, Status: domain.PhaseStart}, first.Data)

	var last domain.Event
	require.NoError(t, json.Unmarshal(lines[2], &last))
	assert.Equal(t, domain.AnswerData{Markdown: "answer text"}, last.Data)
}

// TestExport_TraceNDJSONEmpty tests the zero-event case
func TestExport_TraceNDJSONEmpty(t *testing.T) {
	svc := NewExportService(NewEventBus())

	out, err := svc.TraceNDJSON()

	require.NoError(t, err)
	assert.Empty(t, out)
}

// TestExport_Bundle tests the combined summary-plus-trace view
func TestExport_Bundle(t *testing.T) {
	bus := NewEventBus()
	bus.Publish(domain.NewLogEvent("r1", "working"))
	bus.SetLatestSession(&domain.SessionSummary{RunID: "r1", Question: "q"})
	svc := NewExportService(bus)

	bundle, err := svc.Bundle()

	require.NoError(t, err)
	assert.Equal(t, "r1", bundle.Session.RunID)
	require.Len(t, bundle.Trace, 1)
	assert.Equal(t, "working", bundle.Trace[0].Data.(domain.LogData).Message)
}

// TestExport_BundleBeforeAnyRun tests that the bundle requires a completed
// run even when trace events exist
func TestExport_BundleBeforeAnyRun(t *testing.T) {
	bus := NewEventBus()
	bus.Publish(domain.NewLogEvent("r1", "working"))
	svc := NewExportService(bus)

	_, err := svc.Bundle()

	assert.ErrorIs(t, err, domain.ErrNoCompletedRun)
}
