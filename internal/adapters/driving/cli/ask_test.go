package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
)

func TestAskCmd_Use(t *testing.T) {
	assert.Equal(t, "ask [question]", askCmd.Use)
}

func TestAskCmd_RequiresExactlyOneArg(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ask"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestAskCmd_HasFlags(t *testing.T) {
	for _, name := range []string{"cutoff", "cap", "max-sources", "no-rewrite", "llm", "stream", "json", "timeout"} {
		assert.NotNil(t, askCmd.Flags().Lookup(name), "flag %q should exist", name)
	}
	assert.Equal(t, "n", askCmd.Flags().Lookup("max-sources").Shorthand)
}

func TestAskCmd_PrintsAnswerAndSources(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ask", "test question"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Mock answer.")
	assert.Contains(t, buf.String(), "Doe et al. (2020)")
	assert.Contains(t, buf.String(), "(p. 3)")
}

func TestAskCmd_PrintsRewrite(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ask", "test question"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Rewritten: mock rewritten query")

	stub := runService.(*stubRunService)
	require.NotNil(t, stub.gotReq.Rewrite)
	assert.Equal(t, "mock rewritten query", stub.gotReq.Rewrite.Rewritten)
}

func TestAskCmd_NoRewriteSendsVerbatim(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ask", "--no-rewrite", "test question"})
	defer func() {
		rootCmd.SetArgs(nil)
		askNoRewrite = false
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	stub := runService.(*stubRunService)
	assert.Nil(t, stub.gotReq.Rewrite)
	assert.NotContains(t, buf.String(), "Rewritten:")
}

func TestAskCmd_FlagsOverrideCuration(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ask", "--cutoff", "0.6", "--cap", "2", "-n", "4", "test question"})
	defer func() {
		rootCmd.SetArgs(nil)
		askCutoff = 0
		askPerDocCap = 0
		askMaxSources = 0
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	stub := runService.(*stubRunService)
	assert.Equal(t, 0.6, stub.gotReq.Curation.RelevanceCutoff)
	assert.Equal(t, 2, stub.gotReq.Curation.PerDocCap)
	assert.Equal(t, 4, stub.gotReq.Curation.MaxSources)
}

func TestAskCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ask", "--json", "test question"})
	defer func() {
		rootCmd.SetArgs(nil)
		askJSON = false
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "\"run_id\"")
	assert.Contains(t, buf.String(), "\"answer_markdown\"")
}

func TestAskCmd_RunFailure(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	events := make(chan domain.Event, 4)
	events <- domain.NewPhaseEvent(testRunID, domain.PhaseRetrieval, domain.PhaseStart)
	events <- domain.NewLogEvent(testRunID, "run failed: engine unreachable")
	eventStream = &stubEventStream{events: events}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ask", "test question"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "run failed: engine unreachable")
}

func TestAskCmd_Cancelled(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	events := make(chan domain.Event, 4)
	events <- domain.NewPhaseEvent(testRunID, domain.PhaseRetrieval, domain.PhaseStart)
	events <- domain.NewPhaseEvent(testRunID, domain.PhaseRetrieval, domain.PhaseCancelled)
	eventStream = &stubEventStream{events: events}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ask", "test question"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "run cancelled")
}

func TestAskCmd_IgnoresOtherRunsEvents(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	events := make(chan domain.Event, 16)
	events <- domain.NewPhaseEvent("other-run", domain.PhaseRetrieval, domain.PhaseCancelled)
	for _, e := range successfulRunEvents(testRunID) {
		events <- e
	}
	eventStream = &stubEventStream{events: events}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ask", "test question"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Mock answer.")
}

func TestAskCmd_StreamPrintsChunks(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	events := make(chan domain.Event, 16)
	events <- domain.NewPhaseEvent(testRunID, domain.PhaseAnswer, domain.PhaseStart)
	events <- domain.NewLogEvent(testRunID, "thinking about ")
	events <- domain.NewLogEvent(testRunID, "the question")
	events <- domain.NewPhaseEvent(testRunID, domain.PhaseAnswer, domain.PhaseEnd)
	eventStream = &stubEventStream{events: events}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ask", "--stream", "test question"})
	defer func() {
		rootCmd.SetArgs(nil)
		askStream = false
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "thinking about the question")
}

func TestAskCmd_ServiceNotConfigured(t *testing.T) {
	oldService := runService
	runService = nil
	defer func() {
		runService = oldService
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ask", "test"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "run service not configured")
}

func TestAskCmd_SubmitError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	runService = &stubRunService{submitErr: errService}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ask", "test"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "submit failed")
}
