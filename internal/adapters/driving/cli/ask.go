package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/logger"
)

var (
	askCutoff     float64
	askPerDocCap  int
	askMaxSources int
	askNoRewrite  bool
	askLLM        bool
	askStream     bool
	askJSON       bool
	askTimeout    time.Duration
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Run a question against the corpus",
	Long: `Runs one end-to-end query: the question is rewritten for retrieval,
sent to the answer engine, and the returned evidence is curated before
the answer is printed with its sources.

By default the question is rewritten heuristically. Use --llm to
delegate rewriting to the configured LLM provider; if that fails for
any reason the heuristic is used instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().Float64Var(&askCutoff, "cutoff", 0, "minimum relevance score for evidence")
	askCmd.Flags().IntVar(&askPerDocCap, "cap", 0, "max evidence snippets per document (0 = unlimited)")
	askCmd.Flags().IntVarP(&askMaxSources, "max-sources", "n", 0, "max sources in the answer (0 = default)")
	askCmd.Flags().BoolVar(&askNoRewrite, "no-rewrite", false, "send the question verbatim")
	askCmd.Flags().BoolVar(&askLLM, "llm", false, "delegate query rewriting to the LLM")
	askCmd.Flags().BoolVar(&askStream, "stream", false, "print incremental engine output")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the session summary as JSON")
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 15*time.Minute, "overall run timeout")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]

	if runService == nil || eventStream == nil || exportService == nil {
		return errors.New("run service not configured")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), askTimeout)
	defer cancel()

	req := domain.RunRequest{
		Question: question,
		Curation: buildCuration(),
		Stream:   askStream,
	}
	if !askNoRewrite && rewriteService != nil {
		rw := rewriteService.Rewrite(ctx, question, askLLM)
		req.Rewrite = &rw
		if !rw.SameAsOriginal {
			cmd.Printf("Rewritten: %s\n", rw.Rewritten)
		}
	}

	// Subscribe before submitting so no event is missed.
	events := eventStream.Subscribe(ctx)

	runID, err := runService.Submit(ctx, req)
	if err != nil {
		return fmt.Errorf("submit failed: %w", err)
	}
	logger.Debug("submitted run %s", runID)

	if err := followRun(cmd, ctx, events, runID); err != nil {
		return err
	}

	summary, err := waitForSummary(ctx, runID)
	if err != nil {
		return err
	}

	if askJSON {
		return outputSummaryJSON(cmd, summary)
	}
	outputSummaryText(cmd, summary)
	return nil
}

// buildCuration merges the ask flags over the configured defaults.
func buildCuration() domain.CurationSpec {
	spec := defaultCuration
	if askCutoff > 0 {
		spec.RelevanceCutoff = askCutoff
	}
	if askPerDocCap > 0 {
		spec.PerDocCap = askPerDocCap
	}
	if askMaxSources > 0 {
		spec.MaxSources = askMaxSources
	}
	return spec
}

// followRun consumes the event stream until the run reaches a terminal
// event: answer phase end, cancellation, or a run-failure log.
func followRun(cmd *cobra.Command, ctx context.Context, events <-chan domain.Event, runID string) error {
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("run timed out: %w", ctx.Err())
		case e, ok := <-events:
			if !ok {
				return errors.New("event stream closed")
			}
			if e.RunID != runID {
				continue
			}

			switch data := e.Data.(type) {
			case domain.PhaseData:
				logger.Debug("phase %s: %s", data.Phase, data.Status)
				if data.Status == domain.PhaseCancelled {
					return errors.New("run cancelled")
				}
				if data.Phase == domain.PhaseAnswer && data.Status == domain.PhaseEnd {
					return nil
				}
			case domain.LogData:
				if askStream {
					cmd.Print(data.Message)
				}
				if failure, ok := runFailure(data.Message); ok {
					return errors.New(failure)
				}
			case domain.MetricData:
				for name, value := range data {
					logger.Debug("metric %s = %g", name, value)
				}
			}
		}
	}
}

// runFailure reports whether a log message marks an aborted run.
func runFailure(message string) (string, bool) {
	const prefix = "run failed: "
	if len(message) >= len(prefix) && message[:len(prefix)] == prefix {
		return message, true
	}
	return "", false
}

// waitForSummary polls for the run's summary. The summary is stored
// shortly after the terminal event, so a brief wait is expected.
func waitForSummary(ctx context.Context, runID string) (*domain.SessionSummary, error) {
	for {
		summary, err := exportService.Summary()
		if err == nil && summary.RunID == runID {
			return summary, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for summary: %w", ctx.Err())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func outputSummaryJSON(cmd *cobra.Command, summary *domain.SessionSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSummaryText(cmd *cobra.Command, summary *domain.SessionSummary) {
	cmd.Println()
	cmd.Println(summary.AnswerMarkdown)

	if len(summary.Sources) == 0 {
		cmd.Println("\nNo sources.")
		return
	}

	cmd.Println("\nSources:")
	for i, src := range summary.Sources {
		cmd.Printf("  [%d] %s", i+1, src.Citation)
		if src.Page > 0 {
			cmd.Printf(" (p. %d)", src.Page)
		}
		if src.Score > 0 {
			cmd.Printf(" (%.2f)", src.Score)
		}
		cmd.Println()
	}
}
