package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	rewriteLLM  bool
	rewriteJSON bool
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite [question]",
	Short: "Rewrite a question for retrieval without running it",
	Long: `Shows how a question would be rewritten before being sent to the
engine: the retrieval-optimised query plus any structured filters
extracted from it (years, venues, fields).

Use --llm to delegate to the configured LLM provider. If the delegated
rewrite fails the deterministic heuristic answers instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runRewrite,
}

func init() {
	rewriteCmd.Flags().BoolVar(&rewriteLLM, "llm", false, "delegate rewriting to the LLM")
	rewriteCmd.Flags().BoolVar(&rewriteJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(rewriteCmd)
}

func runRewrite(cmd *cobra.Command, args []string) error {
	if rewriteService == nil {
		return errors.New("rewrite service not configured")
	}

	rw := rewriteService.Rewrite(cmd.Context(), args[0], rewriteLLM)

	if rewriteJSON {
		data, err := json.MarshalIndent(rw, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal rewrite: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Rewritten: %s\n", rw.Rewritten)
	if rw.SameAsOriginal {
		cmd.Println("(unchanged from original)")
	}
	if rw.Filters == nil {
		return nil
	}

	if len(rw.Filters.Years) > 0 {
		years := make([]string, len(rw.Filters.Years))
		for i, y := range rw.Filters.Years {
			years[i] = fmt.Sprintf("%d", y)
		}
		cmd.Printf("Years:     %s\n", strings.Join(years, ", "))
	}
	if len(rw.Filters.Venues) > 0 {
		cmd.Printf("Venues:    %s\n", strings.Join(rw.Filters.Venues, ", "))
	}
	if len(rw.Filters.Fields) > 0 {
		cmd.Printf("Fields:    %s\n", strings.Join(rw.Filters.Fields, ", "))
	}
	return nil
}
