package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	summaryOut string
	traceOut   string
	bundleOut  string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the latest run summary",
	Long: `Prints the summary of the most recently completed run as JSON:
the question, its rewrite, the curation applied, the answer and the
curated sources.`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Export the event trace as NDJSON",
	Long: `Exports every event published this session, one JSON object per
line, in publish order. The trace covers all runs, including failed
and cancelled ones.`,
	Args: cobra.NoArgs,
	RunE: runTrace,
}

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Export the latest summary together with the full trace",
	Args:  cobra.NoArgs,
	RunE:  runBundle,
}

func init() {
	summaryCmd.Flags().StringVarP(&summaryOut, "output", "o", "", "write to file instead of stdout")
	traceCmd.Flags().StringVarP(&traceOut, "output", "o", "", "write to file instead of stdout")
	bundleCmd.Flags().StringVarP(&bundleOut, "output", "o", "", "write to file instead of stdout")
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(bundleCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	if exportService == nil {
		return errors.New("export service not configured")
	}

	summary, err := exportService.Summary()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	return writeExport(cmd, summaryOut, append(data, '\n'))
}

func runTrace(cmd *cobra.Command, _ []string) error {
	if exportService == nil {
		return errors.New("export service not configured")
	}

	data, err := exportService.TraceNDJSON()
	if err != nil {
		return err
	}
	return writeExport(cmd, traceOut, data)
}

func runBundle(cmd *cobra.Command, _ []string) error {
	if exportService == nil {
		return errors.New("export service not configured")
	}

	bundle, err := exportService.Bundle()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal bundle: %w", err)
	}
	return writeExport(cmd, bundleOut, append(data, '\n'))
}

// writeExport writes data to the given path, or to the command's output
// stream when no path is set.
func writeExport(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		cmd.Print(string(data))
		return nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	cmd.Printf("Wrote %s\n", path)
	return nil
}
