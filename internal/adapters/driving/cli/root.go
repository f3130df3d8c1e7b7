// Package cli provides the command-line interface for Quill.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driving"
	"github.com/custodia-labs/quill-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services injected by the composition root before Execute. Commands
// check for nil and fail with a clear message, so a partially wired
// binary still runs its unaffected commands.
var (
	runService      driving.RunService
	rewriteService  driving.RewriteService
	exportService   driving.ExportService
	eventStream     driving.EventStream
	runStore        driven.RunStore
	configStore     driven.ConfigStore
	defaultCuration domain.CurationSpec
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "Ask questions against a document corpus",
	Long: `Quill drives a retrieval-and-answer engine: it rewrites your question
for retrieval, runs it against the engine, curates the returned evidence
and reports the answer with its sources.

Every run emits a structured event trace that can be watched live or
exported afterwards.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// Services bundles everything the CLI needs from the composition root.
type Services struct {
	Run      driving.RunService
	Rewrite  driving.RewriteService
	Export   driving.ExportService
	Events   driving.EventStream
	RunStore driven.RunStore
	Config   driven.ConfigStore
	Curation domain.CurationSpec
}

// SetServices wires the CLI's dependencies. Must be called before Execute.
func SetServices(s Services) {
	runService = s.Run
	rewriteService = s.Rewrite
	exportService = s.Export
	eventStream = s.Events
	runStore = s.RunStore
	configStore = s.Config
	defaultCuration = s.Curation
}

// SetVersion sets the version string printed by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
