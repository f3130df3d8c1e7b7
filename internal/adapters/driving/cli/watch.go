package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/quill-cli/internal/adapters/driving/watch"
	"github.com/custodia-labs/quill-cli/internal/adapters/driving/web"
)

var watchURL string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the live event stream of a running server",
	Long: `Connects to a 'quill serve' instance and shows its run events as
they happen: phase boundaries, metrics, progress logs and answers.

Only events published after connecting are shown; use 'quill trace'
against the server for the full history.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "ws://"+web.DefaultAddr+"/ws", "server websocket URL")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	events, err := watch.Dial(cmd.Context(), watchURL)
	if err != nil {
		return fmt.Errorf("is 'quill serve' running? %w", err)
	}

	program := tea.NewProgram(watch.NewModel(events), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}
