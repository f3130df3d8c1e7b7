package cli

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quill-cli/internal/adapters/driving/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP and WebSocket API",
	Long: `Starts an HTTP server exposing runs, rewrites and exports over
REST, plus a WebSocket stream of live run events at /ws.

Use 'quill watch' from another terminal to follow the event stream.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", web.DefaultAddr, "listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if runService == nil || exportService == nil || eventStream == nil {
		return errors.New("run service not configured")
	}

	server := web.NewServer(serveAddr, web.Ports{
		Run:     runService,
		Rewrite: rewriteService,
		Export:  exportService,
		Events:  eventStream,
	})

	cmd.Printf("Listening on http://%s\n", server.Addr())
	cmd.Println("Press Ctrl+C to stop.")

	err := server.ListenAndServe(cmd.Context())
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
