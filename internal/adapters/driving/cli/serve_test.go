package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quill-cli/internal/adapters/driving/web"
)

func TestServeCmd_HasAddrFlag(t *testing.T) {
	flag := serveCmd.Flags().Lookup("addr")
	require.NotNil(t, flag)
	assert.Equal(t, web.DefaultAddr, flag.DefValue)
}

func TestServeCmd_ServiceNotConfigured(t *testing.T) {
	oldService := runService
	runService = nil
	defer func() {
		runService = oldService
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"serve"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "run service not configured")
}

func TestWatchCmd_HasURLFlag(t *testing.T) {
	flag := watchCmd.Flags().Lookup("url")
	require.NotNil(t, flag)
	assert.Contains(t, flag.DefValue, "/ws")
}

func TestWatchCmd_UnreachableServer(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	oldURL := watchURL
	defer func() { watchURL = oldURL }()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"watch", "--url", "ws://127.0.0.1:1/ws"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "is 'quill serve' running?")
}
