package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quill-cli/internal/adapters/driven/ai"
	"github.com/custodia-labs/quill-cli/internal/core/domain"
)

// Config keys for the settings command.
const (
	keyLLMProvider   = "llm.provider"
	keyLLMModel      = "llm.model"
	keyLLMBaseURL    = "llm.base_url"
	keyLLMAPIKey     = "llm.api_key"
	keyEngineBaseURL = "engine.base_url"
	keyEngineCutoff  = "engine.relevance_cutoff"
	keyEngineMaxSrc  = "engine.max_sources"
	keyEngineTopK    = "engine.evidence_k"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the answer engine endpoint and the LLM provider
used for delegated query rewriting.

Use subcommands to configure specific settings.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider used for delegated query rewriting.`,
	RunE:  runSettingsLLM,
}

var settingsEngineCmd = &cobra.Command{
	Use:   "engine",
	Short: "Configure answer engine",
	Long:  `Configure the answer engine endpoint and its tuning defaults.`,
	RunE:  runSettingsEngine,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsEngineCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Engine]")
	baseURL := configStore.GetString(keyEngineBaseURL)
	if baseURL == "" {
		baseURL = "(default)"
	}
	cmd.Printf("  Base URL: %s\n", baseURL)
	cmd.Printf("  Relevance cutoff: %g\n", configStore.GetFloat(keyEngineCutoff))
	cmd.Printf("  Max sources: %d\n", configStore.GetInt(keyEngineMaxSrc))
	cmd.Printf("  Evidence k: %d\n", configStore.GetInt(keyEngineTopK))
	cmd.Println()

	cmd.Println("[LLM]")
	settings := llmSettingsFromConfig()
	if settings.Provider == "" {
		cmd.Println("  Provider: (not set)")
		cmd.Println("  Delegated rewriting is disabled; the heuristic rewriter is used.")
		return nil
	}
	cmd.Printf("  Provider: %s\n", settings.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Model)
	if settings.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.BaseURL)
	}
	if settings.Provider.RequiresAPIKey() {
		if settings.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}

	status := "configured"
	if !settings.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	return nil
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	reader := bufio.NewReader(os.Stdin)

	cmd.Println("Select LLM Provider")
	providers := domain.AllLLMProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	provider := providers[idx-1]

	defaults := domain.DefaultLLMModels()
	cmd.Printf("Enter model name [%s]: ", defaults[provider])
	model := readLine(reader)
	if model == "" {
		model = defaults[provider]
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readLine(reader)
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	var baseURL string
	if provider == domain.AIProviderOllama {
		cmd.Print("Enter base URL [http://localhost:11434]: ")
		baseURL = readLine(reader)
	}

	settings := domain.LLMSettings{
		Provider: provider,
		Model:    model,
		BaseURL:  baseURL,
		APIKey:   apiKey,
	}

	cmd.Print("Validating configuration... ")
	if err := ai.ValidateLLMConfig(&settings); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	configStore.Set(keyLLMProvider, provider.String())
	configStore.Set(keyLLMModel, model)
	configStore.Set(keyLLMBaseURL, baseURL)
	configStore.Set(keyLLMAPIKey, apiKey)
	if err := configStore.Save(); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	cmd.Printf("LLM provider configured: %s (%s)\n", provider.Description(), model)
	return nil
}

func runSettingsEngine(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	reader := bufio.NewReader(os.Stdin)

	cmd.Print("Engine base URL [http://localhost:8731]: ")
	if baseURL := readLine(reader); baseURL != "" {
		configStore.Set(keyEngineBaseURL, baseURL)
	}

	cmd.Print("Relevance cutoff (0 to 1) [0]: ")
	if input := readLine(reader); input != "" {
		cutoff, err := strconv.ParseFloat(input, 64)
		if err != nil || cutoff < 0 || cutoff > 1 {
			return fmt.Errorf("invalid relevance cutoff %q", input)
		}
		configStore.Set(keyEngineCutoff, cutoff)
	}

	cmd.Print("Max sources (0 for engine default) [0]: ")
	if input := readLine(reader); input != "" {
		maxSrc, err := strconv.Atoi(input)
		if err != nil || maxSrc < 0 {
			return fmt.Errorf("invalid max sources %q", input)
		}
		configStore.Set(keyEngineMaxSrc, maxSrc)
	}

	cmd.Print("Evidence k (0 for engine default) [0]: ")
	if input := readLine(reader); input != "" {
		topK, err := strconv.Atoi(input)
		if err != nil || topK < 0 {
			return fmt.Errorf("invalid evidence k %q", input)
		}
		configStore.Set(keyEngineTopK, topK)
	}

	if err := configStore.Save(); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	cmd.Println("Engine settings saved.")
	return nil
}

// llmSettingsFromConfig assembles LLM settings from the config store.
func llmSettingsFromConfig() domain.LLMSettings {
	return domain.LLMSettings{
		Provider: domain.AIProvider(configStore.GetString(keyLLMProvider)),
		Model:    configStore.GetString(keyLLMModel),
		BaseURL:  configStore.GetString(keyLLMBaseURL),
		APIKey:   configStore.GetString(keyLLMAPIKey),
	}
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
