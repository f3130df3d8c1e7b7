package domain

const unknownDescription = "Unknown"

// AIProvider identifies a text-completion provider for query rewriting.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// LLMSettings holds delegated-rewrite provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// EngineSettings holds the tuning fields the control layer may adjust on
// the retrieval-and-answer engine before a run. Everything else about the
// engine's configuration is opaque to the core.
type EngineSettings struct {
	// RelevanceCutoff is the minimum relevance score for retrieved
	// evidence, in [0,1].
	RelevanceCutoff float64

	// MaxSources is the maximum number of sources the engine should
	// cite in its answer, zero for the engine default.
	MaxSources int

	// EvidenceK is how many evidence snippets the engine gathers
	// before answering, zero for the engine default.
	EvidenceK int
}

// AppSettings holds all application settings.
type AppSettings struct {
	// LLM holds delegated-rewrite provider settings.
	LLM LLMSettings

	// Engine holds retrieval-and-answer engine tuning.
	Engine EngineSettings

	// Curation holds default curation rules for submitted runs.
	Curation CurationSpec
}

// DefaultAppSettings returns settings with sensible defaults. The LLM
// provider is left unconfigured; the rewrite service degrades to its
// heuristic path until one is set.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		LLM:      LLMSettings{},
		Engine:   EngineSettings{},
		Curation: DefaultCurationSpec(),
	}
}

// AllLLMProviders returns providers that support delegated rewriting.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}
