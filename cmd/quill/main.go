// Command quill is a CLI in front of a retrieval-and-answer engine: it
// rewrites questions for retrieval, runs them against the engine,
// curates the returned evidence and exports the results.
package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/quill-cli/internal/adapters/driven/ai"
	"github.com/custodia-labs/quill-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/quill-cli/internal/adapters/driven/engine/httpengine"
	"github.com/custodia-labs/quill-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/quill-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quill-cli/internal/core/services"
	"github.com/custodia-labs/quill-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	if err := configStore.Load(); err != nil {
		logger.Warn("could not load config, using defaults: %v", err)
	}

	settings := settingsFromConfig(configStore)

	engine := httpengine.NewEngine(httpengine.Config{
		BaseURL: configStore.GetString("engine.base_url"),
	})

	// A missing or invalid LLM config never blocks startup; the rewrite
	// service degrades to its heuristic path.
	var llm driven.LLMService
	if settings.LLM.Provider != "" {
		llm, err = ai.CreateLLMService(&settings.LLM)
		if err != nil {
			logger.Warn("LLM unavailable, using heuristic rewrites: %v", err)
		}
	}

	bus := services.NewEventBus()
	runService := services.NewRunService(bus, engine, settings.Engine)
	rewriteService := services.NewRewriteService(llm)
	exportService := services.NewExportService(bus)

	// Run history is best effort: without a store the CLI still works,
	// only 'quill history' is unavailable.
	var runStore driven.RunStore
	store, err := sqlite.NewStore("")
	if err != nil {
		logger.Warn("run history disabled: %v", err)
	} else {
		defer store.Close()
		runStore = store
		runService.SetRunStore(store)
	}

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Run:      runService,
		Rewrite:  rewriteService,
		Export:   exportService,
		Events:   bus,
		RunStore: runStore,
		Config:   configStore,
		Curation: settings.Curation,
	})

	return cli.Execute()
}

// settingsFromConfig assembles application settings from the config
// store, falling back to defaults for anything unset.
func settingsFromConfig(cfg driven.ConfigStore) domain.AppSettings {
	settings := domain.DefaultAppSettings()

	settings.LLM = domain.LLMSettings{
		Provider: domain.AIProvider(cfg.GetString("llm.provider")),
		Model:    cfg.GetString("llm.model"),
		BaseURL:  cfg.GetString("llm.base_url"),
		APIKey:   cfg.GetString("llm.api_key"),
	}

	if cutoff := cfg.GetFloat("engine.relevance_cutoff"); cutoff > 0 {
		settings.Engine.RelevanceCutoff = cutoff
		settings.Curation.RelevanceCutoff = cutoff
	}
	if maxSrc := cfg.GetInt("engine.max_sources"); maxSrc > 0 {
		settings.Engine.MaxSources = maxSrc
		settings.Curation.MaxSources = maxSrc
	}
	if topK := cfg.GetInt("engine.evidence_k"); topK > 0 {
		settings.Engine.EvidenceK = topK
	}
	if perDocCap := cfg.GetInt("curation.per_doc_cap"); perDocCap > 0 {
		settings.Curation.PerDocCap = perDocCap
	}

	return settings
}
