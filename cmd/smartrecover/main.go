// SmartRecover server — serves the incident triage HTTP API and
// orchestrates retrieval across the configured data sources.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/smartrecover/pkg/agents"
	"github.com/codeready-toolchain/smartrecover/pkg/api"
	"github.com/codeready-toolchain/smartrecover/pkg/cache"
	"github.com/codeready-toolchain/smartrecover/pkg/config"
	"github.com/codeready-toolchain/smartrecover/pkg/connectors"
	"github.com/codeready-toolchain/smartrecover/pkg/connectors/kb"
	"github.com/codeready-toolchain/smartrecover/pkg/exclusions"
	"github.com/codeready-toolchain/smartrecover/pkg/llm"
	"github.com/codeready-toolchain/smartrecover/pkg/logging"
	"github.com/codeready-toolchain/smartrecover/pkg/orchestrator"
	"github.com/codeready-toolchain/smartrecover/pkg/prompts"
	"github.com/codeready-toolchain/smartrecover/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configPath := flag.String("config",
		getEnv("SMARTRECOVER_CONFIG", "./deploy/config.yaml"),
		"Path to configuration file")
	flag.Parse()

	// Load .env before the configuration so ${VAR} expansion sees it.
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded, continuing with existing environment", "error", err)
	}

	// 1. Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		os.Exit(1)
	}

	// 2. Logging
	closeLogs, err := logging.Setup(cfg.Logging)
	if err != nil {
		slog.Error("Failed to set up logging", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := closeLogs(); err != nil {
			slog.Error("Error closing log writer", "error", err)
		}
	}()

	slog.Info("Starting SmartRecover",
		"version", version.Version,
		"config", *configPath,
		"connector", cfg.IncidentConnector.Type,
		"llm_provider", cfg.LLM.Provider)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Data source connectors
	connector, err := connectors.New(cfg.IncidentConnector)
	if err != nil {
		slog.Error("Failed to initialize incident connector", "type", cfg.IncidentConnector.Type, "error", err)
		os.Exit(1)
	}
	knowledge, err := kb.New(cfg.KnowledgeBase)
	if err != nil {
		slog.Error("Failed to initialize knowledge base connector", "source", cfg.KnowledgeBase.Source, "error", err)
		os.Exit(1)
	}
	slog.Info("Connectors initialized", "incidents", connector.Name(), "knowledge_base", knowledge.Name())

	// 4. LLM manager and prompt store
	promptLog := llm.NewPromptLog(cfg.PromptLogs.MaxEntries)
	manager, err := llm.NewManager(cfg.LLM, promptLog)
	if err != nil {
		slog.Error("Failed to initialize LLM provider", "provider", cfg.LLM.Provider, "error", err)
		os.Exit(1)
	}
	promptStore := prompts.NewStore(cfg.PromptsPath)
	slog.Info("LLM initialized", "provider", manager.Client().Name(), "model", manager.Client().Model())

	// 5. Retrieval pipeline
	excl := exclusions.NewStore()
	agentCache := cache.New(cfg.Cache.TTL.D())
	set := agents.NewSet(cfg.Agents, connector, knowledge)
	orch := orchestrator.New(connector, set, agentCache, excl, manager, promptStore, cfg.Cache, cfg.Agents)

	// 6. HTTP server
	server := api.NewServer(cfg, connector, orch, manager, promptLog, promptStore, excl)
	if err := server.Run(ctx); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("SmartRecover stopped")
}
