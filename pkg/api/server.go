// Package api exposes the HTTP surface: incident queries, the resolve and
// chat flows, exclusion management, and the admin endpoints. Handlers are
// split per resource into handler_*.go files.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/smartrecover/pkg/config"
	"github.com/codeready-toolchain/smartrecover/pkg/connectors"
	"github.com/codeready-toolchain/smartrecover/pkg/exclusions"
	"github.com/codeready-toolchain/smartrecover/pkg/llm"
	"github.com/codeready-toolchain/smartrecover/pkg/orchestrator"
	"github.com/codeready-toolchain/smartrecover/pkg/prompts"
	"github.com/codeready-toolchain/smartrecover/pkg/version"
)

// Server holds the handler dependencies.
type Server struct {
	connector    connectors.IncidentConnector
	orchestrator *orchestrator.Orchestrator
	llm          *llm.Manager
	promptLog    *llm.PromptLog
	prompts      *prompts.Store
	exclusions   *exclusions.Store

	// loggingCfg is the admin-mutable logging configuration.
	mu         sync.Mutex
	loggingCfg config.LoggingConfig

	host              string
	port              int
	streamIdleTimeout time.Duration
}

// NewServer wires the handlers to their dependencies.
func NewServer(
	cfg *config.Config,
	connector connectors.IncidentConnector,
	orch *orchestrator.Orchestrator,
	manager *llm.Manager,
	promptLog *llm.PromptLog,
	promptStore *prompts.Store,
	excl *exclusions.Store,
) *Server {
	return &Server{
		connector:         connector,
		orchestrator:      orch,
		llm:               manager,
		promptLog:         promptLog,
		prompts:           promptStore,
		exclusions:        excl,
		loggingCfg:        cfg.Logging,
		host:              cfg.Server.Host,
		port:              cfg.Server.Port,
		streamIdleTimeout: cfg.LLM.StreamIdleTimeout.D(),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), corsMiddleware(), traceIDMiddleware())

	r.GET("/", s.Root)

	v1 := r.Group("/api/v1")
	v1.GET("/health", s.Health)

	v1.GET("/incidents", s.ListIncidents)
	v1.GET("/incidents/:id", s.GetIncident)
	v1.PUT("/incidents/:id/status", s.UpdateStatus)
	v1.GET("/incidents/:id/details", s.IncidentDetails)
	v1.POST("/incidents/:id/retrieve-context", s.RetrieveContext)

	v1.POST("/resolve", s.Resolve)
	v1.POST("/chat/stream", s.ChatStream)

	v1.POST("/incidents/:id/exclude-item", s.ExcludeItem)
	v1.GET("/incidents/:id/excluded-items", s.ListExcludedItems)
	v1.DELETE("/incidents/:id/excluded-items/:item_id", s.RemoveExcludedItem)

	admin := v1.Group("/admin")
	admin.GET("/llm-config", s.GetLLMConfig)
	admin.PUT("/llm-config", s.PutLLMConfig)
	admin.GET("/logging-config", s.GetLoggingConfig)
	admin.PUT("/logging-config", s.PutLoggingConfig)
	admin.GET("/agent-prompts", s.ListAgentPrompts)
	admin.GET("/agent-prompts/:agent", s.GetAgentPrompt)
	admin.PUT("/agent-prompts/:agent", s.PutAgentPrompt)
	admin.POST("/agent-prompts/reset", s.ResetAgentPrompts)
	admin.POST("/test-llm", s.TestLLM)
	admin.GET("/accuracy-metrics", s.AccuracyMetrics)
	admin.GET("/prompt-logs", s.ListPromptLogs)
	admin.DELETE("/prompt-logs", s.ClearPromptLogs)

	return r
}

// Root serves the service banner.
func (s *Server) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": version.AppName,
		"version": version.Version,
		"docs":    "/api/v1",
	})
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.host, s.port),
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	slog.Info("Shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}
