package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/smartrecover/pkg/config"
	"github.com/codeready-toolchain/smartrecover/pkg/logging"
	"github.com/codeready-toolchain/smartrecover/pkg/masking"
)

// GetLLMConfig handles GET /admin/llm-config. API keys are masked.
func (s *Server) GetLLMConfig(c *gin.Context) {
	cfg := s.llm.Config()
	c.JSON(http.StatusOK, gin.H{
		"provider": cfg.Provider,
		"openai": gin.H{
			"model":    cfg.OpenAI.Model,
			"base_url": cfg.OpenAI.BaseURL,
			"api_key":  maskKey(cfg.OpenAI.APIKey),
		},
		"gemini": gin.H{
			"model":    cfg.Gemini.Model,
			"base_url": cfg.Gemini.BaseURL,
			"api_key":  maskKey(cfg.Gemini.APIKey),
		},
		"ollama": gin.H{
			"base_url": cfg.Ollama.BaseURL,
			"model":    cfg.Ollama.Model,
		},
	})
}

// LLMConfigRequest is the body of PUT /admin/llm-config. Only the fields
// present override the active configuration.
type LLMConfigRequest struct {
	Provider string `json:"provider" binding:"required"`
	OpenAI   *struct {
		APIKey  string `json:"api_key"`
		Model   string `json:"model"`
		BaseURL string `json:"base_url"`
	} `json:"openai"`
	Gemini *struct {
		APIKey  string `json:"api_key"`
		Model   string `json:"model"`
		BaseURL string `json:"base_url"`
	} `json:"gemini"`
	Ollama *struct {
		BaseURL string `json:"base_url"`
		Model   string `json:"model"`
	} `json:"ollama"`
}

// PutLLMConfig handles PUT /admin/llm-config: hot-swaps the provider.
// In-flight requests keep the previous instance.
func (s *Server) PutLLMConfig(c *gin.Context) {
	var req LLMConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	cfg := s.llm.Config()
	cfg.Provider = config.LLMProvider(req.Provider)
	if !cfg.Provider.IsValid() {
		detail(c, http.StatusBadRequest, fmt.Sprintf("invalid llm provider %q", req.Provider))
		return
	}
	if req.OpenAI != nil {
		applyIfSet(&cfg.OpenAI.APIKey, req.OpenAI.APIKey)
		applyIfSet(&cfg.OpenAI.Model, req.OpenAI.Model)
		applyIfSet(&cfg.OpenAI.BaseURL, req.OpenAI.BaseURL)
	}
	if req.Gemini != nil {
		applyIfSet(&cfg.Gemini.APIKey, req.Gemini.APIKey)
		applyIfSet(&cfg.Gemini.Model, req.Gemini.Model)
		applyIfSet(&cfg.Gemini.BaseURL, req.Gemini.BaseURL)
	}
	if req.Ollama != nil {
		applyIfSet(&cfg.Ollama.BaseURL, req.Ollama.BaseURL)
		applyIfSet(&cfg.Ollama.Model, req.Ollama.Model)
	}

	if err := s.llm.SetProvider(cfg); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"provider": cfg.Provider,
		"model":    s.llm.Client().Model(),
	})
}

// GetLoggingConfig handles GET /admin/logging-config.
func (s *Server) GetLoggingConfig(c *gin.Context) {
	s.mu.Lock()
	cfg := s.loggingCfg
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"level":          cfg.Level,
		"enable_tracing": cfg.EnableTracing,
		"file":           cfg.File,
		"max_size_mb":    cfg.MaxSizeMB,
		"max_backups":    cfg.MaxBackups,
	})
}

// LoggingConfigRequest is the body of PUT /admin/logging-config.
type LoggingConfigRequest struct {
	Level         *string `json:"level"`
	EnableTracing *bool   `json:"enable_tracing"`
}

// PutLoggingConfig handles PUT /admin/logging-config: adjusts the active
// log level and tracing flag without restart.
func (s *Server) PutLoggingConfig(c *gin.Context) {
	var req LoggingConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Level != nil {
		level := config.LogLevel(*req.Level)
		if !level.IsValid() {
			detail(c, http.StatusBadRequest, fmt.Sprintf("invalid log level %q", *req.Level))
			return
		}
		s.loggingCfg.Level = level
		logging.SetLevel(level)
		slog.InfoContext(c.Request.Context(), "Log level changed", "level", level)
	}
	if req.EnableTracing != nil {
		s.loggingCfg.EnableTracing = *req.EnableTracing
		logging.SetTracing(*req.EnableTracing)
		slog.InfoContext(c.Request.Context(), "Tracing toggled", "enabled", *req.EnableTracing)
	}

	c.JSON(http.StatusOK, gin.H{
		"level":          s.loggingCfg.Level,
		"enable_tracing": s.loggingCfg.EnableTracing,
	})
}

// ListAgentPrompts handles GET /admin/agent-prompts.
func (s *Server) ListAgentPrompts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"prompts": s.prompts.List()})
}

// GetAgentPrompt handles GET /admin/agent-prompts/:agent.
func (s *Server) GetAgentPrompt(c *gin.Context) {
	rec, err := s.prompts.Record(c.Param("agent"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// AgentPromptRequest is the body of PUT /admin/agent-prompts/:agent.
type AgentPromptRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// PutAgentPrompt handles PUT /admin/agent-prompts/:agent.
func (s *Server) PutAgentPrompt(c *gin.Context) {
	var req AgentPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	agent := c.Param("agent")
	if err := s.prompts.Put(agent, req.Prompt); err != nil {
		respondError(c, err)
		return
	}
	rec, err := s.prompts.Record(agent)
	if err != nil {
		respondError(c, err)
		return
	}
	slog.InfoContext(c.Request.Context(), "Agent prompt updated", "agent", agent, "is_custom", rec.IsCustom)
	c.JSON(http.StatusOK, rec)
}

// ResetAgentPrompts handles POST /admin/agent-prompts/reset. Without an
// agent_name query parameter every prompt is reset.
func (s *Server) ResetAgentPrompts(c *gin.Context) {
	agent := c.Query("agent_name")
	if agent == "" {
		if err := s.prompts.ResetAll(); err != nil {
			respondError(c, err)
			return
		}
		slog.InfoContext(c.Request.Context(), "All agent prompts reset")
		c.JSON(http.StatusOK, gin.H{"reset": "all"})
		return
	}

	if err := s.prompts.Reset(agent); err != nil {
		respondError(c, err)
		return
	}
	slog.InfoContext(c.Request.Context(), "Agent prompt reset", "agent", agent)
	c.JSON(http.StatusOK, gin.H{"reset": agent})
}

// TestLLMRequest is the body of POST /admin/test-llm.
type TestLLMRequest struct {
	Message string `json:"message"`
}

// TestLLM handles POST /admin/test-llm: sends a probe message to the
// active provider. Failures are reported in the body, not the status.
func (s *Server) TestLLM(c *gin.Context) {
	var req TestLLMRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			detail(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	provider, model, testMessage, reply, err := s.llm.Test(c.Request.Context(), req.Message)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "LLM test failed", "provider", provider, "error", err)
		c.JSON(http.StatusOK, gin.H{
			"status":       "error",
			"provider":     provider,
			"model":        model,
			"test_message": testMessage,
			"llm_response": "",
			"error":        masking.RedactText(err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "success",
		"provider":     provider,
		"model":        model,
		"test_message": testMessage,
		"llm_response": reply,
	})
}

// AccuracyMetrics handles GET /admin/accuracy-metrics.
func (s *Server) AccuracyMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.exclusions.Metrics())
}

// ListPromptLogs handles GET /admin/prompt-logs, newest first.
func (s *Server) ListPromptLogs(c *gin.Context) {
	entries := s.promptLog.List()
	c.JSON(http.StatusOK, gin.H{"prompt_logs": entries, "count": len(entries)})
}

// ClearPromptLogs handles DELETE /admin/prompt-logs.
func (s *Server) ClearPromptLogs(c *gin.Context) {
	s.promptLog.Clear()
	slog.InfoContext(c.Request.Context(), "Prompt logs cleared")
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	return masking.MaskedValue
}

func applyIfSet(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
