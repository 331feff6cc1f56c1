package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/codeready-toolchain/smartrecover/pkg/config"
	"github.com/codeready-toolchain/smartrecover/pkg/logging"
	"github.com/codeready-toolchain/smartrecover/pkg/models"
)

// contextSummaryLimit bounds the context excerpt stored in the prompt log.
const contextSummaryLimit = 200

// LogMeta carries the prompt-log fields for one invocation.
type LogMeta struct {
	IncidentID     string
	PromptType     string
	ContextSummary string
	History        []models.ChatMessage
}

// Manager wraps the active provider with hot-swap semantics and prompt
// logging. Calls snapshot the client under RLock, then release before the
// network operation, so a swap never waits on an in-flight call.
type Manager struct {
	mu        sync.RWMutex
	client    Client
	cfg       config.LLMConfig
	promptLog *PromptLog
}

// NewManager builds the configured provider.
func NewManager(cfg config.LLMConfig, promptLog *PromptLog) (*Manager, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Manager{client: client, cfg: cfg, promptLog: promptLog}, nil
}

// NewManagerWithClient wraps an already-constructed client.
func NewManagerWithClient(client Client, cfg config.LLMConfig, promptLog *PromptLog) *Manager {
	return &Manager{client: client, cfg: cfg, promptLog: promptLog}
}

// Client returns the active provider instance.
func (m *Manager) Client() Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

// Config returns a copy of the active LLM configuration.
func (m *Manager) Config() config.LLMConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// SetProvider swaps in a new provider built from cfg. In-flight calls keep
// using the previous instance.
func (m *Manager) SetProvider(cfg config.LLMConfig) error {
	client, err := NewClient(cfg)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.client = client
	m.cfg = cfg
	m.mu.Unlock()
	slog.Info("LLM provider switched", "provider", client.Name(), "model", client.Model())
	return nil
}

// Complete runs a blocking completion under the configured timeout and
// records the prompt.
func (m *Manager) Complete(ctx context.Context, system string, msgs []Message, meta LogMeta) (string, error) {
	m.mu.RLock()
	client, timeout := m.client, m.cfg.Timeout.D()
	m.mu.RUnlock()

	m.logPrompt(system, msgs, meta)

	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	done := logging.Trace(ctx, "llm.complete", map[string]any{
		"provider": client.Name(), "model": client.Model(), "prompt_type": meta.PromptType,
	})
	reply, err := client.Complete(ctx, system, msgs)
	done(err)
	return reply, err
}

// Stream starts a streaming completion and records the prompt. The caller
// owns chunk-idle timeout enforcement.
func (m *Manager) Stream(ctx context.Context, system string, msgs []Message, meta LogMeta) (<-chan StreamChunk, error) {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()

	m.logPrompt(system, msgs, meta)
	done := logging.Trace(ctx, "llm.stream", map[string]any{
		"provider": client.Name(), "model": client.Model(), "prompt_type": meta.PromptType,
	})
	chunks, err := client.Stream(ctx, system, msgs)
	done(err)
	return chunks, err
}

// Test sends a probe message to the active provider and returns its reply.
// An empty message uses a canned probe.
func (m *Manager) Test(ctx context.Context, message string) (provider, model, testMessage, reply string, err error) {
	m.mu.RLock()
	client, timeout := m.client, m.cfg.Timeout.D()
	m.mu.RUnlock()

	testMessage = message
	if testMessage == "" {
		testMessage = "Reply with a short confirmation that you are reachable."
	}
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	reply, err = client.Complete(ctx, "", []Message{{Role: RoleUser, Content: testMessage}})
	return client.Name(), client.Model(), testMessage, reply, err
}

// logPrompt records the invocation. Failure to log never fails the call.
func (m *Manager) logPrompt(system string, msgs []Message, meta LogMeta) {
	if m.promptLog == nil {
		return
	}
	userMessage := ""
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			userMessage = msgs[i].Content
			break
		}
	}
	m.promptLog.Append(models.PromptLogEntry{
		IncidentID:          meta.IncidentID,
		PromptType:          meta.PromptType,
		SystemPrompt:        system,
		UserMessage:         userMessage,
		ContextSummary:      truncate(meta.ContextSummary, contextSummaryLimit),
		ConversationHistory: meta.History,
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
