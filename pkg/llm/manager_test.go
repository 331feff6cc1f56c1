package llm

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/smartrecover/pkg/config"
	"github.com/codeready-toolchain/smartrecover/pkg/models"
)

type stubClient struct {
	name  string
	reply string
}

func (s *stubClient) Name() string  { return s.name }
func (s *stubClient) Model() string { return "stub-model" }

func (s *stubClient) Complete(context.Context, string, []Message) (string, error) {
	return s.reply, nil
}

func (s *stubClient) Stream(ctx context.Context, _ string, _ []Message) (<-chan StreamChunk, error) {
	out := make(chan StreamChunk, 1)
	out <- StreamChunk{Content: s.reply}
	close(out)
	return out, nil
}

func newStubManager(reply string) *Manager {
	return &Manager{
		client:    &stubClient{name: "stub", reply: reply},
		cfg:       config.LLMConfig{Provider: config.ProviderOllama},
		promptLog: NewPromptLog(10),
	}
}

func TestManagerCompleteLogsPrompt(t *testing.T) {
	m := newStubManager("done")

	reply, err := m.Complete(t.Context(), "system prompt",
		[]Message{{Role: RoleUser, Content: "what happened?"}},
		LogMeta{IncidentID: "INC001", PromptType: models.PromptTypeSynthesis, ContextSummary: "ctx"})
	require.NoError(t, err)
	assert.Equal(t, "done", reply)

	entries := m.promptLog.List()
	require.Len(t, entries, 1)
	assert.Equal(t, "INC001", entries[0].IncidentID)
	assert.Equal(t, models.PromptTypeSynthesis, entries[0].PromptType)
	assert.Equal(t, "what happened?", entries[0].UserMessage)
	assert.NotEmpty(t, entries[0].ID)
}

func TestManagerContextSummaryTruncated(t *testing.T) {
	m := newStubManager("ok")
	long := ""
	for i := 0; i < 30; i++ {
		long += "0123456789"
	}

	_, err := m.Complete(t.Context(), "", []Message{{Role: RoleUser, Content: "q"}},
		LogMeta{ContextSummary: long})
	require.NoError(t, err)

	entries := m.promptLog.List()
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].ContextSummary, contextSummaryLimit+3)
}

func TestManagerSetProviderHotSwap(t *testing.T) {
	m := newStubManager("ok")
	old := m.Client()

	err := m.SetProvider(config.LLMConfig{
		Provider: config.ProviderOllama,
		Ollama:   config.OllamaConfig{BaseURL: "http://localhost:11434", Model: "mistral"},
	})
	require.NoError(t, err)
	assert.NotEqual(t, old, m.Client())
	assert.Equal(t, "ollama", m.Client().Name())
	assert.Equal(t, "mistral", m.Client().Model())
}

func TestManagerSetProviderInvalidKeepsOld(t *testing.T) {
	m := newStubManager("ok")
	old := m.Client()

	err := m.SetProvider(config.LLMConfig{Provider: "carrier-pigeon"})
	require.Error(t, err)
	assert.Equal(t, old, m.Client())
}

func TestPromptLogBounded(t *testing.T) {
	l := NewPromptLog(3)
	for i := 0; i < 5; i++ {
		l.Append(models.PromptLogEntry{UserMessage: fmt.Sprintf("m%d", i)})
	}
	entries := l.List()
	require.Len(t, entries, 3)
	// Newest first; the two oldest were dropped.
	assert.Equal(t, "m4", entries[0].UserMessage)
	assert.Equal(t, "m2", entries[2].UserMessage)
}

func TestPromptLogClear(t *testing.T) {
	l := NewPromptLog(3)
	l.Append(models.PromptLogEntry{})
	l.Clear()
	assert.Equal(t, 0, l.Len())
}
