// Package llm abstracts the LLM backends behind a blocking completion call
// and a token-streaming call. Providers: OpenAI, Gemini, Ollama. The
// Manager adds runtime provider hot-swap and prompt logging.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/codeready-toolchain/smartrecover/pkg/config"
)

// ErrProviderFailed indicates the backend returned an error or garbage.
var ErrProviderFailed = errors.New("llm provider request failed")

// Message is one conversation turn sent to the provider.
type Message struct {
	Role    string
	Content string
}

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// StreamChunk is one streamed token batch. Err is set on the terminal chunk
// when the stream failed mid-way.
type StreamChunk struct {
	Content string
	Err     error
}

// Client is the capability set every provider implements. Stream returns a
// finite single-shot channel that is closed when the response completes;
// cancelling ctx aborts the underlying request.
type Client interface {
	Name() string
	Model() string
	Complete(ctx context.Context, system string, msgs []Message) (string, error)
	Stream(ctx context.Context, system string, msgs []Message) (<-chan StreamChunk, error)
}

// NewClient builds the provider selected by the configuration.
func NewClient(cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg.OpenAI)
	case config.ProviderGemini:
		return NewGeminiClient(cfg.Gemini)
	case config.ProviderOllama:
		return NewOllamaClient(cfg.Ollama)
	default:
		return nil, fmt.Errorf("%w: llm provider %q", config.ErrInvalidValue, cfg.Provider)
	}
}
