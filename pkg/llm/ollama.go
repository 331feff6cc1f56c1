package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/codeready-toolchain/smartrecover/pkg/config"
)

// OllamaClient talks to a local Ollama server's chat API. Streaming
// responses are newline-delimited JSON.
type OllamaClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

// NewOllamaClient creates a client; no credentials are needed.
func NewOllamaClient(cfg config.OllamaConfig) (*OllamaClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: ollama base_url", config.ErrMissingRequiredField)
	}
	return &OllamaClient{
		httpClient: &http.Client{Timeout: 0},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
	}, nil
}

func (c *OllamaClient) Name() string  { return "ollama" }
func (c *OllamaClient) Model() string { return c.model }

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error"`
}

func (c *OllamaClient) Complete(ctx context.Context, system string, msgs []Message) (string, error) {
	resp, err := c.post(ctx, ollamaChatRequest{
		Model:    c.model,
		Messages: c.buildMessages(system, msgs),
		Stream:   false,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var parsed ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrProviderFailed, err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrProviderFailed, parsed.Error)
	}
	return parsed.Message.Content, nil
}

func (c *OllamaClient) Stream(ctx context.Context, system string, msgs []Message) (<-chan StreamChunk, error) {
	resp, err := c.post(ctx, ollamaChatRequest{
		Model:    c.model,
		Messages: c.buildMessages(system, msgs),
		Stream:   true,
	})
	if err != nil {
		return nil, err
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			var parsed ollamaChatResponse
			if err := json.Unmarshal(scanner.Bytes(), &parsed); err != nil {
				continue
			}
			if parsed.Error != "" {
				select {
				case out <- StreamChunk{Err: fmt.Errorf("%w: %s", ErrProviderFailed, parsed.Error)}:
				case <-ctx.Done():
				}
				return
			}
			if parsed.Message.Content != "" {
				select {
				case out <- StreamChunk{Content: parsed.Message.Content}:
				case <-ctx.Done():
					return
				}
			}
			if parsed.Done {
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			select {
			case out <- StreamChunk{Err: fmt.Errorf("%w: %v", ErrProviderFailed, err)}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

func (c *OllamaClient) post(ctx context.Context, body ollamaChatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrProviderFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: Ollama returned HTTP %d: %s",
			ErrProviderFailed, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}

func (c *OllamaClient) buildMessages(system string, msgs []Message) []ollamaMessage {
	out := make([]ollamaMessage, 0, len(msgs)+1)
	if system != "" {
		out = append(out, ollamaMessage{Role: "system", Content: system})
	}
	for _, m := range msgs {
		role := "user"
		if m.Role == RoleAssistant {
			role = "assistant"
		}
		out = append(out, ollamaMessage{Role: role, Content: m.Content})
	}
	return out
}
