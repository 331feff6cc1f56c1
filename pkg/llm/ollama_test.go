package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/smartrecover/pkg/config"
)

func newOllamaTestClient(t *testing.T, handler http.HandlerFunc) *OllamaClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewOllamaClient(config.OllamaConfig{BaseURL: srv.URL, Model: "llama3.1"})
	require.NoError(t, err)
	return c
}

func TestOllamaComplete(t *testing.T) {
	c := newOllamaTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.1", req.Model)
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: ollamaMessage{Role: "assistant", Content: "Restart the pods."},
			Done:    true,
		})
	})

	reply, err := c.Complete(t.Context(), "You are a triage assistant.",
		[]Message{{Role: RoleUser, Content: "What should I do?"}})
	require.NoError(t, err)
	assert.Equal(t, "Restart the pods.", reply)
}

func TestOllamaCompleteHTTPError(t *testing.T) {
	c := newOllamaTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	})
	_, err := c.Complete(t.Context(), "", []Message{{Role: RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, ErrProviderFailed)
}

func TestOllamaStream(t *testing.T) {
	c := newOllamaTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		enc := json.NewEncoder(w)
		enc.Encode(ollamaChatResponse{Message: ollamaMessage{Content: "Hello"}})
		enc.Encode(ollamaChatResponse{Message: ollamaMessage{Content: " world"}})
		enc.Encode(ollamaChatResponse{Done: true})
	})

	ch, err := c.Stream(t.Context(), "", []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)

	var got []string
	for chunk := range ch {
		require.NoError(t, chunk.Err)
		got = append(got, chunk.Content)
	}
	assert.Equal(t, []string{"Hello", " world"}, got)
}

func TestOllamaStreamError(t *testing.T) {
	c := newOllamaTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaChatResponse{Message: ollamaMessage{Content: "partial"}})
		json.NewEncoder(w).Encode(ollamaChatResponse{Error: "backend overloaded"})
	})

	ch, err := c.Stream(t.Context(), "", []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)

	var chunks []StreamChunk
	for chunk := range ch {
		chunks = append(chunks, chunk)
	}
	require.Len(t, chunks, 2)
	assert.Equal(t, "partial", chunks[0].Content)
	assert.ErrorIs(t, chunks[1].Err, ErrProviderFailed)
}

func TestOllamaStreamCancellation(t *testing.T) {
	release := make(chan struct{})
	c := newOllamaTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaChatResponse{Message: ollamaMessage{Content: "first"}})
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(t.Context())
	ch, err := c.Stream(ctx, "", []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)

	first := <-ch
	assert.Equal(t, "first", first.Content)
	cancel()

	select {
	case _, open := <-ch:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("stream not closed after cancellation")
	}
}
