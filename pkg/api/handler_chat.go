package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/smartrecover/pkg/models"
)

// doneFrame terminates every SSE stream.
const doneFrame = "[DONE]"

// ChatStreamRequest is the body of POST /chat/stream.
type ChatStreamRequest struct {
	IncidentID          string                `json:"incident_id" binding:"required"`
	Message             string                `json:"message" binding:"required"`
	ConversationHistory []models.ChatMessage  `json:"conversation_history"`
	ExcludedItems       []models.ExcludedItem `json:"excluded_items"`
}

// ChatStream handles POST /chat/stream: an SSE response where every chunk
// is a `data:` frame and the final frame is [DONE]. Mid-stream errors are
// surfaced as a chunk, never by changing the HTTP status. Client
// disconnect cancels the underlying LLM stream via the request context.
func (s *Server) ChatStream(c *gin.Context) {
	var req ChatStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	// Exclusions sent with the request take effect before retrieval.
	for _, item := range req.ExcludedItems {
		s.exclusions.Exclude(req.IncidentID, item)
	}

	ctx := c.Request.Context()
	chunks, err := s.orchestrator.ChatStream(ctx, req.IncidentID, req.Message, req.ConversationHistory)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	writeFrame := func(payload string) {
		fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
		c.Writer.Flush()
	}

	idleTimeout := s.streamIdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Second
	}
	idle := time.NewTimer(idleTimeout)
	defer idle.Stop()

	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				writeFrame(doneFrame)
				return
			}
			if chunk.Err != nil {
				slog.ErrorContext(ctx, "Chat stream failed mid-stream",
					"incident_id", req.IncidentID, "error", chunk.Err)
				writeFrame("Error: " + chunk.Err.Error())
				writeFrame(doneFrame)
				return
			}
			if chunk.Content != "" {
				writeFrame(chunk.Content)
			}
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(idleTimeout)

		case <-idle.C:
			slog.WarnContext(ctx, "Chat stream idle timeout",
				"incident_id", req.IncidentID, "timeout", idleTimeout)
			writeFrame(fmt.Sprintf("Error: no response from LLM for %s", idleTimeout))
			writeFrame(doneFrame)
			return

		case <-ctx.Done():
			// Client disconnected; ctx cancellation aborts the LLM stream.
			slog.InfoContext(ctx, "Chat stream cancelled by client", "incident_id", req.IncidentID)
			return
		}
	}
}
