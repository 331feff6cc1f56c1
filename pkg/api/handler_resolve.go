package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ResolveRequest is the body of POST /resolve.
type ResolveRequest struct {
	IncidentID string `json:"incident_id" binding:"required"`
	UserQuery  string `json:"user_query"`
}

// Resolve handles POST /resolve: runs the retrieval graph plus blocking
// LLM synthesis and returns the structured resolution.
func (s *Server) Resolve(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	slog.InfoContext(c.Request.Context(), "Resolving incident", "incident_id", req.IncidentID, "user_query", req.UserQuery)
	response, err := s.orchestrator.Resolve(c.Request.Context(), req.IncidentID, req.UserQuery)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}
