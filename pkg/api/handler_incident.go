package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/smartrecover/pkg/models"
)

// ListIncidents handles GET /incidents.
func (s *Server) ListIncidents(c *gin.Context) {
	incidents, err := s.connector.ListIncidents(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, incidents)
}

// GetIncident handles GET /incidents/:id.
func (s *Server) GetIncident(c *gin.Context) {
	incident, err := s.connector.GetIncident(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, incident)
}

// StatusUpdateRequest is the body of PUT /incidents/:id/status.
type StatusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus handles PUT /incidents/:id/status.
func (s *Server) UpdateStatus(c *gin.Context) {
	var req StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	status := models.Status(req.Status)
	if !status.Valid() {
		detail(c, http.StatusBadRequest, fmt.Sprintf("invalid status %q", req.Status))
		return
	}

	incident, err := s.connector.UpdateStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		respondError(c, err)
		return
	}
	slog.InfoContext(c.Request.Context(), "Incident status updated", "incident_id", incident.ID, "status", status)
	c.JSON(http.StatusOK, incident)
}

// IncidentDetails handles GET /incidents/:id/details. Agent results come
// from the cache when present; retrieval is never triggered here.
func (s *Server) IncidentDetails(c *gin.Context) {
	id := c.Param("id")

	incident, err := s.connector.GetIncident(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	var agentResults *models.AgentData
	if data, ok := s.orchestrator.CachedAgentData(id); ok {
		agentResults = data
	}
	c.JSON(http.StatusOK, gin.H{
		"incident":      incident,
		"agent_results": agentResults,
	})
}

// RetrieveContext handles POST /incidents/:id/retrieve-context: runs the
// retrieval graph without synthesis and returns the gathered data.
func (s *Server) RetrieveContext(c *gin.Context) {
	data, err := s.orchestrator.RetrieveContext(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}
