package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/smartrecover/pkg/models"
)

// ExcludeItemRequest is the body of POST /incidents/:id/exclude-item.
type ExcludeItemRequest struct {
	ItemID string `json:"item_id" binding:"required"`
	Kind   string `json:"kind" binding:"required"`
	Source string `json:"source"`
}

// ExcludeItem handles POST /incidents/:id/exclude-item.
func (s *Server) ExcludeItem(c *gin.Context) {
	var req ExcludeItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	id := c.Param("id")
	if _, err := s.connector.GetIncident(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	item := models.ExcludedItem{ItemID: req.ItemID, Kind: req.Kind, Source: req.Source}
	s.exclusions.Exclude(id, item)
	slog.InfoContext(c.Request.Context(), "Item excluded", "incident_id", id, "item_id", req.ItemID, "kind", req.Kind)
	c.JSON(http.StatusOK, gin.H{"excluded": item})
}

// ListExcludedItems handles GET /incidents/:id/excluded-items.
func (s *Server) ListExcludedItems(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"excluded_items": s.exclusions.List(c.Param("id"))})
}

// RemoveExcludedItem handles DELETE /incidents/:id/excluded-items/:item_id.
func (s *Server) RemoveExcludedItem(c *gin.Context) {
	id, itemID := c.Param("id"), c.Param("item_id")
	if !s.exclusions.Remove(id, itemID) {
		detail(c, http.StatusNotFound, "excluded item not found")
		return
	}
	slog.InfoContext(c.Request.Context(), "Item exclusion removed", "incident_id", id, "item_id", itemID)
	c.JSON(http.StatusOK, gin.H{"removed": itemID})
}
