package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/smartrecover/pkg/config"
	"github.com/codeready-toolchain/smartrecover/pkg/connectors"
	"github.com/codeready-toolchain/smartrecover/pkg/connectors/kb"
	"github.com/codeready-toolchain/smartrecover/pkg/llm"
	"github.com/codeready-toolchain/smartrecover/pkg/prompts"
)

// respondError maps domain errors to HTTP responses with a {"detail": ...}
// body.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, connectors.ErrNotFound), errors.Is(err, kb.ErrNotFound):
		detail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, config.ErrInvalidValue), errors.Is(err, config.ErrMissingRequiredField),
		errors.Is(err, prompts.ErrUnknownAgent):
		detail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, connectors.ErrUpstream), errors.Is(err, kb.ErrUpstream),
		errors.Is(err, llm.ErrProviderFailed):
		detail(c, http.StatusBadGateway, err.Error())
	default:
		slog.ErrorContext(c.Request.Context(), "Unexpected handler error", "error", err)
		detail(c, http.StatusInternalServerError, "internal server error")
	}
}

// detail writes the error body shape shared by every endpoint.
func detail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"detail": msg})
}
