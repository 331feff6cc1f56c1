package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/smartrecover/pkg/logging"
)

// traceIDHeader carries the per-request trace identifier.
const traceIDHeader = "X-Trace-ID"

// corsMiddleware allows all origins; the UI runs on a separate port.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, "+traceIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// traceIDMiddleware honors an inbound X-Trace-ID or generates one, attaches
// it to the request context, and echoes it in the response.
func traceIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(traceIDHeader)
		if traceID == "" {
			traceID = logging.NewTraceID()
		}
		c.Request = c.Request.WithContext(logging.ContextWithTraceID(c.Request.Context(), traceID))
		c.Header(traceIDHeader, traceID)
		c.Next()
	}
}
