package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"couple-service/internal/observability"
)

// requestIDFromContext returns the id set by the request id middleware, falling
// back to the header or a fresh id for routes mounted without it.
func requestIDFromContext(c *gin.Context) string {
	if id := c.GetString(observability.RequestIDKey); id != "" {
		return id
	}

	requestID := observability.RequestIDFromRequest(c.Request)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(observability.RequestIDKey, requestID)
	return requestID
}

// userIDFromContext reads the caller authenticated by the auth middleware.
func userIDFromContext(c *gin.Context) *int64 {
	userID := c.GetInt("userID")
	if userID == 0 {
		return nil
	}
	value := int64(userID)
	return &value
}
