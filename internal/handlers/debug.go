package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"couple-service/internal/telemetry"
	"couple-service/internal/ws"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router gin.IRouter, emitter *telemetry.AuditEmitter, hub *ws.Hub, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), "INFO", "audit test", requestIDFromContext(c), userIDFromContext(c))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/debug/rooms/:chat_id", func(c *gin.Context) {
		chatID, err := strconv.Atoi(c.Param("chat_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
			return
		}
		if hub == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "hub not configured"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"chat_id": chatID,
			"chat":    hub.RoomSize(ws.KindChat, chatID),
			"game":    hub.RoomSize(ws.KindGame, chatID),
		})
	})
}
