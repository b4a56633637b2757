package ws

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/gin-gonic/gin"

	"couple-service/internal/middleware"
	"couple-service/internal/observability"
)

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

// authenticate reads the token from the Authorization header or, for browsers that
// cannot set headers on a socket, from the token query parameter.
func authenticate(c *gin.Context, validator middleware.TokenValidator) (int, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if token := c.Query("token"); token != "" {
			return validator.ValidateToken(token)
		}
	}
	token, err := middleware.BearerToken(header)
	if err != nil {
		return 0, err
	}
	return validator.ValidateToken(token)
}

func publishWSEvent(ctx context.Context, kind string, resourceID int, event string, info ConnInfo, reason string) {
	duration := int64(0)
	if event != "ws_connect" {
		duration = time.Since(info.ConnectedAt).Milliseconds()
	}
	observability.IncWSEvent(kind, event)
	_ = observability.PublishEvent(ctx, observability.WSRoutingKey(kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"kind":        kind,
				"resource_id": resourceID,
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": duration,
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
