package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"couple-service/internal/middleware"
	"couple-service/internal/observability"
	"couple-service/internal/repositories"
)

// GameWebSocketHandler relays mini-game frames between the partners of a chat.
type GameWebSocketHandler struct {
	hub       *Hub
	chatRepo  repositories.ChatRepository
	validator middleware.TokenValidator

	loops sync.WaitGroup
}

// NewGameWebSocketHandler constructs a GameWebSocketHandler.
func NewGameWebSocketHandler(hub *Hub, chatRepo repositories.ChatRepository, validator middleware.TokenValidator) *GameWebSocketHandler {
	return &GameWebSocketHandler{hub: hub, chatRepo: chatRepo, validator: validator}
}

// Handle upgrades the connection and relays every JSON object frame to the other
// connections of the couple.
func (h *GameWebSocketHandler) Handle(c *gin.Context) {
	h.loops.Add(1)
	chatID, client, ok := accept(c, KindGame, h.validator, h.chatRepo)
	if !ok {
		h.loops.Done()
		return
	}
	info := client.Info()
	ctx := context.WithoutCancel(c.Request.Context())

	h.hub.AddGameClient(chatID, client)
	observability.IncWSActive(KindGame)
	publishWSEvent(ctx, KindGame, chatID, "ws_connect", info, "")

	go func() {
		defer h.loops.Done()
		var closeReason string
		defer func() {
			h.hub.RemoveGameClient(chatID, client)
			observability.DecWSActive(KindGame)
			publishWSEvent(ctx, KindGame, chatID, "ws_disconnect", info, closeReason)
			_ = client.Close()
		}()
		for {
			msgType, raw, err := client.conn.ReadMessage()
			if err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					publishWSEvent(ctx, KindGame, chatID, "ws_error", info, closeReason)
				}
				return
			}
			if msgType != websocket.TextMessage || !isJSONObject(raw) {
				_ = client.WriteJSON(ServerFrame{Type: FrameError, Error: "game frames must be JSON objects"})
				continue
			}
			h.hub.RelayGameMessage(chatID, client, raw)
		}
	}()
}

// Wait blocks until every read loop started by Handle has finished.
func (h *GameWebSocketHandler) Wait() {
	h.loops.Wait()
}

func isJSONObject(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed)
}
