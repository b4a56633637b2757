package ws

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"couple-service/internal/ephemeral"
	"couple-service/internal/middleware"
	"couple-service/internal/observability"
	"couple-service/internal/presence"
	"couple-service/internal/repositories"
	"couple-service/internal/storage"
)

const maxFrameBytes = 64 << 10

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ChatWebSocketHandler handles chat websocket connections.
type ChatWebSocketHandler struct {
	hub         *Hub
	chatRepo    repositories.ChatRepository
	messageRepo repositories.MessageRepository
	validator   middleware.TokenValidator
	presence    presence.Tracker
	links       storage.Presigner
	clock       ephemeral.Clock

	loops sync.WaitGroup
}

// NewChatWebSocketHandler constructs a ChatWebSocketHandler. tracker and links may be nil.
func NewChatWebSocketHandler(hub *Hub, chatRepo repositories.ChatRepository, messageRepo repositories.MessageRepository,
	validator middleware.TokenValidator, tracker presence.Tracker, links storage.Presigner, clock ephemeral.Clock) *ChatWebSocketHandler {
	if tracker == nil {
		tracker = presence.Noop{}
	}
	if clock == nil {
		clock = ephemeral.SystemClock{}
	}
	return &ChatWebSocketHandler{
		hub:         hub,
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		validator:   validator,
		presence:    tracker,
		links:       links,
		clock:       clock,
	}
}

// Handle upgrades the connection, registers the client and serves the reveal protocol.
func (h *ChatWebSocketHandler) Handle(c *gin.Context) {
	h.loops.Add(1)
	chatID, client, ok := accept(c, KindChat, h.validator, h.chatRepo)
	if !ok {
		h.loops.Done()
		return
	}
	info := client.Info()
	ctx := context.WithoutCancel(c.Request.Context())

	h.hub.AddChatClient(chatID, client)
	if err := h.presence.Connect(ctx, info.UserID, info.ConnID); err != nil {
		zap.L().Warn("presence connect failed", append(info.Fields(), zap.Error(err))...)
	}
	stopHeartbeat := h.heartbeat(ctx, info)
	observability.IncWSActive(KindChat)
	publishWSEvent(ctx, KindChat, chatID, "ws_connect", info, "")

	session := NewRevealSession(chatID, info.UserID, client, h.messageRepo, h.links, h.clock)

	go func() {
		defer h.loops.Done()
		var closeReason string
		defer func() {
			session.Close()
			stopHeartbeat()
			h.hub.RemoveChatClient(chatID, client)
			if err := h.presence.Disconnect(ctx, info.UserID, info.ConnID); err != nil {
				zap.L().Warn("presence disconnect failed", append(info.Fields(), zap.Error(err))...)
			}
			observability.DecWSActive(KindChat)
			publishWSEvent(ctx, KindChat, chatID, "ws_disconnect", info, closeReason)
			_ = client.Close()
		}()
		for {
			_, raw, err := client.conn.ReadMessage()
			if err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					publishWSEvent(ctx, KindChat, chatID, "ws_error", info, closeReason)
				}
				return
			}
			if err := session.HandleFrame(ctx, raw); err != nil {
				_ = client.WriteJSON(ServerFrame{Type: FrameError, Error: err.Error()})
			}
		}
	}()
}

// heartbeat keeps the socket counted as present while it stays open.
func (h *ChatWebSocketHandler) heartbeat(ctx context.Context, info ConnInfo) (stop func()) {
	interval := h.presence.Interval()
	if interval <= 0 {
		return func() {}
	}
	return h.clock.Every(interval, func() {
		if err := h.presence.Refresh(ctx, info.UserID, info.ConnID); err != nil {
			zap.L().Warn("presence refresh failed", append(info.Fields(), zap.Error(err))...)
		}
	})
}

// Wait blocks until every read loop started by Handle has finished.
func (h *ChatWebSocketHandler) Wait() {
	h.loops.Wait()
}

// accept authenticates the handshake, checks membership and upgrades the connection.
// It writes the HTTP error itself when ok is false.
func accept(c *gin.Context, kind string, validator middleware.TokenValidator, chats repositories.ChatRepository) (int, *Client, bool) {
	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return 0, nil, false
	}

	ctx, span := otel.Tracer("couple-service/ws").Start(c.Request.Context(), "ws.handshake."+kind)
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, err := authenticate(c, validator)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return 0, nil, false
	}

	member, err := chats.IsParticipant(ctx, chatID, userID)
	if err != nil || !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for chat"})
		return 0, nil, false
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return 0, nil, false
	}
	conn.SetReadLimit(maxFrameBytes)

	info := ConnInfo{
		ConnID:      newConnID(),
		Kind:        kind,
		ChatID:      chatID,
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	return chatID, NewClient(conn, info), true
}
