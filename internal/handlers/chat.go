package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"couple-service/internal/ephemeral"
	"couple-service/internal/models"
	"couple-service/internal/presence"
	"couple-service/internal/repositories"
	"couple-service/internal/storage"
	"couple-service/internal/telemetry"
	"couple-service/internal/ws"
)

// ChatHandler manages couple chat endpoints.
type ChatHandler struct {
	chatRepo    repositories.ChatRepository
	messageRepo repositories.MessageRepository
	profileRepo repositories.ProfileRepository
	presence    presence.Tracker
	links       storage.Presigner
	hub         *ws.Hub
	audit       *telemetry.AuditEmitter
	now         func() time.Time
}

// NewChatHandler builds a ChatHandler. tracker, links, hub and audit may be nil.
func NewChatHandler(chatRepo repositories.ChatRepository, messageRepo repositories.MessageRepository, profileRepo repositories.ProfileRepository,
	tracker presence.Tracker, links storage.Presigner, hub *ws.Hub, audit *telemetry.AuditEmitter) *ChatHandler {
	if tracker == nil {
		tracker = presence.Noop{}
	}
	return &ChatHandler{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		profileRepo: profileRepo,
		presence:    tracker,
		links:       links,
		hub:         hub,
		audit:       audit,
		now:         time.Now,
	}
}

type chatResponse struct {
	ChatID        int       `json:"chat_id"`
	PartnerID     int       `json:"partner_id"`
	PartnerName   string    `json:"partner_name,omitempty"`
	PartnerOnline bool      `json:"partner_online"`
	CreatedAt     time.Time `json:"created_at"`
}

// messageResponse is a stored message projected for one reader at one instant.
type messageResponse struct {
	models.Message
	SenderName       string `json:"sender_name,omitempty"`
	MediaURL         string `json:"media_url,omitempty"`
	SecondsRemaining *int   `json:"seconds_remaining,omitempty"`
	Countdown        string `json:"countdown,omitempty"`
	Expired          bool   `json:"expired"`
	Highlighted      bool   `json:"highlighted,omitempty"`
}

// ListChats returns the chats visible to the authenticated user.
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID := c.GetInt("userID")
	ctx := c.Request.Context()

	chats, err := h.chatRepo.ListChats(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}

	partnerIDs := make([]int, 0, len(chats))
	for _, chat := range chats {
		partnerIDs = append(partnerIDs, chat.PartnerID)
	}
	names, err := h.displayNames(ctx, partnerIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profiles"})
		return
	}

	responses := make([]chatResponse, 0, len(chats))
	for _, chat := range chats {
		online, err := h.presence.IsOnline(ctx, chat.PartnerID)
		if err != nil {
			zap.L().Warn("presence lookup failed", zap.Int("user_id", chat.PartnerID), zap.Error(err))
		}
		responses = append(responses, chatResponse{
			ChatID:        chat.ChatID,
			PartnerID:     chat.PartnerID,
			PartnerName:   names[chat.PartnerID],
			PartnerOnline: online,
			CreatedAt:     chat.Created,
		})
	}

	c.JSON(http.StatusOK, gin.H{"chats": responses})
}

// StartChat creates or returns the chat between the caller and a partner.
func (h *ChatHandler) StartChat(c *gin.Context) {
	var req struct {
		FriendID int `json:"friend_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if userID == req.FriendID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot chat with yourself"})
		return
	}

	chat, err := h.chatRepo.CreateOrGetChat(c.Request.Context(), userID, req.FriendID)
	if err != nil {
		if errors.Is(err, repositories.ErrSelfChat) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot chat with yourself"})
			return
		}
		h.emitAudit(c, "ERROR", "internal error", 0)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create chat"})
		return
	}

	h.emitAudit(c, "INFO", "Chat started", chat.ID)
	c.JSON(http.StatusOK, gin.H{"chat_id": chat.ID})
}

// GetChatMessages returns messages for a chat filtered for the user. Ephemeral
// messages are projected against the current time on every read.
func (h *ChatHandler) GetChatMessages(c *gin.Context) {
	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	userID := c.GetInt("userID")
	ctx := c.Request.Context()
	member, err := h.chatRepo.IsParticipant(ctx, chatID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
		return
	}

	msgs, err := h.messageRepo.GetChatMessagesForUser(ctx, chatID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	senderIDs := make([]int, 0, 2)
	seen := map[int]struct{}{}
	for _, m := range msgs {
		if _, ok := seen[m.SenderID]; !ok {
			seen[m.SenderID] = struct{}{}
			senderIDs = append(senderIDs, m.SenderID)
		}
	}
	names, err := h.displayNames(ctx, senderIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load senders"})
		return
	}
	words := h.highlightWords(ctx, userID)

	now := h.now()
	resp := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		view := h.project(ctx, m, now)
		view.SenderName = names[m.SenderID]
		view.Highlighted = m.Type == models.MessageText && containsAny(m.Content, words)
		resp = append(resp, view)
	}

	c.JSON(http.StatusOK, gin.H{"messages": resp})
}

// PostChatMessage stores a text message and broadcasts it.
func (h *ChatHandler) PostChatMessage(c *gin.Context) {
	chat, ok := h.chatForMember(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.storeAndBroadcast(c, chat, models.NewMessage{
		ChatID:   chat.ID,
		SenderID: c.GetInt("userID"),
		Type:     models.MessageText,
		Content:  req.Content,
	})
}

// PostMediaMessage stores an image, video or ephemeral media message. The
// expiry of an ephemeral message is fixed here and never changes afterwards.
func (h *ChatHandler) PostMediaMessage(c *gin.Context) {
	chat, ok := h.chatForMember(c)
	if !ok {
		return
	}

	var req struct {
		Type             string  `json:"type" binding:"required"`
		MediaKey         string  `json:"media_key" binding:"required"`
		Content          string  `json:"content"`
		ExpiresInSeconds *int    `json:"expires_in_seconds"`
		ExpiresAt        *string `json:"expires_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.IsMediaType(req.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported media type"})
		return
	}
	if !strings.HasPrefix(req.MediaKey, mediaPrefix(chat.ID)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "media key does not belong to chat"})
		return
	}

	expiresAt, err := resolveExpiry(req.ExpiresInSeconds, req.ExpiresAt, h.now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ephemeralType := models.IsEphemeralType(req.Type)
	if ephemeralType && expiresAt == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ephemeral messages require a lifetime"})
		return
	}
	if !ephemeralType && expiresAt != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only ephemeral messages can expire"})
		return
	}

	h.storeAndBroadcast(c, chat, models.NewMessage{
		ChatID:    chat.ID,
		SenderID:  c.GetInt("userID"),
		Type:      req.Type,
		Content:   req.Content,
		MediaKey:  req.MediaKey,
		ExpiresAt: expiresAt,
	})
}

func (h *ChatHandler) storeAndBroadcast(c *gin.Context, chat models.Chat, in models.NewMessage) {
	ctx := c.Request.Context()
	msg, err := h.messageRepo.CreateChatMessage(ctx, in)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error", chat.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	// A new message makes the chat visible again for both partners.
	for _, member := range []int{chat.User1ID, chat.User2ID} {
		if err := h.chatRepo.UnhideChatForUser(ctx, chat.ID, member); err != nil {
			zap.L().Warn("unhide chat failed", zap.Int("chat_id", chat.ID), zap.Int("user_id", member), zap.Error(err))
		}
	}

	view := h.project(ctx, msg, h.now())
	if h.hub != nil {
		h.hub.BroadcastChatMessage(chat.ID, view)
	}
	if msg.IsEphemeral {
		h.emitAudit(c, "INFO", "Ephemeral message sent", msg.ID)
	}
	c.JSON(http.StatusCreated, view)
}

// DeleteMessageForMe performs a soft delete of a message for the caller.
func (h *ChatHandler) DeleteMessageForMe(c *gin.Context) {
	chatID, messageID, ok := parseIDs(c)
	if !ok {
		return
	}
	chat, ok := h.loadChat(c, chatID)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	msg, ok := h.loadMessage(c, chat.ID, messageID)
	if !ok {
		return
	}

	if err := h.messageRepo.SoftDeleteMessageForUser(c.Request.Context(), messageID, msg.SenderID == userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete message"})
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteMessageForAll marks a message as deleted for everyone (sender only).
func (h *ChatHandler) DeleteMessageForAll(c *gin.Context) {
	chatID, messageID, ok := parseIDs(c)
	if !ok {
		return
	}
	chat, ok := h.loadChat(c, chatID)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	msg, ok := h.loadMessage(c, chat.ID, messageID)
	if !ok {
		return
	}
	if msg.SenderID != userID {
		h.emitAudit(c, "ERROR", "not allowed to delete for all", messageID)
		c.JSON(http.StatusForbidden, gin.H{"error": "only sender can delete for all"})
		return
	}

	if err := h.messageRepo.DeleteMessageForAll(c.Request.Context(), messageID, userID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not delete message"})
		return
	}

	if h.hub != nil {
		h.hub.BroadcastDeletion(chatID, messageID)
	}
	h.emitAudit(c, "INFO", "Message deleted for all", messageID)
	c.Status(http.StatusNoContent)
}

// DeleteChatForMe hides the chat for the requester.
func (h *ChatHandler) DeleteChatForMe(c *gin.Context) {
	chat, ok := h.chatForMember(c)
	if !ok {
		return
	}

	if err := h.chatRepo.HideChatForUser(c.Request.Context(), chat.ID, c.GetInt("userID")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not hide chat"})
		return
	}

	c.Status(http.StatusNoContent)
}

// project computes the time-dependent fields of msg. Expired media never gets a link.
func (h *ChatHandler) project(ctx context.Context, msg models.Message, now time.Time) messageResponse {
	resp := messageResponse{Message: msg}
	if msg.IsEphemeral && msg.ExpiresAt != nil {
		remaining := ephemeral.SecondsRemaining(msg.ExpiresAt, now)
		resp.SecondsRemaining = remaining
		resp.Expired = *remaining == 0
		if !resp.Expired {
			resp.Countdown = ephemeral.FormatCountdown(*remaining)
		}
	}
	if resp.Expired || msg.MediaKey == "" || h.links == nil {
		return resp
	}
	url, err := h.links.PresignURL(ctx, msg.MediaKey, storage.LinkTTL(msg.ExpiresAt, now))
	if err != nil {
		zap.L().Warn("presign media failed", zap.Int("message_id", msg.ID), zap.Error(err))
		return resp
	}
	resp.MediaURL = url
	return resp
}

func (h *ChatHandler) displayNames(ctx context.Context, userIDs []int) (map[int]string, error) {
	names := map[int]string{}
	if h.profileRepo == nil || len(userIDs) == 0 {
		return names, nil
	}
	profiles, err := h.profileRepo.ListProfiles(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		names[p.UserID] = p.DisplayName
	}
	return names, nil
}

// highlightWords reads the caller's configuration once per request.
func (h *ChatHandler) highlightWords(ctx context.Context, userID int) []string {
	if h.profileRepo == nil {
		return nil
	}
	profile, err := h.profileRepo.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, repositories.ErrProfileNotFound) {
			zap.L().Warn("load highlight words failed", zap.Int("user_id", userID), zap.Error(err))
		}
		return nil
	}
	return profile.HighlightWords
}

func (h *ChatHandler) chatForMember(c *gin.Context) (models.Chat, bool) {
	return chatFromParam(c, h.chatRepo)
}

func (h *ChatHandler) loadChat(c *gin.Context, chatID int) (models.Chat, bool) {
	return memberChat(c, h.chatRepo, chatID)
}

// chatFromParam loads the chat named by the chat_id route parameter and checks
// that the caller belongs to it. It writes the error response when ok is false.
func chatFromParam(c *gin.Context, chats repositories.ChatRepository) (models.Chat, bool) {
	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return models.Chat{}, false
	}
	return memberChat(c, chats, chatID)
}

func memberChat(c *gin.Context, chats repositories.ChatRepository, chatID int) (models.Chat, bool) {
	chat, err := chats.GetChat(c.Request.Context(), chatID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrChatNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "chat not found"})
		return models.Chat{}, false
	}
	if !chat.HasMember(c.GetInt("userID")) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
		return models.Chat{}, false
	}
	return chat, true
}

func (h *ChatHandler) loadMessage(c *gin.Context, chatID, messageID int) (models.Message, bool) {
	msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return models.Message{}, false
	}
	if msg.ChatID != chatID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message does not belong to chat"})
		return models.Message{}, false
	}
	return msg, true
}

func (h *ChatHandler) emitAudit(c *gin.Context, level, text string, id int) {
	h.audit.EmitResource(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c), "chat", id)
}

// resolveExpiry turns the request lifetime into an absolute expiry. An explicit
// expires_at wins over expires_in_seconds.
func resolveExpiry(inSeconds *int, at *string, now time.Time) (*time.Time, error) {
	if at != nil {
		parsed, err := time.Parse(time.RFC3339Nano, *at)
		if err != nil {
			return nil, errors.New("malformed expires_at")
		}
		if !parsed.After(now) {
			return nil, errors.New("expires_at must be in the future")
		}
		parsed = parsed.UTC()
		return &parsed, nil
	}
	if inSeconds != nil {
		if *inSeconds <= 0 {
			return nil, errors.New("expires_in_seconds must be positive")
		}
		expires := now.Add(time.Duration(*inSeconds) * time.Second).UTC()
		return &expires, nil
	}
	return nil, nil
}

func mediaPrefix(chatID int) string {
	return fmt.Sprintf("chats/%d/", chatID)
}

func containsAny(text string, words []string) bool {
	if len(words) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, w := range words {
		if w != "" && strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

func parseIDs(c *gin.Context) (int, int, bool) {
	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return 0, 0, false
	}
	msgID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return 0, 0, false
	}
	return chatID, msgID, true
}
