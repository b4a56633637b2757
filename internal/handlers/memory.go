package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"couple-service/internal/models"
	"couple-service/internal/repositories"
	"couple-service/internal/storage"
	"couple-service/internal/telemetry"
	"couple-service/internal/ws"
)

// MemoryHandler manages the shared memories wall of a couple.
type MemoryHandler struct {
	chatRepo   repositories.ChatRepository
	memoryRepo repositories.MemoryRepository
	links      storage.Presigner
	hub        *ws.Hub
	audit      *telemetry.AuditEmitter
}

// NewMemoryHandler constructs a MemoryHandler.
func NewMemoryHandler(chatRepo repositories.ChatRepository, memoryRepo repositories.MemoryRepository, links storage.Presigner, hub *ws.Hub, audit *telemetry.AuditEmitter) *MemoryHandler {
	return &MemoryHandler{
		chatRepo:   chatRepo,
		memoryRepo: memoryRepo,
		links:      links,
		hub:        hub,
		audit:      audit,
	}
}

type memoryResponse struct {
	models.Memory
	MediaURL string `json:"media_url,omitempty"`
}

// ListMemories handles GET /chats/:chat_id/memories.
func (h *MemoryHandler) ListMemories(c *gin.Context) {
	chatID, ok := h.requireMember(c)
	if !ok {
		return
	}

	memories, err := h.memoryRepo.ListMemories(c.Request.Context(), chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load memories"})
		return
	}

	resp := make([]memoryResponse, 0, len(memories))
	for _, m := range memories {
		resp = append(resp, h.withLink(c, m))
	}
	c.JSON(http.StatusOK, gin.H{"memories": resp})
}

// CreateMemory handles POST /chats/:chat_id/memories.
func (h *MemoryHandler) CreateMemory(c *gin.Context) {
	chatID, ok := h.requireMember(c)
	if !ok {
		return
	}

	var req struct {
		Kind     string `json:"kind" binding:"required"`
		Body     string `json:"body"`
		MediaKey string `json:"media_key"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload", 0)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Body = strings.TrimSpace(req.Body)

	switch req.Kind {
	case models.MemoryPhoto, models.MemoryVideo:
		if !strings.HasPrefix(req.MediaKey, mediaPrefix(chatID)) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "media_key required"})
			return
		}
	case models.MemoryText, models.MemoryQuote:
		if req.Body == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "body required"})
			return
		}
		req.MediaKey = ""
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown memory kind"})
		return
	}

	memory, err := h.memoryRepo.CreateMemory(c.Request.Context(), models.Memory{
		ChatID:   chatID,
		AuthorID: c.GetInt("userID"),
		Kind:     req.Kind,
		Body:     req.Body,
		MediaKey: req.MediaKey,
	})
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error", 0)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create memory"})
		return
	}

	if h.hub != nil {
		h.hub.BroadcastMemory(chatID, models.MemoryEvent{Type: "memory_created", Memory: &memory})
	}
	h.emitAudit(c, "INFO", "Memory created", memory.ID)
	c.JSON(http.StatusCreated, h.withLink(c, memory))
}

// DeleteMemory handles DELETE /chats/:chat_id/memories/:memory_id. Only the author may delete.
func (h *MemoryHandler) DeleteMemory(c *gin.Context) {
	chatID, ok := h.requireMember(c)
	if !ok {
		return
	}
	memoryID, err := strconv.Atoi(c.Param("memory_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid memory id"})
		return
	}

	userID := c.GetInt("userID")
	memory, err := h.memoryRepo.GetMemory(c.Request.Context(), memoryID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMemoryNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "memory not found"})
		return
	}
	if memory.ChatID != chatID {
		c.JSON(http.StatusNotFound, gin.H{"error": "memory not found"})
		return
	}
	if memory.AuthorID != userID {
		h.emitAudit(c, "ERROR", "not allowed to delete memory", memoryID)
		c.JSON(http.StatusForbidden, gin.H{"error": "only the author may delete"})
		return
	}

	if err := h.memoryRepo.DeleteMemory(c.Request.Context(), memoryID, userID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMemoryNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not delete memory"})
		return
	}

	if h.hub != nil {
		h.hub.BroadcastMemory(chatID, models.MemoryEvent{Type: "memory_deleted", MemoryID: memoryID})
	}
	h.emitAudit(c, "INFO", "Memory deleted", memoryID)
	c.Status(http.StatusNoContent)
}

func (h *MemoryHandler) requireMember(c *gin.Context) (int, bool) {
	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return 0, false
	}
	member, err := h.chatRepo.IsParticipant(c.Request.Context(), chatID, c.GetInt("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return 0, false
	}
	if !member {
		h.emitAudit(c, "ERROR", "not allowed", 0)
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
		return 0, false
	}
	return chatID, true
}

func (h *MemoryHandler) withLink(c *gin.Context, m models.Memory) memoryResponse {
	resp := memoryResponse{Memory: m}
	if m.MediaKey == "" || h.links == nil {
		return resp
	}
	url, err := h.links.PresignURL(c.Request.Context(), m.MediaKey, storage.LinkTTL(nil, time.Now()))
	if err != nil {
		zap.L().Warn("presign memory failed", zap.Int("memory_id", m.ID), zap.Error(err))
		return resp
	}
	resp.MediaURL = url
	return resp
}

func (h *MemoryHandler) emitAudit(c *gin.Context, level, text string, id int) {
	h.audit.EmitResource(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c), "memory", id)
}
