package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"couple-service/internal/observability"
	"couple-service/internal/repositories"
	"couple-service/internal/telemetry"
)

// Uploader stores media objects.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
}

// MediaHandler accepts photo and video uploads for a chat.
type MediaHandler struct {
	chatRepo repositories.ChatRepository
	store    Uploader
	maxBytes int64
	audit    *telemetry.AuditEmitter
}

// NewMediaHandler constructs a MediaHandler.
func NewMediaHandler(chatRepo repositories.ChatRepository, store Uploader, maxBytes int64, audit *telemetry.AuditEmitter) *MediaHandler {
	return &MediaHandler{chatRepo: chatRepo, store: store, maxBytes: maxBytes, audit: audit}
}

// Upload handles POST /chats/:chat_id/media. The content type is sniffed from the
// bytes; the client supplied header is ignored.
func (h *MediaHandler) Upload(c *gin.Context) {
	chat, ok := chatFromParam(c, h.chatRepo)
	if !ok {
		return
	}
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "media storage not configured"})
		return
	}

	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer file.Close()

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	kind := mediaKind(mtype.String())
	if kind == "" {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "only images and videos are accepted"})
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
		return
	}

	key := mediaPrefix(chat.ID) + uuid.NewString() + mtype.Extension()
	if err := h.store.Upload(c.Request.Context(), key, mtype.String(), file); err != nil {
		zap.L().Error("media upload failed", zap.Int("chat_id", chat.ID), zap.String("key", key), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to store media"})
		return
	}

	observability.ObserveMediaUpload(kind, header.Size)
	h.audit.EmitResource(c.Request.Context(), "INFO", "Media uploaded", requestIDFromContext(c), userIDFromContext(c), "chat", chat.ID)
	c.JSON(http.StatusCreated, gin.H{"media_key": key, "kind": kind, "content_type": mtype.String()})
}

func mediaKind(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "video/"):
		return "video"
	}
	return ""
}
