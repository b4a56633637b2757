package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"couple-service/internal/mocks"
	"couple-service/internal/models"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func setupMediaRouter(handler *MediaHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.POST("/chats/:chat_id/media", handler.Upload)
	return r
}

func multipartFile(t *testing.T, name string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestUploadImage(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	store := new(mocks.MediaStoreMock)
	router := setupMediaRouter(NewMediaHandler(chatRepo, store, 1<<20, nil))

	chatRepo.On("GetChat", mock.Anything, 4).Return(models.Chat{ID: 4, User1ID: 1, User2ID: 2}, nil).Once()
	store.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "chats/4/") && strings.HasSuffix(key, ".png")
	}), "image/png", mock.Anything).Return(nil).Once()

	body, contentType := multipartFile(t, "photo.bin", pngHeader)
	req := httptest.NewRequest(http.MethodPost, "/chats/4/media", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "image", resp["kind"])
	assert.True(t, strings.HasPrefix(resp["media_key"].(string), "chats/4/"))
	store.AssertExpectations(t)
}

func TestUploadRejectsNonMedia(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	store := new(mocks.MediaStoreMock)
	router := setupMediaRouter(NewMediaHandler(chatRepo, store, 1<<20, nil))

	chatRepo.On("GetChat", mock.Anything, 4).Return(models.Chat{ID: 4, User1ID: 1, User2ID: 2}, nil).Once()

	body, contentType := multipartFile(t, "photo.png", []byte("just some text pretending to be a photo"))
	req := httptest.NewRequest(http.MethodPost, "/chats/4/media", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadMissingFile(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	router := setupMediaRouter(NewMediaHandler(chatRepo, new(mocks.MediaStoreMock), 1<<20, nil))

	chatRepo.On("GetChat", mock.Anything, 4).Return(models.Chat{ID: 4, User1ID: 1, User2ID: 2}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/4/media", strings.NewReader(""))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMediaKind(t *testing.T) {
	assert.Equal(t, "image", mediaKind("image/jpeg"))
	assert.Equal(t, "video", mediaKind("video/mp4"))
	assert.Equal(t, "", mediaKind("application/pdf"))
}
