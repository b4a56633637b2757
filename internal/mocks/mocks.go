package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"couple-service/internal/models"
	"couple-service/internal/presence"
	"couple-service/internal/repositories"
	"couple-service/internal/storage"
)

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) CreateOrGetChat(ctx context.Context, userID int, partnerID int) (models.Chat, error) {
	args := m.Called(ctx, userID, partnerID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) IsParticipant(ctx context.Context, chatID int, userID int) (bool, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ChatRepositoryMock) GetChat(ctx context.Context, chatID int) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) ListChats(ctx context.Context, userID int) ([]models.ChatSummary, error) {
	args := m.Called(ctx, userID)
	var list []models.ChatSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatSummary)
	}
	return list, args.Error(1)
}

func (m *ChatRepositoryMock) HideChatForUser(ctx context.Context, chatID int, userID int) error {
	args := m.Called(ctx, chatID, userID)
	return args.Error(0)
}

func (m *ChatRepositoryMock) UnhideChatForUser(ctx context.Context, chatID int, userID int) error {
	args := m.Called(ctx, chatID, userID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateChatMessage(ctx context.Context, in models.NewMessage) (models.Message, error) {
	args := m.Called(ctx, in)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) GetChatMessagesForUser(ctx context.Context, chatID int, userID int) ([]models.Message, error) {
	args := m.Called(ctx, chatID, userID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) SoftDeleteMessageForUser(ctx context.Context, messageID int, isSender bool) error {
	args := m.Called(ctx, messageID, isSender)
	return args.Error(0)
}

func (m *MessageRepositoryMock) DeleteMessageForAll(ctx context.Context, messageID int, userID int) error {
	args := m.Called(ctx, messageID, userID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) ListExpiredMedia(ctx context.Context, now time.Time, limit int) ([]models.Message, error) {
	args := m.Called(ctx, now, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) ClearMediaKey(ctx context.Context, messageID int) error {
	return m.Called(ctx, messageID).Error(0)
}

type MemoryRepositoryMock struct {
	mock.Mock
}

func (m *MemoryRepositoryMock) CreateMemory(ctx context.Context, memory models.Memory) (models.Memory, error) {
	args := m.Called(ctx, memory)
	var out models.Memory
	if val := args.Get(0); val != nil {
		out = val.(models.Memory)
	}
	return out, args.Error(1)
}

func (m *MemoryRepositoryMock) ListMemories(ctx context.Context, chatID int) ([]models.Memory, error) {
	args := m.Called(ctx, chatID)
	var list []models.Memory
	if val := args.Get(0); val != nil {
		list = val.([]models.Memory)
	}
	return list, args.Error(1)
}

func (m *MemoryRepositoryMock) GetMemory(ctx context.Context, memoryID int) (models.Memory, error) {
	args := m.Called(ctx, memoryID)
	var out models.Memory
	if val := args.Get(0); val != nil {
		out = val.(models.Memory)
	}
	return out, args.Error(1)
}

func (m *MemoryRepositoryMock) DeleteMemory(ctx context.Context, memoryID int, authorID int) error {
	args := m.Called(ctx, memoryID, authorID)
	return args.Error(0)
}

type ProfileRepositoryMock struct {
	mock.Mock
}

func (m *ProfileRepositoryMock) GetProfile(ctx context.Context, userID int) (models.Profile, error) {
	args := m.Called(ctx, userID)
	var out models.Profile
	if val := args.Get(0); val != nil {
		out = val.(models.Profile)
	}
	return out, args.Error(1)
}

func (m *ProfileRepositoryMock) ListProfiles(ctx context.Context, userIDs []int) ([]models.Profile, error) {
	args := m.Called(ctx, userIDs)
	var list []models.Profile
	if val := args.Get(0); val != nil {
		list = val.([]models.Profile)
	}
	return list, args.Error(1)
}

func (m *ProfileRepositoryMock) UpsertProfile(ctx context.Context, in models.Profile) (models.Profile, error) {
	args := m.Called(ctx, in)
	var out models.Profile
	if val := args.Get(0); val != nil {
		out = val.(models.Profile)
	}
	return out, args.Error(1)
}

// PresenceMock records presence calls. Every sets the heartbeat interval it reports.
type PresenceMock struct {
	mock.Mock
	Every time.Duration
}

func (m *PresenceMock) Connect(ctx context.Context, userID int, connID string) error {
	return m.Called(ctx, userID, connID).Error(0)
}

func (m *PresenceMock) Refresh(ctx context.Context, userID int, connID string) error {
	return m.Called(ctx, userID, connID).Error(0)
}

func (m *PresenceMock) Disconnect(ctx context.Context, userID int, connID string) error {
	return m.Called(ctx, userID, connID).Error(0)
}

func (m *PresenceMock) Interval() time.Duration {
	return m.Every
}

func (m *PresenceMock) IsOnline(ctx context.Context, userID int) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type MediaStoreMock struct {
	mock.Mock
}

func (m *MediaStoreMock) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	return m.Called(ctx, key, contentType, body).Error(0)
}

func (m *MediaStoreMock) PresignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

func (m *MediaStoreMock) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type TokenValidatorMock struct {
	mock.Mock
}

func (m *TokenValidatorMock) ValidateToken(token string) (int, error) {
	args := m.Called(token)
	return args.Int(0), args.Error(1)
}

var _ repositories.ChatRepository = (*ChatRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.MemoryRepository = (*MemoryRepositoryMock)(nil)
var _ repositories.ProfileRepository = (*ProfileRepositoryMock)(nil)
var _ presence.Tracker = (*PresenceMock)(nil)
var _ storage.Presigner = (*MediaStoreMock)(nil)
