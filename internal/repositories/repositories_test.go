package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"couple-service/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return sqlx.NewDb(conn, "postgres"), mock
}

var messageRowColumns = []string{"id", "chat_id", "sender_id", "type", "content", "media_key", "is_ephemeral", "expires_at",
	"deleted_by_sender", "deleted_by_receiver", "deleted_for_all", "created_at"}

func TestCreateEphemeralMessage(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)
	now := time.Now().UTC()
	expires := now.Add(30 * time.Second)

	mock.ExpectQuery("INSERT INTO messages").
		WithArgs(5, 1, models.MessageEphemeralImage, "", "chats/5/a.jpg", true, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(messageRowColumns).
			AddRow(9, 5, 1, models.MessageEphemeralImage, "", "chats/5/a.jpg", true, expires, false, false, false, now))

	msg, err := repo.CreateChatMessage(context.Background(), models.NewMessage{
		ChatID: 5, SenderID: 1, Type: models.MessageEphemeralImage, MediaKey: "chats/5/a.jpg", ExpiresAt: &expires,
	})
	require.NoError(t, err)
	assert.Equal(t, 9, msg.ID)
	assert.True(t, msg.IsEphemeral)
	require.NotNil(t, msg.ExpiresAt)
	assert.True(t, msg.ExpiresAt.Equal(expires))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTextMessageDefaultsType(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO messages").
		WithArgs(5, 1, models.MessageText, "hi", "", false, nil).
		WillReturnRows(sqlmock.NewRows(messageRowColumns).
			AddRow(10, 5, 1, models.MessageText, "hi", "", false, nil, false, false, false, now))

	msg, err := repo.CreateChatMessage(context.Background(), models.NewMessage{ChatID: 5, SenderID: 1, Content: "hi"})
	require.NoError(t, err)
	assert.Nil(t, msg.ExpiresAt)
	assert.False(t, msg.IsEphemeral)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMessageNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("FROM messages WHERE id=").WithArgs(3).WillReturnError(sql.ErrNoRows)

	_, err := NewMessageRepo(db).GetMessage(context.Background(), 3)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestDeleteMessageForAllNotSender(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("UPDATE messages SET deleted_for_all").WithArgs(3, 2).WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewMessageRepo(db).DeleteMessageForAll(context.Background(), 3, 2)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestCreateOrGetChatOrdersPartners(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO chats").WithArgs(2, 7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user1_id", "user2_id", "created_at"}).AddRow(4, 2, 7, now))
	mock.ExpectExec("INSERT INTO chat_visibility").WithArgs(4, 7).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO chat_visibility").WithArgs(4, 2).WillReturnResult(sqlmock.NewResult(0, 1))

	chat, err := NewChatRepo(db).CreateOrGetChat(context.Background(), 7, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, chat.ID)
	assert.Equal(t, 2, chat.Partner(7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrGetChatRejectsSelf(t *testing.T) {
	db, _ := newMockDB(t)
	_, err := NewChatRepo(db).CreateOrGetChat(context.Background(), 3, 3)
	assert.ErrorIs(t, err, ErrSelfChat)
}

func TestListChatsResolvesPartner(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM chats c").WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user1_id", "user2_id", "created_at"}).AddRow(4, 2, 7, now))

	chats, err := NewChatRepo(db).ListChats(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, 2, chats[0].PartnerID)
}

func TestDeleteMemoryByAuthor(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("DELETE FROM memories").WithArgs(8, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM memories").WithArgs(8, 2).WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewMemoryRepo(db)
	assert.NoError(t, repo.DeleteMemory(context.Background(), 8, 1))
	assert.ErrorIs(t, repo.DeleteMemory(context.Background(), 8, 2), ErrMemoryNotFound)
}

func TestUpsertProfile(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO profiles").WithArgs(1, "Masha", "", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "display_name", "avatar_key", "highlight_words", "updated_at"}).
			AddRow(1, "Masha", "", "{love,sun}", now))

	p, err := NewProfileRepo(db).UpsertProfile(context.Background(), models.Profile{UserID: 1, DisplayName: "Masha"})
	require.NoError(t, err)
	assert.Equal(t, []string{"love", "sun"}, []string(p.HighlightWords))
}

func TestListProfilesEmptyInput(t *testing.T) {
	db, mock := newMockDB(t)
	profiles, err := NewProfileRepo(db).ListProfiles(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, profiles)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfileNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("FROM profiles WHERE user_id=").WithArgs(5).WillReturnError(sql.ErrNoRows)

	_, err := NewProfileRepo(db).GetProfile(context.Background(), 5)
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestListExpiredMedia(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	gone := now.Add(-time.Minute)

	mock.ExpectQuery("WHERE is_ephemeral = TRUE AND expires_at <= \\$1 AND media_key <> ''").
		WithArgs(now, 50).
		WillReturnRows(sqlmock.NewRows(messageRowColumns).
			AddRow(4, 5, 1, models.MessageEphemeralVideo, "", "chats/5/v.mp4", true, gone, false, false, false, gone))

	msgs, err := NewMessageRepo(db).ListExpiredMedia(context.Background(), now, 50)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "chats/5/v.mp4", msgs[0].MediaKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClearMediaKey(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("UPDATE messages SET media_key = ''").WithArgs(4).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewMessageRepo(db).ClearMediaKey(context.Background(), 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}
