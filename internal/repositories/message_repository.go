package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"couple-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `id, chat_id, sender_id, type, content, media_key, is_ephemeral, expires_at,
        deleted_by_sender, deleted_by_receiver, deleted_for_all, created_at`

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	CreateChatMessage(ctx context.Context, msg models.NewMessage) (models.Message, error)
	GetChatMessagesForUser(ctx context.Context, chatID int, userID int) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	SoftDeleteMessageForUser(ctx context.Context, messageID int, isSender bool) error
	DeleteMessageForAll(ctx context.Context, messageID int, userID int) error
	ListExpiredMedia(ctx context.Context, now time.Time, limit int) ([]models.Message, error)
	ClearMediaKey(ctx context.Context, messageID int) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateChatMessage stores a message. is_ephemeral follows the message type; the
// expiry is written once here and never updated afterwards.
func (r *MessageRepo) CreateChatMessage(ctx context.Context, in models.NewMessage) (models.Message, error) {
	msgType := in.Type
	if msgType == "" {
		msgType = models.MessageText
	}
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (chat_id, sender_id, type, content, media_key, is_ephemeral, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+messageColumns,
		in.ChatID, in.SenderID, msgType, in.Content, in.MediaKey, models.IsEphemeralType(msgType), in.ExpiresAt).
		StructScan(&msg)
	return msg, err
}

// GetChatMessagesForUser returns ordered chat messages filtered per user visibility rules.
func (r *MessageRepo) GetChatMessagesForUser(ctx context.Context, chatID int, userID int) ([]models.Message, error) {
	query := `SELECT ` + messageColumns + `
        FROM messages
        WHERE chat_id=$1
        AND deleted_for_all = FALSE
        AND NOT (sender_id=$2 AND deleted_by_sender = TRUE)
        AND NOT (sender_id<>$2 AND deleted_by_receiver = TRUE)
        ORDER BY created_at ASC`
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, query, chatID, userID)
	return msgs, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// SoftDeleteMessageForUser marks a message as deleted for either sender or receiver.
func (r *MessageRepo) SoftDeleteMessageForUser(ctx context.Context, messageID int, isSender bool) error {
	if isSender {
		_, err := r.db.ExecContext(ctx, `UPDATE messages SET deleted_by_sender = TRUE WHERE id=$1`, messageID)
		return err
	}
	_, err := r.db.ExecContext(ctx, `UPDATE messages SET deleted_by_receiver = TRUE WHERE id=$1`, messageID)
	return err
}

// DeleteMessageForAll marks a message as deleted for everyone.
func (r *MessageRepo) DeleteMessageForAll(ctx context.Context, messageID int, userID int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET deleted_for_all = TRUE WHERE id=$1 AND sender_id=$2`, messageID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// ListExpiredMedia returns ephemeral messages whose expiry has passed but whose
// media object is still referenced, oldest expiry first.
func (r *MessageRepo) ListExpiredMedia(ctx context.Context, now time.Time, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+`
        FROM messages
        WHERE is_ephemeral = TRUE AND expires_at <= $1 AND media_key <> ''
        ORDER BY expires_at ASC
        LIMIT $2`, now, limit)
	return msgs, err
}

// ClearMediaKey drops the media reference of a message once its object is gone.
func (r *MessageRepo) ClearMediaKey(ctx context.Context, messageID int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE messages SET media_key = '' WHERE id=$1`, messageID)
	return err
}
