package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"couple-service/internal/models"
)

var ErrMemoryNotFound = errors.New("memory not found")

// MemoryRepository defines interactions for the shared memories wall.
type MemoryRepository interface {
	CreateMemory(ctx context.Context, memory models.Memory) (models.Memory, error)
	ListMemories(ctx context.Context, chatID int) ([]models.Memory, error)
	GetMemory(ctx context.Context, memoryID int) (models.Memory, error)
	DeleteMemory(ctx context.Context, memoryID int, authorID int) error
}

// MemoryRepo is a sqlx-backed implementation.
type MemoryRepo struct {
	db *sqlx.DB
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo(db *sqlx.DB) *MemoryRepo {
	return &MemoryRepo{db: db}
}

// CreateMemory persists a memory card.
func (r *MemoryRepo) CreateMemory(ctx context.Context, in models.Memory) (models.Memory, error) {
	var m models.Memory
	err := r.db.QueryRowxContext(ctx, `INSERT INTO memories (chat_id, author_id, kind, body, media_key) VALUES ($1, $2, $3, $4, $5)
        RETURNING id, chat_id, author_id, kind, body, media_key, created_at`,
		in.ChatID, in.AuthorID, in.Kind, in.Body, in.MediaKey).
		Scan(&m.ID, &m.ChatID, &m.AuthorID, &m.Kind, &m.Body, &m.MediaKey, &m.CreatedAt)
	return m, err
}

// ListMemories returns a couple's memories, newest first.
func (r *MemoryRepo) ListMemories(ctx context.Context, chatID int) ([]models.Memory, error) {
	var memories []models.Memory
	err := r.db.SelectContext(ctx, &memories, `SELECT id, chat_id, author_id, kind, body, media_key, created_at FROM memories WHERE chat_id=$1 ORDER BY created_at DESC`, chatID)
	return memories, err
}

// GetMemory fetches a single memory.
func (r *MemoryRepo) GetMemory(ctx context.Context, memoryID int) (models.Memory, error) {
	var m models.Memory
	err := r.db.GetContext(ctx, &m, `SELECT id, chat_id, author_id, kind, body, media_key, created_at FROM memories WHERE id=$1`, memoryID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Memory{}, ErrMemoryNotFound
	}
	return m, err
}

// DeleteMemory removes a memory (author only).
func (r *MemoryRepo) DeleteMemory(ctx context.Context, memoryID int, authorID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM memories WHERE id=$1 AND author_id=$2`, memoryID, authorID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMemoryNotFound
	}
	return nil
}
