package models

import "time"

// Memory kinds.
const (
	MemoryPhoto = "photo"
	MemoryVideo = "video"
	MemoryText  = "text"
	MemoryQuote = "quote"
)

// Memory is a card on the couple's shared wall.
type Memory struct {
	ID        int       `db:"id" json:"id"`
	ChatID    int       `db:"chat_id" json:"chat_id"`
	AuthorID  int       `db:"author_id" json:"author_id"`
	Kind      string    `db:"kind" json:"kind"`
	Body      string    `db:"body" json:"body,omitempty"`
	MediaKey  string    `db:"media_key" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MemoryEvent is emitted over WebSocket connections when the wall changes.
type MemoryEvent struct {
	Type     string  `json:"type"`
	Memory   *Memory `json:"memory,omitempty"`
	MemoryID int     `json:"memory_id,omitempty"`
}
