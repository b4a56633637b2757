package models

import "time"

// Message types.
const (
	MessageText           = "text"
	MessageImage          = "image"
	MessageVideo          = "video"
	MessageEphemeralImage = "ephemeral_image"
	MessageEphemeralVideo = "ephemeral_video"
)

// IsMediaType reports whether t carries a media key.
func IsMediaType(t string) bool {
	switch t {
	case MessageImage, MessageVideo, MessageEphemeralImage, MessageEphemeralVideo:
		return true
	}
	return false
}

// IsEphemeralType reports whether t self-destructs.
func IsEphemeralType(t string) bool {
	return t == MessageEphemeralImage || t == MessageEphemeralVideo
}

// Message represents a chat message.
type Message struct {
	ID                int        `db:"id" json:"id"`
	ChatID            int        `db:"chat_id" json:"chat_id"`
	SenderID          int        `db:"sender_id" json:"sender_id"`
	Type              string     `db:"type" json:"type"`
	Content           string     `db:"content" json:"content"`
	MediaKey          string     `db:"media_key" json:"-"`
	IsEphemeral       bool       `db:"is_ephemeral" json:"is_ephemeral"`
	ExpiresAt         *time.Time `db:"expires_at" json:"expires_at"`
	DeletedBySender   bool       `db:"deleted_by_sender" json:"-"`
	DeletedByReceiver bool       `db:"deleted_by_receiver" json:"-"`
	DeletedForAll     bool       `db:"deleted_for_all" json:"-"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}

// NewMessage is the input for storing a message.
type NewMessage struct {
	ChatID    int
	SenderID  int
	Type      string
	Content   string
	MediaKey  string
	ExpiresAt *time.Time
}

// ChatEvent is broadcasted through websockets.
type ChatEvent struct {
	Type      string      `json:"type"`
	Message   interface{} `json:"message,omitempty"`
	MessageID int         `json:"message_id,omitempty"`
}
