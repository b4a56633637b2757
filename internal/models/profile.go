package models

import (
	"time"

	"github.com/lib/pq"
)

// Profile holds per-user display data and settings.
type Profile struct {
	UserID         int            `db:"user_id" json:"user_id"`
	DisplayName    string         `db:"display_name" json:"display_name"`
	AvatarKey      string         `db:"avatar_key" json:"avatar_key,omitempty"`
	HighlightWords pq.StringArray `db:"highlight_words" json:"highlight_words"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}
