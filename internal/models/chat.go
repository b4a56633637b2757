package models

import "time"

// Chat is the private chat of a couple. User1ID is always the smaller id.
type Chat struct {
	ID        int       `db:"id" json:"id"`
	User1ID   int       `db:"user1_id" json:"user1_id"`
	User2ID   int       `db:"user2_id" json:"user2_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Partner returns the other member of the couple.
func (c Chat) Partner(userID int) int {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// HasMember reports whether userID is one of the two partners.
func (c Chat) HasMember(userID int) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// ChatSummary provides API-friendly view of a chat for a user.
type ChatSummary struct {
	ChatID    int       `db:"id" json:"chat_id"`
	PartnerID int       `json:"partner_id"`
	Created   time.Time `db:"created_at" json:"created_at"`
}
