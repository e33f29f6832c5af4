package models

import (
	"time"
)

// Message is one chat message in a workspace channel. Only the notification
// digest cares about these; the messaging transport itself lives elsewhere.
type Message struct {
	ID          string    `json:"id" db:"id"`
	ChannelID   string    `json:"channel_id" db:"channel_id"`
	ChannelName string    `json:"channel_name" db:"channel_name"`
	AuthorEmail string    `json:"author_email" db:"author_email"`
	AuthorName  string    `json:"author_name" db:"author_name"`
	Recipient   string    `json:"recipient_email" db:"recipient_email"`
	Content     string    `json:"content" db:"content"`
	Notified    bool      `json:"notified" db:"notified"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// UnreadDigest groups a user's unread messages for one notification email
type UnreadDigest struct {
	UserEmail string    `json:"user_email"`
	UserName  string    `json:"user_name"`
	Messages  []Message `json:"messages"`
}
