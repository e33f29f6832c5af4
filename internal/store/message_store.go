package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/Feedbird/platform-sub002/pkg/models"
)

// MessageStore reads workspace chat messages for the notification digest
type MessageStore struct {
	db *sql.DB
}

// NewMessageStore creates a message store over the given connection
func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db}
}

// ListUnnotified returns messages that are still unread, have not yet been
// emailed about, and are older than the given cutoff
func (s *MessageStore) ListUnnotified(ctx context.Context, olderThan time.Time) ([]models.Message, error) {
	if s == nil || s.db == nil {
		return nil, wrap("list unnotified messages", errors.New("message store unavailable"))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, channel_id, channel_name, author_email, author_name,
			recipient_email, content, notified, created_at
		FROM messages
		WHERE read_at IS NULL AND notified = FALSE AND created_at < $1
		ORDER BY recipient_email, created_at
	`, olderThan)
	if err != nil {
		return nil, wrap("list unnotified messages", err)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ChannelID, &m.ChannelName, &m.AuthorEmail,
			&m.AuthorName, &m.Recipient, &m.Content, &m.Notified, &m.CreatedAt); err != nil {
			return nil, wrap("scan message", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate messages", err)
	}
	return out, nil
}

// MarkNotified flags messages as having been included in a digest email, so
// each message is emailed about at most once
func (s *MessageStore) MarkNotified(ctx context.Context, ids []string) error {
	if s == nil || s.db == nil {
		return wrap("mark messages notified", errors.New("message store unavailable"))
	}
	if len(ids) == 0 {
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE messages SET notified = TRUE WHERE id = ANY($1)
	`, pq.Array(ids))
	return wrap("mark messages notified", err)
}
