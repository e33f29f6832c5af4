package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Feedbird/platform-sub002/pkg/models"
)

// ActivityStore persists the append-only activity log
type ActivityStore struct {
	db *sql.DB
}

// NewActivityStore creates an activity store over the given connection
func NewActivityStore(db *sql.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// Append inserts one activity row. There is deliberately no update or delete
// counterpart.
func (s *ActivityStore) Append(ctx context.Context, activity models.Activity) error {
	if s == nil || s.db == nil {
		return wrap("append activity", errors.New("activity store unavailable"))
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (id, workspace_id, post_id, type, actor_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, activity.ID, activity.WorkspaceID, activity.PostID, string(activity.Type),
		activity.ActorID, activity.Metadata)
	return wrap("append activity", err)
}

// ListByPost returns a post's activities newest first
func (s *ActivityStore) ListByPost(ctx context.Context, postID string) ([]models.Activity, error) {
	if s == nil || s.db == nil {
		return nil, wrap("list activities", errors.New("activity store unavailable"))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, post_id, type, actor_id, metadata, created_at
		FROM activities
		WHERE post_id = $1
		ORDER BY created_at DESC
	`, postID)
	if err != nil {
		return nil, wrap("list activities", err)
	}
	defer rows.Close()

	var out []models.Activity
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(&a.ID, &a.WorkspaceID, &a.PostID, &a.Type, &a.ActorID, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, wrap("scan activity", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate activities", err)
	}
	return out, nil
}
