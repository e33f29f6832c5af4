package models

import (
	"time"
)

// ActivityType identifies one kind of lifecycle event
type ActivityType string

const (
	ActivityRevisionRequest  ActivityType = "revision_request"
	ActivityRevised          ActivityType = "revised"
	ActivityApproved         ActivityType = "approved"
	ActivityScheduled        ActivityType = "scheduled"
	ActivityPublished        ActivityType = "published"
	ActivityFailedPublishing ActivityType = "failed_publishing"
	ActivityComment          ActivityType = "comment"
)

// Activity is one immutable audit-log entry. Rows are only ever appended,
// never updated or deleted.
type Activity struct {
	ID          string       `json:"id" db:"id"`
	WorkspaceID string       `json:"workspace_id" db:"workspace_id"`
	PostID      string       `json:"post_id,omitempty" db:"post_id"`
	Type        ActivityType `json:"type" db:"type"`
	ActorID     string       `json:"actor_id" db:"actor_id"`
	Metadata    JSONB        `json:"metadata,omitempty" db:"metadata"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
}
