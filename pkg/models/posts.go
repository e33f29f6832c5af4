package models

import (
	"time"
)

// PostStatus represents a post's lifecycle state
type PostStatus string

const (
	PostDraft            PostStatus = "draft"
	PostPendingApproval  PostStatus = "pending_approval"
	PostNeedsRevisions   PostStatus = "needs_revisions"
	PostRevised          PostStatus = "revised"
	PostApproved         PostStatus = "approved"
	PostScheduled        PostStatus = "scheduled"
	PostPublishing       PostStatus = "publishing"
	PostPublished        PostStatus = "published"
	PostFailedPublishing PostStatus = "failed_publishing"
)

// IsTerminal reports whether the status is a publish-terminal state.
// A failed post stays failed until a user retries it.
func (s PostStatus) IsTerminal() bool {
	return s == PostPublished || s == PostFailedPublishing
}

// MediaKind describes the kind of media held by a version
type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
	MediaOther    MediaKind = "other"
)

// MediaRef points at a version's media payload. URL may be a data URL, a
// remote URL, or a durable storage URL once materialized.
type MediaRef struct {
	Kind         MediaKind `json:"kind" db:"kind"`
	URL          string    `json:"url" db:"url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty" db:"thumbnail_url"`
}

// Version is one immutable snapshot of a block's content
type Version struct {
	ID        string    `json:"id" db:"id"`
	BlockID   string    `json:"block_id" db:"block_id"`
	Caption   string    `json:"caption" db:"caption"`
	File      MediaRef  `json:"file" db:"file"`
	CreatedBy string    `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Block is an append-only media container. Versions are only ever appended;
// CurrentVersionID selects which one is live.
type Block struct {
	ID               string    `json:"id" db:"id"`
	PostID           string    `json:"post_id" db:"post_id"`
	Kind             MediaKind `json:"kind" db:"kind"`
	CurrentVersionID string    `json:"current_version_id" db:"current_version_id"`
	Versions         []Version `json:"versions"`
}

// CurrentVersion returns the live version of the block, or nil when the
// block has no version matching CurrentVersionID.
func (b *Block) CurrentVersion() *Version {
	for i := range b.Versions {
		if b.Versions[i].ID == b.CurrentVersionID {
			return &b.Versions[i]
		}
	}
	return nil
}

// Post is a unit of content scheduled for one or more social destinations
type Post struct {
	ID          string     `json:"id" db:"id"`
	WorkspaceID string     `json:"workspace_id" db:"workspace_id"`
	BoardID     string     `json:"board_id" db:"board_id"`
	Status      PostStatus `json:"status" db:"status"`
	Format      string     `json:"format" db:"format"`
	PublishDate *time.Time `json:"publish_date,omitempty" db:"publish_date"`
	Platforms   []Platform `json:"platforms" db:"platforms"`
	Pages       []string   `json:"pages" db:"pages"`
	Blocks      []Block    `json:"blocks"`
	Activities  []Activity `json:"activities,omitempty"`
	Settings    JSONB      `json:"settings,omitempty" db:"settings"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Board exclusively owns posts
type Board struct {
	ID          string    `json:"id" db:"id"`
	WorkspaceID string    `json:"workspace_id" db:"workspace_id"`
	Name        string    `json:"name" db:"name"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Workspace exclusively owns boards, social accounts and social pages
type Workspace struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
