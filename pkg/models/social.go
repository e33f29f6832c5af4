package models

import (
	"time"
)

// Platform identifies a supported external social platform
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformPinterest Platform = "pinterest"
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformGoogle    Platform = "google"
)

// Platforms lists every supported platform
func Platforms() []Platform {
	return []Platform{
		PlatformFacebook,
		PlatformInstagram,
		PlatformLinkedIn,
		PlatformPinterest,
		PlatformYouTube,
		PlatformTikTok,
		PlatformGoogle,
	}
}

// PageStatus represents a social page's connection state
type PageStatus string

const (
	PageActive       PageStatus = "active"
	PageExpired      PageStatus = "expired"
	PagePending      PageStatus = "pending"
	PageDisconnected PageStatus = "disconnected"
	PageError        PageStatus = "error"
)

// EntityType describes what kind of destination a page is on its platform
type EntityType string

const (
	EntityPage         EntityType = "page"
	EntityProfile      EntityType = "profile"
	EntityBoard        EntityType = "board"
	EntityChannel      EntityType = "channel"
	EntityBusiness     EntityType = "business"
	EntityOrganization EntityType = "organization"
)

// SocialAccount is a connected external identity owned by a workspace
type SocialAccount struct {
	ID          string     `json:"id" db:"id"`
	WorkspaceID string     `json:"workspace_id" db:"workspace_id"`
	Platform    Platform   `json:"platform" db:"platform"`
	Name        string     `json:"name" db:"name"`
	AccountID   string     `json:"account_id" db:"account_id"` // provider's native id
	AuthToken   string     `json:"-" db:"auth_token"`
	Connected   bool       `json:"connected" db:"connected"`
	Status      PageStatus `json:"status" db:"status"`
	Metadata    JSONB      `json:"metadata,omitempty" db:"metadata"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// SocialPage is a publishable destination belonging to a social account
type SocialPage struct {
	ID              string     `json:"id" db:"id"`
	WorkspaceID     string     `json:"workspace_id" db:"workspace_id"`
	AccountID       string     `json:"account_id" db:"account_id"` // FK -> SocialAccount.ID
	Platform        Platform   `json:"platform" db:"platform"`
	EntityType      EntityType `json:"entity_type" db:"entity_type"`
	Name            string     `json:"name" db:"name"`
	PageID          string     `json:"page_id" db:"page_id"` // provider's native id
	AuthToken       string     `json:"-" db:"auth_token"`
	Connected       bool       `json:"connected" db:"connected"`
	Status          PageStatus `json:"status" db:"status"`
	StatusUpdatedAt *time.Time `json:"status_updated_at,omitempty" db:"status_updated_at"`
	LastSyncAt      *time.Time `json:"last_sync_at,omitempty" db:"last_sync_at"`
	FollowerCount   int        `json:"follower_count" db:"follower_count"`
	PostCount       int        `json:"post_count" db:"post_count"`
	Metadata        JSONB      `json:"metadata,omitempty" db:"metadata"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// UsableForPublish reports whether the page can be targeted by a publish
func (p *SocialPage) UsableForPublish() bool {
	return p.Connected && p.Status == PageActive
}

// PostHistoryStatus represents the state of an already-published platform post
type PostHistoryStatus string

const (
	HistoryPublished PostHistoryStatus = "published"
	HistoryScheduled PostHistoryStatus = "scheduled"
	HistoryFailed    PostHistoryStatus = "failed"
	HistoryDeleted   PostHistoryStatus = "deleted"
)

// PostHistory is one platform-side post as reported by the platform
type PostHistory struct {
	ID           string            `json:"id" db:"id"`
	PageID       string            `json:"page_id" db:"page_id"`
	PostID       string            `json:"post_id" db:"post_id"` // provider's native post id
	Content      string            `json:"content" db:"content"`
	MediaURLs    []string          `json:"media_urls" db:"media_urls"`
	Status       PostHistoryStatus `json:"status" db:"status"`
	PublishedAt  time.Time         `json:"published_at" db:"published_at"`
	ScheduledFor *time.Time        `json:"scheduled_for,omitempty" db:"scheduled_for"`
}
