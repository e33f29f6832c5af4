package platforms

import (
	"errors"
	"fmt"
	"time"

	"github.com/Feedbird/platform-sub002/pkg/models"
)

// MediaAttachment carries the durable, platform-fetchable media for one post.
// URLs must already be materialized; adapters never accept data URLs.
type MediaAttachment struct {
	Kind         models.MediaKind `json:"kind"`
	URLs         []string         `json:"urls"`
	ThumbnailURL string           `json:"thumbnail_url,omitempty"`
}

// PostContent is the platform-agnostic payload built for one publish
type PostContent struct {
	Text  string           `json:"text"`
	Title string           `json:"title,omitempty"`
	Media *MediaAttachment `json:"media,omitempty"`
	Link  string           `json:"link,omitempty"`
}

// PublishOptions carries per-publish settings
type PublishOptions struct {
	ScheduledTime *time.Time
	Settings      PublishSettings
}

// PublishResult is what an adapter reports back for one successful publish
type PublishResult struct {
	ExternalPostID string
	PublishedAt    time.Time
	ScheduledFor   *time.Time
}

// HistoryPage is one page of platform post history
type HistoryPage struct {
	Posts      []models.PostHistory
	NextCursor string
}

// Error is a failed call against an external platform. It may be transient
// or may require the user to re-authenticate; the caller decides.
type Error struct {
	Platform models.Platform
	PageID   string
	Code     string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Platform, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Platform, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NeedsReauth reports whether the failure can only be fixed by the user
// granting fresh consent.
func (e *Error) NeedsReauth() bool {
	return e.Code == "expired_token" || e.Code == "invalid_token"
}

// asPlatformError unwraps err into a *Error when one is in the chain
func asPlatformError(err error, target **Error) bool {
	return errors.As(err, target)
}
