package platforms

import (
	"context"

	"github.com/Feedbird/platform-sub002/pkg/models"
)

// Adapter is the required method set every platform integration provides.
// Optional capabilities are expressed as the sub-interfaces below and
// recorded once at registration time; call sites consult the registry's
// capability record instead of sprinkling type assertions around.
type Adapter interface {
	Platform() models.Platform

	// Publish posts the content to one page. When opts.ScheduledTime is set
	// and the platform supports native scheduling, the call is a schedule
	// request rather than an immediate publish.
	Publish(ctx context.Context, page models.SocialPage, content PostContent, opts PublishOptions) (PublishResult, error)
}

// PageConnector is implemented by platforms with a page-level connect
// primitive. Platforms without one (the account is the page) are confirmed
// locally by the connection manager.
type PageConnector interface {
	ConnectPage(ctx context.Context, account models.SocialAccount, externalPageID string) (models.SocialPage, error)
}

// StatusChecker is implemented by platforms that can probe a page's current
// validity. Pages on platforms without it are optimistically treated as active.
type StatusChecker interface {
	CheckPageStatus(ctx context.Context, page models.SocialPage) (models.SocialPage, error)
}

// HistoryProvider is implemented by platforms that expose published post history.
type HistoryProvider interface {
	GetPostHistory(ctx context.Context, page models.SocialPage, pageSize int, cursor string) (HistoryPage, error)
}

// PostDeleter is implemented by platforms that allow deleting a published post.
type PostDeleter interface {
	DeletePost(ctx context.Context, page models.SocialPage, externalPostID string) error
}
