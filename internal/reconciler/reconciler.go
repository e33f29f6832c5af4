package reconciler

import (
	"time"

	"github.com/Feedbird/platform-sub002/pkg/models"
)

// Reconcile derives the correct status for a post given its current status
// and publish date. It returns the status unchanged when no correction
// applies, so calling it repeatedly with the same inputs is a no-op.
//
// A past date never un-fails a post: failed stays failed until a user
// retries. A future date pulls published or failed posts back to scheduled,
// since a post cannot already be settled before its own publish time.
func Reconcile(status models.PostStatus, publishDate *time.Time, now time.Time) models.PostStatus {
	if publishDate == nil {
		return status
	}

	if publishDate.Before(now) {
		if status != models.PostPublished && status != models.PostFailedPublishing {
			return models.PostPublished
		}
		return status
	}

	// future date
	if status == models.PostPublished || status == models.PostFailedPublishing {
		return models.PostScheduled
	}
	return status
}

// NeedsReconcile reports whether Reconcile would change the status. Cheap
// enough to run over every row before touching the database.
func NeedsReconcile(status models.PostStatus, publishDate *time.Time, now time.Time) bool {
	return Reconcile(status, publishDate, now) != status
}
