// Package activity appends lifecycle events to a post's audit log and
// drives the user-facing approval transitions that emit them.
package activity

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Feedbird/platform-sub002/pkg/logging"
	"github.com/Feedbird/platform-sub002/pkg/models"
)

// Store is the slice of the persistence layer the recorder needs
type Store interface {
	Append(ctx context.Context, activity models.Activity) error
	ListByPost(ctx context.Context, postID string) ([]models.Activity, error)
}

// PostStore mutates post statuses during approval transitions
type PostStore interface {
	Get(ctx context.Context, id string) (models.Post, error)
	UpdateStatus(ctx context.Context, id string, status models.PostStatus) (models.Post, error)
}

// Recorder writes immutable activity entries and applies the approval
// workflow transitions that produce them
type Recorder struct {
	activities Store
	posts      PostStore
	logger     logging.Logger
}

// NewRecorder creates an activity recorder
func NewRecorder(activities Store, posts PostStore, logger logging.Logger) *Recorder {
	return &Recorder{activities: activities, posts: posts, logger: logger}
}

// Record appends one activity entry
func (r *Recorder) Record(ctx context.Context, workspaceID, postID string, kind models.ActivityType, actorID string, metadata models.JSONB) error {
	entry := models.Activity{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		PostID:      postID,
		Type:        kind,
		ActorID:     actorID,
		Metadata:    metadata,
	}
	if err := r.activities.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to record %s activity: %w", kind, err)
	}
	return nil
}

// List returns a post's activity log newest first
func (r *Recorder) List(ctx context.Context, postID string) ([]models.Activity, error) {
	return r.activities.ListByPost(ctx, postID)
}

// approval transitions and the statuses they accept
var approvalTransitions = map[models.ActivityType]struct {
	from []models.PostStatus
	to   models.PostStatus
}{
	models.ActivityApproved: {
		from: []models.PostStatus{models.PostPendingApproval, models.PostRevised, models.PostNeedsRevisions},
		to:   models.PostApproved,
	},
	models.ActivityRevisionRequest: {
		from: []models.PostStatus{models.PostPendingApproval, models.PostRevised, models.PostApproved},
		to:   models.PostNeedsRevisions,
	},
	models.ActivityRevised: {
		from: []models.PostStatus{models.PostNeedsRevisions},
		to:   models.PostRevised,
	},
}

// Transition applies one approval-workflow action to a post, appending the
// matching activity. The transition is rejected when the post's current
// status does not allow it.
func (r *Recorder) Transition(ctx context.Context, postID string, action models.ActivityType, actorID, comment string) (models.Post, error) {
	rule, ok := approvalTransitions[action]
	if !ok {
		return models.Post{}, fmt.Errorf("unsupported approval action %s", action)
	}

	post, err := r.posts.Get(ctx, postID)
	if err != nil {
		return models.Post{}, fmt.Errorf("failed to load post %s: %w", postID, err)
	}

	allowed := false
	for _, from := range rule.from {
		if post.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return models.Post{}, fmt.Errorf("cannot apply %s to a %s post", action, post.Status)
	}

	post, err = r.posts.UpdateStatus(ctx, postID, rule.to)
	if err != nil {
		return models.Post{}, fmt.Errorf("failed to transition post %s: %w", postID, err)
	}

	var metadata models.JSONB
	if comment != "" {
		metadata = models.JSONB{"comment": comment}
	}
	if err := r.Record(ctx, post.WorkspaceID, post.ID, action, actorID, metadata); err != nil {
		return models.Post{}, err
	}

	r.logger.WithFields(logging.Fields{
		"post_id": postID,
		"action":  string(action),
		"status":  string(post.Status),
	}).Info("Applied approval transition")
	return post, nil
}
