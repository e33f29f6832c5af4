// Package publisher dispatches a post to its target social pages and
// settles the post into a single aggregate status.
package publisher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Feedbird/platform-sub002/internal/platforms"
	"github.com/Feedbird/platform-sub002/pkg/logging"
	"github.com/Feedbird/platform-sub002/pkg/models"
)

// DefaultPageTimeout bounds one page's publish call so a hung platform
// cannot stall the whole post's settlement
const DefaultPageTimeout = 2 * time.Minute

// ValidationError is a publish precondition failure. The post is left
// exactly as it was: no state mutation, no network call.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "publish validation failed: " + e.Reason
}

// PageResult is the outcome of one page's dispatch. Err is nil on success.
type PageResult struct {
	PageID         string          `json:"page_id"`
	Platform       models.Platform `json:"platform"`
	ExternalPostID string          `json:"external_post_id,omitempty"`
	Err            error           `json:"-"`
	ErrorMessage   string          `json:"error,omitempty"`
}

// PostStore is the slice of the persistence layer the dispatcher needs.
// UpdateStatus returns the authoritative record so in-memory state stays
// aligned with the backing store after every write.
type PostStore interface {
	Get(ctx context.Context, id string) (models.Post, error)
	UpdateStatus(ctx context.Context, id string, status models.PostStatus) (models.Post, error)
	SetVersionMediaURL(ctx context.Context, versionID, url string) error
}

// PageStore resolves a post's target page ids to page records
type PageStore interface {
	ListPages(ctx context.Context, ids []string) (map[string]models.SocialPage, error)
}

// ActivityRecorder appends lifecycle events to a post's audit log
type ActivityRecorder interface {
	Record(ctx context.Context, workspaceID, postID string, kind models.ActivityType, actorID string, metadata models.JSONB) error
}

// Materializer turns a block's media references into durable URLs
type Materializer interface {
	MaterializeBlock(ctx context.Context, block models.Block) (models.Block, error)
}

// Dispatcher publishes posts to all their target pages concurrently and
// reduces the per-page outcomes into one aggregate post status
type Dispatcher struct {
	posts       PostStore
	pages       PageStore
	activities  ActivityRecorder
	material    Materializer
	registry    *platforms.Registry
	logger      logging.Logger
	pageTimeout time.Duration
}

// Config holds dispatcher configuration
type Config struct {
	Posts        PostStore
	Pages        PageStore
	Activities   ActivityRecorder
	Materializer Materializer
	Registry     *platforms.Registry
	Logger       logging.Logger
	PageTimeout  time.Duration
}

// NewDispatcher creates a publish dispatcher
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = DefaultPageTimeout
	}
	return &Dispatcher{
		posts:       cfg.Posts,
		pages:       cfg.Pages,
		activities:  cfg.Activities,
		material:    cfg.Materializer,
		registry:    cfg.Registry,
		logger:      cfg.Logger,
		pageTimeout: cfg.PageTimeout,
	}
}

// Publish dispatches one post to every connected target page. The returned
// map always holds one entry per dispatched page, successes and failures
// alike. The aggregate status is all-or-nothing: any page error settles the
// post as failed publishing even when siblings succeeded.
func (d *Dispatcher) Publish(ctx context.Context, postID, actorID string) (map[string]PageResult, error) {
	post, err := d.posts.Get(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to load post %s: %w", postID, err)
	}

	// preconditions: checked before any state mutation or network call
	if len(post.Pages) == 0 {
		return nil, &ValidationError{Reason: "post has no target pages"}
	}

	known, err := d.pages.ListPages(ctx, post.Pages)
	if err != nil {
		return nil, fmt.Errorf("failed to load target pages: %w", err)
	}

	// every targeted page must be dispatchable; unusable targets are not
	// dropped but folded into the reduction as failures, so the post can
	// never settle published while silently skipping a page
	var targets []models.SocialPage
	var rejected []PageResult
	for _, id := range post.Pages {
		page, ok := known[id]
		switch {
		case !ok:
			rejected = append(rejected, failedResult(id, "", fmt.Errorf("target page %s not found", id)))
		case !page.UsableForPublish():
			rejected = append(rejected, failedResult(id, page.Platform,
				fmt.Errorf("page %s is not connected (status %s)", id, page.Status)))
		default:
			targets = append(targets, page)
		}
	}
	if len(targets) == 0 {
		return nil, &ValidationError{Reason: "no connected pages among targets"}
	}

	var scheduledTime *time.Time
	if post.PublishDate != nil && post.PublishDate.After(time.Now()) {
		scheduledTime = post.PublishDate
	}

	// in-flight state is visible before any network call
	post, err = d.posts.UpdateStatus(ctx, post.ID, models.PostPublishing)
	if err != nil {
		return nil, fmt.Errorf("failed to mark post publishing: %w", err)
	}

	if scheduledTime != nil {
		d.record(ctx, post, models.ActivityScheduled, actorID, models.JSONB{
			"scheduled_for": scheduledTime.Format(time.RFC3339),
		})
	}

	content, err := d.materializeContent(ctx, &post)
	if err != nil {
		if _, serr := d.posts.UpdateStatus(ctx, post.ID, models.PostFailedPublishing); serr != nil {
			d.logger.WithError(serr).WithField("post_id", post.ID).Error("Failed to record media failure status")
		}
		return nil, err
	}

	results := d.dispatchAll(ctx, post, targets, content, scheduledTime)
	for _, r := range rejected {
		results[r.PageID] = r
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}

	if failed > 0 {
		if _, err := d.posts.UpdateStatus(ctx, post.ID, models.PostFailedPublishing); err != nil {
			d.logger.WithError(err).WithField("post_id", post.ID).Error("Failed to settle post as failed")
		}
		d.logger.WithFields(logging.Fields{
			"post_id": post.ID,
			"pages":   len(results),
			"failed":  failed,
		}).Warn("Publish settled with failures")
		return results, fmt.Errorf("publish failed for %d of %d pages", failed, len(results))
	}

	finalStatus := models.PostPublished
	activityType := models.ActivityPublished
	if scheduledTime != nil {
		finalStatus = models.PostScheduled
		activityType = models.ActivityScheduled
	}
	if _, err := d.posts.UpdateStatus(ctx, post.ID, finalStatus); err != nil {
		return results, fmt.Errorf("failed to settle post status: %w", err)
	}
	d.record(ctx, post, activityType, actorID, models.JSONB{
		"pages": len(results),
	})

	d.logger.WithFields(logging.Fields{
		"post_id": post.ID,
		"pages":   len(results),
		"status":  string(finalStatus),
	}).Info("Publish settled")
	return results, nil
}

// materializeContent materializes every block fully before any dispatch
// begins, persists rewritten media URLs, and builds the platform-agnostic
// payload from the current versions
func (d *Dispatcher) materializeContent(ctx context.Context, post *models.Post) (platforms.PostContent, error) {
	var captions []string
	var urls []string
	var kind models.MediaKind
	var thumbnail string

	for i, block := range post.Blocks {
		materialized, err := d.material.MaterializeBlock(ctx, block)
		if err != nil {
			return platforms.PostContent{}, err
		}

		for j := range materialized.Versions {
			before := block.Versions[j].File.URL
			after := materialized.Versions[j].File.URL
			if before != after {
				if err := d.posts.SetVersionMediaURL(ctx, materialized.Versions[j].ID, after); err != nil {
					return platforms.PostContent{}, err
				}
			}
		}
		post.Blocks[i] = materialized

		if current := materialized.CurrentVersion(); current != nil {
			if current.Caption != "" {
				captions = append(captions, current.Caption)
			}
			if current.File.URL != "" {
				urls = append(urls, current.File.URL)
				kind = current.File.Kind
				if thumbnail == "" {
					thumbnail = current.File.ThumbnailURL
				}
			}
		}
	}

	content := platforms.PostContent{Text: strings.Join(captions, "\n\n")}
	if len(urls) > 0 {
		content.Media = &platforms.MediaAttachment{
			Kind:         kind,
			URLs:         urls,
			ThumbnailURL: thumbnail,
		}
	}
	return content, nil
}

// dispatchAll issues one publish call per page concurrently and waits for
// every call to settle before returning. A slow or failing page never
// blocks evaluation of the others.
func (d *Dispatcher) dispatchAll(ctx context.Context, post models.Post, targets []models.SocialPage, content platforms.PostContent, scheduledTime *time.Time) map[string]PageResult {
	results := make(map[string]PageResult, len(targets))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, page := range targets {
		wg.Add(1)
		go func(page models.SocialPage) {
			defer wg.Done()
			result := d.dispatchOne(ctx, post, page, content, scheduledTime)
			mu.Lock()
			results[page.ID] = result
			mu.Unlock()
		}(page)
	}
	wg.Wait()

	return results
}

func (d *Dispatcher) dispatchOne(ctx context.Context, post models.Post, page models.SocialPage, content platforms.PostContent, scheduledTime *time.Time) PageResult {
	result := PageResult{PageID: page.ID, Platform: page.Platform}

	adapter, ok := d.registry.Get(page.Platform)
	if !ok {
		result.Err = fmt.Errorf("no adapter registered for %s", page.Platform)
		result.ErrorMessage = result.Err.Error()
		return result
	}

	opts := platforms.PublishOptions{
		ScheduledTime: scheduledTime,
		Settings:      platforms.MapSettings(page.Platform, post.Settings),
	}

	callCtx, cancel := context.WithTimeout(ctx, d.pageTimeout)
	defer cancel()

	published, err := adapter.Publish(callCtx, page, content, opts)
	if err != nil {
		result.Err = err
		result.ErrorMessage = err.Error()
		d.logger.WithError(err).WithFields(logging.Fields{
			"post_id":  post.ID,
			"page_id":  page.ID,
			"platform": string(page.Platform),
		}).Warn("Page publish failed")
		return result
	}

	result.ExternalPostID = published.ExternalPostID
	return result
}

func failedResult(pageID string, platform models.Platform, err error) PageResult {
	return PageResult{
		PageID:       pageID,
		Platform:     platform,
		Err:          err,
		ErrorMessage: err.Error(),
	}
}

func (d *Dispatcher) record(ctx context.Context, post models.Post, kind models.ActivityType, actorID string, metadata models.JSONB) {
	if err := d.activities.Record(ctx, post.WorkspaceID, post.ID, kind, actorID, metadata); err != nil {
		d.logger.WithError(err).WithFields(logging.Fields{
			"post_id": post.ID,
			"type":    string(kind),
		}).Error("Failed to record activity")
	}
}
