package reconciler

import (
	"context"
	"time"

	"github.com/Feedbird/platform-sub002/internal/store"
	"github.com/Feedbird/platform-sub002/pkg/logging"
	"github.com/Feedbird/platform-sub002/pkg/models"
)

// PostStatusStore is the slice of the post store the driver needs
type PostStatusStore interface {
	ListStatusRows(ctx context.Context) ([]store.PostStatusRow, error)
	UpdateStatus(ctx context.Context, id string, status models.PostStatus) (models.Post, error)
}

// Driver periodically sweeps all posts and applies the reconcile rule
type Driver struct {
	posts    PostStatusStore
	interval time.Duration
	logger   logging.Logger
	now      func() time.Time
}

// NewDriver creates a reconcile driver with the given sweep interval
func NewDriver(posts PostStatusStore, interval time.Duration, logger logging.Logger) *Driver {
	return &Driver{
		posts:    posts,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start runs the sweep loop until the context is cancelled. The first sweep
// happens immediately so restarts don't wait a full interval to catch up.
func (d *Driver) Start(ctx context.Context) {
	d.logger.WithField("interval", d.interval.String()).Info("Starting status reconciler")

	if err := d.Sweep(ctx); err != nil {
		d.logger.WithError(err).Error("Initial reconcile sweep failed")
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Status reconciler stopped")
			return
		case <-ticker.C:
			if err := d.Sweep(ctx); err != nil {
				d.logger.WithError(err).Error("Reconcile sweep failed")
			}
		}
	}
}

// Sweep scans every dated post and corrects drifted statuses. The scan
// short-circuits without any writes when no row needs correction.
func (d *Driver) Sweep(ctx context.Context) error {
	rows, err := d.posts.ListStatusRows(ctx)
	if err != nil {
		return err
	}

	now := d.now()
	var drifted []store.PostStatusRow
	for _, row := range rows {
		if NeedsReconcile(row.Status, row.PublishDate, now) {
			drifted = append(drifted, row)
		}
	}
	if len(drifted) == 0 {
		return nil
	}

	corrected := 0
	for _, row := range drifted {
		next := Reconcile(row.Status, row.PublishDate, now)
		if _, err := d.posts.UpdateStatus(ctx, row.ID, next); err != nil {
			d.logger.WithError(err).WithField("post_id", row.ID).Error("Failed to correct post status")
			continue
		}
		d.logger.WithFields(logging.Fields{
			"post_id": row.ID,
			"from":    string(row.Status),
			"to":      string(next),
		}).Info("Corrected post status")
		corrected++
	}

	d.logger.WithFields(logging.Fields{
		"scanned":   len(rows),
		"corrected": corrected,
	}).Debug("Reconcile sweep complete")
	return nil
}
