package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Feedbird/platform-sub002/internal/publisher"
	"github.com/Feedbird/platform-sub002/internal/store"
	"github.com/Feedbird/platform-sub002/pkg/logging"
	"github.com/Feedbird/platform-sub002/pkg/models"
)

// PostHandler serves post publishing and approval endpoints
type PostHandler struct {
	posts      *store.PostStore
	dispatcher *publisher.Dispatcher
	recorder   ActivityService
	logger     logging.Logger
	metrics    *PublishMetrics
}

// ActivityService drives approval transitions and reads the audit log
type ActivityService interface {
	Transition(ctx context.Context, postID string, action models.ActivityType, actorID, comment string) (models.Post, error)
	List(ctx context.Context, postID string) ([]models.Activity, error)
}

// NewPostHandler creates a post handler
func NewPostHandler(posts *store.PostStore, dispatcher *publisher.Dispatcher, recorder ActivityService, logger logging.Logger, metrics *PublishMetrics) *PostHandler {
	return &PostHandler{
		posts:      posts,
		dispatcher: dispatcher,
		recorder:   recorder,
		logger:     logger,
		metrics:    metrics,
	}
}

// GetPost returns one post with blocks and versions
func (h *PostHandler) GetPost(c *gin.Context) {
	post, err := h.posts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Post not found"})
			return
		}
		h.logger.WithError(err).Error("Failed to load post")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load post"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "post": post})
}

type publishRequest struct {
	ActorID string `json:"actor_id" binding:"required"`
}

// Publish dispatches a post to all its connected pages
func (h *PostHandler) Publish(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.metrics.IncPublish("bad_request")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
		return
	}

	postID := c.Param("id")
	results, err := h.dispatcher.Publish(c.Request.Context(), postID, req.ActorID)
	if err != nil {
		var verr *publisher.ValidationError
		if errors.As(err, &verr) {
			h.metrics.IncPublish("validation_failed")
			c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "error": verr.Reason})
			return
		}

		h.metrics.IncPublish("failed")
		h.logger.WithError(err).WithField("post_id", postID).Warn("Publish failed")
		// per-page detail still goes back for drill-down
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error":   err.Error(),
			"results": results,
		})
		return
	}

	h.metrics.IncPublish("published")
	c.JSON(http.StatusOK, gin.H{"success": true, "results": results})
}

type approvalRequest struct {
	ActorID string `json:"actor_id" binding:"required"`
	Comment string `json:"comment"`
}

// Approve marks a post approved
func (h *PostHandler) Approve(c *gin.Context) {
	h.transition(c, models.ActivityApproved)
}

// RequestChanges sends a post back for revisions
func (h *PostHandler) RequestChanges(c *gin.Context) {
	h.transition(c, models.ActivityRevisionRequest)
}

// MarkRevised flags a revised post as ready for another review
func (h *PostHandler) MarkRevised(c *gin.Context) {
	h.transition(c, models.ActivityRevised)
}

func (h *PostHandler) transition(c *gin.Context, action models.ActivityType) {
	var req approvalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
		return
	}

	post, err := h.recorder.Transition(c.Request.Context(), c.Param("id"), action, req.ActorID, req.Comment)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Post not found"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "post": post})
}

// ListActivities returns a post's audit log
func (h *PostHandler) ListActivities(c *gin.Context) {
	activities, err := h.recorder.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to load activities")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load activities"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "activities": activities})
}
