package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Feedbird/platform-sub002/internal/connections"
	"github.com/Feedbird/platform-sub002/internal/store"
	"github.com/Feedbird/platform-sub002/pkg/logging"
)

// ConnectionHandler serves the social page lifecycle endpoints
type ConnectionHandler struct {
	manager *connections.Manager
	social  *store.SocialStore
	logger  logging.Logger
	metrics *PublishMetrics
}

// NewConnectionHandler creates a connection handler
func NewConnectionHandler(manager *connections.Manager, social *store.SocialStore, logger logging.Logger, metrics *PublishMetrics) *ConnectionHandler {
	return &ConnectionHandler{manager: manager, social: social, logger: logger, metrics: metrics}
}

type stageRequest struct {
	Pages []connections.StagedPage `json:"pages" binding:"required"`
}

// StagePages upserts discovered pages for an account
func (h *ConnectionHandler) StagePages(c *gin.Context) {
	var req stageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
		return
	}
	if len(req.Pages) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No pages supplied"})
		return
	}

	pages, err := h.manager.StagePages(c.Request.Context(), c.Param("id"), req.Pages)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Account not found"})
			return
		}
		h.logger.WithError(err).Error("Failed to stage pages")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to stage pages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "pages": pages})
}

// ConfirmPage promotes a staged page to usable
func (h *ConnectionHandler) ConfirmPage(c *gin.Context) {
	page, err := h.manager.ConfirmPage(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Page not found"})
			return
		}
		h.metrics.IncConnection("confirm", "failed")
		// confirm failures need a user decision (re-auth), so the reason
		// travels back verbatim
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": err.Error()})
		return
	}
	h.metrics.IncConnection("confirm", "ok")
	c.JSON(http.StatusOK, gin.H{"success": true, "page": page})
}

// DisconnectPage disconnects a page and returns the reloaded workspace state
func (h *ConnectionHandler) DisconnectPage(c *gin.Context) {
	accounts, pages, err := h.manager.DisconnectPage(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Page not found"})
			return
		}
		h.logger.WithError(err).Error("Failed to disconnect page")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to disconnect page"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "accounts": accounts, "pages": pages})
}

// CheckPageStatus probes a page's current validity
func (h *ConnectionHandler) CheckPageStatus(c *gin.Context) {
	page, err := h.manager.CheckPageStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Page not found"})
			return
		}
		h.metrics.IncConnection("check_status", "failed")
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": err.Error()})
		return
	}
	h.metrics.IncConnection("check_status", "ok")
	c.JSON(http.StatusOK, gin.H{"success": true, "page": page})
}

// SyncHistory pulls platform post history for a page
func (h *ConnectionHandler) SyncHistory(c *gin.Context) {
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	synced, err := h.manager.SyncPostHistory(c.Request.Context(), c.Param("id"), pageSize)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Page not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "synced": synced})
}

// DeletePagePost removes one platform-side post from a page
func (h *ConnectionHandler) DeletePagePost(c *gin.Context) {
	err := h.manager.DeletePagePost(c.Request.Context(), c.Param("id"), c.Param("postId"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Page not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PageCounts tallies connected pages per platform for a workspace
func (h *ConnectionHandler) PageCounts(c *gin.Context) {
	counts, err := h.social.CountConnectedPagesByPlatform(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to count pages")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to count pages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "counts": counts})
}
