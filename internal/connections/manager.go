// Package connections governs how social accounts and their pages move from
// "just discovered" to "usable for publishing": staging, confirmation,
// status probing and disconnection.
package connections

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Feedbird/platform-sub002/internal/platforms"
	"github.com/Feedbird/platform-sub002/internal/store"
	"github.com/Feedbird/platform-sub002/pkg/logging"
	"github.com/Feedbird/platform-sub002/pkg/models"
)

// SocialStore is the slice of the persistence layer the manager needs
type SocialStore interface {
	GetAccount(ctx context.Context, id string) (models.SocialAccount, error)
	UpdateAccountStatus(ctx context.Context, id string, connected bool, status models.PageStatus) error
	GetPage(ctx context.Context, id string) (models.SocialPage, error)
	ListPagesByAccount(ctx context.Context, accountID string) ([]models.SocialPage, error)
	UpsertStagedPage(ctx context.Context, page models.SocialPage) (models.SocialPage, error)
	ReplacePage(ctx context.Context, page models.SocialPage) error
	UpdatePageStatus(ctx context.Context, id string, connected bool, status models.PageStatus) error
	ListAccountsWithPages(ctx context.Context, workspaceID string) ([]models.SocialAccount, map[string][]models.SocialPage, error)
	SavePostHistory(ctx context.Context, pageID string, posts []models.PostHistory) error
}

// Manager drives the page connection lifecycle. Failures from external
// platforms are never retried here: an expired token needs fresh user
// consent, which a retry loop cannot supply.
type Manager struct {
	social   SocialStore
	registry *platforms.Registry
	logger   logging.Logger
}

// NewManager creates a connection lifecycle manager
func NewManager(social SocialStore, registry *platforms.Registry, logger logging.Logger) *Manager {
	return &Manager{social: social, registry: registry, logger: logger}
}

// StagedPage is one page discovered on the platform side, not yet confirmed
type StagedPage struct {
	PageID     string            `json:"page_id"` // provider's native id
	Name       string            `json:"name"`
	EntityType models.EntityType `json:"entity_type"`
	AuthToken  string            `json:"auth_token,omitempty"`
}

// StagePages upserts discovered pages keyed by the platform-provided page
// identifier. Unknown pages come in as unconfirmed pending; pages already
// known keep their connection state and are merely re-linked to the account.
// Staging the same external page twice never creates duplicates.
func (m *Manager) StagePages(ctx context.Context, accountID string, staged []StagedPage) ([]models.SocialPage, error) {
	account, err := m.social.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", accountID, err)
	}

	out := make([]models.SocialPage, 0, len(staged))
	for _, sp := range staged {
		page := models.SocialPage{
			ID:          uuid.New().String(),
			WorkspaceID: account.WorkspaceID,
			AccountID:   account.ID,
			Platform:    account.Platform,
			EntityType:  sp.EntityType,
			Name:        sp.Name,
			PageID:      sp.PageID,
			AuthToken:   sp.AuthToken,
			Connected:   false,
			Status:      models.PagePending,
		}
		saved, err := m.social.UpsertStagedPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("failed to stage page %s: %w", sp.PageID, err)
		}
		out = append(out, saved)
	}

	m.logger.WithFields(logging.Fields{
		"account_id": accountID,
		"platform":   string(account.Platform),
		"staged":     len(out),
	}).Info("Staged social pages")
	return out, nil
}

// ConfirmPage promotes a staged page to usable. For platforms with a
// page-level connect primitive the platform's authoritative fields replace
// the local row; for platforms without one, confirmation is purely local and
// always succeeds once staged. On failure the page is left untouched.
func (m *Manager) ConfirmPage(ctx context.Context, pageID string) (models.SocialPage, error) {
	page, err := m.social.GetPage(ctx, pageID)
	if err != nil {
		return models.SocialPage{}, fmt.Errorf("failed to load page %s: %w", pageID, err)
	}

	account, err := m.social.GetAccount(ctx, page.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.SocialPage{}, fmt.Errorf("page %s has no owning account", pageID)
		}
		return models.SocialPage{}, fmt.Errorf("failed to load account %s: %w", page.AccountID, err)
	}

	caps, ok := m.registry.Capabilities(page.Platform)
	if !ok {
		return models.SocialPage{}, fmt.Errorf("no adapter registered for %s", page.Platform)
	}

	if !caps.PageConnect {
		// the account is the page; nothing to connect remotely
		now := time.Now()
		page.Connected = true
		page.Status = models.PageActive
		page.StatusUpdatedAt = &now
		if err := m.social.ReplacePage(ctx, page); err != nil {
			return models.SocialPage{}, fmt.Errorf("failed to confirm page %s: %w", pageID, err)
		}
		m.logger.WithField("page_id", pageID).Info("Confirmed page locally")
		return page, nil
	}

	adapter, _ := m.registry.Get(page.Platform)
	connector := adapter.(platforms.PageConnector)

	remote, err := connector.ConnectPage(ctx, account, page.PageID)
	if err != nil {
		return models.SocialPage{}, fmt.Errorf("failed to connect page %s: %w", pageID, err)
	}

	// keep local identity, take the platform's authoritative fields
	now := time.Now()
	page.Name = remote.Name
	page.EntityType = remote.EntityType
	page.AuthToken = remote.AuthToken
	page.FollowerCount = remote.FollowerCount
	page.Metadata = remote.Metadata
	page.Connected = true
	page.Status = models.PageActive
	page.StatusUpdatedAt = &now

	if err := m.social.ReplacePage(ctx, page); err != nil {
		return models.SocialPage{}, fmt.Errorf("failed to save confirmed page %s: %w", pageID, err)
	}

	m.logger.WithFields(logging.Fields{
		"page_id":  pageID,
		"platform": string(page.Platform),
	}).Info("Confirmed page via platform connect")
	return page, nil
}

// DisconnectPage marks the page disconnected, then reloads the full
// account/page set for the workspace. Revoking access can silently
// invalidate sibling pages, so patching the one row locally is not enough.
func (m *Manager) DisconnectPage(ctx context.Context, pageID string) ([]models.SocialAccount, map[string][]models.SocialPage, error) {
	page, err := m.social.GetPage(ctx, pageID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load page %s: %w", pageID, err)
	}

	if err := m.social.UpdatePageStatus(ctx, pageID, false, models.PageDisconnected); err != nil {
		return nil, nil, fmt.Errorf("failed to disconnect page %s: %w", pageID, err)
	}

	m.logger.WithFields(logging.Fields{
		"page_id":  pageID,
		"platform": string(page.Platform),
	}).Info("Disconnected page")

	accounts, pages, err := m.social.ListAccountsWithPages(ctx, page.WorkspaceID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reload workspace %s connections: %w", page.WorkspaceID, err)
	}
	return accounts, pages, nil
}

// CheckPageStatus probes the platform for a page's current validity and
// persists the outcome. Platforms without a status probe are optimistically
// marked active. A probe failure marks the page errored and the error is
// returned; probing never fails silently.
func (m *Manager) CheckPageStatus(ctx context.Context, pageID string) (models.SocialPage, error) {
	page, err := m.social.GetPage(ctx, pageID)
	if err != nil {
		return models.SocialPage{}, fmt.Errorf("failed to load page %s: %w", pageID, err)
	}

	caps, ok := m.registry.Capabilities(page.Platform)
	if !ok {
		return models.SocialPage{}, fmt.Errorf("no adapter registered for %s", page.Platform)
	}

	if !caps.StatusCheck {
		if err := m.social.UpdatePageStatus(ctx, pageID, true, models.PageActive); err != nil {
			return models.SocialPage{}, fmt.Errorf("failed to update page %s: %w", pageID, err)
		}
		page.Connected = true
		page.Status = models.PageActive
		return page, nil
	}

	adapter, _ := m.registry.Get(page.Platform)
	checker := adapter.(platforms.StatusChecker)

	probed, probeErr := checker.CheckPageStatus(ctx, page)
	if probeErr != nil {
		if err := m.social.UpdatePageStatus(ctx, pageID, page.Connected, models.PageError); err != nil {
			m.logger.WithError(err).WithField("page_id", pageID).Error("Failed to record probe failure")
		}
		return models.SocialPage{}, fmt.Errorf("status probe for page %s failed: %w", pageID, probeErr)
	}

	if err := m.social.UpdatePageStatus(ctx, pageID, probed.Connected, probed.Status); err != nil {
		return models.SocialPage{}, fmt.Errorf("failed to update page %s: %w", pageID, err)
	}

	m.logger.WithFields(logging.Fields{
		"page_id":   pageID,
		"platform":  string(page.Platform),
		"status":    string(probed.Status),
		"connected": probed.Connected,
	}).Info("Probed page status")
	return probed, nil
}

// CheckAccountStatus probes the connection state of an account by probing
// its pages; an account whose every page has lost auth is marked expired.
func (m *Manager) CheckAccountStatus(ctx context.Context, accountID string) (models.SocialAccount, error) {
	account, err := m.social.GetAccount(ctx, accountID)
	if err != nil {
		return models.SocialAccount{}, fmt.Errorf("failed to load account %s: %w", accountID, err)
	}

	pages, err := m.social.ListPagesByAccount(ctx, account.ID)
	if err != nil {
		return models.SocialAccount{}, fmt.Errorf("failed to load account pages: %w", err)
	}
	if len(pages) == 0 {
		return account, nil
	}

	expired := 0
	failed := 0
	var firstErr error
	for _, p := range pages {
		probed, err := m.CheckPageStatus(ctx, p.ID)
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if probed.Status == models.PageExpired {
			expired++
		}
	}

	if expired == len(pages) {
		if err := m.social.UpdateAccountStatus(ctx, account.ID, false, models.PageExpired); err != nil {
			return models.SocialAccount{}, fmt.Errorf("failed to expire account %s: %w", accountID, err)
		}
		account.Connected = false
		account.Status = models.PageExpired
	}

	// checks that errored are reported alongside whatever state was settled
	if failed > 0 {
		return account, fmt.Errorf("status checks failed for %d of %d pages: %w", failed, len(pages), firstErr)
	}
	return account, nil
}

// SyncPostHistory pulls published post history for a page from its platform
// and stores it. Pages on platforms without history support return an error
// rather than silently doing nothing.
func (m *Manager) SyncPostHistory(ctx context.Context, pageID string, pageSize int) (int, error) {
	page, err := m.social.GetPage(ctx, pageID)
	if err != nil {
		return 0, fmt.Errorf("failed to load page %s: %w", pageID, err)
	}

	caps, ok := m.registry.Capabilities(page.Platform)
	if !ok {
		return 0, fmt.Errorf("no adapter registered for %s", page.Platform)
	}
	if !caps.History {
		return 0, fmt.Errorf("platform %s does not expose post history", page.Platform)
	}

	adapter, _ := m.registry.Get(page.Platform)
	provider := adapter.(platforms.HistoryProvider)

	if pageSize <= 0 {
		pageSize = 50
	}

	total := 0
	cursor := ""
	for {
		history, err := provider.GetPostHistory(ctx, page, pageSize, cursor)
		if err != nil {
			return total, fmt.Errorf("failed to fetch history for page %s: %w", pageID, err)
		}
		if len(history.Posts) > 0 {
			if err := m.social.SavePostHistory(ctx, pageID, history.Posts); err != nil {
				return total, err
			}
			total += len(history.Posts)
		}
		if history.NextCursor == "" {
			break
		}
		cursor = history.NextCursor
	}

	m.logger.WithFields(logging.Fields{
		"page_id": pageID,
		"synced":  total,
	}).Info("Synced page post history")
	return total, nil
}

// DeletePagePost removes one platform-side post from a page. Platforms
// without delete support reject the call.
func (m *Manager) DeletePagePost(ctx context.Context, pageID, externalPostID string) error {
	page, err := m.social.GetPage(ctx, pageID)
	if err != nil {
		return fmt.Errorf("failed to load page %s: %w", pageID, err)
	}

	caps, ok := m.registry.Capabilities(page.Platform)
	if !ok {
		return fmt.Errorf("no adapter registered for %s", page.Platform)
	}
	if !caps.Delete {
		return fmt.Errorf("platform %s does not support deleting posts", page.Platform)
	}

	adapter, _ := m.registry.Get(page.Platform)
	deleter := adapter.(platforms.PostDeleter)

	if err := deleter.DeletePost(ctx, page, externalPostID); err != nil {
		return fmt.Errorf("failed to delete post %s on page %s: %w", externalPostID, pageID, err)
	}

	m.logger.WithFields(logging.Fields{
		"page_id":          pageID,
		"external_post_id": externalPostID,
	}).Info("Deleted platform post")
	return nil
}
