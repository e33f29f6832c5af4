package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Feedbird/platform-sub002/pkg/models"
)

// SocialStore persists social accounts and their pages
type SocialStore struct {
	db *sql.DB
}

// NewSocialStore creates a social store over the given connection
func NewSocialStore(db *sql.DB) *SocialStore {
	return &SocialStore{db: db}
}

// GetAccount loads one social account by its local id
func (s *SocialStore) GetAccount(ctx context.Context, id string) (models.SocialAccount, error) {
	if s == nil || s.db == nil {
		return models.SocialAccount{}, wrap("get account", errors.New("social store unavailable"))
	}

	var acct models.SocialAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, platform, name, account_id, auth_token,
			connected, status, metadata, created_at, updated_at
		FROM social_accounts
		WHERE id = $1
	`, id).Scan(
		&acct.ID,
		&acct.WorkspaceID,
		&acct.Platform,
		&acct.Name,
		&acct.AccountID,
		&acct.AuthToken,
		&acct.Connected,
		&acct.Status,
		&acct.Metadata,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return models.SocialAccount{}, ErrNotFound
	}
	if err != nil {
		return models.SocialAccount{}, wrap("get account", err)
	}
	return acct, nil
}

// UpdateAccountStatus replaces an account's connection state
func (s *SocialStore) UpdateAccountStatus(ctx context.Context, id string, connected bool, status models.PageStatus) error {
	if s == nil || s.db == nil {
		return wrap("update account status", errors.New("social store unavailable"))
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE social_accounts SET connected = $2, status = $3, updated_at = NOW()
		WHERE id = $1
	`, id, connected, string(status))
	if err != nil {
		return wrap("update account status", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetPage loads one social page by its local id
func (s *SocialStore) GetPage(ctx context.Context, id string) (models.SocialPage, error) {
	if s == nil || s.db == nil {
		return models.SocialPage{}, wrap("get page", errors.New("social store unavailable"))
	}

	row := s.db.QueryRowContext(ctx, selectPageColumns+` WHERE id = $1`, id)
	page, err := scanPage(row)
	if err == sql.ErrNoRows {
		return models.SocialPage{}, ErrNotFound
	}
	if err != nil {
		return models.SocialPage{}, wrap("get page", err)
	}
	return page, nil
}

// ListPages returns the pages with the given local ids, keyed by id.
// Missing ids are simply absent from the result.
func (s *SocialStore) ListPages(ctx context.Context, ids []string) (map[string]models.SocialPage, error) {
	if s == nil || s.db == nil {
		return nil, wrap("list pages", errors.New("social store unavailable"))
	}

	out := make(map[string]models.SocialPage, len(ids))
	for _, id := range ids {
		page, err := s.GetPage(ctx, id)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[page.ID] = page
	}
	return out, nil
}

// ListPagesByAccount returns every page belonging to one account
func (s *SocialStore) ListPagesByAccount(ctx context.Context, accountID string) ([]models.SocialPage, error) {
	if s == nil || s.db == nil {
		return nil, wrap("list pages by account", errors.New("social store unavailable"))
	}

	rows, err := s.db.QueryContext(ctx, selectPageColumns+` WHERE account_id = $1 ORDER BY created_at`, accountID)
	if err != nil {
		return nil, wrap("list pages by account", err)
	}
	defer rows.Close()

	var pages []models.SocialPage
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, wrap("scan page", err)
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate pages", err)
	}
	return pages, nil
}

// UpsertStagedPage inserts a staged page, or refreshes the display fields of
// an existing row with the same provider identity and re-links it to the
// (possibly new) local account. Re-staging never resets a page that has
// already been confirmed.
func (s *SocialStore) UpsertStagedPage(ctx context.Context, page models.SocialPage) (models.SocialPage, error) {
	if s == nil || s.db == nil {
		return models.SocialPage{}, wrap("upsert staged page", errors.New("social store unavailable"))
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO social_pages (
			id, workspace_id, account_id, platform, entity_type, name, page_id,
			auth_token, connected, status, follower_count, post_count, metadata,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		ON CONFLICT (workspace_id, platform, page_id) DO UPDATE SET
			account_id = EXCLUDED.account_id,
			name = EXCLUDED.name,
			auth_token = EXCLUDED.auth_token,
			follower_count = EXCLUDED.follower_count,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()
		RETURNING `+pageColumns,
		page.ID, page.WorkspaceID, page.AccountID, string(page.Platform),
		string(page.EntityType), page.Name, page.PageID, page.AuthToken,
		page.Connected, string(page.Status), page.FollowerCount, page.PostCount,
		page.Metadata,
	)
	saved, err := scanPage(row)
	if err != nil {
		return models.SocialPage{}, wrap("upsert staged page", err)
	}
	return saved, nil
}

// ReplacePage overwrites a page's full mutable state
func (s *SocialStore) ReplacePage(ctx context.Context, page models.SocialPage) error {
	if s == nil || s.db == nil {
		return wrap("replace page", errors.New("social store unavailable"))
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE social_pages SET
			name = $2, auth_token = $3, connected = $4, status = $5,
			status_updated_at = $6, last_sync_at = $7, follower_count = $8,
			post_count = $9, metadata = $10, updated_at = NOW()
		WHERE id = $1
	`, page.ID, page.Name, page.AuthToken, page.Connected, string(page.Status),
		page.StatusUpdatedAt, page.LastSyncAt, page.FollowerCount, page.PostCount,
		page.Metadata,
	)
	if err != nil {
		return wrap("replace page", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePageStatus replaces only a page's connection state and stamps the
// status transition time
func (s *SocialStore) UpdatePageStatus(ctx context.Context, id string, connected bool, status models.PageStatus) error {
	if s == nil || s.db == nil {
		return wrap("update page status", errors.New("social store unavailable"))
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE social_pages SET connected = $2, status = $3,
			status_updated_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, id, connected, string(status))
	if err != nil {
		return wrap("update page status", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePage removes a page row entirely
func (s *SocialStore) DeletePage(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return wrap("delete page", errors.New("social store unavailable"))
	}

	_, err := s.db.ExecContext(ctx, `DELETE FROM social_pages WHERE id = $1`, id)
	return wrap("delete page", err)
}

// ListAccountsWithPages loads every account in a workspace along with its
// pages, for full connection-state reloads
func (s *SocialStore) ListAccountsWithPages(ctx context.Context, workspaceID string) ([]models.SocialAccount, map[string][]models.SocialPage, error) {
	if s == nil || s.db == nil {
		return nil, nil, wrap("list accounts", errors.New("social store unavailable"))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, platform, name, account_id, auth_token,
			connected, status, metadata, created_at, updated_at
		FROM social_accounts
		WHERE workspace_id = $1
		ORDER BY created_at
	`, workspaceID)
	if err != nil {
		return nil, nil, wrap("list accounts", err)
	}
	defer rows.Close()

	var accounts []models.SocialAccount
	for rows.Next() {
		var acct models.SocialAccount
		if err := rows.Scan(
			&acct.ID, &acct.WorkspaceID, &acct.Platform, &acct.Name,
			&acct.AccountID, &acct.AuthToken, &acct.Connected, &acct.Status,
			&acct.Metadata, &acct.CreatedAt, &acct.UpdatedAt,
		); err != nil {
			return nil, nil, wrap("scan account", err)
		}
		accounts = append(accounts, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, wrap("iterate accounts", err)
	}

	pagesByAccount := make(map[string][]models.SocialPage)
	for _, acct := range accounts {
		pages, err := s.ListPagesByAccount(ctx, acct.ID)
		if err != nil {
			return nil, nil, err
		}
		pagesByAccount[acct.ID] = pages
	}
	return accounts, pagesByAccount, nil
}

// CountConnectedPagesByPlatform tallies connected pages per platform for one
// workspace
func (s *SocialStore) CountConnectedPagesByPlatform(ctx context.Context, workspaceID string) (map[models.Platform]int, error) {
	if s == nil || s.db == nil {
		return nil, wrap("count pages", errors.New("social store unavailable"))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT platform, COUNT(*)
		FROM social_pages
		WHERE workspace_id = $1 AND connected = TRUE
		GROUP BY platform
	`, workspaceID)
	if err != nil {
		return nil, wrap("count pages", err)
	}
	defer rows.Close()

	counts := make(map[models.Platform]int)
	for rows.Next() {
		var platform string
		var n int
		if err := rows.Scan(&platform, &n); err != nil {
			return nil, wrap("scan page count", err)
		}
		counts[models.Platform(platform)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate page counts", err)
	}
	return counts, nil
}

// SavePostHistory stores platform-reported posts for one page, replacing any
// rows already held for the same provider post ids
func (s *SocialStore) SavePostHistory(ctx context.Context, pageID string, posts []models.PostHistory) error {
	if s == nil || s.db == nil {
		return wrap("save post history", errors.New("social store unavailable"))
	}

	for _, p := range posts {
		id := p.ID
		if id == "" {
			id = uuid.New().String()
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO post_history (
				id, page_id, post_id, content, media_urls, status, published_at, scheduled_for
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (page_id, post_id) DO UPDATE SET
				content = EXCLUDED.content,
				media_urls = EXCLUDED.media_urls,
				status = EXCLUDED.status,
				published_at = EXCLUDED.published_at,
				scheduled_for = EXCLUDED.scheduled_for
		`, id, pageID, p.PostID, p.Content, pq.Array(p.MediaURLs), string(p.Status), p.PublishedAt, p.ScheduledFor)
		if err != nil {
			return wrap("save post history", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE social_pages SET last_sync_at = $2, updated_at = NOW() WHERE id = $1
	`, pageID, time.Now())
	return wrap("save post history", err)
}

const pageColumns = `id, workspace_id, account_id, platform, entity_type, name,
	page_id, auth_token, connected, status, status_updated_at, last_sync_at,
	follower_count, post_count, metadata, created_at, updated_at`

const selectPageColumns = `SELECT ` + pageColumns + ` FROM social_pages`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPage(row rowScanner) (models.SocialPage, error) {
	var page models.SocialPage
	var statusUpdated, lastSync sql.NullTime
	err := row.Scan(
		&page.ID,
		&page.WorkspaceID,
		&page.AccountID,
		&page.Platform,
		&page.EntityType,
		&page.Name,
		&page.PageID,
		&page.AuthToken,
		&page.Connected,
		&page.Status,
		&statusUpdated,
		&lastSync,
		&page.FollowerCount,
		&page.PostCount,
		&page.Metadata,
		&page.CreatedAt,
		&page.UpdatedAt,
	)
	if err != nil {
		return models.SocialPage{}, err
	}
	if statusUpdated.Valid {
		t := statusUpdated.Time
		page.StatusUpdatedAt = &t
	}
	if lastSync.Valid {
		t := lastSync.Time
		page.LastSyncAt = &t
	}
	return page, nil
}
