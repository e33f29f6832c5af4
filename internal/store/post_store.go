package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/Feedbird/platform-sub002/pkg/models"
)

// PostStatusRow is the minimal projection the reconciler driver scans.
// Loading full posts for the periodic sweep would be wasteful.
type PostStatusRow struct {
	ID          string
	Status      models.PostStatus
	PublishDate *time.Time
}

// PostStore persists posts and their media blocks
type PostStore struct {
	db *sql.DB
}

// NewPostStore creates a post store over the given connection
func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

// Get loads one post with its blocks and versions
func (s *PostStore) Get(ctx context.Context, id string) (models.Post, error) {
	if s == nil || s.db == nil {
		return models.Post{}, wrap("get post", errors.New("post store unavailable"))
	}

	var post models.Post
	var publishDate sql.NullTime
	var platforms pq.StringArray
	var pages pq.StringArray
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, board_id, status, format, publish_date,
			platforms, pages, settings, created_at, updated_at
		FROM posts
		WHERE id = $1
	`, id).Scan(
		&post.ID,
		&post.WorkspaceID,
		&post.BoardID,
		&post.Status,
		&post.Format,
		&publishDate,
		&platforms,
		&pages,
		&post.Settings,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return models.Post{}, ErrNotFound
	}
	if err != nil {
		return models.Post{}, wrap("get post", err)
	}

	if publishDate.Valid {
		t := publishDate.Time
		post.PublishDate = &t
	}
	for _, p := range platforms {
		post.Platforms = append(post.Platforms, models.Platform(p))
	}
	post.Pages = []string(pages)

	blocks, err := s.loadBlocks(ctx, post.ID)
	if err != nil {
		return models.Post{}, err
	}
	post.Blocks = blocks

	return post, nil
}

func (s *PostStore) loadBlocks(ctx context.Context, postID string) ([]models.Block, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, post_id, kind, current_version_id
		FROM post_blocks
		WHERE post_id = $1
		ORDER BY position
	`, postID)
	if err != nil {
		return nil, wrap("load blocks", err)
	}
	defer rows.Close()

	var blocks []models.Block
	var blockIDs []string
	for rows.Next() {
		var b models.Block
		if err := rows.Scan(&b.ID, &b.PostID, &b.Kind, &b.CurrentVersionID); err != nil {
			return nil, wrap("scan block", err)
		}
		blocks = append(blocks, b)
		blockIDs = append(blockIDs, b.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate blocks", err)
	}
	if len(blocks) == 0 {
		return blocks, nil
	}

	vrows, err := s.db.QueryContext(ctx, `
		SELECT id, block_id, caption, file_kind, file_url, file_thumbnail_url,
			created_by, created_at
		FROM post_versions
		WHERE block_id = ANY($1)
		ORDER BY created_at
	`, pq.Array(blockIDs))
	if err != nil {
		return nil, wrap("load versions", err)
	}
	defer vrows.Close()

	byBlock := make(map[string][]models.Version)
	for vrows.Next() {
		var v models.Version
		var thumb sql.NullString
		if err := vrows.Scan(&v.ID, &v.BlockID, &v.Caption, &v.File.Kind, &v.File.URL, &thumb, &v.CreatedBy, &v.CreatedAt); err != nil {
			return nil, wrap("scan version", err)
		}
		if thumb.Valid {
			v.File.ThumbnailURL = thumb.String
		}
		byBlock[v.BlockID] = append(byBlock[v.BlockID], v)
	}
	if err := vrows.Err(); err != nil {
		return nil, wrap("iterate versions", err)
	}

	for i := range blocks {
		blocks[i].Versions = byBlock[blocks[i].ID]
	}
	return blocks, nil
}

// UpdateStatus replaces a post's status and returns the authoritative record
func (s *PostStore) UpdateStatus(ctx context.Context, id string, status models.PostStatus) (models.Post, error) {
	if s == nil || s.db == nil {
		return models.Post{}, wrap("update post status", errors.New("post store unavailable"))
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE posts SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, string(status))
	if err != nil {
		return models.Post{}, wrap("update post status", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.Post{}, ErrNotFound
	}

	return s.Get(ctx, id)
}

// SetVersionMediaURL rewrites one version's media URL after materialization
func (s *PostStore) SetVersionMediaURL(ctx context.Context, versionID, url string) error {
	if s == nil || s.db == nil {
		return wrap("set version media url", errors.New("post store unavailable"))
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE post_versions SET file_url = $2 WHERE id = $1
	`, versionID, url)
	return wrap("set version media url", err)
}

// ListStatusRows returns the status projection of every post that carries a
// publish date. Posts without one can never be re-derived, so they are
// skipped at the query level.
func (s *PostStore) ListStatusRows(ctx context.Context) ([]PostStatusRow, error) {
	if s == nil || s.db == nil {
		return nil, wrap("list status rows", errors.New("post store unavailable"))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, publish_date
		FROM posts
		WHERE publish_date IS NOT NULL
	`)
	if err != nil {
		return nil, wrap("list status rows", err)
	}
	defer rows.Close()

	var out []PostStatusRow
	for rows.Next() {
		var row PostStatusRow
		var publishDate sql.NullTime
		if err := rows.Scan(&row.ID, &row.Status, &publishDate); err != nil {
			return nil, wrap("scan status row", err)
		}
		if publishDate.Valid {
			t := publishDate.Time
			row.PublishDate = &t
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate status rows", err)
	}
	return out, nil
}
