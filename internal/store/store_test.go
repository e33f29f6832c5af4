package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/Feedbird/platform-sub002/pkg/models"
)

func TestPostStoreGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, workspace_id, board_id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	s := NewPostStore(db)
	_, err = s.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostStoreGetWithBlocks(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	publishDate := now.Add(time.Hour)
	mock.ExpectQuery("SELECT id, workspace_id, board_id").
		WithArgs("post-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "workspace_id", "board_id", "status", "format", "publish_date",
			"platforms", "pages", "settings", "created_at", "updated_at",
		}).AddRow("post-1", "ws-1", "board-1", "scheduled", "image", publishDate,
			"{facebook,linkedin}", "{page-1}", []byte(`{}`), now, now))

	mock.ExpectQuery("SELECT id, post_id, kind, current_version_id").
		WithArgs("post-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id", "kind", "current_version_id"}).
			AddRow("block-1", "post-1", "image", "ver-2"))

	mock.ExpectQuery("SELECT id, block_id, caption").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "block_id", "caption", "file_kind", "file_url",
			"file_thumbnail_url", "created_by", "created_at",
		}).AddRow("ver-1", "block-1", "old", "image", "https://cdn.example.com/a.jpg", nil, "user-1", now.Add(-time.Hour)).
			AddRow("ver-2", "block-1", "new", "image", "https://cdn.example.com/b.jpg", nil, "user-1", now))

	s := NewPostStore(db)
	post, err := s.Get(context.Background(), "post-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if post.Status != models.PostScheduled {
		t.Errorf("expected scheduled, got %s", post.Status)
	}
	if len(post.Platforms) != 2 || post.Platforms[0] != models.PlatformFacebook {
		t.Errorf("unexpected platforms: %v", post.Platforms)
	}
	if len(post.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(post.Blocks))
	}
	current := post.Blocks[0].CurrentVersion()
	if current == nil || current.ID != "ver-2" {
		t.Errorf("expected current version ver-2, got %+v", current)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostStoreUpdateStatusMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE posts SET status").
		WithArgs("missing", "published").
		WillReturnResult(sqlmock.NewResult(0, 0))

	s := NewPostStore(db)
	_, err = s.UpdateStatus(context.Background(), "missing", models.PostPublished)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostStoreNilGuard(t *testing.T) {
	var s *PostStore
	if _, err := s.Get(context.Background(), "x"); err == nil {
		t.Error("expected error from nil store")
	}
	var perr *PersistenceError
	_, err := s.ListStatusRows(context.Background())
	if !errors.As(err, &perr) {
		t.Errorf("expected PersistenceError, got %v", err)
	}
}

func TestSocialStoreUpdatePageStatusMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE social_pages SET connected").
		WithArgs("missing", false, "expired").
		WillReturnResult(sqlmock.NewResult(0, 0))

	s := NewSocialStore(db)
	err = s.UpdatePageStatus(context.Background(), "missing", false, models.PageExpired)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSocialStoreCountConnectedPages(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT platform, COUNT").
		WithArgs("ws-1").
		WillReturnRows(sqlmock.NewRows([]string{"platform", "count"}).
			AddRow("facebook", 3).
			AddRow("tiktok", 1))

	s := NewSocialStore(db)
	counts, err := s.CountConnectedPagesByPlatform(context.Background(), "ws-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[models.PlatformFacebook] != 3 || counts[models.PlatformTikTok] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestSocialStoreUpsertStagedPageRelinksAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	// the conflict clause must re-link the row to the incoming account id,
	// not just refresh display fields
	mock.ExpectQuery(`(?s)ON CONFLICT \(workspace_id, platform, page_id\) DO UPDATE SET\s+account_id = EXCLUDED\.account_id`).
		WithArgs("local-1", "ws-1", "acct-new", "facebook", "page", "Page One",
			"ext-1", "tok", false, "pending", 0, 0, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "workspace_id", "account_id", "platform", "entity_type", "name",
			"page_id", "auth_token", "connected", "status", "status_updated_at",
			"last_sync_at", "follower_count", "post_count", "metadata",
			"created_at", "updated_at",
		}).AddRow("local-1", "ws-1", "acct-new", "facebook", "page", "Page One",
			"ext-1", "tok", true, "active", nil, nil, 0, 0, []byte(`{}`), now, now))

	s := NewSocialStore(db)
	saved, err := s.UpsertStagedPage(context.Background(), models.SocialPage{
		ID: "local-1", WorkspaceID: "ws-1", AccountID: "acct-new",
		Platform: models.PlatformFacebook, EntityType: models.EntityPage,
		Name: "Page One", PageID: "ext-1", AuthToken: "tok",
		Status: models.PagePending,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if saved.AccountID != "acct-new" {
		t.Errorf("expected page re-linked to acct-new, got %s", saved.AccountID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// nonEmptyString matches any non-empty string argument
type nonEmptyString struct{}

func (nonEmptyString) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && s != ""
}

func TestSocialStoreSavePostHistoryGeneratesIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	published := time.Now().Add(-time.Hour)
	mock.ExpectExec(`(?s)INSERT INTO post_history.*media_urls.*ON CONFLICT \(page_id, post_id\)`).
		WithArgs(nonEmptyString{}, "pg-1", "ext-1", "hello", sqlmock.AnyArg(),
			"published", &published, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE social_pages SET last_sync_at").
		WithArgs("pg-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	s := NewSocialStore(db)
	err = s.SavePostHistory(context.Background(), "pg-1", []models.PostHistory{{
		PostID:      "ext-1",
		Content:     "hello",
		MediaURLs:   []string{"https://cdn.example.com/a.jpg"},
		Status:      models.HistoryPublished,
		PublishedAt: published,
	}})
	if err != nil {
		t.Fatalf("save post history: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestActivityStoreAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO activities").
		WithArgs("act-1", "ws-1", "post-1", "published", "system", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	s := NewActivityStore(db)
	err = s.Append(context.Background(), models.Activity{
		ID:          "act-1",
		WorkspaceID: "ws-1",
		PostID:      "post-1",
		Type:        models.ActivityPublished,
		ActorID:     "system",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestActivityStoreListNewestFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)FROM activities\s+WHERE post_id = \$1\s+ORDER BY created_at DESC`).
		WithArgs("post-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "workspace_id", "post_id", "type", "actor_id", "metadata", "created_at",
		}).AddRow("act-2", "ws-1", "post-1", "published", "system", []byte(`{}`), now).
			AddRow("act-1", "ws-1", "post-1", "scheduled", "user-1", []byte(`{}`), now.Add(-time.Minute)))

	s := NewActivityStore(db)
	out, err := s.ListByPost(context.Background(), "post-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 2 || out[0].ID != "act-2" {
		t.Fatalf("expected newest activity first, got %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMessageStoreMarkNotifiedEmpty(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// no expectation registered: an empty id list must not touch the db
	s := NewMessageStore(db)
	if err := s.MarkNotified(context.Background(), nil); err != nil {
		t.Fatalf("mark notified: %v", err)
	}
}

func TestPersistenceErrorUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := wrap("get post", inner)
	if !errors.Is(err, inner) {
		t.Error("expected wrapped error to unwrap to inner")
	}
	if wrap("noop", nil) != nil {
		t.Error("wrapping nil should stay nil")
	}
}
