package connections

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Feedbird/platform-sub002/internal/platforms"
	"github.com/Feedbird/platform-sub002/internal/store"
	"github.com/Feedbird/platform-sub002/pkg/logging"
	"github.com/Feedbird/platform-sub002/pkg/models"
)

type fakeSocialStore struct {
	accounts map[string]models.SocialAccount
	pages    map[string]models.SocialPage
	history  map[string][]models.PostHistory
}

func newFakeSocialStore() *fakeSocialStore {
	return &fakeSocialStore{
		accounts: make(map[string]models.SocialAccount),
		pages:    make(map[string]models.SocialPage),
		history:  make(map[string][]models.PostHistory),
	}
}

func (f *fakeSocialStore) GetAccount(ctx context.Context, id string) (models.SocialAccount, error) {
	acct, ok := f.accounts[id]
	if !ok {
		return models.SocialAccount{}, store.ErrNotFound
	}
	return acct, nil
}

func (f *fakeSocialStore) UpdateAccountStatus(ctx context.Context, id string, connected bool, status models.PageStatus) error {
	acct, ok := f.accounts[id]
	if !ok {
		return store.ErrNotFound
	}
	acct.Connected = connected
	acct.Status = status
	f.accounts[id] = acct
	return nil
}

func (f *fakeSocialStore) GetPage(ctx context.Context, id string) (models.SocialPage, error) {
	page, ok := f.pages[id]
	if !ok {
		return models.SocialPage{}, store.ErrNotFound
	}
	return page, nil
}

func (f *fakeSocialStore) ListPagesByAccount(ctx context.Context, accountID string) ([]models.SocialPage, error) {
	var out []models.SocialPage
	for _, p := range f.pages {
		if p.AccountID == accountID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeSocialStore) UpsertStagedPage(ctx context.Context, page models.SocialPage) (models.SocialPage, error) {
	for id, existing := range f.pages {
		if existing.WorkspaceID == page.WorkspaceID &&
			existing.Platform == page.Platform &&
			existing.PageID == page.PageID {
			existing.Name = page.Name
			existing.AuthToken = page.AuthToken
			existing.AccountID = page.AccountID
			f.pages[id] = existing
			return existing, nil
		}
	}
	f.pages[page.ID] = page
	return page, nil
}

func (f *fakeSocialStore) ReplacePage(ctx context.Context, page models.SocialPage) error {
	if _, ok := f.pages[page.ID]; !ok {
		return store.ErrNotFound
	}
	f.pages[page.ID] = page
	return nil
}

func (f *fakeSocialStore) UpdatePageStatus(ctx context.Context, id string, connected bool, status models.PageStatus) error {
	page, ok := f.pages[id]
	if !ok {
		return store.ErrNotFound
	}
	page.Connected = connected
	page.Status = status
	f.pages[id] = page
	return nil
}

func (f *fakeSocialStore) ListAccountsWithPages(ctx context.Context, workspaceID string) ([]models.SocialAccount, map[string][]models.SocialPage, error) {
	var accounts []models.SocialAccount
	pagesByAccount := make(map[string][]models.SocialPage)
	for _, a := range f.accounts {
		if a.WorkspaceID != workspaceID {
			continue
		}
		accounts = append(accounts, a)
		pages, _ := f.ListPagesByAccount(ctx, a.ID)
		pagesByAccount[a.ID] = pages
	}
	return accounts, pagesByAccount, nil
}

func (f *fakeSocialStore) SavePostHistory(ctx context.Context, pageID string, posts []models.PostHistory) error {
	f.history[pageID] = append(f.history[pageID], posts...)
	return nil
}

// connectAdapter implements the full capability set
type connectAdapter struct {
	platform    models.Platform
	connectErr  error
	probeResult models.SocialPage
	probeErr    error
	history     []platforms.HistoryPage
	historyCall int
	deleted     []string
}

func (a *connectAdapter) Platform() models.Platform { return a.platform }

func (a *connectAdapter) Publish(ctx context.Context, page models.SocialPage, content platforms.PostContent, opts platforms.PublishOptions) (platforms.PublishResult, error) {
	return platforms.PublishResult{}, nil
}

func (a *connectAdapter) ConnectPage(ctx context.Context, account models.SocialAccount, externalPageID string) (models.SocialPage, error) {
	if a.connectErr != nil {
		return models.SocialPage{}, a.connectErr
	}
	return models.SocialPage{
		Name:          "Authoritative Name",
		EntityType:    models.EntityPage,
		PageID:        externalPageID,
		AuthToken:     "page-token",
		FollowerCount: 1234,
		Connected:     true,
		Status:        models.PageActive,
	}, nil
}

func (a *connectAdapter) CheckPageStatus(ctx context.Context, page models.SocialPage) (models.SocialPage, error) {
	if a.probeErr != nil {
		return models.SocialPage{}, a.probeErr
	}
	return a.probeResult, nil
}

func (a *connectAdapter) DeletePost(ctx context.Context, page models.SocialPage, externalPostID string) error {
	a.deleted = append(a.deleted, externalPostID)
	return nil
}

func (a *connectAdapter) GetPostHistory(ctx context.Context, page models.SocialPage, pageSize int, cursor string) (platforms.HistoryPage, error) {
	if a.historyCall >= len(a.history) {
		return platforms.HistoryPage{}, nil
	}
	h := a.history[a.historyCall]
	a.historyCall++
	return h, nil
}

// localAdapter has no page-level connect primitive
type localAdapter struct {
	platform models.Platform
}

func (a *localAdapter) Platform() models.Platform { return a.platform }

func (a *localAdapter) Publish(ctx context.Context, page models.SocialPage, content platforms.PostContent, opts platforms.PublishOptions) (platforms.PublishResult, error) {
	return platforms.PublishResult{}, nil
}

func setup(t *testing.T, adapters ...platforms.Adapter) (*Manager, *fakeSocialStore) {
	t.Helper()
	fs := newFakeSocialStore()
	registry := platforms.NewRegistry()
	for _, a := range adapters {
		registry.MustRegister(a)
	}
	return NewManager(fs, registry, logging.NewLogger()), fs
}

func seedAccount(fs *fakeSocialStore, platform models.Platform) models.SocialAccount {
	acct := models.SocialAccount{
		ID:          "acct-1",
		WorkspaceID: "ws-1",
		Platform:    platform,
		Connected:   true,
		Status:      models.PageActive,
	}
	fs.accounts[acct.ID] = acct
	return acct
}

func TestStagePagesIdempotent(t *testing.T) {
	m, fs := setup(t, &connectAdapter{platform: models.PlatformFacebook})
	seedAccount(fs, models.PlatformFacebook)

	staged := []StagedPage{
		{PageID: "ext-1", Name: "Page One", EntityType: models.EntityPage},
		{PageID: "ext-2", Name: "Page Two", EntityType: models.EntityPage},
	}

	first, err := m.StagePages(context.Background(), "acct-1", staged)
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 staged pages, got %d", len(first))
	}
	for _, p := range first {
		if p.Connected || p.Status != models.PagePending {
			t.Errorf("staged page %s should be pending/unconnected, got %s/%v", p.PageID, p.Status, p.Connected)
		}
	}

	// staging again must not duplicate
	staged[0].Name = "Page One Renamed"
	second, err := m.StagePages(context.Background(), "acct-1", staged)
	if err != nil {
		t.Fatalf("re-stage: %v", err)
	}
	if len(fs.pages) != 2 {
		t.Fatalf("expected 2 pages after re-stage, got %d", len(fs.pages))
	}
	if second[0].Name != "Page One Renamed" {
		t.Errorf("re-stage should refresh name, got %s", second[0].Name)
	}
}

func TestStagePagesPreservesConfirmedState(t *testing.T) {
	m, fs := setup(t, &connectAdapter{platform: models.PlatformFacebook})
	seedAccount(fs, models.PlatformFacebook)

	fs.pages["local-1"] = models.SocialPage{
		ID: "local-1", WorkspaceID: "ws-1", AccountID: "acct-old",
		Platform: models.PlatformFacebook, PageID: "ext-1",
		Connected: true, Status: models.PageActive,
	}

	out, err := m.StagePages(context.Background(), "acct-1", []StagedPage{{PageID: "ext-1", Name: "n"}})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if !out[0].Connected || out[0].Status != models.PageActive {
		t.Error("re-staging must not reset a confirmed page")
	}
	if out[0].AccountID != "acct-1" {
		t.Errorf("page should be re-linked to acct-1, got %s", out[0].AccountID)
	}
}

func TestConfirmPageViaConnect(t *testing.T) {
	m, fs := setup(t, &connectAdapter{platform: models.PlatformFacebook})
	seedAccount(fs, models.PlatformFacebook)

	fs.pages["local-1"] = models.SocialPage{
		ID: "local-1", WorkspaceID: "ws-1", AccountID: "acct-1",
		Platform: models.PlatformFacebook, PageID: "ext-1",
		Name: "Stale Name", Status: models.PagePending,
	}

	page, err := m.ConfirmPage(context.Background(), "local-1")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !page.Connected || page.Status != models.PageActive {
		t.Errorf("confirmed page should be active/connected, got %s/%v", page.Status, page.Connected)
	}
	if page.Name != "Authoritative Name" || page.AuthToken != "page-token" || page.FollowerCount != 1234 {
		t.Errorf("confirm should take platform's authoritative fields, got %+v", page)
	}
	if page.ID != "local-1" {
		t.Errorf("confirm must keep local identity, got %s", page.ID)
	}
}

func TestConfirmPageConnectFailureLeavesPageUntouched(t *testing.T) {
	m, fs := setup(t, &connectAdapter{platform: models.PlatformFacebook, connectErr: errors.New("token revoked")})
	seedAccount(fs, models.PlatformFacebook)

	fs.pages["local-1"] = models.SocialPage{
		ID: "local-1", WorkspaceID: "ws-1", AccountID: "acct-1",
		Platform: models.PlatformFacebook, PageID: "ext-1", Status: models.PagePending,
	}

	_, err := m.ConfirmPage(context.Background(), "local-1")
	if err == nil {
		t.Fatal("expected connect failure to surface")
	}
	got := fs.pages["local-1"]
	if got.Connected || got.Status != models.PagePending {
		t.Errorf("failed confirm must not change the page, got %s/%v", got.Status, got.Connected)
	}
}

func TestConfirmPageMissingAccount(t *testing.T) {
	m, fs := setup(t, &connectAdapter{platform: models.PlatformFacebook})

	fs.pages["local-1"] = models.SocialPage{
		ID: "local-1", WorkspaceID: "ws-1", AccountID: "gone",
		Platform: models.PlatformFacebook, PageID: "ext-1", Status: models.PagePending,
	}

	_, err := m.ConfirmPage(context.Background(), "local-1")
	if err == nil || !strings.Contains(err.Error(), "no owning account") {
		t.Fatalf("expected owning-account error, got %v", err)
	}
	if fs.pages["local-1"].Status != models.PagePending {
		t.Error("page must stay pending when account is missing")
	}
}

func TestConfirmPageLocalOnlyPlatform(t *testing.T) {
	m, fs := setup(t, &localAdapter{platform: models.PlatformTikTok})
	acct := seedAccount(fs, models.PlatformTikTok)

	fs.pages["local-1"] = models.SocialPage{
		ID: "local-1", WorkspaceID: "ws-1", AccountID: acct.ID,
		Platform: models.PlatformTikTok, PageID: "ext-1", Status: models.PagePending,
	}

	page, err := m.ConfirmPage(context.Background(), "local-1")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !page.Connected || page.Status != models.PageActive {
		t.Errorf("local confirm should activate the page, got %s/%v", page.Status, page.Connected)
	}
}

func TestDisconnectPageReloads(t *testing.T) {
	m, fs := setup(t, &connectAdapter{platform: models.PlatformFacebook})
	seedAccount(fs, models.PlatformFacebook)

	fs.pages["local-1"] = models.SocialPage{
		ID: "local-1", WorkspaceID: "ws-1", AccountID: "acct-1",
		Platform: models.PlatformFacebook, PageID: "ext-1",
		Connected: true, Status: models.PageActive,
	}
	fs.pages["local-2"] = models.SocialPage{
		ID: "local-2", WorkspaceID: "ws-1", AccountID: "acct-1",
		Platform: models.PlatformFacebook, PageID: "ext-2",
		Connected: true, Status: models.PageActive,
	}

	accounts, pages, err := m.DisconnectPage(context.Background(), "local-1")
	if err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if fs.pages["local-1"].Status != models.PageDisconnected || fs.pages["local-1"].Connected {
		t.Error("page should be disconnected")
	}
	if len(accounts) != 1 || len(pages["acct-1"]) != 2 {
		t.Errorf("expected full reload of workspace connections, got %d accounts, %d pages", len(accounts), len(pages["acct-1"]))
	}
}

func TestCheckPageStatusExpired(t *testing.T) {
	probed := models.SocialPage{ID: "local-1", Connected: false, Status: models.PageExpired}
	m, fs := setup(t, &connectAdapter{platform: models.PlatformFacebook, probeResult: probed})
	seedAccount(fs, models.PlatformFacebook)

	fs.pages["local-1"] = models.SocialPage{
		ID: "local-1", WorkspaceID: "ws-1", AccountID: "acct-1",
		Platform: models.PlatformFacebook, Connected: true, Status: models.PageActive,
	}

	page, err := m.CheckPageStatus(context.Background(), "local-1")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if page.Status != models.PageExpired || page.Connected {
		t.Errorf("expected expired/disconnected, got %s/%v", page.Status, page.Connected)
	}
	if fs.pages["local-1"].Status != models.PageExpired {
		t.Error("expired status should be persisted")
	}
}

func TestCheckPageStatusProbeFailure(t *testing.T) {
	m, fs := setup(t, &connectAdapter{platform: models.PlatformFacebook, probeErr: errors.New("network down")})
	seedAccount(fs, models.PlatformFacebook)

	fs.pages["local-1"] = models.SocialPage{
		ID: "local-1", WorkspaceID: "ws-1", AccountID: "acct-1",
		Platform: models.PlatformFacebook, Connected: true, Status: models.PageActive,
	}

	_, err := m.CheckPageStatus(context.Background(), "local-1")
	if err == nil {
		t.Fatal("probe failure must be re-raised")
	}
	if fs.pages["local-1"].Status != models.PageError {
		t.Errorf("failed probe should mark page errored, got %s", fs.pages["local-1"].Status)
	}
}

func TestCheckPageStatusOptimisticWithoutProbe(t *testing.T) {
	m, fs := setup(t, &localAdapter{platform: models.PlatformTikTok})
	seedAccount(fs, models.PlatformTikTok)

	fs.pages["local-1"] = models.SocialPage{
		ID: "local-1", WorkspaceID: "ws-1", AccountID: "acct-1",
		Platform: models.PlatformTikTok, Connected: false, Status: models.PagePending,
	}

	page, err := m.CheckPageStatus(context.Background(), "local-1")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !page.Connected || page.Status != models.PageActive {
		t.Errorf("platform without probe should be optimistically active, got %s/%v", page.Status, page.Connected)
	}
}

func TestSyncPostHistoryPaginates(t *testing.T) {
	adapter := &connectAdapter{
		platform: models.PlatformFacebook,
		history: []platforms.HistoryPage{
			{Posts: []models.PostHistory{{ID: "h1", PostID: "p1"}, {ID: "h2", PostID: "p2"}}, NextCursor: "cur"},
			{Posts: []models.PostHistory{{ID: "h3", PostID: "p3"}}},
		},
	}
	m, fs := setup(t, adapter)
	seedAccount(fs, models.PlatformFacebook)

	fs.pages["local-1"] = models.SocialPage{
		ID: "local-1", WorkspaceID: "ws-1", AccountID: "acct-1",
		Platform: models.PlatformFacebook, Connected: true, Status: models.PageActive,
	}

	n, err := m.SyncPostHistory(context.Background(), "local-1", 2)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 synced posts, got %d", n)
	}
	if len(fs.history["local-1"]) != 3 {
		t.Errorf("expected 3 stored history rows, got %d", len(fs.history["local-1"]))
	}
}

func TestDeletePagePost(t *testing.T) {
	adapter := &connectAdapter{platform: models.PlatformFacebook}
	m, fs := setup(t, adapter)
	seedAccount(fs, models.PlatformFacebook)

	fs.pages["local-1"] = models.SocialPage{
		ID: "local-1", WorkspaceID: "ws-1", AccountID: "acct-1",
		Platform: models.PlatformFacebook, Connected: true, Status: models.PageActive,
	}

	if err := m.DeletePagePost(context.Background(), "local-1", "ext-post-9"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(adapter.deleted) != 1 || adapter.deleted[0] != "ext-post-9" {
		t.Errorf("expected ext-post-9 deleted, got %v", adapter.deleted)
	}
}

func TestDeletePagePostUnsupportedPlatform(t *testing.T) {
	m, fs := setup(t, &localAdapter{platform: models.PlatformTikTok})
	seedAccount(fs, models.PlatformTikTok)

	fs.pages["local-1"] = models.SocialPage{
		ID: "local-1", WorkspaceID: "ws-1", AccountID: "acct-1",
		Platform: models.PlatformTikTok, Connected: true, Status: models.PageActive,
	}

	if err := m.DeletePagePost(context.Background(), "local-1", "x"); err == nil {
		t.Error("expected unsupported-platform delete to be rejected")
	}
}

func TestCheckAccountStatusAllExpired(t *testing.T) {
	probed := models.SocialPage{Connected: false, Status: models.PageExpired}
	m, fs := setup(t, &connectAdapter{platform: models.PlatformFacebook, probeResult: probed})
	seedAccount(fs, models.PlatformFacebook)

	fs.pages["local-1"] = models.SocialPage{
		ID: "local-1", WorkspaceID: "ws-1", AccountID: "acct-1",
		Platform: models.PlatformFacebook, Connected: true, Status: models.PageActive,
	}

	acct, err := m.CheckAccountStatus(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("check account: %v", err)
	}
	if acct.Connected || acct.Status != models.PageExpired {
		t.Errorf("account with only expired pages should be expired, got %s/%v", acct.Status, acct.Connected)
	}
}

func TestCheckAccountStatusSurfacesCheckFailures(t *testing.T) {
	m, fs := setup(t, &connectAdapter{platform: models.PlatformFacebook, probeErr: errors.New("network down")})
	seedAccount(fs, models.PlatformFacebook)

	fs.pages["local-1"] = models.SocialPage{
		ID: "local-1", WorkspaceID: "ws-1", AccountID: "acct-1",
		Platform: models.PlatformFacebook, Connected: true, Status: models.PageActive,
	}

	acct, err := m.CheckAccountStatus(context.Background(), "acct-1")
	if err == nil {
		t.Fatal("failed page checks must be surfaced, not dropped")
	}
	if !strings.Contains(err.Error(), "1 of 1") {
		t.Errorf("error should report how many checks failed, got %v", err)
	}
	// a check failure is not proof of lost auth
	if acct.Status == models.PageExpired {
		t.Error("account must not be expired on check failures alone")
	}
}
