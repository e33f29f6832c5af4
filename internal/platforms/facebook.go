package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Feedbird/platform-sub002/pkg/models"
)

const (
	facebookBaseURL = "https://graph.facebook.com/v19.0"
	defaultTimeout  = 30 * time.Second
)

// FacebookAdapter publishes to Facebook pages through the Graph API
type FacebookAdapter struct {
	baseURL    string
	httpClient *http.Client
}

// NewFacebookAdapter creates a Facebook Graph API adapter
func NewFacebookAdapter() *FacebookAdapter {
	return &FacebookAdapter{
		baseURL: facebookBaseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// SetBaseURL overrides the API endpoint (used by tests)
func (f *FacebookAdapter) SetBaseURL(u string) { f.baseURL = u }

func (f *FacebookAdapter) Platform() models.Platform { return models.PlatformFacebook }

type fbErrorEnvelope struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// doRequest performs a Graph API call and decodes the response into out
func (f *FacebookAdapter) doRequest(ctx context.Context, method, path, token string, params url.Values, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("access_token", token)

	reqURL := f.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return &Error{Platform: models.PlatformFacebook, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var envelope fbErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		code := strconv.Itoa(envelope.Error.Code)
		// Graph error 190 means the access token is no longer valid
		if envelope.Error.Code == 190 {
			code = "expired_token"
		}
		return &Error{
			Platform: models.PlatformFacebook,
			Code:     code,
			Message:  envelope.Error.Message,
		}
	}

	if resp.StatusCode >= 400 {
		return &Error{
			Platform: models.PlatformFacebook,
			Code:     strconv.Itoa(resp.StatusCode),
			Message:  fmt.Sprintf("Graph API returned %d", resp.StatusCode),
		}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to parse Graph API response: %w (body: %s)", err, string(body))
		}
	}
	return nil
}

type fbPage struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	AccessToken    string `json:"access_token"`
	FollowersCount int    `json:"followers_count"`
}

// ConnectPage fetches the authoritative page record and page token
func (f *FacebookAdapter) ConnectPage(ctx context.Context, account models.SocialAccount, externalPageID string) (models.SocialPage, error) {
	params := url.Values{}
	params.Set("fields", "id,name,access_token,followers_count")

	var page fbPage
	if err := f.doRequest(ctx, http.MethodGet, "/"+externalPageID, account.AuthToken, params, &page); err != nil {
		return models.SocialPage{}, err
	}

	now := time.Now()
	return models.SocialPage{
		WorkspaceID:     account.WorkspaceID,
		AccountID:       account.ID,
		Platform:        models.PlatformFacebook,
		EntityType:      models.EntityPage,
		Name:            page.Name,
		PageID:          page.ID,
		AuthToken:       page.AccessToken,
		Connected:       true,
		Status:          models.PageActive,
		FollowerCount:   page.FollowersCount,
		StatusUpdatedAt: &now,
	}, nil
}

// CheckPageStatus probes the page token's validity
func (f *FacebookAdapter) CheckPageStatus(ctx context.Context, page models.SocialPage) (models.SocialPage, error) {
	params := url.Values{}
	params.Set("fields", "id,name,followers_count")

	var fresh fbPage
	err := f.doRequest(ctx, http.MethodGet, "/"+page.PageID, page.AuthToken, params, &fresh)
	now := time.Now()
	if err != nil {
		var perr *Error
		if asPlatformError(err, &perr) && perr.NeedsReauth() {
			page.Status = models.PageExpired
			page.Connected = false
			page.StatusUpdatedAt = &now
			return page, nil
		}
		return models.SocialPage{}, err
	}

	page.Name = fresh.Name
	page.FollowerCount = fresh.FollowersCount
	page.Status = models.PageActive
	page.Connected = true
	page.StatusUpdatedAt = &now
	return page, nil
}

// Publish posts content to the page feed, optionally as a scheduled post
func (f *FacebookAdapter) Publish(ctx context.Context, page models.SocialPage, content PostContent, opts PublishOptions) (PublishResult, error) {
	params := url.Values{}
	params.Set("message", content.Text)

	endpoint := "/" + page.PageID + "/feed"
	if content.Media != nil && len(content.Media.URLs) > 0 {
		switch content.Media.Kind {
		case models.MediaVideo:
			endpoint = "/" + page.PageID + "/videos"
			params.Set("file_url", content.Media.URLs[0])
			params.Set("description", content.Text)
		default:
			endpoint = "/" + page.PageID + "/photos"
			params.Set("url", content.Media.URLs[0])
		}
	}

	if opts.ScheduledTime != nil {
		params.Set("published", "false")
		params.Set("scheduled_publish_time", strconv.FormatInt(opts.ScheduledTime.Unix(), 10))
	}

	if settings, ok := opts.Settings.(FacebookSettings); ok && !settings.LinkPreview {
		params.Set("no_story", "false")
	}

	var created struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	if err := f.doRequest(ctx, http.MethodPost, endpoint, page.AuthToken, params, &created); err != nil {
		var perr *Error
		if asPlatformError(err, &perr) {
			perr.PageID = page.ID
		}
		return PublishResult{}, err
	}

	externalID := created.PostID
	if externalID == "" {
		externalID = created.ID
	}

	return PublishResult{
		ExternalPostID: externalID,
		PublishedAt:    time.Now(),
		ScheduledFor:   opts.ScheduledTime,
	}, nil
}

// GetPostHistory pages through the page's published posts
func (f *FacebookAdapter) GetPostHistory(ctx context.Context, page models.SocialPage, pageSize int, cursor string) (HistoryPage, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	params := url.Values{}
	params.Set("fields", "id,message,created_time,full_picture")
	params.Set("limit", strconv.Itoa(pageSize))
	if cursor != "" {
		params.Set("after", cursor)
	}

	var resp struct {
		Data []struct {
			ID          string    `json:"id"`
			Message     string    `json:"message"`
			CreatedTime time.Time `json:"created_time"`
			FullPicture string    `json:"full_picture"`
		} `json:"data"`
		Paging struct {
			Cursors struct {
				After string `json:"after"`
			} `json:"cursors"`
			Next string `json:"next"`
		} `json:"paging"`
	}
	if err := f.doRequest(ctx, http.MethodGet, "/"+page.PageID+"/posts", page.AuthToken, params, &resp); err != nil {
		return HistoryPage{}, err
	}

	history := HistoryPage{}
	for _, p := range resp.Data {
		entry := models.PostHistory{
			PageID:      page.ID,
			PostID:      p.ID,
			Content:     p.Message,
			Status:      models.HistoryPublished,
			PublishedAt: p.CreatedTime,
		}
		if p.FullPicture != "" {
			entry.MediaURLs = []string{p.FullPicture}
		}
		history.Posts = append(history.Posts, entry)
	}
	if resp.Paging.Next != "" {
		history.NextCursor = resp.Paging.Cursors.After
	}
	return history, nil
}

// DeletePost removes a published post from the page
func (f *FacebookAdapter) DeletePost(ctx context.Context, page models.SocialPage, externalPostID string) error {
	return f.doRequest(ctx, http.MethodDelete, "/"+externalPostID, page.AuthToken, nil, nil)
}
