package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Feedbird/platform-sub002/pkg/models"
)

const tiktokBaseURL = "https://open.tiktokapis.com/v2"

// TikTokAdapter publishes to TikTok profiles. TikTok has no page-level
// connect primitive (the account is the page), so it deliberately does not
// implement PageConnector; the connection manager confirms staged TikTok
// pages locally.
type TikTokAdapter struct {
	baseURL    string
	httpClient *http.Client
}

// NewTikTokAdapter creates a TikTok API adapter
func NewTikTokAdapter() *TikTokAdapter {
	return &TikTokAdapter{
		baseURL: tiktokBaseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// SetBaseURL overrides the API endpoint (used by tests)
func (t *TikTokAdapter) SetBaseURL(u string) { t.baseURL = u }

func (t *TikTokAdapter) Platform() models.Platform { return models.PlatformTikTok }

type tiktokEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (t *TikTokAdapter) doRequest(ctx context.Context, method, path, token string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return &Error{Platform: models.PlatformTikTok, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var envelope tiktokEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to parse TikTok response: %w (body: %s)", err, string(respBody))
	}

	if envelope.Error.Code != "" && envelope.Error.Code != "ok" {
		code := envelope.Error.Code
		if code == "access_token_invalid" || code == "access_token_expired" {
			code = "expired_token"
		}
		return &Error{
			Platform: models.PlatformTikTok,
			Code:     code,
			Message:  envelope.Error.Message,
		}
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to parse TikTok data: %w", err)
		}
	}
	return nil
}

// CheckPageStatus queries the creator info endpoint to validate the token
func (t *TikTokAdapter) CheckPageStatus(ctx context.Context, page models.SocialPage) (models.SocialPage, error) {
	err := t.doRequest(ctx, http.MethodPost, "/post/publish/creator_info/query/", page.AuthToken, map[string]interface{}{}, nil)
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
	page.Status = models.PageActive
	page.Connected = true
	page.StatusUpdatedAt = &now
	return page, nil
}

// Publish initiates a video or photo post via the content posting API
func (t *TikTokAdapter) Publish(ctx context.Context, page models.SocialPage, content PostContent, opts PublishOptions) (PublishResult, error) {
	settings, _ := opts.Settings.(TikTokSettings)
	privacy := settings.PrivacyLevel
	if privacy == "" {
		privacy = "PUBLIC_TO_EVERYONE"
	}

	if content.Media == nil || len(content.Media.URLs) == 0 {
		return PublishResult{}, &Error{
			Platform: models.PlatformTikTok,
			PageID:   page.ID,
			Code:     "no_media",
			Message:  "TikTok posts require media",
		}
	}

	body := map[string]interface{}{
		"post_info": map[string]interface{}{
			"title":           content.Text,
			"privacy_level":   privacy,
			"disable_comment": settings.DisableComments,
			"disable_duet":    settings.DisableDuet,
		},
		"source_info": map[string]interface{}{
			"source":    "PULL_FROM_URL",
			"video_url": content.Media.URLs[0],
		},
	}

	var created struct {
		PublishID string `json:"publish_id"`
	}
	if err := t.doRequest(ctx, http.MethodPost, "/post/publish/video/init/", page.AuthToken, body, &created); err != nil {
		var perr *Error
		if asPlatformError(err, &perr) {
			perr.PageID = page.ID
		}
		return PublishResult{}, err
	}

	return PublishResult{
		ExternalPostID: created.PublishID,
		PublishedAt:    time.Now(),
		ScheduledFor:   opts.ScheduledTime,
	}, nil
}
