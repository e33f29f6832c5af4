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

const linkedinBaseURL = "https://api.linkedin.com/v2"

// LinkedInAdapter publishes to LinkedIn organization pages
type LinkedInAdapter struct {
	baseURL    string
	httpClient *http.Client
}

// NewLinkedInAdapter creates a LinkedIn API adapter
func NewLinkedInAdapter() *LinkedInAdapter {
	return &LinkedInAdapter{
		baseURL: linkedinBaseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// SetBaseURL overrides the API endpoint (used by tests)
func (l *LinkedInAdapter) SetBaseURL(u string) { l.baseURL = u }

func (l *LinkedInAdapter) Platform() models.Platform { return models.PlatformLinkedIn }

func (l *LinkedInAdapter) doRequest(ctx context.Context, method, path, token string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, l.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return &Error{Platform: models.PlatformLinkedIn, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return &Error{
			Platform: models.PlatformLinkedIn,
			Code:     "expired_token",
			Message:  "access token rejected",
		}
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(respBody, &apiErr)
		msg := apiErr.Message
		if msg == "" {
			msg = fmt.Sprintf("LinkedIn API returned %d", resp.StatusCode)
		}
		return &Error{
			Platform: models.PlatformLinkedIn,
			Code:     fmt.Sprintf("%d", resp.StatusCode),
			Message:  msg,
		}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse LinkedIn response: %w", err)
		}
	}
	return nil
}

// ConnectPage resolves an organization and binds it as a publishable page
func (l *LinkedInAdapter) ConnectPage(ctx context.Context, account models.SocialAccount, externalPageID string) (models.SocialPage, error) {
	var org struct {
		LocalizedName string `json:"localizedName"`
		ID            int64  `json:"id"`
	}
	if err := l.doRequest(ctx, http.MethodGet, "/organizations/"+externalPageID, account.AuthToken, nil, &org); err != nil {
		return models.SocialPage{}, err
	}

	now := time.Now()
	return models.SocialPage{
		WorkspaceID:     account.WorkspaceID,
		AccountID:       account.ID,
		Platform:        models.PlatformLinkedIn,
		EntityType:      models.EntityOrganization,
		Name:            org.LocalizedName,
		PageID:          externalPageID,
		AuthToken:       account.AuthToken,
		Connected:       true,
		Status:          models.PageActive,
		StatusUpdatedAt: &now,
	}, nil
}

// CheckPageStatus verifies the token still resolves the organization
func (l *LinkedInAdapter) CheckPageStatus(ctx context.Context, page models.SocialPage) (models.SocialPage, error) {
	err := l.doRequest(ctx, http.MethodGet, "/organizations/"+page.PageID, page.AuthToken, nil, nil)
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

// Publish creates a UGC post for the organization
func (l *LinkedInAdapter) Publish(ctx context.Context, page models.SocialPage, content PostContent, opts PublishOptions) (PublishResult, error) {
	visibility := "PUBLIC"
	if settings, ok := opts.Settings.(LinkedInSettings); ok && settings.Visibility != "" {
		visibility = settings.Visibility
	}

	shareContent := map[string]interface{}{
		"shareCommentary": map[string]string{"text": content.Text},
		"shareMediaCategory": func() string {
			if content.Media == nil {
				return "NONE"
			}
			if content.Media.Kind == models.MediaVideo {
				return "VIDEO"
			}
			return "IMAGE"
		}(),
	}
	if content.Media != nil {
		media := make([]map[string]interface{}, 0, len(content.Media.URLs))
		for _, u := range content.Media.URLs {
			media = append(media, map[string]interface{}{
				"status":      "READY",
				"originalUrl": u,
			})
		}
		shareContent["media"] = media
	}

	body := map[string]interface{}{
		"author":         "urn:li:organization:" + page.PageID,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]interface{}{
			"com.linkedin.ugc.ShareContent": shareContent,
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": visibility,
		},
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := l.doRequest(ctx, http.MethodPost, "/ugcPosts", page.AuthToken, body, &created); err != nil {
		var perr *Error
		if asPlatformError(err, &perr) {
			perr.PageID = page.ID
		}
		return PublishResult{}, err
	}

	return PublishResult{
		ExternalPostID: created.ID,
		PublishedAt:    time.Now(),
		ScheduledFor:   opts.ScheduledTime,
	}, nil
}
