// Package media turns the media references attached to a post into durable,
// externally fetchable URLs. Versions authored in the dashboard may carry
// embedded data URLs or links into third-party hosts; platforms need a URL
// they can pull from long after the publish call returns.
package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Feedbird/platform-sub002/pkg/logging"
	"github.com/Feedbird/platform-sub002/pkg/models"
)

const maxPayloadBytes = 512 << 20 // refuse anything past 512MB

// Error describes a media materialization failure for one version
type Error struct {
	VersionID string
	Reason    string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("media %s: %s: %v", e.VersionID, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Uploader stores a binary payload and returns its durable URL
type Uploader interface {
	Upload(ctx context.Context, payload []byte, contentType string, kind models.MediaKind) (string, error)
	IsDurable(url string) bool
}

// Materializer rewrites media references to durable storage URLs
type Materializer struct {
	uploader Uploader
	client   *http.Client
	logger   logging.Logger
}

// NewMaterializer creates a materializer backed by the given uploader
func NewMaterializer(uploader Uploader, logger logging.Logger) *Materializer {
	return &Materializer{
		uploader: uploader,
		client:   &http.Client{Timeout: 60 * time.Second},
		logger:   logger,
	}
}

// MaterializeBlock replaces every version's media reference in the block
// with a durable URL. Already-durable references pass through untouched, so
// re-running on a materialized block changes nothing. The returned block is
// a copy; the input is never mutated.
func (m *Materializer) MaterializeBlock(ctx context.Context, block models.Block) (models.Block, error) {
	out := block
	out.Versions = make([]models.Version, len(block.Versions))
	copy(out.Versions, block.Versions)

	for i := range out.Versions {
		v := &out.Versions[i]
		if v.File.URL == "" {
			continue
		}
		url, err := m.materializeURL(ctx, v.ID, v.File.URL, v.File.Kind)
		if err != nil {
			return models.Block{}, err
		}
		v.File.URL = url
	}
	return out, nil
}

func (m *Materializer) materializeURL(ctx context.Context, versionID, ref string, kind models.MediaKind) (string, error) {
	if m.uploader.IsDurable(ref) {
		return ref, nil
	}

	var payload []byte
	var contentType string
	var err error
	switch {
	case strings.HasPrefix(ref, "data:"):
		payload, contentType, err = decodeDataURL(ref)
		if err != nil {
			return "", &Error{VersionID: versionID, Reason: "decode data url", Err: err}
		}
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		payload, contentType, err = m.fetchRemote(ctx, ref)
		if err != nil {
			return "", &Error{VersionID: versionID, Reason: "fetch remote media", Err: err}
		}
	default:
		return "", &Error{VersionID: versionID, Reason: "unsupported media reference", Err: fmt.Errorf("cannot materialize %q", truncate(ref, 64))}
	}

	url, err := m.uploader.Upload(ctx, payload, contentType, kind)
	if err != nil {
		return "", &Error{VersionID: versionID, Reason: "upload media", Err: err}
	}

	m.logger.WithFields(logging.Fields{
		"version_id": versionID,
		"bytes":      len(payload),
	}).Debug("Materialized media reference")
	return url, nil
}

func (m *Materializer) fetchRemote(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(payload) > maxPayloadBytes {
		return nil, "", fmt.Errorf("media exceeds %d bytes", maxPayloadBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(payload)
	}
	return payload, contentType, nil
}

// decodeDataURL splits a data URL of the form
// data:<mediatype>;base64,<payload> into bytes and a content type
func decodeDataURL(ref string) ([]byte, string, error) {
	rest := strings.TrimPrefix(ref, "data:")
	idx := strings.Index(rest, ",")
	if idx < 0 {
		return nil, "", fmt.Errorf("malformed data url")
	}

	meta := rest[:idx]
	data := rest[idx+1:]

	contentType := "application/octet-stream"
	base64Encoded := false
	for i, part := range strings.Split(meta, ";") {
		if i == 0 && part != "" {
			contentType = part
			continue
		}
		if part == "base64" {
			base64Encoded = true
		}
	}

	if !base64Encoded {
		return nil, "", fmt.Errorf("only base64 data urls are supported")
	}

	payload, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, "", fmt.Errorf("invalid base64 payload: %w", err)
	}
	if len(payload) > maxPayloadBytes {
		return nil, "", fmt.Errorf("media exceeds %d bytes", maxPayloadBytes)
	}
	return payload, contentType, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
