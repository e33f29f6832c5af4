package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Feedbird/platform-sub002/pkg/logging"
	"github.com/Feedbird/platform-sub002/pkg/models"
)

type fakeUploader struct {
	uploads []string // content types of uploaded payloads
	fail    bool
}

func (f *fakeUploader) Upload(ctx context.Context, payload []byte, contentType string, kind models.MediaKind) (string, error) {
	if f.fail {
		return "", errors.New("bucket unavailable")
	}
	f.uploads = append(f.uploads, contentType)
	return fmt.Sprintf("https://cdn.example.com/media/%d", len(f.uploads)), nil
}

func (f *fakeUploader) IsDurable(url string) bool {
	return strings.HasPrefix(url, "https://cdn.example.com/")
}

func TestMaterializeDataURL(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("fake png bytes"))
	up := &fakeUploader{}
	m := NewMaterializer(up, logging.NewLogger())

	block := models.Block{
		ID:               "block-1",
		Kind:             models.MediaImage,
		CurrentVersionID: "ver-1",
		Versions: []models.Version{
			{ID: "ver-1", File: models.MediaRef{Kind: models.MediaImage, URL: "data:image/png;base64," + payload}},
		},
	}

	out, err := m.MaterializeBlock(context.Background(), block)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if !strings.HasPrefix(out.Versions[0].File.URL, "https://cdn.example.com/") {
		t.Errorf("expected durable URL, got %s", out.Versions[0].File.URL)
	}
	if len(up.uploads) != 1 || up.uploads[0] != "image/png" {
		t.Errorf("expected one image/png upload, got %v", up.uploads)
	}
	// input block must not be mutated
	if !strings.HasPrefix(block.Versions[0].File.URL, "data:") {
		t.Error("input block was mutated")
	}
}

func TestMaterializeRemoteURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg bytes"))
	}))
	defer ts.Close()

	up := &fakeUploader{}
	m := NewMaterializer(up, logging.NewLogger())

	block := models.Block{
		Versions: []models.Version{
			{ID: "ver-1", File: models.MediaRef{Kind: models.MediaImage, URL: ts.URL + "/pic.jpg"}},
		},
	}

	out, err := m.MaterializeBlock(context.Background(), block)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if !strings.HasPrefix(out.Versions[0].File.URL, "https://cdn.example.com/") {
		t.Errorf("expected durable URL, got %s", out.Versions[0].File.URL)
	}
	if up.uploads[0] != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", up.uploads[0])
	}
}

func TestMaterializeDurablePassThrough(t *testing.T) {
	up := &fakeUploader{}
	m := NewMaterializer(up, logging.NewLogger())

	durable := "https://cdn.example.com/media/existing"
	block := models.Block{
		Versions: []models.Version{
			{ID: "ver-1", File: models.MediaRef{URL: durable}},
		},
	}

	out, err := m.MaterializeBlock(context.Background(), block)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if out.Versions[0].File.URL != durable {
		t.Errorf("durable URL changed: %s", out.Versions[0].File.URL)
	}
	if len(up.uploads) != 0 {
		t.Errorf("expected no uploads, got %d", len(up.uploads))
	}
}

func TestMaterializeRemoteFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	m := NewMaterializer(&fakeUploader{}, logging.NewLogger())
	block := models.Block{
		Versions: []models.Version{
			{ID: "ver-1", File: models.MediaRef{URL: ts.URL + "/gone.jpg"}},
		},
	}

	_, err := m.MaterializeBlock(context.Background(), block)
	var merr *Error
	if !errors.As(err, &merr) {
		t.Fatalf("expected media Error, got %v", err)
	}
	if merr.VersionID != "ver-1" {
		t.Errorf("expected error tagged ver-1, got %s", merr.VersionID)
	}
}

func TestMaterializeUploadFailure(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("x"))
	m := NewMaterializer(&fakeUploader{fail: true}, logging.NewLogger())

	block := models.Block{
		Versions: []models.Version{
			{ID: "ver-1", File: models.MediaRef{URL: "data:image/png;base64," + payload}},
		},
	}

	_, err := m.MaterializeBlock(context.Background(), block)
	var merr *Error
	if !errors.As(err, &merr) {
		t.Fatalf("expected media Error, got %v", err)
	}
	if merr.Reason != "upload media" {
		t.Errorf("expected upload failure reason, got %s", merr.Reason)
	}
}

func TestDecodeDataURL(t *testing.T) {
	payload, contentType, err := decodeDataURL("data:image/gif;base64," + base64.StdEncoding.EncodeToString([]byte("gif")))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if contentType != "image/gif" || string(payload) != "gif" {
		t.Errorf("unexpected decode result: %s %q", contentType, payload)
	}

	if _, _, err := decodeDataURL("data:text/plain,hello"); err == nil {
		t.Error("expected non-base64 data url to be rejected")
	}
	if _, _, err := decodeDataURL("data:nonsense"); err == nil {
		t.Error("expected malformed data url to be rejected")
	}
}
