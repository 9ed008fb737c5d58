package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/keepsakehq/keepsake/core/internal/logging"
)

// HTTPGateway talks to the hosted backend's save surface over REST. Media
// files upload first; the memory row inserts with the returned URLs.
type HTTPGateway struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// HTTPConfig holds gateway connection configuration.
type HTTPConfig struct {
	BaseURL   string
	AuthToken string
	Timeout   time.Duration // per-request; defaults to 30s
}

// NewHTTP creates an HTTPGateway.
func NewHTTP(config HTTPConfig) *HTTPGateway {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPGateway{
		baseURL:   config.BaseURL,
		authToken: config.AuthToken,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
	}
}

// memoryRow is the wire shape of the memory insert/update request.
type memoryRow struct {
	CaptureUpload
	PhotoURLs  []string `json:"photo_urls,omitempty"`
	VideoURLs  []string `json:"video_urls,omitempty"`
	PosterURLs []string `json:"poster_urls,omitempty"`
	AudioURL   string   `json:"audio_url,omitempty"`
}

// Create uploads media and inserts a memory row.
func (g *HTTPGateway) Create(ctx context.Context, upload CaptureUpload) (*SaveResult, error) {
	return g.save(ctx, http.MethodPost, "/api/memories", upload)
}

// Update uploads media and updates an existing memory row.
func (g *HTTPGateway) Update(ctx context.Context, memoryID string, upload CaptureUpload) (*SaveResult, error) {
	return g.save(ctx, http.MethodPatch, "/api/memories/"+memoryID, upload)
}

func (g *HTTPGateway) save(ctx context.Context, method, path string, upload CaptureUpload) (*SaveResult, error) {
	row := memoryRow{CaptureUpload: upload}

	var err error
	if row.PhotoURLs, err = g.uploadAll(ctx, upload.PhotoPaths); err != nil {
		return nil, err
	}
	if row.VideoURLs, err = g.uploadAll(ctx, upload.VideoPaths); err != nil {
		return nil, err
	}
	if row.PosterURLs, err = g.uploadAll(ctx, upload.VideoPosterPaths); err != nil {
		return nil, err
	}
	if upload.AudioPath != "" {
		urls, err := g.uploadAll(ctx, []string{upload.AudioPath})
		if err != nil {
			return nil, err
		}
		row.AudioURL = urls[0]
	}

	body, err := json.Marshal(row)
	if err != nil {
		return nil, NewSaveError(FailureSave, "failed to encode memory row", err)
	}

	req, err := g.newRequest(ctx, method, path, bytes.NewReader(body))
	if err != nil {
		return nil, NewSaveError(FailureSave, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, NewSaveError(FailureNetwork, "memory save request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, g.classifyStatus(resp)
	}

	var result SaveResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, NewSaveError(FailureSave, "failed to decode save response", err)
	}

	logging.Debug("Memory saved remotely", map[string]interface{}{
		"memory_id": result.MemoryID,
		"photos":    len(result.PhotoURLs),
	})
	return &result, nil
}

// uploadAll uploads each local file and returns the remote URLs in order.
func (g *HTTPGateway) uploadAll(ctx context.Context, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	urls := make([]string, 0, len(paths))
	for _, p := range paths {
		url, err := g.uploadFile(ctx, p)
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (g *HTTPGateway) uploadFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", NewSaveError(FailureSave, "failed to read media file "+path, err)
	}

	req, err := g.newRequest(ctx, http.MethodPost, "/api/media?name="+filepath.Base(path), bytes.NewReader(data))
	if err != nil {
		return "", NewSaveError(FailureSave, "failed to build media request", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Content-Length", fmt.Sprintf("%d", len(data)))

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", NewSaveError(FailureNetwork, "media upload failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", g.classifyStatus(resp)
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", NewSaveError(FailureSave, "failed to decode media response", err)
	}
	return out.URL, nil
}

func (g *HTTPGateway) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if g.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+g.authToken)
	}
	return req, nil
}

// classifyStatus maps backend status codes onto the five failure kinds.
func (g *HTTPGateway) classifyStatus(resp *http.Response) *SaveError {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := fmt.Sprintf("backend returned %d: %s", resp.StatusCode, snippet)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return NewSaveError(FailurePermission, msg, nil)
	case resp.StatusCode == http.StatusRequestEntityTooLarge || resp.StatusCode == http.StatusInsufficientStorage:
		return NewSaveError(FailureQuota, msg, nil)
	case resp.StatusCode >= 500:
		return NewSaveError(FailureNetwork, msg, nil)
	default:
		return NewSaveError(FailureSave, msg, nil)
	}
}
