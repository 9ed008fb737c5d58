package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/keepsakehq/keepsake/core/internal/gateway"
	"github.com/keepsakehq/keepsake/core/internal/models"
)

// HTTPRemoteFeed queries the remote feed endpoint over REST. Failures are
// classified the same way as gateway saves so callers can distinguish network
// trouble from server rejections.
type HTTPRemoteFeed struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// HTTPRemoteConfig holds remote feed client settings.
type HTTPRemoteConfig struct {
	BaseURL   string
	AuthToken string
	Timeout   time.Duration // per-request; defaults to 30s
}

// NewHTTPRemote creates an HTTPRemoteFeed.
func NewHTTPRemote(config HTTPRemoteConfig) *HTTPRemoteFeed {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPRemoteFeed{
		baseURL:   config.BaseURL,
		authToken: config.AuthToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type remotePageResponse struct {
	Memories   []models.RemoteMemory `json:"memories"`
	NextCursor string                `json:"next_cursor"`
	HasMore    bool                  `json:"has_more"`
}

// FetchPage requests one page of the remote feed.
func (f *HTTPRemoteFeed) FetchPage(ctx context.Context, cursor *Cursor, typeFilter models.MemoryType, limit int) (*RemotePage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if cursor != nil {
		q.Set("cursor", cursor.Encode())
	}
	if typeFilter != "" {
		q.Set("type", string(typeFilter))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/api/memories?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	if f.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+f.authToken)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, gateway.NewSaveError(gateway.FailureNetwork, "feed request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, gateway.NewSaveError(gateway.FailurePermission, fmt.Sprintf("feed request rejected with status %d", resp.StatusCode), nil)
		}
		return nil, gateway.NewSaveError(gateway.FailureNetwork, fmt.Sprintf("feed request returned status %d", resp.StatusCode), nil)
	}

	var body remotePageResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode feed response: %w", err)
	}

	page := &RemotePage{
		Memories: body.Memories,
		HasMore:  body.HasMore,
	}
	if body.NextCursor != "" {
		c, err := DecodeCursor(body.NextCursor)
		if err != nil {
			return nil, err
		}
		page.NextCursor = c
	}
	return page, nil
}
