// Package youtube resolves recommendation candidates to playable YouTube links
// through the Data API v3 search endpoint.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	ports "github.com/ZanzyTHEbar/soundware/sndw/recommend/ports"
)

const (
	DefaultBaseURL = "https://www.googleapis.com/youtube/v3"
	DefaultTimeout = 10 * time.Second

	// LinkPrefix is prepended to a video id to build the short link.
	LinkPrefix = "https://youtu.be/"

	maxResponseSize = 1024 * 1024
)

// ErrNotConfigured indicates the API key is not set.
var ErrNotConfigured = errors.New("youtube API key not configured")

// APIError is a non-2xx response from the Data API.
type APIError struct {
	Status  int
	Reason  string // e.g. quotaExceeded, keyInvalid
	Message string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("youtube error [%s] (HTTP %d): %s", e.Reason, e.Status, e.Message)
	}
	return fmt.Sprintf("youtube error (HTTP %d): %s", e.Status, e.Message)
}

type searchResponse struct {
	Items []struct {
		ID struct {
			Kind    string `json:"kind"`
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// Client calls the search endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a search client. timeout <= 0 uses DefaultTimeout.
func NewClient(apiKey, baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Search returns the best matching video. No match is (LookupResult{}, nil).
func (c *Client) Search(ctx context.Context, req ports.LookupRequest) (ports.LookupResult, error) {
	if c.apiKey == "" {
		return ports.LookupResult{}, ErrNotConfigured
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = 1
	}

	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("type", "video")
	q.Set("q", req.Query)
	q.Set("maxResults", strconv.Itoa(maxResults))
	q.Set("key", c.apiKey)
	if req.EmbeddableOnly {
		q.Set("videoEmbeddable", "true")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return ports.LookupResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ports.LookupResult{}, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return ports.LookupResult{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ports.LookupResult{}, parseAPIError(resp.StatusCode, data)
	}

	var parsed searchResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return ports.LookupResult{}, fmt.Errorf("failed to decode response: %w", err)
	}

	for _, item := range parsed.Items {
		if id := strings.TrimSpace(item.ID.VideoID); id != "" {
			return ports.LookupResult{Link: LinkPrefix + id, Found: true}, nil
		}
	}

	c.logger.Debug().Str("query", req.Query).Msg("No video found")
	return ports.LookupResult{}, nil
}

func parseAPIError(status int, data []byte) error {
	apiErr := &APIError{Status: status, Message: http.StatusText(status)}

	var body apiErrorResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Error.Message != "" {
		apiErr.Message = body.Error.Message
		if len(body.Error.Errors) > 0 {
			apiErr.Reason = body.Error.Errors[0].Reason
		}
	}
	return apiErr
}

var _ ports.Lookup = (*Client)(nil)
