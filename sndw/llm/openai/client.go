// Package openai implements the recommendation Generator on an OpenAI-compatible
// chat completions endpoint.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	ports "github.com/ZanzyTHEbar/soundware/sndw/recommend/ports"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 60 * time.Second

	// maxResponseSize caps how much of a response body is read.
	maxResponseSize = 4 * 1024 * 1024
)

var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("openai API key not configured")
	// ErrNoChoices indicates a successful response without any completion.
	ErrNoChoices = errors.New("openai response has no choices")
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("openai error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("openai error (HTTP %d): %s", e.Status, e.Message)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client calls /chat/completions.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// New creates a client. An empty key yields a client whose calls fail with ErrNotConfigured.
func New(apiKey string, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Complete sends the conversation and returns the first choice.
func (c *Client) Complete(ctx context.Context, req ports.GenerateRequest) (ports.Completion, error) {
	if c.apiKey == "" {
		return ports.Completion{}, ErrNotConfigured
	}

	body := chatRequest{
		Model:       c.model,
		Messages:    make([]chatMessage, 0, len(req.Turns)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	for _, t := range req.Turns {
		body.Messages = append(body.Messages, chatMessage{Role: string(t.Role), Content: t.Content})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return ports.Completion{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return ports.Completion{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ports.Completion{}, fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return ports.Completion{}, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug().
		Str("model", c.model).
		Int("status", resp.StatusCode).
		Int("messages", len(body.Messages)).
		Dur("duration", time.Since(start)).
		Msg("Chat completion")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ports.Completion{}, parseAPIError(resp.StatusCode, data)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return ports.Completion{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return ports.Completion{}, ErrNoChoices
	}

	out := ports.Completion{Text: parsed.Choices[0].Message.Content}
	if parsed.Usage != nil {
		out.Usage = &ports.Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		}
	}
	return out, nil
}

func parseAPIError(status int, data []byte) error {
	apiErr := &APIError{Status: status, Message: http.StatusText(status)}

	var body apiErrorResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Error.Message != "" {
		apiErr.Code = body.Error.Code
		apiErr.Message = body.Error.Message
	}
	return apiErr
}

var _ ports.Generator = (*Client)(nil)
