// Package gemini implements the recommendation Generator on the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	ports "github.com/ZanzyTHEbar/soundware/sndw/recommend/ports"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// ErrEmptyResponse indicates a response without any text candidate.
var ErrEmptyResponse = errors.New("gemini response has no text")

// Config holds the Gemini settings.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string // overrides the API endpoint, mainly for tests
	Timeout time.Duration
}

// Client generates recommendations with a Gemini model.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  zerolog.Logger
}

// New creates a Gemini client.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Client{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Complete sends the conversation to Gemini. The system turn becomes the system
// instruction; assistant turns are sent with the model role.
func (c *Client) Complete(ctx context.Context, req ports.GenerateRequest) (ports.Completion, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	system, contents := toContents(req.Turns)

	gc := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if system != "" {
		gc.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(req.MaxTokens)
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, gc)
	if err != nil {
		return ports.Completion{}, fmt.Errorf("GenAI generate failed: %w", err)
	}

	c.logger.Debug().
		Str("model", c.model).
		Int("contents", len(contents)).
		Dur("duration", time.Since(start)).
		Msg("Gemini completion")

	text := resp.Text()
	if text == "" {
		return ports.Completion{}, ErrEmptyResponse
	}

	out := ports.Completion{Text: text}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = &ports.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

// toContents splits system turns from the conversation and maps roles.
func toContents(turns []ports.Turn) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(turns))

	for _, t := range turns {
		switch t.Role {
		case ports.RoleSystem:
			system = append(system, t.Content)
		case ports.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleUser))
		}
	}

	return strings.Join(system, "\n\n"), contents
}

var _ ports.Generator = (*Client)(nil)
