package recommendports

import (
	"context"
	"time"
)

// Role identifies the author of a conversational turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn represents one entry of a conversation. Turns are values; they are never edited once created.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"` // server-side timestamp
}

// GenerateRequest is everything the generator needs for a single completion.
type GenerateRequest struct {
	Turns       []Turn  // ordered; Turns[0] is the system instruction
	Temperature float32 // fixed, low
	MaxTokens   int     // 0 leaves the backend default
}

// Usage captures token accounting for telemetry.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the generator's response: one text blob.
type Completion struct {
	Text  string
	Usage *Usage // optional usage information
}

// Generator is the abstraction for all generative model backends.
type Generator interface {
	Complete(ctx context.Context, req GenerateRequest) (Completion, error)
}
