package recommend

import (
	"fmt"
	"strings"
	"time"

	ports "github.com/ZanzyTHEbar/soundware/sndw/recommend/ports"
)

// DefaultMaxTurns keeps five user/assistant pairs after the system turn.
const DefaultMaxTurns = 10

// Window bounds the conversation presented to the generator.
type Window struct {
	MaxTurns         int // conversational turns kept after the system turn
	MaxContextTokens int // 0 disables the token budget
	// TokenEstimator should be a fast heuristic; we avoid binding to a specific tokenizer here.
	TokenEstimator func(s string) int
}

// ConversationContext is the ordered turn log of one conversation. Turn 0 is the
// system instruction and is never removed. It is not safe for concurrent use; a
// Session serializes access.
type ConversationContext struct {
	turns  []ports.Turn
	window Window
}

// NewConversationContext opens a conversation with the fixed system instruction.
func NewConversationContext(system string, w Window) *ConversationContext {
	if w.MaxTurns <= 0 {
		w.MaxTurns = DefaultMaxTurns
	}
	if w.TokenEstimator == nil {
		w.TokenEstimator = EstimateTokens
	}

	turns := make([]ports.Turn, 1, w.MaxTurns+3)
	turns[0] = ports.Turn{Role: ports.RoleSystem, Content: system, CreatedAt: time.Now()}

	return &ConversationContext{turns: turns, window: w}
}

// EstimateTokens is a rough heuristic: ~4 chars per token.
func EstimateTokens(s string) int {
	l := len(s)
	if l == 0 {
		return 0
	}
	return (l + 3) / 4
}

// Append adds one user or assistant turn to the end.
func (c *ConversationContext) Append(turn ports.Turn) error {
	switch turn.Role {
	case ports.RoleUser, ports.RoleAssistant:
	case ports.RoleSystem:
		return ErrSystemTurn
	default:
		return fmt.Errorf("unknown turn role %q", turn.Role)
	}
	c.turns = append(c.turns, turn)
	return nil
}

// Prune drops the oldest user/assistant pair until the window holds, and returns
// how many turns were removed.
func (c *ConversationContext) Prune() int {
	removed := 0

	for len(c.turns) > 1+c.window.MaxTurns {
		c.dropOldestPair()
		removed += 2
	}

	// The newest pair always survives the token budget.
	if c.window.MaxContextTokens > 0 {
		for len(c.turns) > 3 && c.EstimatedTokens() > c.window.MaxContextTokens {
			c.dropOldestPair()
			removed += 2
		}
	}

	return removed
}

func (c *ConversationContext) dropOldestPair() {
	n := copy(c.turns[1:], c.turns[3:])
	clear(c.turns[1+n:])
	c.turns = c.turns[:1+n]
}

// Snapshot returns a copy of the turns, system turn first.
func (c *ConversationContext) Snapshot() []ports.Turn {
	out := make([]ports.Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// System returns the system turn.
func (c *ConversationContext) System() ports.Turn { return c.turns[0] }

// Len returns the number of turns including the system turn.
func (c *ConversationContext) Len() int { return len(c.turns) }

// EstimatedTokens sums the estimated tokens of every turn.
func (c *ConversationContext) EstimatedTokens() int {
	total := 0
	for _, t := range c.turns {
		total += c.window.TokenEstimator(strings.TrimSpace(t.Content))
	}
	return total
}
