package recommend

import (
	"strings"

	ports "github.com/ZanzyTHEbar/soundware/sndw/recommend/ports"
)

// SystemInstruction is the fixed instruction opening every conversation.
const SystemInstruction = `You are a music recommendation assistant. Your responses MUST:
1. ONLY use the following format for each recommendation:
{"songTitle": "[Song Title]", "artist": "[Artist Name]"}
2. Separate each recommendation with a newline
3. Include at least 7 recommendations
4. ONLY include the recommendations - no other text
5. Make sure song titles and artist names are accurate
6. Consider the conversation history and previous recommendations when making new suggestions
7. If the user asks for similar songs, base recommendations on their previous interests

Example response:
{"songTitle": "Super Shy", "artist": "NewJeans"}
{"songTitle": "Street by Street", "artist": "Laufey"}
{"songTitle": "WE GO", "artist": "fromis_9"}
{"songTitle": "Supernova", "artist": "aespa"}
{"songTitle": "Glue Song", "artist": "beabadoobee"}`

// DefaultTemperature keeps generations varied but on-format.
const DefaultTemperature float32 = 0.7

// PromptBuilder assembles generator requests from the conversation window.
type PromptBuilder struct {
	Temperature float32
	MaxTokens   int
}

func NewPromptBuilder(temperature float32, maxTokens int) *PromptBuilder {
	return &PromptBuilder{Temperature: temperature, MaxTokens: maxTokens}
}

// Build returns the request for history followed by the pending user turn. The
// history is copied; contents are normalized to keep prompts stable.
func (b *PromptBuilder) Build(history []ports.Turn, pending ports.Turn) ports.GenerateRequest {
	norm := func(s string) string { return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n")) }

	turns := make([]ports.Turn, 0, len(history)+1)
	for _, t := range history {
		t.Content = norm(t.Content)
		turns = append(turns, t)
	}
	pending.Content = norm(pending.Content)
	turns = append(turns, pending)

	return ports.GenerateRequest{
		Turns:       turns,
		Temperature: b.Temperature,
		MaxTokens:   b.MaxTokens,
	}
}
