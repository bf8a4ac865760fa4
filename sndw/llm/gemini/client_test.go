package gemini

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	ports "github.com/ZanzyTHEbar/soundware/sndw/recommend/ports"
)

func TestToContents(t *testing.T) {
	system, contents := toContents([]ports.Turn{
		{Role: ports.RoleSystem, Content: "be a DJ"},
		{Role: ports.RoleUser, Content: "jazz"},
		{Role: ports.RoleAssistant, Content: `{"songTitle":"So What","artist":"Miles Davis"}`},
		{Role: ports.RoleUser, Content: "more"},
	})

	assert.Equal(t, "be a DJ", system)
	require.Len(t, contents, 3)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	assert.Equal(t, "more", contents[2].Parts[0].Text)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), Config{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestClient_Complete(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)
		data, _ := io.ReadAll(r.Body)
		body = string(data)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"songTitle\":\"A\",\"artist\":\"B\"}"}]}}],
			"usageMetadata": {"promptTokenCount": 7, "candidatesTokenCount": 3, "totalTokenCount": 10}
		}`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), Config{APIKey: "key", Model: "gemini-test", BaseURL: srv.URL}, zerolog.Nop())
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), ports.GenerateRequest{
		Turns: []ports.Turn{
			{Role: ports.RoleSystem, Content: "be a DJ"},
			{Role: ports.RoleUser, Content: "jazz"},
		},
		Temperature: 0.7,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"songTitle":"A","artist":"B"}`, out.Text)
	require.NotNil(t, out.Usage)
	assert.Equal(t, 10, out.Usage.TotalTokens)
	assert.Contains(t, body, "systemInstruction")
	assert.Contains(t, body, "be a DJ")
}
