package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClip(t *testing.T) {
	assert.Equal(t, "short line", Clip(`  "short   line" `, 140))
	long := strings.Repeat("word ", 40)
	out := Clip(long, 20)
	assert.Equal(t, "word word word word...", out)
}

func TestNewOpenAIRequiresModel(t *testing.T) {
	_, err := NewOpenAI(Config{APIKey: "k"})
	assert.Error(t, err)
}

func TestPreheader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"\"A quick look at what shipped this week.\""},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAI(Config{APIKey: "k", Model: "test-model", BaseURL: srv.URL})
	require.NoError(t, err)
	out, err := c.Preheader(context.Background(), "Weekly", "<p>Body</p>")
	require.NoError(t, err)
	assert.Equal(t, "A quick look at what shipped this week.", out)
}
