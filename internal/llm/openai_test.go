package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dave817/sereniowebapp/internal/chat"
)

type capturedRequest struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newUpstream(t *testing.T, status int, body string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCompleteSendsPrompt(t *testing.T) {
	var got capturedRequest
	srv := newUpstream(t, http.StatusOK, `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "I'm here with you."}, "finish_reason": "stop"}]
	}`, &got)

	client := NewOpenAIClient("sk-test", srv.URL+"/v1")
	reply, err := client.Complete(context.Background(), chat.CompletionRequest{
		Model: "gpt-4",
		Turns: []chat.Turn{
			{Role: chat.RoleSystem, Content: "persona"},
			{Role: chat.RoleUser, Content: "I feel anxious"},
			{Role: chat.RoleAssistant, Content: "earlier reply"},
		},
		Temperature: 0.7,
		MaxTokens:   500,
	})

	require.NoError(t, err)
	assert.Equal(t, "I'm here with you.", reply)
	assert.Equal(t, "gpt-4", got.Model)
	assert.Equal(t, float32(0.7), got.Temperature)
	assert.Equal(t, 500, got.MaxTokens)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "assistant", got.Messages[2].Role)
}

func TestCompleteNoChoices(t *testing.T) {
	srv := newUpstream(t, http.StatusOK, `{"id": "chatcmpl-2", "choices": []}`, nil)

	reply, err := NewOpenAIClient("sk-test", srv.URL+"/v1").Complete(context.Background(), chat.CompletionRequest{Model: "gpt-4"})
	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestCompleteUpstreamError(t *testing.T) {
	srv := newUpstream(t, http.StatusTooManyRequests, `{"error": {"message": "quota exceeded", "type": "insufficient_quota"}}`, nil)

	_, err := NewOpenAIClient("sk-test", srv.URL+"/v1").Complete(context.Background(), chat.CompletionRequest{Model: "gpt-4"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}
