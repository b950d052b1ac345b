package claude_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedex/internal/config"
	"schedex/internal/similarity"
	"schedex/internal/similarity/claude"
)

func newTestScorer(serverURL string) *claude.Scorer {
	cfg := &config.SimilarityConfig{
		Provider:    "claude",
		APIKey:      "test-api-key",
		Model:       "claude-sonnet-4-20250514",
		TimeoutSecs: 5,
	}
	return claude.NewScorerWithEndpoint(cfg, serverURL)
}

func textResponse(text string) map[string]interface{} {
	return map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": text},
		},
		"stop_reason": "end_turn",
	}
}

func TestClaudeScorer_Similarity_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-api-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var reqBody map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "claude-sonnet-4-20250514", reqBody["model"])

		messages := reqBody["messages"].([]interface{})
		assert.Len(t, messages, 1)
		msg := messages[0].(map[string]interface{})
		assert.Equal(t, "user", msg["role"])
		assert.Contains(t, msg["content"], "TEXT: fla")
		assert.Contains(t, msg["content"], "CANDIDATE: design or full load current")

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(textResponse(" 0.82\n"))
	}))
	defer server.Close()

	score, err := newTestScorer(server.URL).Similarity(context.Background(), "fla", "design or full load current")
	require.NoError(t, err)
	assert.Equal(t, 0.82, score)
}

func TestClaudeScorer_Similarity_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate_limited"}`))
	}))
	defer server.Close()

	_, err := newTestScorer(server.URL).Similarity(context.Background(), "a", "b")

	var rl *similarity.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, "claude", rl.Provider)
	assert.Equal(t, 7*time.Second, rl.RetryAfter)
}

func TestClaudeScorer_Similarity_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("overloaded"))
	}))
	defer server.Close()

	_, err := newTestScorer(server.URL).Similarity(context.Background(), "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")

	var rl *similarity.RateLimitError
	assert.False(t, errors.As(err, &rl))
}

func TestClaudeScorer_Similarity_BadReplies(t *testing.T) {
	tests := []struct {
		name    string
		body    interface{}
		wantErr string
	}{
		{"not a number", textResponse("quite similar"), "parsing score"},
		{"out of range", textResponse("1.5"), "out of range"},
		{"no content", map[string]interface{}{"content": []interface{}{}}, "empty response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_ = json.NewEncoder(w).Encode(tt.body)
			}))
			defer server.Close()

			_, err := newTestScorer(server.URL).Similarity(context.Background(), "a", "b")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
