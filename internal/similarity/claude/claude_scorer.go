package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"schedex/internal/config"
	"schedex/internal/similarity"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
)

// Scorer implements port.SimilarityScorer using the Anthropic Messages API.
type Scorer struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewScorer creates a Claude-based similarity scorer.
func NewScorer(cfg *config.SimilarityConfig) *Scorer {
	return newScorer(cfg, apiURL)
}

// NewScorerWithEndpoint creates a scorer pointing at a custom API endpoint (for testing).
func NewScorerWithEndpoint(cfg *config.SimilarityConfig, endpoint string) *Scorer {
	return newScorer(cfg, endpoint)
}

func newScorer(cfg *config.SimilarityConfig, endpoint string) *Scorer {
	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &Scorer{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *Scorer) Similarity(ctx context.Context, text, candidate string) (float64, error) {
	reqBody := map[string]interface{}{
		"model":      s.model,
		"max_tokens": 16,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": buildPrompt(text, candidate),
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return 0, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("calling anthropic API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := similarity.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return 0, similarity.NewRateLimitError("claude", baseErr, retryAfter)
		}
		return 0, baseErr
	}

	return parseResponse(respBody)
}

func buildPrompt(text, candidate string) string {
	return "You compare column headers and table descriptions from electrical engineering schedules.\n" +
		"Rate how well TEXT matches CANDIDATE on a scale from 0 to 1, where 1 means the same concept.\n" +
		"Reply with the number only.\n\n" +
		"TEXT: " + text + "\n" +
		"CANDIDATE: " + candidate + "\n"
}

type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func parseResponse(body []byte) (float64, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("unmarshaling response: %w", err)
	}
	if len(resp.Content) == 0 {
		return 0, fmt.Errorf("empty response from API")
	}

	raw := strings.TrimSpace(resp.Content[0].Text)
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing score %q: %w", raw, err)
	}
	if score < 0 || score > 1 {
		return 0, fmt.Errorf("score out of range: %v", score)
	}
	return score, nil
}
