package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"AVInsights/internal/config"
	"AVInsights/internal/domain"
	"AVInsights/internal/ports"
)

const systemPrompt = "You are an autonomous vehicle (AV) industry analyst.\n\n" +
	"Analyze the article and output structured fields about AV relevance, summary, companies, and categorization."

// OpenAIClient implements ports.Analyzer against OpenAI-compatible
// structured-output APIs.
type OpenAIClient struct {
	endpoint        string
	model           string
	apiKey          string
	maxOutputTokens int
	maxRetries      int
	backoffBase     time.Duration
	backoffCap      time.Duration
	httpClient      *http.Client
	logger          *slog.Logger
}

var _ ports.Analyzer = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client from configuration.
func NewOpenAIClient(cfg config.AIConfig, logger *slog.Logger) *OpenAIClient {
	return &OpenAIClient{
		endpoint:        cfg.Endpoint,
		model:           cfg.Model,
		apiKey:          cfg.APIKey,
		maxOutputTokens: cfg.MaxOutputTokens,
		maxRetries:      cfg.MaxRetries,
		backoffBase:     time.Second,
		backoffCap:      30 * time.Second,
		httpClient:      &http.Client{Timeout: 60 * time.Second},
		logger:          logger,
	}
}

// Analyze sends one article to the model and decodes its structured output.
// Rate-limited calls are retried with exponential backoff up to maxRetries;
// any other error propagates immediately.
func (c *OpenAIClient) Analyze(ctx context.Context, req ports.AnalysisRequest) (domain.Analysis, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return domain.Analysis{}, fmt.Errorf("openai client misconfigured")
	}

	prompt := fmt.Sprintf("%s\n\nTitle: %s\nURL: %s\n\nCONTENT:\n%s",
		systemPrompt, req.Title, req.URL, req.Content)

	raw, err := c.withRetries(ctx, func() (string, error) {
		return c.call(ctx, prompt)
	})
	if err != nil {
		return domain.Analysis{}, err
	}

	var analysis domain.Analysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return domain.Analysis{}, fmt.Errorf("decode analysis: %w", err)
	}

	return domain.NormalizeAnalysis(analysis), nil
}

func (c *OpenAIClient) call(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model":             c.model,
		"input":             prompt,
		"max_output_tokens": c.maxOutputTokens,
		"temperature":       0.2,
		"text": map[string]any{
			"format": map[string]any{
				"type":   "json_schema",
				"name":   articleAnalysisSchemaName,
				"strict": true,
				"schema": articleAnalysisSchema,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("analyze request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("openai error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded responseBody
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	out := decoded.outputText()
	if out == "" {
		return "", fmt.Errorf("no output text in response")
	}
	return out, nil
}

// withRetries retries fn on rate-limit signals with exponential backoff
// (1s doubling, capped at 30s). A call that always rate-limits is attempted
// maxRetries+1 times before the error propagates.
func (c *OpenAIClient) withRetries(ctx context.Context, fn func() (string, error)) (string, error) {
	attempt := 0
	for {
		out, err := fn()
		if err == nil {
			return out, nil
		}

		attempt++
		if !isRateLimit(err) || attempt > c.maxRetries {
			return "", err
		}

		backoff := c.backoffBase << (attempt - 1)
		if backoff > c.backoffCap {
			backoff = c.backoffCap
		}
		if c.logger != nil {
			c.logger.Warn("rate limited, retrying",
				"backoff", backoff, "attempt", attempt, "max_retries", c.maxRetries)
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func isRateLimit(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(strings.ToLower(msg), "rate limit")
}

type responseBody struct {
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

func (r responseBody) outputText() string {
	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == "output_text" && part.Text != "" {
				return part.Text
			}
		}
	}
	return ""
}
