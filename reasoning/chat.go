package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"expectation-svc/config"
	"expectation-svc/models"

	"go.uber.org/zap"
)

const (
	chatMaxTokens    = 500
	chatInitialDelay = 500 * time.Millisecond
	maxResponseBytes = 1 << 20
)

// chatClient speaks the OpenAI chat completions wire format, which Groq
// also serves.
type chatClient struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	model        string
	temperature  float64
	maxRetries   int
	initialDelay time.Duration
	logger       *zap.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func newChatClient(httpClient *http.Client, cfg config.LLMConfig, p config.ProviderConfig, model, baseURL string, logger *zap.Logger) *chatClient {
	if p.Model != "" {
		model = p.Model
	}
	if p.BaseURL != "" {
		baseURL = p.BaseURL
	}
	return &chatClient{
		httpClient:   httpClient,
		baseURL:      baseURL,
		apiKey:       p.APIKey,
		model:        model,
		temperature:  cfg.Temperature,
		maxRetries:   cfg.MaxRetries,
		initialDelay: chatInitialDelay,
		logger:       logger,
	}
}

// complete sends a single user prompt and returns the text of the first choice.
func (c *chatClient) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
		MaxTokens:   chatMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	attempts := c.maxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * c.initialDelay
			c.logger.Warn("Retrying reasoning request",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", delay),
				zap.Error(lastErr),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %w", models.ErrReasoningUnavailable, ctx.Err())
			}
		}

		content, retry, err := c.do(ctx, body)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retry {
			return "", err
		}
	}

	return "", fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

func (c *chatClient) do(ctx context.Context, body []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.baseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		retry := ctx.Err() == nil
		return "", retry, fmt.Errorf("%w: HTTP request failed: %w", models.ErrReasoningUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", true, fmt.Errorf("%w: failed to read response body: %w", models.ErrReasoningUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr chatError
		msg := string(respBody)
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", retry, fmt.Errorf("%w: API error (%d): %s", models.ErrReasoningUnavailable, resp.StatusCode, models.Truncate(msg, 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", false, fmt.Errorf("%w: failed to decode response: %w", models.ErrReasoningMalformed, err)
	}
	if len(parsed.Choices) == 0 {
		return "", false, fmt.Errorf("%w: response has no choices", models.ErrReasoningMalformed)
	}

	return parsed.Choices[0].Message.Content, false, nil
}

// isMalformed reports whether the service answered but the answer was unusable.
func isMalformed(err error) bool {
	return errors.Is(err, models.ErrReasoningMalformed)
}
