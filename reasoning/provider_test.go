package reasoning

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"expectation-svc/config"
	"expectation-svc/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"
)

func chatReply(content string) string {
	out, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
	})
	return string(out)
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.LLMConfig{
		Provider:    "openai",
		Temperature: 0.1,
		MaxRetries:  2,
		OpenAI:      config.ProviderConfig{APIKey: "test-key", Model: "test-model", BaseURL: server.URL},
	}
	p := NewOpenAI(server.Client(), cfg, zaptest.NewLogger(t))
	p.chat.initialDelay = time.Millisecond
	return p
}

func TestProvider_Normalize(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected /chat/completions, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Expected bearer key, got %q", got)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
			return
		}
		if req.Model != "test-model" || req.MaxTokens != 500 || req.Temperature != 0.1 {
			t.Errorf("Unexpected request settings: %+v", req)
		}
		if len(req.Messages) != 1 || !strings.Contains(req.Messages[0].Content, "CEMIG DISTRIBUICAO") {
			t.Errorf("Expected prompt to carry the raw name, got %+v", req.Messages)
		}

		w.Write([]byte(chatReply("Cemig")))
	})

	got, err := p.Normalize(context.Background(), "CEMIG DISTRIBUICAO")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if got != "CEMIG" {
		t.Errorf("Expected CEMIG, got %q", got)
	}
}

func TestProvider_InferRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":{"message":"overloaded"}}`))
			return
		}
		w.Write([]byte(chatReply("```json\n{\"nextExpectedPaymentDate\":\"2025-11-10\",\"nextExpectedAmount\":90.00,\"confidenceScore\":0.8,\"rationale\":\"monthly\"}\n```")))
	})

	paidAt := time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC)
	history := []models.Payment{{Value: decimal.RequireFromString("90.00"), Paid: true, PaidAt: &paidAt}}

	prediction, err := p.Infer(context.Background(), "CEMIG", history)
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 2 calls, got %d", calls.Load())
	}
	if prediction.ConfidenceScore != 0.8 {
		t.Errorf("Expected confidence 0.8, got %v", prediction.ConfidenceScore)
	}
}

func TestProvider_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	})

	_, err := p.Normalize(context.Background(), "SABESP")
	if !errors.Is(err, models.ErrReasoningUnavailable) {
		t.Errorf("Expected ErrReasoningUnavailable, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected a single call, got %d", calls.Load())
	}
}

func TestProvider_MalformedAnswer(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatReply("I am not sure about this one.")))
	})

	_, err := p.Infer(context.Background(), "CEMIG", nil)
	if !errors.Is(err, models.ErrReasoningMalformed) {
		t.Errorf("Expected ErrReasoningMalformed, got %v", err)
	}
}

func TestGroqPromptForbidsTextOutsideJSON(t *testing.T) {
	prompt := groqInferPrompt("CEMIG", "[]")
	if !strings.Contains(prompt, "do not write any text outside the JSON") {
		t.Errorf("Expected strict JSON instruction in groq prompt")
	}
	if strings.Contains(openaiInferPrompt("CEMIG", "[]"), "do not write any text outside the JSON") {
		t.Errorf("Expected openai prompt to keep the short form")
	}
}
