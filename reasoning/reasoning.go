// Package reasoning talks to the external language-model service that
// canonicalizes beneficiary names and forecasts the next payment.
package reasoning

import (
	"context"
	"fmt"
	"net/http"

	"expectation-svc/circuitbreaker"
	"expectation-svc/config"
	"expectation-svc/middleware"
	"expectation-svc/models"

	"go.uber.org/zap"
)

// Capability is the reasoning service as seen by the expectation engine.
// Failures are reported as models.ErrReasoningUnavailable or
// models.ErrReasoningMalformed.
type Capability interface {
	Normalize(ctx context.Context, rawName string) (string, error)
	Infer(ctx context.Context, canonical string, history []models.Payment) (models.Prediction, error)
}

// New builds the configured provider wrapped in a circuit breaker and a per
// call timeout.
func New(cfg config.LLMConfig, breaker config.BreakerConfig, logger *zap.Logger) (Capability, error) {
	httpClient := &http.Client{}

	var provider *Provider
	switch cfg.Provider {
	case "openai":
		provider = NewOpenAI(httpClient, cfg, logger)
	case "groq":
		provider = NewGroq(httpClient, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown reasoning provider %q", cfg.Provider)
	}

	if cfg.ActiveProvider().APIKey == "" {
		logger.Warn("Reasoning provider has no API key configured", zap.String("provider", provider.Name()))
	}

	cb := circuitbreaker.NewCircuitBreaker("reasoning-"+provider.Name(), breaker.MaxFailures, breaker.ResetTimeout,
		circuitbreaker.WithStateChange(func(name string, state circuitbreaker.State) {
			middleware.SetCircuitBreakerState(name, int(state))
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("state", state.String()),
			)
		}),
	)

	logger.Info("Reasoning capability initialized",
		zap.String("provider", provider.Name()),
		zap.String("model", provider.chat.model),
	)
	return NewGuarded(provider, cb, cfg.Timeout), nil
}
