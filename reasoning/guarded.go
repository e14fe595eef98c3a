package reasoning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expectation-svc/circuitbreaker"
	"expectation-svc/middleware"
	"expectation-svc/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Guarded bounds every call to the wrapped capability with a timeout and a
// circuit breaker. Malformed answers do not count against the breaker.
type Guarded struct {
	next    Capability
	breaker *circuitbreaker.CircuitBreaker
	timeout time.Duration
}

func NewGuarded(next Capability, breaker *circuitbreaker.CircuitBreaker, timeout time.Duration) *Guarded {
	return &Guarded{next: next, breaker: breaker, timeout: timeout}
}

func (g *Guarded) Normalize(ctx context.Context, rawName string) (string, error) {
	var canonical string
	err := g.call(ctx, "normalize", func(ctx context.Context) error {
		var err error
		canonical, err = g.next.Normalize(ctx, rawName)
		return err
	})
	return canonical, err
}

func (g *Guarded) Infer(ctx context.Context, canonical string, history []models.Payment) (models.Prediction, error) {
	var prediction models.Prediction
	err := g.call(ctx, "infer", func(ctx context.Context) error {
		var err error
		prediction, err = g.next.Infer(ctx, canonical, history)
		return err
	}, attribute.String("beneficiary", canonical), attribute.Int("history.count", len(history)))
	return prediction, err
}

func (g *Guarded) call(ctx context.Context, op string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := otel.Tracer("expectation-service").Start(ctx, "reasoning."+op)
	defer span.End()
	span.SetAttributes(attrs...)

	start := time.Now()
	var malformed error
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		if g.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		err := fn(ctx)
		if isMalformed(err) {
			malformed = err
			return nil
		}
		return err
	})
	if err == nil {
		err = malformed
	}
	middleware.ObserveReasoning(op, err, time.Since(start))

	if err == nil {
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	switch {
	case errors.Is(err, models.ErrReasoningMalformed), errors.Is(err, models.ErrReasoningUnavailable):
		return err
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return fmt.Errorf("%w: %w", models.ErrReasoningUnavailable, err)
	default:
		return fmt.Errorf("%w: %s: %w", models.ErrReasoningUnavailable, op, err)
	}
}
