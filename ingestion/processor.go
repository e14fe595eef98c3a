// Package ingestion applies one settlement message to the ledger and runs
// the expectation engine for the reconciled payment.
package ingestion

import (
	"context"
	"fmt"
	"time"

	"expectation-svc/middleware"
	"expectation-svc/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

type Reconciler interface {
	ReconcilePayment(ctx context.Context, msg models.PaymentMessage, now time.Time) (models.Payment, bool, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, payment models.Payment) (models.Expectation, error)
}

// Processor is safe to call again with the same payload: the ledger upsert is
// keyed by identification field and expectations are append-only.
type Processor struct {
	store  Reconciler
	engine Analyzer
	logger *zap.Logger
	now    func() time.Time
}

func NewProcessor(store Reconciler, engine Analyzer, logger *zap.Logger) *Processor {
	return &Processor{
		store:  store,
		engine: engine,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Process decodes payload, reconciles the payment and analyses it. A
// *models.DecodeError means the payload can never succeed; any other error
// means the message should be delivered again.
func (p *Processor) Process(ctx context.Context, payload []byte) error {
	ctx, span := otel.Tracer("expectation-service").Start(ctx, "ProcessSettlement")
	defer span.End()
	traceID := middleware.GetTraceID(ctx)

	msg, err := models.DecodePaymentMessage(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		p.logger.Warn("Rejected settlement message",
			zap.String("trace_id", traceID),
			zap.Error(err),
		)
		return err
	}

	span.SetAttributes(
		attribute.String("payment.identification_field", msg.IdentificationField),
		attribute.String("payment.beneficiary", msg.BeneficiaryName),
	)

	payment, inserted, err := p.store.ReconcilePayment(ctx, msg, p.now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reconcile failed")
		return fmt.Errorf("failed to reconcile payment %s: %w", msg.IdentificationField, err)
	}

	p.logger.Info("Payment reconciled",
		zap.String("trace_id", traceID),
		zap.String("payment_id", payment.ID.String()),
		zap.String("identification_field", payment.IdentificationField),
		zap.String("value", payment.Value.StringFixed(2)),
		zap.Bool("inserted", inserted),
	)

	if _, err := p.engine.Analyze(ctx, payment); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		return fmt.Errorf("failed to analyze payment %s: %w", payment.ID, err)
	}

	return nil
}
