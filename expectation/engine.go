// Package expectation turns a settled payment into a forecast of the
// beneficiary's next payment.
package expectation

import (
	"context"
	"fmt"
	"time"

	"expectation-svc/middleware"
	"expectation-svc/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	fallbackHorizonDays = 30
	fallbackConfidence  = 0.3
)

type Reasoner interface {
	Normalize(ctx context.Context, rawName string) (string, error)
	Infer(ctx context.Context, canonical string, history []models.Payment) (models.Prediction, error)
}

type Recorder interface {
	RecordExpectation(ctx context.Context, rec models.ExpectationRecord) error
}

// Engine produces exactly one expectation and one audit entry per analysed
// payment. Reasoning and history failures are recorded as an error
// expectation instead of being returned.
type Engine struct {
	reasoner Reasoner
	history  *HistoryProvider
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
}

func NewEngine(reasoner Reasoner, history *HistoryProvider, recorder Recorder, logger *zap.Logger) *Engine {
	return &Engine{
		reasoner: reasoner,
		history:  history,
		recorder: recorder,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Analyze runs normalization, history lookup and inference or fallback for
// payment. The returned error is non-nil only when not even the error
// expectation could be stored.
func (e *Engine) Analyze(ctx context.Context, payment models.Payment) (models.Expectation, error) {
	ctx, span := otel.Tracer("expectation-service").Start(ctx, "AnalyzePayment")
	defer span.End()
	span.SetAttributes(attribute.String("payment.id", payment.ID.String()))

	logger := e.logger.With(
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("payment_id", payment.ID.String()),
	)
	logger.Info("Analyzing payment", zap.String("beneficiary", payment.BeneficiaryName))

	canonical, rec, err := e.analyze(ctx, payment)
	if err == nil {
		err = e.recorder.RecordExpectation(ctx, rec)
	}
	if err != nil {
		span.RecordError(err)
		logger.Error("Expectation analysis failed", zap.Error(err))

		rec = e.errorRecord(payment, canonical, err)
		if storeErr := e.recorder.RecordExpectation(ctx, rec); storeErr != nil {
			logger.Error("Failed to record error expectation", zap.Error(storeErr))
			return models.Expectation{}, fmt.Errorf("failed to record expectation: %w", storeErr)
		}
	}

	exp := rec.Expectation
	span.SetAttributes(
		attribute.String("expectation.method", string(exp.AnalysisMethod)),
		attribute.Float64("expectation.confidence", exp.ConfidenceScore),
	)
	middleware.RecordExpectationCreated(string(exp.AnalysisMethod))
	logger.Info("Expectation recorded",
		zap.String("expectation_id", exp.ID.String()),
		zap.String("beneficiary", exp.NormalizedBeneficiary),
		zap.String("method", string(exp.AnalysisMethod)),
		zap.Float64("confidence", exp.ConfidenceScore),
		zap.Int("history_count", exp.HistoryCount),
	)
	return exp, nil
}

// analyze returns the canonical name as soon as it is known so the error
// path can still persist it.
func (e *Engine) analyze(ctx context.Context, payment models.Payment) (string, models.ExpectationRecord, error) {
	canonical, err := e.reasoner.Normalize(ctx, payment.BeneficiaryName)
	if err != nil {
		return "", models.ExpectationRecord{}, fmt.Errorf("failed to normalize beneficiary: %w", err)
	}

	history, err := e.history.Fetch(ctx, canonical)
	if err != nil {
		return canonical, models.ExpectationRecord{}, fmt.Errorf("failed to load history: %w", err)
	}

	if len(history) < 1 {
		return canonical, e.fallbackRecord(payment, canonical, len(history)), nil
	}

	prediction, err := e.reasoner.Infer(ctx, canonical, history)
	if err != nil {
		return canonical, models.ExpectationRecord{}, fmt.Errorf("failed to infer expectation: %w", err)
	}

	return canonical, e.inferredRecord(payment, canonical, history, prediction), nil
}

func (e *Engine) fallbackRecord(payment models.Payment, canonical string, historyCount int) models.ExpectationRecord {
	now := e.now()
	next := now.AddDate(0, 0, fallbackHorizonDays)
	amount := payment.Value

	exp := e.newExpectation(canonical, now)
	exp.NextExpectedPaymentDate = &next
	exp.NextExpectedAmount = &amount
	exp.ConfidenceScore = fallbackConfidence
	exp.Rationale = fmt.Sprintf("Insufficient history (%d records). Estimate based on the latest payment.", historyCount)
	exp.AnalysisMethod = models.AnalysisMethodRuleBased
	exp.HistoryCount = historyCount

	return e.record(payment, canonical, exp, models.AuditExpectationCreatedBasic,
		fmt.Sprintf("Basic expectation for %s: %s expected on %s", canonical, amount.StringFixed(2), next.Format("2006-01-02")))
}

func (e *Engine) inferredRecord(payment models.Payment, canonical string, history []models.Payment, p models.Prediction) models.ExpectationRecord {
	exp := e.newExpectation(canonical, e.now())
	exp.NextExpectedPaymentDate = p.NextExpectedPaymentDate
	exp.NextExpectedAmount = p.NextExpectedAmount
	exp.ConfidenceScore = p.ConfidenceScore
	exp.Rationale = models.Truncate(p.Rationale, models.MaxRationaleLen)
	exp.AnalysisMethod = models.AnalysisMethodLLM
	exp.HistoryCount = len(history)

	return e.record(payment, canonical, exp, models.AuditExpectationGenerated,
		fmt.Sprintf("Analyzed %d historical payments. Confidence: %.0f%%", len(history), p.ConfidenceScore*100))
}

func (e *Engine) errorRecord(payment models.Payment, canonical string, cause error) models.ExpectationRecord {
	name := canonical
	if name == "" {
		name = models.Truncate(payment.CanonicalOrRaw(), models.MaxBeneficiaryNameLen)
	}

	exp := e.newExpectation(name, e.now())
	exp.ConfidenceScore = 0
	exp.Rationale = models.Truncate("Analysis failed: "+cause.Error(), models.MaxRationaleLen)
	exp.AnalysisMethod = models.AnalysisMethodError
	exp.HistoryCount = 0

	return e.record(payment, canonical, exp, models.AuditExpectationError,
		fmt.Sprintf("Expectation analysis failed for %s: %v", name, cause))
}

func (e *Engine) newExpectation(canonical string, now time.Time) models.Expectation {
	return models.Expectation{
		ID:                    uuid.New(),
		NormalizedBeneficiary: canonical,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

func (e *Engine) record(payment models.Payment, canonical string, exp models.Expectation, action models.AuditAction, details string) models.ExpectationRecord {
	audit := models.NewAuditLog(action, details, exp.CreatedAt)
	if payment.ID != uuid.Nil {
		id := payment.ID
		audit.PaymentID = &id
	}
	expID := exp.ID
	audit.ExpectationID = &expID

	return models.ExpectationRecord{
		PaymentID:   payment.ID,
		Canonical:   canonical,
		Expectation: exp,
		Audit:       audit,
	}
}
