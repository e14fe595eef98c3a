package expectation

import (
	"context"

	"expectation-svc/models"

	"go.uber.org/zap"
)

// DefaultHistoryLimit is the number of settled payments handed to inference.
const DefaultHistoryLimit = 20

// HistorySource is the store query behind HistoryProvider.
type HistorySource interface {
	PaymentHistory(ctx context.Context, canonical string, limit int) ([]models.Payment, error)
}

// HistoryProvider reads a beneficiary's settled payments, most recently paid
// first. It never retries; store failures go back to the caller.
type HistoryProvider struct {
	source HistorySource
	limit  int
	logger *zap.Logger
}

func NewHistoryProvider(source HistorySource, limit int, logger *zap.Logger) *HistoryProvider {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &HistoryProvider{source: source, limit: limit, logger: logger}
}

func (h *HistoryProvider) Fetch(ctx context.Context, canonical string) ([]models.Payment, error) {
	history, err := h.source.PaymentHistory(ctx, canonical, h.limit)
	if err != nil {
		return nil, err
	}

	h.logger.Debug("Payment history loaded",
		zap.String("beneficiary", canonical),
		zap.Int("count", len(history)),
	)
	return history, nil
}
