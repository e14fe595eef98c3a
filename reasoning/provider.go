package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"expectation-svc/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type prompts struct {
	normalize func(rawName string) string
	infer     func(canonical, historyJSON string) string
}

// Provider is one chat-completions backend with its own prompt wording.
type Provider struct {
	name    string
	chat    *chatClient
	prompts prompts
	logger  *zap.Logger
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Normalize(ctx context.Context, rawName string) (string, error) {
	answer, err := p.chat.complete(ctx, p.prompts.normalize(rawName))
	if err != nil {
		return "", err
	}

	canonical, err := ParseCanonical(answer)
	if err != nil {
		p.logger.Warn("Unusable normalization answer",
			zap.String("provider", p.name),
			zap.String("answer", models.Truncate(answer, 200)),
		)
		return "", err
	}
	return canonical, nil
}

func (p *Provider) Infer(ctx context.Context, canonical string, history []models.Payment) (models.Prediction, error) {
	historyJSON, err := historyPayload(history)
	if err != nil {
		return models.Prediction{}, err
	}

	answer, err := p.chat.complete(ctx, p.prompts.infer(canonical, historyJSON))
	if err != nil {
		return models.Prediction{}, err
	}

	prediction, err := ParsePrediction(answer)
	if err != nil {
		p.logger.Warn("Unusable inference answer",
			zap.String("provider", p.name),
			zap.String("beneficiary", canonical),
			zap.String("answer", models.Truncate(answer, 500)),
		)
		return models.Prediction{}, err
	}
	return prediction, nil
}

type historyEntry struct {
	Value     decimal.Decimal `json:"value"`
	DueDate   *time.Time      `json:"dueDate"`
	PaidAt    *time.Time      `json:"paidAt"`
	CreatedAt time.Time       `json:"createdAt"`
}

func historyPayload(history []models.Payment) (string, error) {
	entries := make([]historyEntry, 0, len(history))
	for _, p := range history {
		entries = append(entries, historyEntry{
			Value:     p.Value,
			DueDate:   p.DueDate,
			PaidAt:    p.PaidAt,
			CreatedAt: p.CreatedAt,
		})
	}
	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal history: %w", err)
	}
	return string(out), nil
}
