package reasoning

import (
	"fmt"
	"net/http"

	"expectation-svc/config"

	"go.uber.org/zap"
)

const (
	openaiDefaultModel   = "gpt-4o-mini"
	openaiDefaultBaseURL = "https://api.openai.com/v1"
)

func NewOpenAI(httpClient *http.Client, cfg config.LLMConfig, logger *zap.Logger) *Provider {
	return &Provider{
		name:    "openai",
		chat:    newChatClient(httpClient, cfg, cfg.OpenAI, openaiDefaultModel, openaiDefaultBaseURL, logger),
		prompts: prompts{normalize: normalizePrompt, infer: openaiInferPrompt},
		logger:  logger,
	}
}

func normalizePrompt(rawName string) string {
	return fmt.Sprintf(`Normalize this payment beneficiary name into a single, consistent identifier.
Original name: %q

Rules:
- Always use UPPERCASE
- Remove accents and special characters
- Group variations of the same beneficiary under one name
- Examples: "CEMIG DISTRIBUICAO" -> "CEMIG", "Cemig Energia" -> "CEMIG"

Return only the normalized name:`, rawName)
}

func openaiInferPrompt(canonical, historyJSON string) string {
	return fmt.Sprintf(`Analyze the payment history of beneficiary %q and suggest the next expected payment.

Most recent payments:
%s

Return only JSON with:
{
  "nextExpectedPaymentDate": "YYYY-MM-DD",
  "nextExpectedAmount": decimal,
  "confidenceScore": 0.0-1.0,
  "rationale": "short explanation"
}

Consider:
- Seasonality
- Payment frequency
- Typical amounts
- Historical delays`, canonical, historyJSON)
}
