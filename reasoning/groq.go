package reasoning

import (
	"fmt"
	"net/http"

	"expectation-svc/config"

	"go.uber.org/zap"
)

const (
	groqDefaultModel   = "llama-3.1-70b-versatile"
	groqDefaultBaseURL = "https://api.groq.com/openai/v1"
)

func NewGroq(httpClient *http.Client, cfg config.LLMConfig, logger *zap.Logger) *Provider {
	return &Provider{
		name:    "groq",
		chat:    newChatClient(httpClient, cfg, cfg.Groq, groqDefaultModel, groqDefaultBaseURL, logger),
		prompts: prompts{normalize: normalizePrompt, infer: groqInferPrompt},
		logger:  logger,
	}
}

// Open models tend to wrap the answer in prose, so the prompt is stricter.
func groqInferPrompt(canonical, historyJSON string) string {
	return fmt.Sprintf(`Analyze the payment history of beneficiary %q and suggest the next expected payment.

Most recent payments:
%s

The most important rule: do not write any text outside the JSON below. Return only this JSON, filled in:
{
  "nextExpectedPaymentDate": "YYYY-MM-DD",
  "nextExpectedAmount": decimal,
  "confidenceScore": 0.0-1.0,
  "rationale": "short explanation"
}

Anything else you want to say belongs inside the rationale property.

Incorrect answer example:

'This text should have been inside the json'
{
  "nextExpectedPaymentDate": "2025-10-22",
  "nextExpectedAmount": 89.90,
  "confidenceScore": 0.2,
  "rationale": "Only two payments with the same amount, no clear frequency."
}

Consider:
- Seasonality
- Payment frequency
- Typical amounts
- Historical delays`, canonical, historyJSON)
}
