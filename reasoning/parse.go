package reasoning

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"expectation-svc/models"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type inferenceAnswer struct {
	NextExpectedPaymentDate *string          `json:"nextExpectedPaymentDate"`
	NextExpectedAmount      *decimal.Decimal `json:"nextExpectedAmount"`
	ConfidenceScore         *float64         `json:"confidenceScore"`
	Rationale               string           `json:"rationale"`
}

// ParsePrediction reads a model answer as an inference result. Code fences and
// prose around the first JSON object are ignored; everything inside it is
// validated.
func ParsePrediction(answer string) (models.Prediction, error) {
	raw, ok := extractJSONObject(stripFences(answer))
	if !ok {
		return models.Prediction{}, fmt.Errorf("%w: no JSON object in answer", models.ErrReasoningMalformed)
	}

	var parsed inferenceAnswer
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return models.Prediction{}, fmt.Errorf("%w: %w", models.ErrReasoningMalformed, err)
	}

	if parsed.ConfidenceScore == nil {
		return models.Prediction{}, fmt.Errorf("%w: missing confidenceScore", models.ErrReasoningMalformed)
	}
	confidence := *parsed.ConfidenceScore
	if math.IsNaN(confidence) || confidence < models.MinConfidence || confidence > models.MaxConfidence {
		return models.Prediction{}, fmt.Errorf("%w: confidenceScore %v outside [0,1]", models.ErrReasoningMalformed, confidence)
	}

	prediction := models.Prediction{
		ConfidenceScore: confidence,
		Rationale:       models.Truncate(strings.TrimSpace(parsed.Rationale), models.MaxRationaleLen),
	}

	if parsed.NextExpectedAmount != nil {
		if parsed.NextExpectedAmount.IsNegative() {
			return models.Prediction{}, fmt.Errorf("%w: negative nextExpectedAmount", models.ErrReasoningMalformed)
		}
		amount := parsed.NextExpectedAmount.Round(2)
		prediction.NextExpectedAmount = &amount
	}

	if parsed.NextExpectedPaymentDate != nil && strings.TrimSpace(*parsed.NextExpectedPaymentDate) != "" {
		date, err := parseAnswerDate(strings.TrimSpace(*parsed.NextExpectedPaymentDate))
		if err != nil {
			return models.Prediction{}, fmt.Errorf("%w: %w", models.ErrReasoningMalformed, err)
		}
		prediction.NextExpectedPaymentDate = &date
	}

	return prediction, nil
}

func parseAnswerDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised nextExpectedPaymentDate %q", raw)
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// ParseCanonical reads a model answer as a canonical beneficiary name: the
// first non-empty line, unquoted, upper-cased and without diacritics.
func ParseCanonical(answer string) (string, error) {
	var line string
	for _, l := range strings.Split(stripFences(answer), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}

	line = strings.Trim(line, "\"'`*. ")
	if folded, _, err := transform.String(accentStripper, line); err == nil {
		line = folded
	}
	line = strings.Join(strings.Fields(strings.ToUpper(line)), " ")

	switch {
	case line == "":
		return "", fmt.Errorf("%w: empty canonical name", models.ErrReasoningMalformed)
	case len([]rune(line)) > models.MaxBeneficiaryNameLen:
		return "", fmt.Errorf("%w: canonical name too long", models.ErrReasoningMalformed)
	}
	return line, nil
}

func stripFences(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "```") {
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\n")
}

// extractJSONObject returns the first balanced {...} in s, honouring string
// literals and escapes.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
