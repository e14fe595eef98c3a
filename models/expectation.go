package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AnalysisMethod string

const (
	AnalysisMethodLLM       AnalysisMethod = "llm"
	AnalysisMethodRuleBased AnalysisMethod = "rule-based"
	AnalysisMethodError     AnalysisMethod = "error"
)

const (
	MaxRationaleLen = 1000
	MinConfidence   = 0.0
	MaxConfidence   = 1.0
)

type Expectation struct {
	ID                      uuid.UUID        `json:"id"`
	NormalizedBeneficiary   string           `json:"normalized_beneficiary"`
	NextExpectedPaymentDate *time.Time       `json:"next_expected_payment_date,omitempty"`
	NextExpectedAmount      *decimal.Decimal `json:"next_expected_amount,omitempty"`
	ConfidenceScore         float64          `json:"confidence_score"`
	Rationale               string           `json:"rationale"`
	AnalysisMethod          AnalysisMethod   `json:"analysis_method"`
	HistoryCount            int              `json:"history_count"`
	CreatedAt               time.Time        `json:"created_at"`
	UpdatedAt               time.Time        `json:"updated_at"`
}

// Prediction is the structured answer of the reasoning capability for one
// beneficiary. It carries no identity until it is recorded as an Expectation.
type Prediction struct {
	NextExpectedPaymentDate *time.Time
	NextExpectedAmount      *decimal.Decimal
	ConfidenceScore         float64
	Rationale               string
}

// ExpectationRecord is everything the engine persists for one analysis: the
// canonical name write-through, the new expectation and its audit entry.
type ExpectationRecord struct {
	PaymentID   uuid.UUID
	Canonical   string
	Expectation Expectation
	Audit       AuditLog
}

// CreateExpectationRequest is a forecast entered by an operator. It is
// recorded next to the generated ones, never in place of them.
type CreateExpectationRequest struct {
	NormalizedBeneficiary   string           `json:"normalized_beneficiary" binding:"required,max=200"`
	NextExpectedPaymentDate *time.Time       `json:"next_expected_payment_date"`
	NextExpectedAmount      *decimal.Decimal `json:"next_expected_amount"`
	ConfidenceScore         float64          `json:"confidence_score" binding:"min=0,max=1"`
	Rationale               string           `json:"rationale" binding:"max=1000"`
	AnalysisMethod          AnalysisMethod   `json:"analysis_method" binding:"required,max=50"`
	HistoryCount            int              `json:"history_count" binding:"min=0"`
}

type ExpectationStats struct {
	TotalExpectations   int     `json:"total_expectations"`
	AverageConfidence   float64 `json:"average_confidence"`
	UniqueBeneficiaries int     `json:"unique_beneficiaries"`
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
