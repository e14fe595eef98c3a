package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MaxIdentificationFieldLen = 100
	MaxBeneficiaryNameLen     = 200
)

// MaxPaymentValue is the exclusive upper bound of a NUMERIC(18,2) amount.
var MaxPaymentValue = decimal.New(1, 16)

// ValidAmount reports whether v can be stored as a payment amount.
func ValidAmount(v decimal.Decimal) bool {
	return !v.IsNegative() && v.Round(2).LessThan(MaxPaymentValue)
}

type Payment struct {
	ID                    uuid.UUID       `json:"id"`
	IdentificationField   string          `json:"identification_field"`
	Value                 decimal.Decimal `json:"value"`
	DueDate               *time.Time      `json:"due_date,omitempty"`
	BeneficiaryName       string          `json:"beneficiary_name"`
	NormalizedBeneficiary *string         `json:"normalized_beneficiary,omitempty"`
	Paid                  bool            `json:"paid"`
	PaidAt                *time.Time      `json:"paid_at,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// CanonicalOrRaw returns the normalized beneficiary when one has been assigned.
func (p Payment) CanonicalOrRaw() string {
	if p.NormalizedBeneficiary != nil && *p.NormalizedBeneficiary != "" {
		return *p.NormalizedBeneficiary
	}
	return p.BeneficiaryName
}

type CreatePaymentRequest struct {
	IdentificationField string          `json:"identification_field" binding:"required,max=100"`
	Value               decimal.Decimal `json:"value"`
	DueDate             *time.Time      `json:"due_date"`
	BeneficiaryName     string          `json:"beneficiary_name" binding:"required,max=200"`
	Paid                bool            `json:"paid"`
	PaidAt              *time.Time      `json:"paid_at"`
}

type UpdatePaymentRequest struct {
	IdentificationField   string          `json:"identification_field" binding:"required,max=100"`
	Value                 decimal.Decimal `json:"value"`
	DueDate               *time.Time      `json:"due_date"`
	BeneficiaryName       string          `json:"beneficiary_name" binding:"required,max=200"`
	NormalizedBeneficiary *string         `json:"normalized_beneficiary" binding:"omitempty,max=200"`
	Paid                  bool            `json:"paid"`
	PaidAt                *time.Time      `json:"paid_at"`
}
