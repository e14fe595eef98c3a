package models

import (
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditPaymentReceived         AuditAction = "payment_received"
	AuditPaymentCreated          AuditAction = "payment_created"
	AuditPaymentUpdated          AuditAction = "payment_updated"
	AuditPaymentDeleted          AuditAction = "payment_deleted"
	AuditExpectationCreated      AuditAction = "expectation_created"
	AuditExpectationGenerated    AuditAction = "expectation_generated"
	AuditExpectationCreatedBasic AuditAction = "expectation_created_basic"
	AuditExpectationError        AuditAction = "expectation_error"
)

const MaxAuditDetailsLen = 2000

// AuditLog rows are written once and never updated or deleted.
type AuditLog struct {
	ID            uuid.UUID   `json:"id"`
	PaymentID     *uuid.UUID  `json:"payment_id,omitempty"`
	ExpectationID *uuid.UUID  `json:"expectation_id,omitempty"`
	Action        AuditAction `json:"action"`
	Details       string      `json:"details"`
	Timestamp     time.Time   `json:"timestamp"`
}

func NewAuditLog(action AuditAction, details string, at time.Time) AuditLog {
	return AuditLog{
		ID:        uuid.New(),
		Action:    action,
		Details:   Truncate(details, MaxAuditDetailsLen),
		Timestamp: at.UTC(),
	}
}
