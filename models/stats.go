package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStats struct {
	Total          int             `json:"total"`
	Paid           int             `json:"paid"`
	Unpaid         int             `json:"unpaid"`
	AverageValue   decimal.Decimal `json:"average_value"`
	RecentPayments int             `json:"recent_payments"`
}

type SystemStats struct {
	Payments     PaymentStats     `json:"payments"`
	Expectations ExpectationStats `json:"expectations"`
	AuditLogs    int              `json:"audit_logs"`
	Timestamp    time.Time        `json:"timestamp"`
}

type BeneficiaryStats struct {
	Beneficiary    string          `json:"beneficiary"`
	PaymentCount   int             `json:"payment_count"`
	TotalValue     decimal.Decimal `json:"total_value"`
	AverageValue   decimal.Decimal `json:"average_value"`
	LastPayment    *time.Time      `json:"last_payment,omitempty"`
	HasExpectation bool            `json:"has_expectation"`
}

// QueueStatus is a snapshot of the settlement consumer.
type QueueStatus struct {
	State           string     `json:"state"`
	Topic           string     `json:"topic"`
	DLQTopic        string     `json:"dlq_topic"`
	GroupID         string     `json:"group_id"`
	Acked           int64      `json:"acked"`
	Requeued        int64      `json:"requeued"`
	DeadLettered    int64      `json:"dead_lettered"`
	LastProcessedAt *time.Time `json:"last_processed_at,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
}
