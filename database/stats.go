package database

import (
	"context"
	"time"

	"expectation-svc/models"
)

// SystemStats aggregates ledger, forecast and audit counters. Payments created
// after recentSince count as recent.
func (s *Store) SystemStats(ctx context.Context, recentSince time.Time) (models.SystemStats, error) {
	var stats models.SystemStats

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE paid),
			COALESCE(ROUND(AVG(value) FILTER (WHERE paid), 2), 0),
			COUNT(*) FILTER (WHERE created_at >= $1)
		FROM payments`, recentSince,
	).Scan(&stats.Payments.Total, &stats.Payments.Paid, &stats.Payments.AverageValue, &stats.Payments.RecentPayments)
	if err != nil {
		return models.SystemStats{}, storeErr("payment stats", err)
	}
	stats.Payments.Unpaid = stats.Payments.Total - stats.Payments.Paid

	stats.Expectations, err = s.ExpectationStats(ctx)
	if err != nil {
		return models.SystemStats{}, err
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`).Scan(&stats.AuditLogs); err != nil {
		return models.SystemStats{}, storeErr("audit stats", err)
	}

	stats.Timestamp = s.now()
	return stats, nil
}

// BeneficiaryStats groups settled payments by canonical beneficiary, largest
// total first.
func (s *Store) BeneficiaryStats(ctx context.Context) ([]models.BeneficiaryStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			p.normalized_beneficiary,
			COUNT(*),
			SUM(p.value),
			ROUND(AVG(p.value), 2),
			MAX(p.paid_at),
			EXISTS (SELECT 1 FROM expectations e WHERE e.normalized_beneficiary = p.normalized_beneficiary)
		FROM payments p
		WHERE p.paid AND p.normalized_beneficiary IS NOT NULL AND p.normalized_beneficiary <> ''
		GROUP BY p.normalized_beneficiary
		ORDER BY SUM(p.value) DESC`)
	if err != nil {
		return nil, storeErr("beneficiary stats", err)
	}
	defer rows.Close()

	stats := []models.BeneficiaryStats{}
	for rows.Next() {
		var b models.BeneficiaryStats
		if err := rows.Scan(&b.Beneficiary, &b.PaymentCount, &b.TotalValue, &b.AverageValue, &b.LastPayment, &b.HasExpectation); err != nil {
			return nil, storeErr("scan beneficiary stats", err)
		}
		stats = append(stats, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate beneficiary stats", err)
	}
	return stats, nil
}
