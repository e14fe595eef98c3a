package database

import (
	"context"

	"expectation-svc/models"
)

// ListAuditLogs returns the most recent audit entries.
func (s *Store) ListAuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payment_id, expectation_id, action, COALESCE(details, ''), timestamp
		FROM audit_logs
		ORDER BY timestamp DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, storeErr("list audit logs", err)
	}
	defer rows.Close()

	logs := []models.AuditLog{}
	for rows.Next() {
		var (
			entry  models.AuditLog
			action string
		)
		if err := rows.Scan(&entry.ID, &entry.PaymentID, &entry.ExpectationID, &action, &entry.Details, &entry.Timestamp); err != nil {
			return nil, storeErr("scan audit log", err)
		}
		entry.Action = models.AuditAction(action)
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate audit logs", err)
	}
	return logs, nil
}
