package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"expectation-svc/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const paymentColumns = `id, identification_field, value, due_date, beneficiary_name, normalized_beneficiary, paid, paid_at, created_at, updated_at`

func scanPayment(row scanner, extra ...any) (models.Payment, error) {
	var p models.Payment
	dest := []any{
		&p.ID, &p.IdentificationField, &p.Value, &p.DueDate, &p.BeneficiaryName,
		&p.NormalizedBeneficiary, &p.Paid, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	return p, err
}

// ReconcilePayment upserts the payment keyed by its identification field,
// marks it settled at now and records a payment_received audit entry in the
// same transaction. The boolean reports whether a new row was created.
func (s *Store) ReconcilePayment(ctx context.Context, msg models.PaymentMessage, now time.Time) (models.Payment, bool, error) {
	now = now.UTC()
	var (
		payment  models.Payment
		inserted bool
	)

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		payment, err = scanPayment(tx.QueryRowContext(ctx, `
			INSERT INTO payments (id, identification_field, value, due_date, beneficiary_name, paid, paid_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, TRUE, $6, $6, $6)
			ON CONFLICT (identification_field) DO UPDATE SET
				value = EXCLUDED.value,
				due_date = EXCLUDED.due_date,
				beneficiary_name = EXCLUDED.beneficiary_name,
				paid = TRUE,
				paid_at = EXCLUDED.paid_at,
				updated_at = EXCLUDED.updated_at
			RETURNING `+paymentColumns+`, (xmax = 0) AS inserted`,
			uuid.New(), msg.IdentificationField, msg.Value, msg.DueDateTime(), msg.BeneficiaryName, now,
		), &inserted)
		if err != nil {
			return storeErr("upsert payment", err)
		}

		verb := "updated"
		if inserted {
			verb = "created"
		}
		entry := models.NewAuditLog(models.AuditPaymentReceived,
			fmt.Sprintf("Payment %s from queue: %s - %s", verb, msg.BeneficiaryName, msg.Value.StringFixed(2)), now)
		entry.PaymentID = &payment.ID
		return insertAudit(ctx, tx, entry)
	})
	if err != nil {
		return models.Payment{}, false, err
	}

	return payment, inserted, nil
}

// PaymentHistory returns up to limit settled payments for a canonical
// beneficiary, most recently paid first.
func (s *Store) PaymentHistory(ctx context.Context, canonical string, limit int) ([]models.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE normalized_beneficiary = $1 AND paid = TRUE
		ORDER BY paid_at DESC NULLS LAST, created_at DESC
		LIMIT $2`,
		canonical, limit,
	)
	if err != nil {
		return nil, storeErr("query payment history", err)
	}
	defer rows.Close()

	return collectPayments(rows)
}

func (s *Store) ListPayments(ctx context.Context, paid *bool) ([]models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments`
	var args []any
	if paid != nil {
		query += ` WHERE paid = $1`
		args = append(args, *paid)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list payments", err)
	}
	defer rows.Close()

	return collectPayments(rows)
}

func collectPayments(rows *sql.Rows) ([]models.Payment, error) {
	payments := []models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, storeErr("scan payment", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate payments", err)
	}
	return payments, nil
}

func (s *Store) GetPayment(ctx context.Context, id uuid.UUID) (models.Payment, error) {
	p, err := scanPayment(s.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Payment{}, ErrNotFound
		}
		return models.Payment{}, storeErr("get payment", err)
	}
	return p, nil
}

// CreatePayment inserts a payment entered through the API. Unlike the
// consumer path it never overwrites an existing identification field.
func (s *Store) CreatePayment(ctx context.Context, req models.CreatePaymentRequest) (models.Payment, error) {
	now := s.now()
	var payment models.Payment

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		payment, err = scanPayment(tx.QueryRowContext(ctx, `
			INSERT INTO payments (id, identification_field, value, due_date, beneficiary_name, paid, paid_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
			RETURNING `+paymentColumns,
			uuid.New(), req.IdentificationField, req.Value.Round(2), req.DueDate, req.BeneficiaryName, req.Paid, paidAt(req.Paid, req.PaidAt, now), now,
		))
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return storeErr("insert payment", err)
		}

		entry := models.NewAuditLog(models.AuditPaymentCreated,
			fmt.Sprintf("Payment created: %s - %s", payment.BeneficiaryName, payment.Value.StringFixed(2)), now)
		entry.PaymentID = &payment.ID
		return insertAudit(ctx, tx, entry)
	})
	if err != nil {
		return models.Payment{}, err
	}

	s.logger.Info("Payment created", zap.String("payment_id", payment.ID.String()))
	return payment, nil
}

func (s *Store) UpdatePayment(ctx context.Context, id uuid.UUID, req models.UpdatePaymentRequest) (models.Payment, error) {
	now := s.now()
	var payment models.Payment

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		payment, err = scanPayment(tx.QueryRowContext(ctx, `
			UPDATE payments SET
				identification_field = $1,
				value = $2,
				due_date = $3,
				beneficiary_name = $4,
				normalized_beneficiary = $5,
				paid = $6,
				paid_at = $7,
				updated_at = $8
			WHERE id = $9
			RETURNING `+paymentColumns,
			req.IdentificationField, req.Value.Round(2), req.DueDate, req.BeneficiaryName, req.NormalizedBeneficiary,
			req.Paid, paidAt(req.Paid, req.PaidAt, now), now, id,
		))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return storeErr("update payment", err)
		}

		entry := models.NewAuditLog(models.AuditPaymentUpdated,
			fmt.Sprintf("Payment updated: %s - %s", payment.BeneficiaryName, payment.Value.StringFixed(2)), now)
		entry.PaymentID = &payment.ID
		return insertAudit(ctx, tx, entry)
	})
	if err != nil {
		return models.Payment{}, err
	}
	return payment, nil
}

// DeletePayment is the administrative removal of a ledger row. Its audit
// entry outlives the row.
func (s *Store) DeletePayment(ctx context.Context, id uuid.UUID) error {
	now := s.now()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			name  string
			value string
		)
		err := tx.QueryRowContext(ctx,
			`DELETE FROM payments WHERE id = $1 RETURNING beneficiary_name, value`, id,
		).Scan(&name, &value)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return storeErr("delete payment", err)
		}

		entry := models.NewAuditLog(models.AuditPaymentDeleted,
			fmt.Sprintf("Payment deleted: %s - %s", name, value), now)
		entry.PaymentID = &id
		return insertAudit(ctx, tx, entry)
	})
}

// paidAt keeps paid_at set exactly when the payment is settled.
func paidAt(paid bool, requested *time.Time, now time.Time) *time.Time {
	if !paid {
		return nil
	}
	if requested != nil {
		t := requested.UTC()
		return &t
	}
	return &now
}
