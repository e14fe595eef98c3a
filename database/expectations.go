package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"expectation-svc/models"

	"github.com/google/uuid"
)

const expectationColumns = `id, normalized_beneficiary, next_expected_payment_date, next_expected_amount, confidence_score, rationale, analysis_method, history_count, created_at, updated_at`

func scanExpectation(row scanner) (models.Expectation, error) {
	var (
		e         models.Expectation
		rationale sql.NullString
		method    string
	)
	err := row.Scan(&e.ID, &e.NormalizedBeneficiary, &e.NextExpectedPaymentDate, &e.NextExpectedAmount,
		&e.ConfidenceScore, &rationale, &method, &e.HistoryCount, &e.CreatedAt, &e.UpdatedAt)
	e.Rationale = rationale.String
	e.AnalysisMethod = models.AnalysisMethod(method)
	return e, err
}

// RecordExpectation persists one analysis as a unit: the canonical name on the
// triggering payment, the new expectation row and its audit entry.
func (s *Store) RecordExpectation(ctx context.Context, rec models.ExpectationRecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if rec.Canonical != "" && rec.PaymentID != uuid.Nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE payments SET normalized_beneficiary = $1, updated_at = $2 WHERE id = $3`,
				rec.Canonical, rec.Expectation.CreatedAt, rec.PaymentID,
			); err != nil {
				return storeErr("set normalized beneficiary", err)
			}
		}

		e := rec.Expectation
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO expectations (`+expectationColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			e.ID, e.NormalizedBeneficiary, e.NextExpectedPaymentDate, e.NextExpectedAmount, e.ConfidenceScore,
			e.Rationale, string(e.AnalysisMethod), e.HistoryCount, e.CreatedAt, e.UpdatedAt,
		); err != nil {
			return storeErr("insert expectation", err)
		}

		return insertAudit(ctx, tx, rec.Audit)
	})
}

// CreateExpectation records a manually entered expectation with its
// expectation_created audit entry.
func (s *Store) CreateExpectation(ctx context.Context, req models.CreateExpectationRequest) (models.Expectation, error) {
	now := s.now()
	e := models.Expectation{
		ID:                    uuid.New(),
		NormalizedBeneficiary: req.NormalizedBeneficiary,
		ConfidenceScore:       req.ConfidenceScore,
		Rationale:             req.Rationale,
		AnalysisMethod:        req.AnalysisMethod,
		HistoryCount:          req.HistoryCount,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if req.NextExpectedPaymentDate != nil {
		t := req.NextExpectedPaymentDate.UTC()
		e.NextExpectedPaymentDate = &t
	}
	if req.NextExpectedAmount != nil {
		amount := req.NextExpectedAmount.Round(2)
		e.NextExpectedAmount = &amount
	}

	date, amount := "-", "-"
	if e.NextExpectedPaymentDate != nil {
		date = e.NextExpectedPaymentDate.Format("2006-01-02")
	}
	if e.NextExpectedAmount != nil {
		amount = e.NextExpectedAmount.StringFixed(2)
	}
	entry := models.NewAuditLog(models.AuditExpectationCreated,
		fmt.Sprintf("Expectation created for %s - expected date: %s - amount: %s", e.NormalizedBeneficiary, date, amount), now)
	entry.ExpectationID = &e.ID

	if err := s.RecordExpectation(ctx, models.ExpectationRecord{Expectation: e, Audit: entry}); err != nil {
		return models.Expectation{}, err
	}
	return e, nil
}

// ListExpectations returns expectations newest first, optionally filtered by a
// beneficiary substring.
func (s *Store) ListExpectations(ctx context.Context, beneficiary string, limit int) ([]models.Expectation, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}

	query := `SELECT ` + expectationColumns + ` FROM expectations`
	args := []any{}
	if beneficiary != "" {
		query += ` WHERE normalized_beneficiary ILIKE '%' || $1 || '%'`
		args = append(args, beneficiary)
	}
	args = append(args, limit)
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list expectations", err)
	}
	defer rows.Close()

	expectations := []models.Expectation{}
	for rows.Next() {
		e, err := scanExpectation(rows)
		if err != nil {
			return nil, storeErr("scan expectation", err)
		}
		expectations = append(expectations, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate expectations", err)
	}
	return expectations, nil
}

func (s *Store) GetExpectation(ctx context.Context, id uuid.UUID) (models.Expectation, error) {
	e, err := scanExpectation(s.db.QueryRowContext(ctx,
		`SELECT `+expectationColumns+` FROM expectations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Expectation{}, ErrNotFound
		}
		return models.Expectation{}, storeErr("get expectation", err)
	}
	return e, nil
}

func (s *Store) ExpectationStats(ctx context.Context) (models.ExpectationStats, error) {
	var stats models.ExpectationStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(ROUND(AVG(confidence_score)::numeric, 2), 0)::float8, COUNT(DISTINCT normalized_beneficiary)
		FROM expectations`,
	).Scan(&stats.TotalExpectations, &stats.AverageConfidence, &stats.UniqueBeneficiaries)
	if err != nil {
		return models.ExpectationStats{}, storeErr("expectation stats", err)
	}
	return stats, nil
}
