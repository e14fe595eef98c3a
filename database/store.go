package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"expectation-svc/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate identification field")
)

// Store is the Postgres-backed payment ledger. Every write that changes state
// commits together with its audit entry.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewStore(db *sql.DB, logger *zap.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin transaction", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Warn("Rollback failed", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit transaction", err)
	}
	return nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, models.ErrStore, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func insertAudit(ctx context.Context, tx *sql.Tx, entry models.AuditLog) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO audit_logs (id, payment_id, expectation_id, action, details, timestamp) VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.PaymentID, entry.ExpectationID, string(entry.Action), entry.Details, entry.Timestamp,
	)
	if err != nil {
		return storeErr("insert audit log", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}
