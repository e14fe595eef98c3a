package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"expectation-svc/config"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// The unique index on identification_field is what makes the consumer's
// upsert idempotent across replicas.
const schema = `
CREATE TABLE IF NOT EXISTS payments (
	id UUID PRIMARY KEY,
	identification_field VARCHAR(100) NOT NULL,
	value NUMERIC(18, 2) NOT NULL CHECK (value >= 0),
	due_date TIMESTAMPTZ,
	beneficiary_name VARCHAR(200) NOT NULL,
	normalized_beneficiary VARCHAR(200),
	paid BOOLEAN NOT NULL DEFAULT FALSE,
	paid_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_payments_identification_field ON payments (identification_field);
CREATE INDEX IF NOT EXISTS ix_payments_normalized_beneficiary ON payments (normalized_beneficiary);
CREATE INDEX IF NOT EXISTS ix_payments_paid ON payments (paid);

CREATE TABLE IF NOT EXISTS expectations (
	id UUID PRIMARY KEY,
	normalized_beneficiary VARCHAR(200) NOT NULL,
	next_expected_payment_date TIMESTAMPTZ,
	next_expected_amount NUMERIC(18, 2),
	confidence_score DOUBLE PRECISION NOT NULL CHECK (confidence_score >= 0 AND confidence_score <= 1),
	rationale VARCHAR(1000),
	analysis_method VARCHAR(50) NOT NULL CHECK (analysis_method IN ('llm', 'rule-based', 'error')),
	history_count INTEGER NOT NULL CHECK (history_count >= 0),
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS ix_expectations_normalized_beneficiary ON expectations (normalized_beneficiary);
CREATE INDEX IF NOT EXISTS ix_expectations_next_expected_payment_date ON expectations (next_expected_payment_date);

CREATE TABLE IF NOT EXISTS audit_logs (
	id UUID PRIMARY KEY,
	payment_id UUID,
	expectation_id UUID,
	action VARCHAR(100) NOT NULL,
	details VARCHAR(2000),
	timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS ix_audit_logs_payment_id ON audit_logs (payment_id);
CREATE INDEX IF NOT EXISTS ix_audit_logs_expectation_id ON audit_logs (expectation_id);
CREATE INDEX IF NOT EXISTS ix_audit_logs_action ON audit_logs (action);
CREATE INDEX IF NOT EXISTS ix_audit_logs_timestamp ON audit_logs (timestamp);
`

func InitDB(ctx context.Context, cfg config.DBConfig, logger *zap.Logger) (*sql.DB, error) {
	return Open(ctx, cfg.DSN(), logger)
}

// Open connects to dsn, configures the pool and applies the schema.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Database connection established")
	return db, nil
}

func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
