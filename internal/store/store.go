package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"inventory-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

// Postgres error codes the store distinguishes
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgLockNotAvailable    = "55P03"
)

type Store struct {
	db          *sqlx.DB
	lockTimeout time.Duration
}

// NewStore creates a new database store
func NewStore(databaseURL string, lockTimeout time.Duration) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db, lockTimeout: lockTimeout}, nil
}

// Migrate creates the schema if it does not exist
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx runs fn inside a read-committed transaction. The transaction is
// rolled back unless fn returns nil and the commit succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.StorageError("begin tx", err)
	}
	defer tx.Rollback()

	if s.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return models.StorageError("set lock timeout", err)
		}
	}

	if err := fn(&sqlTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return models.StorageError("commit tx", err)
	}
	return nil
}

// mapError converts driver errors into the domain taxonomy
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s: %s", models.ErrConflict, op, pqErr.Constraint)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s: %s", models.ErrNotFound, op, pqErr.Constraint)
		case pgCheckViolation:
			return fmt.Errorf("%w: %s: %s", models.ErrValidation, op, pqErr.Constraint)
		case pgLockNotAvailable:
			return models.StorageError(op+": lock timeout", err)
		}
	}
	return models.StorageError(op, err)
}

const idempotencyKeyConstraint = "sales_idempotency_key_key"

// isUniqueViolation reports whether err came from the named unique constraint
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation && pqErr.Constraint == constraint
	}
	return false
}
