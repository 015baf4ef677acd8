package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"referrals/pkg/platform/sentinel"
)

// PostgreSQL error codes the store translates into sentinels.
const (
	sqlStateUniqueViolation      = "23505"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// classify maps driver errors onto sentinel errors, keeping the original
// error in the chain for logging. Both the pgx stdlib driver and lib/pq are
// understood.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	code, constraint, ok := sqlState(err)
	if ok {
		switch code {
		case sqlStateUniqueViolation:
			return fmt.Errorf("%s: %w: %s", op, sentinel.ErrAlreadyUsed, constraint)
		case sqlStateSerializationFailure, sqlStateDeadlockDetected:
			return fmt.Errorf("%s: %w: %v", op, sentinel.ErrConflict, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func sqlState(err error) (code, constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, true
	}
	return "", "", false
}
