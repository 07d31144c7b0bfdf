package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes the repositories translate.
const (
	UniqueViolation     = "23505"
	ForeignKeyViolation = "23503"
)

// PgErrorCode returns the SQLSTATE of err, or "".
func PgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolation reports a 23505 error.
func IsUniqueViolation(err error) bool {
	return PgErrorCode(err) == UniqueViolation
}

// IsForeignKeyViolation reports a 23503 error.
func IsForeignKeyViolation(err error) bool {
	return PgErrorCode(err) == ForeignKeyViolation
}

// Transaction conflicts worth a rerun.
const (
	SerializationFailure = "40001"
	DeadlockDetected     = "40P01"
)

// IsRetryable reports a serialization failure or a deadlock anywhere in the chain.
func IsRetryable(err error) bool {
	switch PgErrorCode(err) {
	case SerializationFailure, DeadlockDetected:
		return true
	}
	return false
}
