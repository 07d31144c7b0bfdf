package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"oficina/internal/core/apperror"
)

func TestPgErrorClassification(t *testing.T) {
	unique := &pgconn.PgError{Code: UniqueViolation}
	deadlock := &pgconn.PgError{Code: DeadlockDetected}
	serialization := &pgconn.PgError{Code: SerializationFailure}

	assert.True(t, IsUniqueViolation(fmt.Errorf("insert parts: %w", unique)))
	assert.False(t, IsUniqueViolation(deadlock))
	assert.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: ForeignKeyViolation}))

	assert.True(t, IsRetryable(deadlock))
	assert.True(t, IsRetryable(fmt.Errorf("lock part: %w", serialization)))
	assert.True(t, IsRetryable(apperror.NewTransaction(serialization)))
	assert.False(t, IsRetryable(unique))
	assert.False(t, IsRetryable(errors.New("connection reset")))
	assert.Empty(t, PgErrorCode(nil))
}
