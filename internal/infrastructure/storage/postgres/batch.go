package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// BatchExecutor sends several statements in one round-trip.
type BatchExecutor struct {
	txManager *TxManager
}

// NewBatchExecutor creates a new batch executor.
func NewBatchExecutor(txManager *TxManager) *BatchExecutor {
	return &BatchExecutor{txManager: txManager}
}

// BatchQuery represents a query in a batch.
type BatchQuery struct {
	SQL  string
	Args []any
}

// InsertQuery builds a BatchQuery inserting data into table.
func InsertQuery(table string, data map[string]any) (BatchQuery, error) {
	sql, args, err := Builder().Insert(table).SetMap(data).ToSql()
	if err != nil {
		return BatchQuery{}, fmt.Errorf("build insert: %w", err)
	}
	return BatchQuery{SQL: sql, Args: args}, nil
}

// ExecuteBatch runs queries inside the current transaction. Every statement
// must affect at least one row.
func (e *BatchExecutor) ExecuteBatch(ctx context.Context, queries []BatchQuery) error {
	tx := e.txManager.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("ExecuteBatch requires transaction context")
	}
	if len(queries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, q := range queries {
		batch.Queue(q.SQL, q.Args...)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := range queries {
		tag, err := results.Exec()
		if err != nil {
			return fmt.Errorf("batch query %d failed: %w", i, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("batch query %d affected no rows", i)
		}
	}
	return nil
}

