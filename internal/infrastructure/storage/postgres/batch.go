package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// CopyFromSlice bulk inserts rows with the COPY protocol. It must run inside
// RunInTransaction.
func (m *TxManager) CopyFromSlice(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	tx := m.GetTx(ctx)
	if tx == nil {
		return 0, fmt.Errorf("CopyFromSlice requires transaction context")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
}

// BatchQuery represents a query in a batch.
type BatchQuery struct {
	SQL  string
	Args []any
}

// QueueAll queues the queries on a new batch and sends it in one round trip.
// The caller reads results in queue order and must close them.
func QueueAll(ctx context.Context, db Querier, queries ...BatchQuery) pgx.BatchResults {
	batch := &pgx.Batch{}
	for _, q := range queries {
		batch.Queue(q.SQL, q.Args...)
	}
	return db.SendBatch(ctx, batch)
}
