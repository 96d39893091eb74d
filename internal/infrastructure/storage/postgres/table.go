package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"omscore/internal/domain/filter"
)

// Table provides the common statements of a table mapped to T through "db"
// tags. Embed it in concrete repositories.
type Table[T any] struct {
	txm     *TxManager
	name    string
	entity  string
	columns []string
}

// NewTable creates a table helper. entity is the human-readable name used
// in not found and duplicate errors.
func NewTable[T any](txm *TxManager, name, entity string) Table[T] {
	return Table[T]{
		txm:     txm,
		name:    name,
		entity:  entity,
		columns: ExtractDBColumns[T](),
	}
}

// Name returns the table name.
func (t Table[T]) Name() string { return t.name }

// Querier returns the transaction in ctx or the pool.
func (t Table[T]) Querier(ctx context.Context) Querier {
	return t.txm.GetQuerier(ctx)
}

// SelectAll starts a SELECT of every mapped column.
func (t Table[T]) SelectAll() squirrel.SelectBuilder {
	return Builder().Select(t.columns...).From(t.name)
}

// Get returns the single row matching where, or a not found error naming key.
func (t Table[T]) Get(ctx context.Context, where squirrel.Sqlizer, key any) (*T, error) {
	sql, args, err := t.SelectAll().Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var item T
	if err := pgxscan.Get(ctx, t.Querier(ctx), &item, sql, args...); err != nil {
		return nil, MapError(err, "get "+t.name, t.entity, key)
	}
	return &item, nil
}

// GetByID retrieves a row by primary key.
func (t Table[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	return t.Get(ctx, squirrel.Eq{"id": id}, id)
}

// Select runs q and scans every row.
func (t Table[T]) Select(ctx context.Context, q squirrel.SelectBuilder) ([]T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	items := make([]T, 0)
	if err := pgxscan.Select(ctx, t.Querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", t.name, err)
	}
	return items, nil
}

// SelectPage returns one page of q and the total count.
func (t Table[T]) SelectPage(ctx context.Context, q squirrel.SelectBuilder, f filter.List) ([]T, int, error) {
	items := make([]T, 0)
	total, err := SelectPage(ctx, t.Querier(ctx), &items, q, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", t.name, err)
	}
	return items, total, nil
}

// Insert writes the given values and scans the RETURNING columns into dest.
func (t Table[T]) Insert(ctx context.Context, values map[string]any, returning string, dest ...any) error {
	sql, args, err := Builder().
		Insert(t.name).
		SetMap(values).
		Suffix("RETURNING " + returning).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	err = t.Querier(ctx).QueryRow(ctx, sql, args...).Scan(dest...)
	return MapError(err, "insert "+t.name, t.entity, nil)
}

// UpdateByID sets the given values on one row and bumps updated_at.
func (t Table[T]) UpdateByID(ctx context.Context, id int64, values map[string]any) error {
	n, err := Exec(ctx, t.Querier(ctx), Builder().
		Update(t.name).
		SetMap(values).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}))
	if err != nil {
		return MapError(err, "update "+t.name, t.entity, id)
	}
	if n == 0 {
		return MapError(pgx.ErrNoRows, "update "+t.name, t.entity, id)
	}
	return nil
}

// DeleteWhere removes matching rows and returns how many were removed.
func (t Table[T]) DeleteWhere(ctx context.Context, where squirrel.Sqlizer) (int64, error) {
	n, err := Exec(ctx, t.Querier(ctx), Builder().Delete(t.name).Where(where))
	if err != nil {
		return 0, MapError(err, "delete "+t.name, t.entity, nil)
	}
	return n, nil
}
