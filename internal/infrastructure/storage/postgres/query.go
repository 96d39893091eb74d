package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"omscore/internal/domain/filter"
)

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Search adds a case-insensitive match of query against any of the columns.
func Search(q squirrel.SelectBuilder, query string, columns ...string) squirrel.SelectBuilder {
	if query == "" || len(columns) == 0 {
		return q
	}
	pattern := "%" + query + "%"
	or := make(squirrel.Or, 0, len(columns))
	for _, col := range columns {
		or = append(or, squirrel.ILike{col: pattern})
	}
	return q.Where(or)
}

// Page applies ordering and pagination of a normalized list filter.
func Page(q squirrel.SelectBuilder, f filter.List) squirrel.SelectBuilder {
	if order := f.OrderBy(); order != "" {
		q = q.OrderBy(order)
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}
	return q
}

// SelectPage runs q twice: once wrapped in COUNT(*) for the total and once
// paginated into dst.
func SelectPage(ctx context.Context, db Querier, dst any, q squirrel.SelectBuilder, f filter.List) (int, error) {
	countSQL, countArgs, err := Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}

	sql, args, err := Page(q, f).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, db, dst, sql, args...); err != nil {
		return 0, fmt.Errorf("list: %w", err)
	}
	return total, nil
}

// Exec builds and executes a statement, returning the affected row count.
func Exec(ctx context.Context, db Querier, q squirrel.Sqlizer) (int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build statement: %w", err)
	}
	tag, err := db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
