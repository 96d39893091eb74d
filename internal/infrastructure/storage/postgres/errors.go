package postgres

import (
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"omscore/internal/core/apperror"
)

// Postgres SQLSTATE codes the repositories translate.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// MapError translates driver errors into application errors. op names the
// failed operation for wrapped errors; entity names the affected record.
func MapError(err error, op, entity string, id any) error {
	if err == nil {
		return nil
	}
	if pgxscan.NotFound(err) {
		return apperror.NewNotFound(entity, id)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return apperror.NewDuplicate(entity, pgErr.ConstraintName).WithCause(err)
		case codeForeignKeyViolation:
			return apperror.NewConflict(fmt.Sprintf("%s references a missing or used record", entity)).
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		case codeCheckViolation:
			return apperror.NewUnprocessable("Validation error.").
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
