package postgres

import (
	"errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omscore/internal/core/apperror"
	"omscore/internal/domain/filter"
)

func TestSearchAndPage(t *testing.T) {
	f := filter.List{Query: "wro", Sort: "name", Direction: "desc", Limit: 10, Offset: 20}.
		Normalize([]string{"id", "name"}, "id")

	q := Builder().Select("id", "name").From("bodies")
	q = Search(q, f.Query, "name", "code")
	q = Page(q, f)

	sql, args, err := q.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name FROM bodies WHERE (name ILIKE $1 OR code ILIKE $2) ORDER BY name DESC LIMIT 10 OFFSET 20", sql)
	assert.Equal(t, []any{"%wro%", "%wro%"}, args)
}

func TestSearch_EmptyQueryIsNoop(t *testing.T) {
	sql, _, err := Search(Builder().Select("id").From("circles"), "", "name").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM circles", sql)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"no rows", pgx.ErrNoRows, http.StatusNotFound, apperror.CodeNotFound},
		{"unique", &pgconn.PgError{Code: "23505", ConstraintName: "bodies_code_key"}, http.StatusConflict, apperror.CodeDuplicate},
		{"foreign key", &pgconn.PgError{Code: "23503"}, http.StatusConflict, apperror.CodeConflict},
		{"check", &pgconn.PgError{Code: "23514"}, http.StatusUnprocessableEntity, apperror.CodeValidation},
		{"other", errors.New("broken pipe"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapError(tt.err, "insert body", "Body", 1)
			require.Error(t, err)
			assert.Equal(t, tt.status, apperror.GetHTTPStatus(err))
			if tt.code != "" {
				appErr, ok := apperror.AsAppError(err)
				require.True(t, ok)
				assert.Equal(t, tt.code, appErr.Code)
			}
		})
	}

	assert.NoError(t, MapError(nil, "noop", "Body", 1))
}
