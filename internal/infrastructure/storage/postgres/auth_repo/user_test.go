package auth_repo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembershipQueries(t *testing.T) {
	r := NewUserRepo(nil)

	queries, err := membershipQueries(r.selectUsers(), 42)
	require.NoError(t, err)
	require.Len(t, queries, 3)

	assert.True(t, strings.HasPrefix(queries[0].SQL, "SELECT id, username, email, password_hash"))
	assert.True(t, strings.HasSuffix(queries[0].SQL, "FROM users WHERE id = $1 LIMIT 1"))
	assert.Equal(t, []any{int64(42)}, queries[0].Args)

	assert.Equal(t, "SELECT circle_id FROM circle_memberships WHERE user_id = $1 ORDER BY circle_id", queries[1].SQL)
	assert.Equal(t,
		"SELECT bm.body_id, b.shadow_circle_id FROM body_memberships bm JOIN bodies b ON b.id = bm.body_id WHERE bm.user_id = $1 ORDER BY bm.body_id",
		queries[2].SQL)
}

func TestUserColumns_SkipRelations(t *testing.T) {
	assert.NotContains(t, userColumns, "circles")
	assert.NotContains(t, userColumns, "-")
	assert.Contains(t, userColumns, "primary_body_id")
	assert.Contains(t, userColumns, "last_active")
}
