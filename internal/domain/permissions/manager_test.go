package permissions

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omscore/internal/domain/circles"
)

func ptr(v int64) *int64 { return &v }

func mustIndex(t *testing.T, records ...circles.Circle) *circles.Index {
	t.Helper()
	idx, err := circles.NewIndex(context.Background(), records)
	require.NoError(t, err)
	return idx
}

type fakeSource struct {
	rows      []GrantRow
	err       error
	requested []int64
}

func (f *fakeSource) GrantsForCircles(_ context.Context, circleIDs []int64) ([]GrantRow, error) {
	f.requested = append([]int64(nil), circleIDs...)
	if f.err != nil {
		return nil, f.err
	}
	wanted := make(map[int64]bool, len(circleIDs))
	for _, id := range circleIDs {
		wanted[id] = true
	}
	var out []GrantRow
	for _, r := range f.rows {
		if wanted[r.CircleID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestAnonymousManager_DeniesEverything(t *testing.T) {
	var nilManager *Manager
	for _, m := range []*Manager{Anonymous(), nilManager, FromContext(context.Background())} {
		assert.False(t, m.Authenticated())
		assert.False(t, m.HasPermission("global:create:body"))
		assert.False(t, m.HasPermission("update:body"))
		assert.False(t, m.HasBodyPermission("update:body", 1))
		assert.Empty(t, m.PermissionFilters("update:body"))
		assert.Empty(t, m.FilterFields("update:body", nil, map[string]any{"name": "x"}))
		assert.Empty(t, m.Combined())
	}
}

// A member of "treasurers" holding update:body limited to two fields.
func TestManager_TreasurersScenario(t *testing.T) {
	const treasurers = 10
	idx := mustIndex(t, circles.Circle{ID: treasurers})
	catalog := LoadCatalog(context.Background(), []GrantRow{
		{CircleID: treasurers, Combined: "update:body", Filters: []string{"fee_currency", "pays_fees"}},
	})

	m := NewManager(context.Background(), Subject{UserID: 1, CircleIDs: []int64{treasurers}}, idx, catalog)

	assert.True(t, m.HasPermission("update:body"))
	assert.Equal(t, []string{"fee_currency", "pays_fees"}, m.PermissionFilters("update:body"))
	assert.False(t, m.HasPermission("delete:body"))
}

func TestManager_InheritanceFlowsDownOnly(t *testing.T) {
	const admins, regional = 1, 2
	idx := mustIndex(t,
		circles.Circle{ID: admins},
		circles.Circle{ID: regional, ParentCircleID: ptr(admins)},
	)

	t.Run("grant on parent reaches child member", func(t *testing.T) {
		catalog := LoadCatalog(context.Background(), []GrantRow{{CircleID: admins, Combined: "global:create:body"}})
		m := NewManager(context.Background(), Subject{UserID: 1, CircleIDs: []int64{regional}}, idx, catalog)
		assert.True(t, m.HasPermission("global:create:body"))
	})

	t.Run("grant on child does not leak to parent member", func(t *testing.T) {
		catalog := LoadCatalog(context.Background(), []GrantRow{{CircleID: regional, Combined: "global:create:body"}})
		m := NewManager(context.Background(), Subject{UserID: 1, CircleIDs: []int64{admins}}, idx, catalog)
		assert.False(t, m.HasPermission("global:create:body"))
	})
}

func TestManager_FieldFiltersUnion(t *testing.T) {
	const a, b, c = 1, 2, 3
	idx := mustIndex(t,
		circles.Circle{ID: a},
		circles.Circle{ID: b, ParentCircleID: ptr(a)},
		circles.Circle{ID: c},
	)
	catalog := LoadCatalog(context.Background(), []GrantRow{
		{CircleID: a, Combined: "update:body", Filters: []string{"name", "email"}},
		{CircleID: b, Combined: "update:body", Filters: []string{"email", "phone"}},
		{CircleID: c, Combined: "update:body", Filters: []string{"website"}},
	})

	m := NewManager(context.Background(), Subject{UserID: 1, CircleIDs: []int64{b, c}}, idx, catalog)
	assert.Equal(t, []string{"email", "name", "phone", "website"}, m.PermissionFilters("update:body"))

	fields, unrestricted, allowed := m.FieldScope("update:body", nil)
	assert.True(t, allowed)
	assert.False(t, unrestricted)
	assert.Len(t, fields, 4)

	got := m.FilterFields("update:body", nil, map[string]any{
		"name":     "New",
		"website":  "https://example.org",
		"code":     "HACK",
		"password": "x",
	})
	assert.Equal(t, map[string]any{"name": "New", "website": "https://example.org"}, got)
}

func TestManager_UnrestrictedGrantWins(t *testing.T) {
	idx := mustIndex(t, circles.Circle{ID: 1}, circles.Circle{ID: 2})
	catalog := LoadCatalog(context.Background(), []GrantRow{
		{CircleID: 1, Combined: "update:body", Filters: []string{"name"}},
		{CircleID: 2, Combined: "global:update:body"},
	})
	m := NewManager(context.Background(), Subject{UserID: 1, CircleIDs: []int64{1, 2}}, idx, catalog)

	fields, unrestricted, allowed := m.FieldScope("update:body", nil)
	assert.True(t, allowed)
	assert.True(t, unrestricted)
	assert.Nil(t, fields)

	payload := map[string]any{"name": "a", "code": "b"}
	assert.Equal(t, payload, m.FilterFields("update:body", nil, payload))
}

func TestManager_BodyScopedChecks(t *testing.T) {
	const bodyA, bodyB = 100, 200
	const boardA, shadowA, freeCircle = 1, 2, 3
	idx := mustIndex(t,
		circles.Circle{ID: boardA, BodyID: ptr(bodyA)},
		circles.Circle{ID: shadowA, BodyID: ptr(bodyA)},
		circles.Circle{ID: freeCircle},
	)
	catalog := LoadCatalog(context.Background(), []GrantRow{
		{CircleID: boardA, Combined: "update:body", Filters: []string{"name"}},
		{CircleID: shadowA, Combined: "view:member"},
		{CircleID: freeCircle, Combined: "global:view:payment"},
	})

	m := NewManager(context.Background(), Subject{
		UserID:          1,
		CircleIDs:       []int64{boardA, freeCircle},
		ShadowCircleIDs: []int64{shadowA},
	}, idx, catalog)

	assert.True(t, m.HasBodyPermission("update:body", bodyA))
	assert.False(t, m.HasBodyPermission("update:body", bodyB))
	assert.True(t, m.HasPermission("update:body"))
	assert.False(t, m.HasPermission("global:update:body"))

	assert.True(t, m.HasBodyPermission("view:member", bodyA))
	assert.True(t, m.HasBodyPermission("view:payment", bodyB))

	assert.Equal(t, []string{"name"}, m.BodyPermissionFilters("update:body", bodyA))
	assert.Empty(t, m.BodyPermissionFilters("update:body", bodyB))
}

func TestManager_UnboundAncestorAnchorsToHeldCircleBody(t *testing.T) {
	const body = 55
	const parent, child = 1, 2
	idx := mustIndex(t,
		circles.Circle{ID: parent},
		circles.Circle{ID: child, ParentCircleID: ptr(parent), BodyID: ptr(body)},
	)
	catalog := LoadCatalog(context.Background(), []GrantRow{{CircleID: parent, Combined: "approve_members:body"}})

	m := NewManager(context.Background(), Subject{UserID: 1, CircleIDs: []int64{child}}, idx, catalog)
	assert.True(t, m.HasBodyPermission("approve_members:body", body))
	assert.False(t, m.HasBodyPermission("approve_members:body", body+1))
}

func TestManager_DeduplicatesGrants(t *testing.T) {
	const root, left, right = 1, 2, 3
	idx := mustIndex(t,
		circles.Circle{ID: root},
		circles.Circle{ID: left, ParentCircleID: ptr(root)},
		circles.Circle{ID: right, ParentCircleID: ptr(root)},
	)
	catalog := LoadCatalog(context.Background(), []GrantRow{
		{CircleID: root, Combined: "global:create:body"},
		{CircleID: left, Combined: "global:create:body"},
	})

	m := NewManager(context.Background(), Subject{UserID: 1, CircleIDs: []int64{left, right}}, idx, catalog)
	assert.Len(t, m.Grants(), 1)
	assert.Equal(t, []string{"global:create:body"}, m.Combined())
}

func TestManager_UnknownMembershipIsIgnored(t *testing.T) {
	idx := mustIndex(t, circles.Circle{ID: 1})
	catalog := LoadCatalog(context.Background(), []GrantRow{{CircleID: 1, Combined: "global:create:body"}})

	m := NewManager(context.Background(), Subject{UserID: 1, CircleIDs: []int64{999}}, idx, catalog)
	assert.True(t, m.Authenticated())
	assert.False(t, m.HasPermission("global:create:body"))
}

func TestManager_MalformedCheckIsDenied(t *testing.T) {
	idx := mustIndex(t, circles.Circle{ID: 1})
	catalog := LoadCatalog(context.Background(), []GrantRow{{CircleID: 1, Combined: "global:create:body"}})
	m := NewManager(context.Background(), Subject{UserID: 1, CircleIDs: []int64{1}}, idx, catalog)

	assert.False(t, m.HasPermission("create"))
	assert.False(t, m.HasPermission(""))
}

func TestCompute_FetchesOnlyReachableCircles(t *testing.T) {
	const root, mid, leaf, sibling = 1, 2, 3, 4
	idx := mustIndex(t,
		circles.Circle{ID: root},
		circles.Circle{ID: mid, ParentCircleID: ptr(root)},
		circles.Circle{ID: leaf, ParentCircleID: ptr(mid)},
		circles.Circle{ID: sibling, ParentCircleID: ptr(root)},
	)
	src := &fakeSource{rows: []GrantRow{
		{CircleID: root, Combined: "global:view:body"},
		{CircleID: sibling, Combined: "global:delete:body"},
		{CircleID: leaf, Combined: "oops"},
	}}

	m, err := Compute(context.Background(), Subject{UserID: 9, CircleIDs: []int64{leaf}}, idx, src)
	require.NoError(t, err)

	assert.Equal(t, []int64{root, mid, leaf}, src.requested)
	assert.Equal(t, int64(9), m.UserID())
	assert.True(t, m.HasPermission("global:view:body"))
	assert.False(t, m.HasPermission("global:delete:body"))
}

func TestCompute_SourceError(t *testing.T) {
	idx := mustIndex(t, circles.Circle{ID: 1})
	boom := errors.New("connection reset")

	m, err := Compute(context.Background(), Subject{UserID: 1, CircleIDs: []int64{1}}, idx, &fakeSource{err: boom})
	assert.Nil(t, m)
	assert.ErrorIs(t, err, boom)
}

func TestCompute_NoMembershipsSkipsLoad(t *testing.T) {
	idx := mustIndex(t, circles.Circle{ID: 1})
	src := &fakeSource{err: errors.New("must not be called")}

	m, err := Compute(context.Background(), Subject{UserID: 1}, idx, src)
	require.NoError(t, err)
	assert.True(t, m.Authenticated())
	assert.Empty(t, m.Grants())
}

func TestContext_RoundTrip(t *testing.T) {
	idx := mustIndex(t, circles.Circle{ID: 1})
	m := NewManager(context.Background(), Subject{UserID: 3, CircleIDs: []int64{1}}, idx, Catalog{})

	ctx := WithManager(context.Background(), m)
	assert.Same(t, m, FromContext(ctx))
}
