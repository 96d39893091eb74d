package v1

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omscore/internal/core/apperror"
	"omscore/internal/domain/audit"
	"omscore/internal/domain/auth"
	"omscore/internal/domain/bodies"
	"omscore/internal/domain/circles"
	"omscore/internal/domain/filter"
	"omscore/internal/domain/permissions"
	"omscore/internal/observability"
)

type stubAuthorizer map[string]*auth.Session

func (s stubAuthorizer) Authorize(_ context.Context, raw string) (*auth.Session, auth.Outcome, error) {
	if sess, ok := s[raw]; ok {
		return sess, auth.OutcomeAuthenticated, nil
	}
	if raw == "" {
		return nil, auth.OutcomeAnonymous, nil
	}
	return nil, auth.OutcomeUnknown, nil
}

// fakeBodyAPI implements the calls the tests exercise; anything else panics
// through the nil embedded interface.
type fakeBodyAPI struct {
	BodyAPI
	bodies  map[int64]*bodies.Body
	updated map[string]any
	listed  filter.List
}

func (f *fakeBodyAPI) GetByID(_ context.Context, id int64) (*bodies.Body, error) {
	if b, ok := f.bodies[id]; ok {
		return b, nil
	}
	return nil, apperror.NewNotFound("Body", id)
}

func (f *fakeBodyAPI) GetByCode(_ context.Context, code string) (*bodies.Body, error) {
	return nil, apperror.NewNotFound("Body", code)
}

func (f *fakeBodyAPI) List(_ context.Context, fl filter.List, _ bool) ([]bodies.Body, int, error) {
	f.listed = fl
	out := make([]bodies.Body, 0, len(f.bodies))
	for _, b := range f.bodies {
		out = append(out, *b)
	}
	return out, 42, nil
}

func (f *fakeBodyAPI) Update(_ context.Context, body *bodies.Body, payload map[string]any) (*bodies.Body, error) {
	f.updated = payload
	out := *body
	if name, ok := payload["name"].(string); ok {
		out.Name = name
	}
	return &out, nil
}

func ptr[T any](v T) *T { return &v }

func testRouter(t *testing.T) (http.Handler, *fakeBodyAPI) {
	t.Helper()
	ctx := context.Background()

	index, err := circles.NewIndex(ctx, []circles.Circle{
		{ID: 10, BodyID: ptr(int64(1))},
		{ID: 11, ParentCircleID: ptr(int64(10)), BodyID: ptr(int64(1))},
	})
	require.NoError(t, err)

	// The board circle may only rename its body; its child circle inherits
	// the grant.
	catalog := permissions.LoadCatalog(ctx, []permissions.GrantRow{
		{CircleID: 10, Combined: "local:update:body", Filters: []string{"name"}},
	})
	member := permissions.NewManager(ctx, permissions.Subject{UserID: 2, CircleIDs: []int64{11}}, index, catalog)
	nobody := permissions.NewManager(ctx, permissions.Subject{UserID: 3}, index, catalog)

	api := &fakeBodyAPI{bodies: map[int64]*bodies.Body{
		1: {ID: 1, Code: "AEGEE-Wroclaw", Name: "AEGEE-Wroclaw", Status: bodies.StatusActive},
	}}

	handler := Handler(RouterConfig{
		AppName:    "omscore",
		AppVersion: "test",
		Metrics:    observability.NewMetrics(),
		Authorizer: stubAuthorizer{
			"member": {User: &auth.User{ID: 2}, Token: &auth.AccessToken{ID: 1}, Permissions: member},
			"nobody": {User: &auth.User{ID: 3}, Token: &auth.AccessToken{ID: 2}, Permissions: nobody},
		},
		Bodies: api,
	})
	return handler, api
}

func call(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("X-Auth-Token", token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	h, _ := testRouter(t)

	rec := call(h, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"name":"omscore","version":"test"}}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, call(h, http.MethodGet, "/health/ready", "", "").Code)
	assert.Equal(t, http.StatusOK, call(h, http.MethodGet, "/metrics", "", "").Code)
}

func TestRouter_ListEnvelope(t *testing.T) {
	h, api := testRouter(t)

	rec := call(h, http.MethodGet, "/bodies?limit=5&sort=code&direction=DESC", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"meta":{"count":42}`)
	assert.Contains(t, rec.Body.String(), `"success":true`)
	assert.Equal(t, 5, api.listed.Limit)
	assert.Equal(t, "code", api.listed.Sort)
	assert.Equal(t, "desc", api.listed.Direction)
}

func TestRouter_ListDeletedNeedsPermission(t *testing.T) {
	h, _ := testRouter(t)

	assert.Equal(t, http.StatusUnauthorized, call(h, http.MethodGet, "/bodies?all=true", "", "").Code)
	assert.Equal(t, http.StatusForbidden, call(h, http.MethodGet, "/bodies?all=true", "nobody", "").Code)
}

func TestRouter_UpdateBodyFiltersFields(t *testing.T) {
	h, api := testRouter(t)

	rec := call(h, http.MethodPut, "/bodies/1", "member", `{"name":"Renamed","code":"HACKED"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]any{"name": "Renamed"}, api.updated)
	assert.Contains(t, rec.Body.String(), `"name":"Renamed"`)
	assert.Contains(t, rec.Body.String(), `"code":"AEGEE-Wroclaw"`)
}

func TestRouter_UpdateBodyRejections(t *testing.T) {
	h, api := testRouter(t)

	tests := []struct {
		name   string
		path   string
		token  string
		body   string
		status int
		code   string
	}{
		{name: "anonymous", path: "/bodies/1", body: `{}`, status: http.StatusUnauthorized, code: apperror.CodeUnauthorized},
		{name: "no grant", path: "/bodies/1", token: "nobody", body: `{}`, status: http.StatusForbidden, code: apperror.CodeForbidden},
		{name: "unknown body", path: "/bodies/9", token: "member", body: `{}`, status: http.StatusNotFound, code: apperror.CodeNotFound},
		{name: "malformed json", path: "/bodies/1", token: "member", body: `{"name":`, status: http.StatusBadRequest, code: apperror.CodeInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(h, http.MethodPut, tt.path, tt.token, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"code":"`+tt.code+`"`)
		})
	}
	assert.Nil(t, api.updated)
}

func TestRouter_UnknownRoute(t *testing.T) {
	h, _ := testRouter(t)

	rec := call(h, http.MethodDelete, "/nowhere", "", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "No such API endpoint: DELETE /nowhere")
}

func TestRouter_PanicRendersInternal(t *testing.T) {
	h, _ := testRouter(t)

	// The fake body service has no ListMembers, so the handler panics.
	rec := call(h, http.MethodGet, "/bodies/1/members", "member", "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"`+apperror.CodeInternal+`"`)
	assert.NotContains(t, rec.Body.String(), "nil pointer")

	metrics := call(h, http.MethodGet, "/metrics", "", "").Body.String()
	assert.Contains(t, metrics, `oms_http_requests_total{code="500",method="GET",route="/bodies/:body_id/members"} 1`)
}

type fakeAudit struct{ entries []audit.Entry }

func (f *fakeAudit) History(context.Context, string, int64, int) ([]audit.Entry, error) {
	return f.entries, nil
}

// fakePermissionAPI is never reached by the audit route.
type fakePermissionAPI struct{ PermissionAPI }

func TestRouter_AuditTrailNeedsEitherGrant(t *testing.T) {
	ctx := context.Background()
	index, err := circles.NewIndex(ctx, []circles.Circle{{ID: 1}, {ID: 2}})
	require.NoError(t, err)
	catalog := permissions.LoadCatalog(ctx, []permissions.GrantRow{
		{CircleID: 1, Combined: "global:view:audit"},
		{CircleID: 2, Combined: "global:put_permissions:circle"},
	})
	session := func(userID int64, held ...int64) *auth.Session {
		m := permissions.NewManager(ctx, permissions.Subject{UserID: userID, CircleIDs: held}, index, catalog)
		return &auth.Session{User: &auth.User{ID: userID}, Token: &auth.AccessToken{ID: userID}, Permissions: m}
	}

	h := Handler(RouterConfig{
		Authorizer: stubAuthorizer{
			"auditor":     session(1, 1),
			"grant-admin": session(2, 2),
			"nobody":      session(3),
		},
		Permissions: fakePermissionAPI{},
		Audit:       &fakeAudit{entries: []audit.Entry{{EntityType: "permission", EntityID: 5, Action: audit.ActionCreate}}},
	})

	for _, token := range []string{"auditor", "grant-admin"} {
		rec := call(h, http.MethodGet, "/audit/permission/5", token, "")
		require.Equal(t, http.StatusOK, rec.Code, token)
		assert.Contains(t, rec.Body.String(), `"entity_type":"permission"`)
	}

	rec := call(h, http.MethodGet, "/audit/permission/5", "nobody", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"required_permissions":["global:view:audit","global:put_permissions:circle"]`)

	assert.Equal(t, http.StatusUnauthorized, call(h, http.MethodGet, "/audit/permission/5", "", "").Code)
}
