package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omscore/internal/core/apperror"
	"omscore/internal/domain/audit"
	"omscore/internal/domain/bodies"
	"omscore/internal/domain/campaigns"
	"omscore/internal/domain/circles"
	"omscore/internal/domain/filter"
	"omscore/internal/domain/permissions"
	"omscore/internal/infrastructure/http/v1/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	return r
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type historyCall struct {
	entityType string
	entityID   int64
	limit      int
}

type fakeHistory struct {
	calls   []historyCall
	entries []audit.Entry
}

func (f *fakeHistory) History(_ context.Context, entityType string, entityID int64, limit int) ([]audit.Entry, error) {
	f.calls = append(f.calls, historyCall{entityType, entityID, limit})
	return f.entries, nil
}

func TestPermissionHandler_History(t *testing.T) {
	history := &fakeHistory{entries: []audit.Entry{{
		EntityType: "body",
		EntityID:   7,
		Action:     audit.ActionUpdate,
		ActorID:    1,
		Changes:    map[string]any{"name": map[string]any{"old": "A", "new": "B"}},
	}}}
	h := NewPermissionHandler(NewBaseHandler(), nil, history)
	r := newEngine()
	r.GET("/audit/:entity_type/:entity_id", h.History)

	rec := serve(r, http.MethodGet, "/audit/body/7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":[{
		"entity_type":"body","entity_id":7,"action":"update","actor_id":1,
		"changes":{"name":{"old":"A","new":"B"}}
	}]}`, rec.Body.String())

	serve(r, http.MethodGet, "/audit/body/7?limit=5000", "")
	serve(r, http.MethodGet, "/audit/body/7?limit=-3", "")
	require.Len(t, history.calls, 3)
	assert.Equal(t, historyCall{"body", 7, defaultHistoryLimit}, history.calls[0])
	assert.Equal(t, maxHistoryLimit, history.calls[1].limit)
	assert.Equal(t, defaultHistoryLimit, history.calls[2].limit)

	rec = serve(r, http.MethodGet, "/audit/body/seven", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, history.calls, 3)
}

type fakePermissionService struct {
	created *permissions.Record
	err     error
}

func (f *fakePermissionService) List(context.Context, filter.List) ([]permissions.Record, int, error) {
	return nil, 0, nil
}

func (f *fakePermissionService) Create(_ context.Context, r *permissions.Record) error {
	if f.err != nil {
		return f.err
	}
	r.ID = 12
	r.Combined = r.Scope + ":" + r.Action + ":" + r.Object
	f.created = r
	return nil
}

func (f *fakePermissionService) Update(context.Context, *permissions.Record, permissions.Changes) error {
	return nil
}

func (f *fakePermissionService) Delete(context.Context, int64) error { return nil }

func TestPermissionHandler_Create(t *testing.T) {
	svc := &fakePermissionService{}
	h := NewPermissionHandler(NewBaseHandler(), svc, nil)
	r := newEngine()
	r.POST("/permissions", h.Create)

	rec := serve(r, http.MethodPost, "/permissions",
		`{"scope":"global","action":"view","object":"audit","description":"Read the trail"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"combined":"global:view:audit"`)
	assert.Equal(t, "Read the trail", svc.created.Description)

	svc.err = apperror.NewValidation("scope is not valid")
	rec = serve(r, http.MethodPost, "/permissions", `{"scope":"galaxy","action":"view","object":"audit"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(r, http.MethodPost, "/permissions", `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), apperror.CodeInvalidJSON)
}

type fakeCircleFinder map[int64]*circles.Detail

func (f fakeCircleFinder) Get(_ context.Context, id int64) (*circles.Detail, error) {
	if d, ok := f[id]; ok {
		return d, nil
	}
	return nil, apperror.NewNotFound("Circle", id)
}

type assignCall struct {
	circleID, permissionID int64
	fields                 []string
}

type fakeGrants struct {
	assigned []assignCall
	err      error
}

func (f *fakeGrants) Assign(_ context.Context, circleID, permissionID int64, fields []string) error {
	f.assigned = append(f.assigned, assignCall{circleID, permissionID, fields})
	return f.err
}

func (f *fakeGrants) Unassign(context.Context, int64, int64) error { return f.err }

func TestCircleHandler_AssignPermission(t *testing.T) {
	grants := &fakeGrants{}
	h := NewCircleHandler(NewBaseHandler(), nil, grants)
	finder := fakeCircleFinder{3: {Circle: circles.Circle{ID: 3, Name: "Board"}}}

	r := newEngine()
	r.POST("/circles/:circle_id/permissions", middleware.FetchCircle(finder), h.AssignPermission)

	rec := serve(r, http.MethodPost, "/circles/3/permissions", `{"permission_id":9,"filters":["name"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true,"message":"Permission is assigned."}`, rec.Body.String())
	assert.Equal(t, []assignCall{{3, 9, []string{"name"}}}, grants.assigned)

	grants.err = apperror.NewNotFound("Permission", int64(99))
	rec = serve(r, http.MethodPost, "/circles/3/permissions", `{"permission_id":99}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthHandler_MyPermissions(t *testing.T) {
	ctx := context.Background()
	index, err := circles.NewIndex(ctx, []circles.Circle{{ID: 1}})
	require.NoError(t, err)
	catalog := permissions.LoadCatalog(ctx, []permissions.GrantRow{
		{CircleID: 1, Combined: "global:view:audit"},
		{CircleID: 1, Combined: "global:update:body", Filters: []string{"name"}},
	})
	manager := permissions.NewManager(ctx, permissions.Subject{UserID: 4, CircleIDs: []int64{1}}, index, catalog)

	h := NewAuthHandler(NewBaseHandler(), nil)
	r := newEngine()
	r.GET("/my_permissions", func(c *gin.Context) {
		c.Request = c.Request.WithContext(permissions.WithManager(c.Request.Context(), manager))
	}, h.MyPermissions)

	rec := serve(r, http.MethodGet, "/my_permissions", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":[
		{"combined":"global:update:body","scope":"global","action":"update","object":"body","filters":["name"],"circle_id":1},
		{"combined":"global:view:audit","scope":"global","action":"view","object":"audit","filters":[],"circle_id":1}
	]}`, rec.Body.String())
}

type fakeBodyService struct {
	BodyService
	created *bodies.Body
}

func (f *fakeBodyService) Create(_ context.Context, b *bodies.Body) error {
	if err := b.Validate(); err != nil {
		return err
	}
	b.ID = 31
	f.created = b
	return nil
}

func TestBodyHandler_Create(t *testing.T) {
	svc := &fakeBodyService{}
	h := NewBodyHandler(NewBaseHandler(), svc)
	r := newEngine()
	r.POST("/bodies", h.Create)

	rec := serve(r, http.MethodPost, "/bodies",
		`{"code":"aegee-test","name":"AEGEE-Test","type":"antenna","email":"board@aegee-test.org"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"success":true`)
	assert.Contains(t, rec.Body.String(), `"name":"AEGEE-Test"`)
	assert.Equal(t, "AEGEE-TEST", svc.created.Code)
}

func TestBodyHandler_CreateBindingErrors(t *testing.T) {
	svc := &fakeBodyService{}
	h := NewBodyHandler(NewBaseHandler(), svc)
	r := newEngine()
	r.POST("/bodies", h.Create)

	rec := serve(r, http.MethodPost, "/bodies", `{"code":"X","type":"antenna","email":"invalid"}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{
		"success":false,
		"code":"VALIDATION_ERROR",
		"message":"Validation error.",
		"details":{"errors":{"name":["This field is required."],"email":["Email is not valid."]}},
		"errors":{"name":["This field is required."],"email":["Email is not valid."]}
	}`, rec.Body.String())
	assert.Nil(t, svc.created)

	rec = serve(r, http.MethodPost, "/bodies", `{"code":"X","name":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), apperror.CodeInvalidJSON)
}

func TestCircleHandler_AssignPermissionRequiresID(t *testing.T) {
	grants := &fakeGrants{}
	h := NewCircleHandler(NewBaseHandler(), nil, grants)
	finder := fakeCircleFinder{3: {Circle: circles.Circle{ID: 3}}}
	r := newEngine()
	r.POST("/circles/:circle_id/permissions", middleware.FetchCircle(finder), h.AssignPermission)

	rec := serve(r, http.MethodPost, "/circles/3/permissions", `{"filters":["name"]}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"permission_id":["This field is required."]`)
	assert.Empty(t, grants.assigned)
}

type fakeCampaignService struct {
	items           []campaigns.Campaign
	includeInactive bool
}

func (f *fakeCampaignService) List(_ context.Context, _ filter.List, includeInactive bool) ([]campaigns.Campaign, int, error) {
	f.includeInactive = includeInactive
	return f.items, len(f.items), nil
}

func (f *fakeCampaignService) Get(_ context.Context, id int64) (*campaigns.Campaign, error) {
	for i := range f.items {
		if f.items[i].ID == id {
			return &f.items[i], nil
		}
	}
	return nil, apperror.NewNotFound("Campaign", id)
}

// withGrant installs a permission manager holding the given global grant.
func withGrant(t *testing.T, combined string) gin.HandlerFunc {
	t.Helper()
	ctx := context.Background()
	index, err := circles.NewIndex(ctx, []circles.Circle{{ID: 1}})
	require.NoError(t, err)
	catalog := permissions.LoadCatalog(ctx, []permissions.GrantRow{{CircleID: 1, Combined: combined}})
	manager := permissions.NewManager(ctx, permissions.Subject{UserID: 4, CircleIDs: []int64{1}}, index, catalog)
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(permissions.WithManager(c.Request.Context(), manager))
	}
}

func TestCampaignHandler_GetHidesInactive(t *testing.T) {
	svc := &fakeCampaignService{items: []campaigns.Campaign{
		{ID: 1, Name: "Open", URL: "open", Active: true},
		{ID: 2, Name: "Closed", URL: "closed"},
	}}
	h := NewCampaignHandler(NewBaseHandler(), svc)
	fetch := middleware.FetchCampaign(svc)

	r := newEngine()
	r.GET("/campaigns/:campaign_id", fetch, h.Get)
	r.GET("/admin/campaigns/:campaign_id", withGrant(t, PermViewInactiveCampaigns), fetch, h.Get)

	rec := serve(r, http.MethodGet, "/campaigns/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"url":"open"`)

	rec = serve(r, http.MethodGet, "/campaigns/2", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), apperror.CodeNotFound)

	rec = serve(r, http.MethodGet, "/admin/campaigns/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"url":"closed"`)
}

func TestCampaignHandler_ListAllNeedsAuthentication(t *testing.T) {
	svc := &fakeCampaignService{items: []campaigns.Campaign{{ID: 1, Name: "Open", Active: true}}}
	h := NewCampaignHandler(NewBaseHandler(), svc)
	r := newEngine()
	r.GET("/campaigns", h.List)

	rec := serve(r, http.MethodGet, "/campaigns", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, svc.includeInactive)

	rec = serve(r, http.MethodGet, "/campaigns?all=true", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
