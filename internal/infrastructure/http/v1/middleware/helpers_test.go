package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"omscore/internal/domain/auth"
	"omscore/internal/domain/circles"
	"omscore/internal/domain/permissions"
	"omscore/internal/observability"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeAuthorizer maps raw tokens to sessions or non-authenticated outcomes.
type fakeAuthorizer struct {
	sessions map[string]*auth.Session
	outcomes map[string]auth.Outcome
	err      error
}

func (f *fakeAuthorizer) Authorize(_ context.Context, raw string) (*auth.Session, auth.Outcome, error) {
	if raw == "" {
		return nil, auth.OutcomeAnonymous, nil
	}
	if f.err != nil {
		return nil, auth.OutcomeError, f.err
	}
	if s, ok := f.sessions[raw]; ok {
		return s, auth.OutcomeAuthenticated, nil
	}
	if o, ok := f.outcomes[raw]; ok {
		return nil, o, nil
	}
	return nil, auth.OutcomeUnknown, nil
}

func ptr[T any](v T) *T { return &v }

// managerWith builds a permission set for a user holding the given circles.
func managerWith(t *testing.T, userID int64, held []int64, records []circles.Circle, rows []permissions.GrantRow) *permissions.Manager {
	t.Helper()
	ctx := context.Background()
	index, err := circles.NewIndex(ctx, records)
	require.NoError(t, err)
	subject := permissions.Subject{UserID: userID, CircleIDs: held}
	return permissions.NewManager(ctx, subject, index, permissions.LoadCatalog(ctx, rows))
}

func sessionFor(userID int64, m *permissions.Manager) *auth.Session {
	return &auth.Session{
		User:        &auth.User{ID: userID, Username: fmt.Sprintf("user%d", userID)},
		Token:       &auth.AccessToken{ID: 100 + userID},
		Permissions: m,
	}
}

// newEngine returns an engine with the error renderer and the
// authorization pipeline installed.
func newEngine(authz Authorizer, m *observability.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(ErrorHandler())
	r.NoRoute(NotFound())
	r.Use(MaybeAuthorize(authz, m))
	return r
}

func doRequest(r http.Handler, method, path, token string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set(HeaderAuthToken, token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func scrape(t *testing.T, m *observability.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func jsonBody(s string) io.Reader {
	return strings.NewReader(s)
}
