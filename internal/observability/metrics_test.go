package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	done := m.RequestStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight))
	done("/bodies/:body_id", http.MethodGet, http.StatusOK)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/bodies/:body_id", http.MethodGet, "200")))

	m.AuthOutcome("expired")
	m.AuthOutcome("expired")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.authOutcomes.WithLabelValues("expired")))

	m.PermissionCheck("global:create:body", false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.permissionChecks.WithLabelValues("global:create:body", "denied")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.AuthOutcome("authenticated")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `oms_auth_outcomes_total{outcome="authenticated"} 1`))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.AuthOutcome("anonymous")
	m.PermissionCheck("x:y", true)
	m.RequestStarted()("/", http.MethodGet, 200)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
