package middleware

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omscore/internal/core/apperror"
	"omscore/internal/observability"
)

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/validation", func(c *gin.Context) {
		_ = c.Error(apperror.NewValidation("Validation failed").
			WithDetail("errors", map[string][]string{"name": {"is required"}}))
	})
	r.GET("/plain", func(c *gin.Context) {
		_ = c.Error(errors.New("pq: relation does not exist"))
	})
	r.GET("/written", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
		_ = c.Error(errors.New("too late"))
	})

	t.Run("validation errors are lifted", func(t *testing.T) {
		rec := doRequest(r, http.MethodGet, "/validation", "", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeError(t, rec)
		assert.False(t, resp.Success)
		assert.Equal(t, apperror.CodeValidation, resp.Code)
		assert.Equal(t, map[string]any{"name": []any{"is required"}}, resp.Errors)
	})

	t.Run("unknown errors become internal", func(t *testing.T) {
		rec := doRequest(r, http.MethodGet, "/plain", "", nil)
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		resp := decodeError(t, rec)
		assert.Equal(t, apperror.CodeInternal, resp.Code)
		assert.Contains(t, resp.Details, "request_id")
		assert.NotContains(t, rec.Body.String(), "relation")
	})

	t.Run("written responses are left alone", func(t *testing.T) {
		rec := doRequest(r, http.MethodGet, "/written", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	})
}

func TestNotFound(t *testing.T) {
	m := observability.NewMetrics()
	r := gin.New()
	r.Use(Metrics(m), ErrorHandler())
	r.NoRoute(NotFound())

	rec := doRequest(r, http.MethodGet, "/nope", "", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "No such API endpoint: GET /nope", resp.Message)
	assert.Contains(t, scrape(t, m), `oms_http_requests_total{code="404",method="GET",route="unmatched"} 1`)
}

func TestRecoveryRendersInternal(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(), Recovery())
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	rec := doRequest(r, http.MethodGet, "/boom", "", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}
