package middleware

import (
	"github.com/gin-gonic/gin"

	"omscore/internal/observability"
)

// Metrics records request count, latency and in-flight requests per route.
// Unmatched routes are grouped under "unmatched".
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		done := m.RequestStarted()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		done(route, c.Request.Method, c.Writer.Status())
	}
}
