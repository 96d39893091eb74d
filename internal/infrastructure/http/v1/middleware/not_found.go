package middleware

import (
	"github.com/gin-gonic/gin"

	"omscore/internal/core/apperror"
)

// NotFound answers requests no route matched.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = c.Error(apperror.NewRouteNotFound(c.Request.Method, c.Request.URL.Path))
		c.Abort()
	}
}
