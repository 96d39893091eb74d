// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"github.com/gin-gonic/gin"

	"omscore/internal/core/apperror"
	"omscore/internal/domain/permissions"
	"omscore/internal/observability"
)

// RequirePermission rejects the request with 403 unless the caller holds the
// permission, e.g. "global:create:body". Anonymous callers hold nothing.
func RequirePermission(metrics *observability.Metrics, permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed := permissions.FromContext(c.Request.Context()).HasPermission(permission)
		metrics.PermissionCheck(permission, allowed)
		if !allowed {
			_ = c.Error(apperror.NewPermissionRequired(permission))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireBodyPermission is RequirePermission checked against the body
// loaded by FetchBody. Local grants only count when anchored to that body.
func RequireBodyPermission(metrics *observability.Metrics, permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := BodyFrom(c)
		if body == nil {
			_ = c.Error(apperror.NewInternal(errNoBodyFetched))
			c.Abort()
			return
		}

		allowed := permissions.FromContext(c.Request.Context()).HasBodyPermission(permission, body.ID)
		metrics.PermissionCheck(permission, allowed)
		if !allowed {
			_ = c.Error(apperror.NewPermissionRequired(permission))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAnyPermission passes when the caller holds at least one of the
// permissions.
func RequireAnyPermission(metrics *observability.Metrics, perms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		manager := permissions.FromContext(c.Request.Context())
		for _, p := range perms {
			if manager.HasPermission(p) {
				metrics.PermissionCheck(p, true)
				c.Next()
				return
			}
		}
		for _, p := range perms {
			metrics.PermissionCheck(p, false)
		}
		_ = c.Error(
			apperror.NewForbidden("Permission is required, but not present.").
				WithDetail("required_permissions", perms),
		)
		c.Abort()
	}
}
