package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"omscore/internal/core/apperror"
	appctx "omscore/internal/core/context"
	"omscore/internal/domain/auth"
	"omscore/internal/domain/permissions"
	"omscore/internal/observability"
)

// HeaderAuthToken carries the raw access token. "Authorization: Bearer" is
// accepted as well.
const HeaderAuthToken = "X-Auth-Token"

const sessionKey = "session"

// Authorizer resolves an access token into a session.
type Authorizer interface {
	Authorize(ctx context.Context, rawToken string) (*auth.Session, auth.Outcome, error)
}

// MaybeAuthorize attaches the caller's user and permission manager to the
// request when a valid token is presented. Missing, unknown and expired
// tokens leave the request anonymous; only load failures abort it.
func MaybeAuthorize(authorizer Authorizer, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		session, outcome, err := authorizer.Authorize(ctx, tokenFromRequest(c))
		metrics.AuthOutcome(string(outcome))
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		if session == nil {
			ctx = permissions.WithManager(ctx, permissions.Anonymous())
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}

		user := session.User
		ctx = appctx.WithUser(ctx, &appctx.UserContext{
			UserID:        user.ID,
			Username:      user.Username,
			PrimaryBodyID: user.PrimaryBodyID,
			TokenID:       session.Token.ID,
		})
		ctx = permissions.WithManager(ctx, session.Permissions)
		c.Request = c.Request.WithContext(ctx)
		c.Set(sessionKey, session)

		c.Next()
	}
}

// EnsureAuthorized rejects anonymous requests with 401.
func EnsureAuthorized() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !appctx.IsAuthenticated(c.Request.Context()) {
			_ = c.Error(apperror.NewUnauthorized("You are not authorized."))
			c.Abort()
			return
		}
		c.Next()
	}
}

// SessionFrom returns the session attached by MaybeAuthorize.
func SessionFrom(c *gin.Context) *auth.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(*auth.Session); ok {
			return s
		}
	}
	return nil
}

func tokenFromRequest(c *gin.Context) string {
	if token := strings.TrimSpace(c.GetHeader(HeaderAuthToken)); token != "" {
		return token
	}
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
