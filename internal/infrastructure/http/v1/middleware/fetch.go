package middleware

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"omscore/internal/core/apperror"
	"omscore/internal/domain/auth"
	"omscore/internal/domain/bodies"
	"omscore/internal/domain/campaigns"
	"omscore/internal/domain/circles"
	"omscore/internal/domain/permissions"
)

// Path parameters read by the fetch middleware.
const (
	ParamBodyID       = "body_id"
	ParamCampaignID   = "campaign_id"
	ParamCircleID     = "circle_id"
	ParamPermissionID = "permission_id"
	ParamUserID       = "user_id"
)

const (
	bodyKey       = "fetched_body"
	campaignKey   = "fetched_campaign"
	circleKey     = "fetched_circle"
	permissionKey = "fetched_permission"
	userKey       = "fetched_user"
)

var errNoBodyFetched = errors.New("body permission check without FetchBody")

// BodyFinder looks bodies up by id or code.
type BodyFinder interface {
	GetByID(ctx context.Context, bodyID int64) (*bodies.Body, error)
	GetByCode(ctx context.Context, code string) (*bodies.Body, error)
}

// CircleFinder loads a circle with its neighbours.
type CircleFinder interface {
	Get(ctx context.Context, circleID int64) (*circles.Detail, error)
}

// CampaignFinder loads a campaign.
type CampaignFinder interface {
	Get(ctx context.Context, campaignID int64) (*campaigns.Campaign, error)
}

// PermissionFinder loads a permission definition.
type PermissionFinder interface {
	Get(ctx context.Context, permissionID int64) (*permissions.Record, error)
}

// UserFinder looks users up by id or username.
type UserFinder interface {
	GetUser(ctx context.Context, userID int64) (*auth.User, error)
	GetUserByUsername(ctx context.Context, username string) (*auth.User, error)
}

// FetchBody loads the body named by :body_id, which is either a numeric id
// or a body code (case-insensitive).
func FetchBody(finder BodyFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ref := strings.TrimSpace(c.Param(ParamBodyID))

		var (
			body *bodies.Body
			err  error
		)
		if id, ok := parseID(ref); ok {
			body, err = finder.GetByID(ctx, id)
		} else {
			body, err = finder.GetByCode(ctx, ref)
		}
		if err != nil {
			abortFetch(c, err, "Body", ref)
			return
		}

		c.Set(bodyKey, body)
		c.Next()
	}
}

// FetchCircle loads the circle named by :circle_id.
func FetchCircle(finder CircleFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c.Param(ParamCircleID))
		if !ok {
			_ = c.Error(apperror.NewInvalidID("Circle"))
			c.Abort()
			return
		}

		circle, err := finder.Get(c.Request.Context(), id)
		if err != nil {
			abortFetch(c, err, "Circle", id)
			return
		}

		c.Set(circleKey, circle)
		c.Next()
	}
}

// FetchCampaign loads the campaign named by :campaign_id.
func FetchCampaign(finder CampaignFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c.Param(ParamCampaignID))
		if !ok {
			_ = c.Error(apperror.NewInvalidID("Campaign"))
			c.Abort()
			return
		}

		campaign, err := finder.Get(c.Request.Context(), id)
		if err != nil {
			abortFetch(c, err, "Campaign", id)
			return
		}

		c.Set(campaignKey, campaign)
		c.Next()
	}
}

// FetchPermission loads the permission named by :permission_id.
func FetchPermission(finder PermissionFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c.Param(ParamPermissionID))
		if !ok {
			_ = c.Error(apperror.NewInvalidID("Permission"))
			c.Abort()
			return
		}

		record, err := finder.Get(c.Request.Context(), id)
		if err != nil {
			abortFetch(c, err, "Permission", id)
			return
		}

		c.Set(permissionKey, record)
		c.Next()
	}
}

// FetchUser loads the user named by :user_id: "me", a numeric id or a
// username (case-insensitive). "me" requires an authorized request.
func FetchUser(finder UserFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ref := strings.TrimSpace(c.Param(ParamUserID))

		var (
			user *auth.User
			err  error
		)
		switch id, numeric := parseID(ref); {
		case ref == "me":
			session := SessionFrom(c)
			if session == nil {
				_ = c.Error(apperror.NewUnauthorized("You are not authorized."))
				c.Abort()
				return
			}
			user = session.User
		case numeric:
			user, err = finder.GetUser(ctx, id)
		default:
			user, err = finder.GetUserByUsername(ctx, ref)
		}
		if err != nil {
			abortFetch(c, err, "User", ref)
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// BodyFrom returns the body loaded by FetchBody.
func BodyFrom(c *gin.Context) *bodies.Body {
	v, _ := c.Get(bodyKey)
	b, _ := v.(*bodies.Body)
	return b
}

// CircleFrom returns the circle loaded by FetchCircle.
func CircleFrom(c *gin.Context) *circles.Detail {
	v, _ := c.Get(circleKey)
	d, _ := v.(*circles.Detail)
	return d
}

// CampaignFrom returns the campaign loaded by FetchCampaign.
func CampaignFrom(c *gin.Context) *campaigns.Campaign {
	v, _ := c.Get(campaignKey)
	cp, _ := v.(*campaigns.Campaign)
	return cp
}

// PermissionFrom returns the permission loaded by FetchPermission.
func PermissionFrom(c *gin.Context) *permissions.Record {
	v, _ := c.Get(permissionKey)
	r, _ := v.(*permissions.Record)
	return r
}

// UserFrom returns the user loaded by FetchUser.
func UserFrom(c *gin.Context) *auth.User {
	v, _ := c.Get(userKey)
	u, _ := v.(*auth.User)
	return u
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func abortFetch(c *gin.Context, err error, entity string, ref any) {
	if _, ok := apperror.AsAppError(err); !ok {
		err = apperror.NewInternal(err).WithDetail("entity", entity).WithDetail("ref", ref)
	}
	_ = c.Error(err)
	c.Abort()
}
