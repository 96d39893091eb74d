package v1

import (
	"github.com/gin-gonic/gin"

	"omscore/internal/infrastructure/http/v1/middleware"
	"omscore/internal/observability"
)

// guards builds the middleware chains routes are registered with.
type guards struct {
	metrics *observability.Metrics
}

// authorized requires a logged-in caller.
func (g guards) authorized(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	return append([]gin.HandlerFunc{middleware.EnsureAuthorized()}, handlers...)
}

// permission requires a logged-in caller holding permission.
func (g guards) permission(permission string, handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	return g.authorized(append([]gin.HandlerFunc{middleware.RequirePermission(g.metrics, permission)}, handlers...)...)
}

// anyPermission requires a logged-in caller holding at least one of perms.
func (g guards) anyPermission(perms []string, handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	return g.authorized(append([]gin.HandlerFunc{middleware.RequireAnyPermission(g.metrics, perms...)}, handlers...)...)
}

// bodyPermission requires permission on the body fetched by fetch.
func (g guards) bodyPermission(fetch gin.HandlerFunc, permission string, handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	return g.authorized(append([]gin.HandlerFunc{fetch, middleware.RequireBodyPermission(g.metrics, permission)}, handlers...)...)
}

// CRUDRouteHandler is implemented by handlers of admin-managed resources.
type CRUDRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

// registerCRUDRoutes registers list/get for any logged-in caller and
// create/update/delete behind global:<action>:<object>.
//
// Usage:
//
//	registerCRUDRoutes(r.Group("/permissions"), g, handler, fetch, "permission_id", "permission")
func registerCRUDRoutes(group *gin.RouterGroup, g guards, handler CRUDRouteHandler, fetch gin.HandlerFunc, param, object string) {
	item := "/:" + param
	group.GET("", g.authorized(handler.List)...)
	group.POST("", g.permission("global:create:"+object, handler.Create)...)
	group.GET(item, g.authorized(fetch, handler.Get)...)
	group.PUT(item, g.permission("global:update:"+object, fetch, handler.Update)...)
	group.DELETE(item, g.permission("global:delete:"+object, fetch, handler.Delete)...)
}
