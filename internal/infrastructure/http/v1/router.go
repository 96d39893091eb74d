// Package v1 provides HTTP API version 1.
package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"

	"omscore/internal/domain/auth"
	"omscore/internal/infrastructure/http/v1/handlers"
	"omscore/internal/infrastructure/http/v1/middleware"
	"omscore/internal/observability"
	"omscore/pkg/logger"
)

// BodyAPI is what the body routes need from the body service.
type BodyAPI interface {
	handlers.BodyService
	middleware.BodyFinder
}

// CampaignAPI is what the campaign routes need from the campaign service.
type CampaignAPI interface {
	handlers.CampaignService
	middleware.CampaignFinder
}

// CircleAPI is what the circle routes need from the circle service.
type CircleAPI interface {
	handlers.CircleService
	middleware.CircleFinder
}

// PermissionAPI is what the permission routes need from the permission
// service.
type PermissionAPI interface {
	handlers.PermissionService
	handlers.GrantService
	middleware.PermissionFinder
}

// RouterConfig holds router dependencies.
type RouterConfig struct {
	AppName    string
	AppVersion string

	// Logger for request logging
	Logger *logger.Logger

	// Metrics is optional; nil disables /metrics.
	Metrics *observability.Metrics

	// DB is pinged by /health/ready.
	DB handlers.Pinger

	Authorizer  middleware.Authorizer
	AuthService *auth.Service

	Bodies      BodyAPI
	Campaigns   CampaignAPI
	Circles     CircleAPI
	Permissions PermissionAPI
	Audit       handlers.AuditHistory

	// LoginLimiter throttles POST /login per client IP; nil disables it.
	LoginLimiter *middleware.RateLimiter

	// Gzip compresses responses in Handler.
	Gzip bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	// Global middleware (order matters!). Recovery sits inside ErrorHandler
	// so a recovered panic is still rendered as a 500.
	router.Use(middleware.Trace())
	if cfg.Metrics != nil {
		router.Use(middleware.Metrics(cfg.Metrics))
	}
	router.Use(middleware.Logger(log))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())

	router.NoRoute(middleware.NotFound())

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.AppName, cfg.AppVersion)
	router.GET("/", healthHandler.Info)
	router.GET("/healthcheck", healthHandler.Info)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	// Everything below runs the authorization pipeline. Anonymous requests
	// pass through with an empty permission set.
	api := router.Group("")
	api.Use(middleware.MaybeAuthorize(cfg.Authorizer, cfg.Metrics))

	g := guards{metrics: cfg.Metrics}
	registerAuthRoutes(api, g, cfg)
	registerBodyRoutes(api, g, cfg)
	registerCampaignRoutes(api, cfg)
	registerCircleRoutes(api, g, cfg)
	registerPermissionRoutes(api, g, cfg)

	return router
}

// Handler wraps the router with response compression when enabled.
func Handler(cfg RouterConfig) http.Handler {
	router := NewRouter(cfg)
	if !cfg.Gzip {
		return router
	}
	return gzhttp.GzipHandler(router)
}

// registerAuthRoutes registers login, logout and user endpoints.
func registerAuthRoutes(rg *gin.RouterGroup, g guards, cfg RouterConfig) {
	if cfg.AuthService == nil {
		return
	}

	authHandler := handlers.NewAuthHandler(handlers.NewBaseHandler(), cfg.AuthService)

	protected := rg.Group("")
	protected.Use(middleware.EnsureAuthorized())

	authHandler.RegisterRoutes(rg, protected,
		middleware.FetchUser(cfg.AuthService),
		middleware.RateLimit(cfg.LoginLimiter),
	)
}

// registerBodyRoutes registers body endpoints.
func registerBodyRoutes(rg *gin.RouterGroup, g guards, cfg RouterConfig) {
	if cfg.Bodies == nil {
		return
	}

	h := handlers.NewBodyHandler(handlers.NewBaseHandler(), cfg.Bodies)
	fetch := middleware.FetchBody(cfg.Bodies)
	item := "/:" + middleware.ParamBodyID

	bodies := rg.Group("/bodies")
	bodies.GET("", h.List)
	bodies.POST("", g.permission("global:create:body", h.Create)...)
	bodies.GET(item, fetch, h.Get)
	bodies.PUT(item, g.bodyPermission(fetch, "update:body", h.Update)...)
	bodies.PUT(item+"/status", g.permission("global:delete:body", fetch, h.SetStatus)...)
	bodies.GET(item+"/members", g.authorized(fetch, h.ListMembers)...)
	bodies.POST(item+"/members", g.bodyPermission(fetch, "create_member:body", h.CreateMember)...)
	bodies.POST(item+"/circles", g.bodyPermission(fetch, "create:circle", h.CreateCircle)...)
	bodies.GET(item+"/payments", g.bodyPermission(fetch, "view:payment", h.ListPayments)...)
}

// registerCampaignRoutes registers the public campaign endpoints.
func registerCampaignRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.Campaigns == nil {
		return
	}

	h := handlers.NewCampaignHandler(handlers.NewBaseHandler(), cfg.Campaigns)

	campaigns := rg.Group("/campaigns")
	campaigns.GET("", h.List)
	campaigns.GET("/:"+middleware.ParamCampaignID, middleware.FetchCampaign(cfg.Campaigns), h.Get)
}

// registerCircleRoutes registers circle endpoints and permission grants.
func registerCircleRoutes(rg *gin.RouterGroup, g guards, cfg RouterConfig) {
	if cfg.Circles == nil || cfg.Permissions == nil {
		return
	}

	h := handlers.NewCircleHandler(handlers.NewBaseHandler(), cfg.Circles, cfg.Permissions)
	fetch := middleware.FetchCircle(cfg.Circles)
	item := "/:" + middleware.ParamCircleID

	circles := rg.Group("/circles")
	circles.GET("", g.authorized(h.List)...)
	circles.GET(item, g.authorized(fetch, h.Get)...)
	circles.POST(item+"/permissions", g.permission("global:put_permissions:circle", fetch, h.AssignPermission)...)
	circles.DELETE(item+"/permissions/:"+middleware.ParamPermissionID,
		g.permission("global:put_permissions:circle", fetch, middleware.FetchPermission(cfg.Permissions), h.UnassignPermission)...)
}

// registerPermissionRoutes registers permission CRUD and the audit trail.
func registerPermissionRoutes(rg *gin.RouterGroup, g guards, cfg RouterConfig) {
	if cfg.Permissions == nil {
		return
	}

	h := handlers.NewPermissionHandler(handlers.NewBaseHandler(), cfg.Permissions, cfg.Audit)
	registerCRUDRoutes(rg.Group("/permissions"), g, h,
		middleware.FetchPermission(cfg.Permissions), middleware.ParamPermissionID, "permission")

	// Grant administrators can assign themselves global:view:audit, so they
	// read the trail directly.
	if cfg.Audit != nil {
		rg.GET("/audit/:entity_type/:entity_id",
			g.anyPermission([]string{"global:view:audit", "global:put_permissions:circle"}, h.History)...)
	}
}
