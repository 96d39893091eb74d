package handlers

import (
	"github.com/gin-gonic/gin"

	"omscore/internal/core/apperror"
	"omscore/internal/domain/auth"
	"omscore/internal/domain/permissions"
	"omscore/internal/infrastructure/http/v1/dto"
	"omscore/internal/infrastructure/http/v1/middleware"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	*BaseHandler
	service *auth.Service
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(base *BaseHandler, service *auth.Service) *AuthHandler {
	return &AuthHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Login handles POST /login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Login(c.Request.Context(), req.ToCredentials())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromLoginResult(result))
}

// Logout handles POST /logout
func (h *AuthHandler) Logout(c *gin.Context) {
	session := middleware.SessionFrom(c)
	if session == nil {
		h.Error(c, apperror.NewUnauthorized("You are not authorized."))
		return
	}

	if err := h.service.Logout(c.Request.Context(), session.Token.ID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "Logged out.")
}

// GetUser handles GET /users/:user_id, where :user_id may be "me".
func (h *AuthHandler) GetUser(c *gin.Context) {
	h.OK(c, dto.FromUser(middleware.UserFrom(c)))
}

// MyPermissions handles GET /my_permissions
func (h *AuthHandler) MyPermissions(c *gin.Context) {
	manager := permissions.FromContext(c.Request.Context())
	h.OK(c, dto.FromGrants(manager.Grants()))
}

// RegisterRoutes registers auth routes. public must carry MaybeAuthorize,
// protected additionally EnsureAuthorized.
func (h *AuthHandler) RegisterRoutes(public, protected *gin.RouterGroup, users gin.HandlerFunc, loginLimit gin.HandlerFunc) {
	public.POST("/login", loginLimit, h.Login)

	protected.POST("/logout", h.Logout)
	protected.GET("/my_permissions", h.MyPermissions)
	protected.GET("/users/:"+middleware.ParamUserID, users, h.GetUser)
}
