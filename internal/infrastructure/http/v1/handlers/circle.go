package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"omscore/internal/domain/circles"
	"omscore/internal/domain/filter"
	"omscore/internal/infrastructure/http/v1/dto"
	"omscore/internal/infrastructure/http/v1/middleware"
)

var circleSortableFields = []string{"id", "name", "created_at"}

// CircleService is the part of circles.Service the handlers use.
type CircleService interface {
	List(ctx context.Context, f filter.List) ([]circles.Circle, int, error)
}

// GrantService assigns permissions to circles.
type GrantService interface {
	Assign(ctx context.Context, circleID, permissionID int64, fields []string) error
	Unassign(ctx context.Context, circleID, permissionID int64) error
}

// CircleHandler handles circle endpoints.
type CircleHandler struct {
	*BaseHandler
	circles CircleService
	grants  GrantService
}

// NewCircleHandler creates a new circle handler.
func NewCircleHandler(base *BaseHandler, circles CircleService, grants GrantService) *CircleHandler {
	return &CircleHandler{
		BaseHandler: base,
		circles:     circles,
		grants:      grants,
	}
}

// List handles GET /circles
func (h *CircleHandler) List(c *gin.Context) {
	f, ok := h.ListFilter(c, circleSortableFields, "name")
	if !ok {
		return
	}

	items, count, err := h.circles.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Page(c, items, count)
}

// Get handles GET /circles/:circle_id
func (h *CircleHandler) Get(c *gin.Context) {
	h.OK(c, middleware.CircleFrom(c))
}

// AssignPermission handles POST /circles/:circle_id/permissions
func (h *CircleHandler) AssignPermission(c *gin.Context) {
	var req dto.AssignPermissionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	circle := middleware.CircleFrom(c)
	if err := h.grants.Assign(c.Request.Context(), circle.ID, req.PermissionID, req.Filters); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "Permission is assigned.")
}

// UnassignPermission handles DELETE /circles/:circle_id/permissions/:permission_id
func (h *CircleHandler) UnassignPermission(c *gin.Context) {
	circle := middleware.CircleFrom(c)
	permission := middleware.PermissionFrom(c)
	if err := h.grants.Unassign(c.Request.Context(), circle.ID, permission.ID); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "Permission is unassigned.")
}
