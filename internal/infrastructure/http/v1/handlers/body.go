package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"omscore/internal/core/apperror"
	appctx "omscore/internal/core/context"
	"omscore/internal/domain/bodies"
	"omscore/internal/domain/circles"
	"omscore/internal/domain/filter"
	"omscore/internal/domain/permissions"
	"omscore/internal/infrastructure/http/v1/dto"
	"omscore/internal/infrastructure/http/v1/middleware"
)

// Permissions checked inside body handlers.
const (
	PermViewDeletedBodies = "global:view_deleted:body"
	PermUpdateBody        = "update:body"
)

// BodyService is the part of bodies.Service the handlers use.
type BodyService interface {
	List(ctx context.Context, f filter.List, includeDeleted bool) ([]bodies.Body, int, error)
	Create(ctx context.Context, body *bodies.Body) error
	Update(ctx context.Context, body *bodies.Body, payload map[string]any) (*bodies.Body, error)
	SetStatus(ctx context.Context, body *bodies.Body, status bodies.Status) (*bodies.Body, error)
	CreateMember(ctx context.Context, body *bodies.Body, member bodies.NewMember) (*bodies.Membership, error)
	ListMembers(ctx context.Context, body *bodies.Body, f filter.List) ([]bodies.Membership, int, error)
	CreateBoundCircle(ctx context.Context, body *bodies.Body, circle *circles.Circle) error
	ListPayments(ctx context.Context, body *bodies.Body, f filter.List) ([]bodies.Payment, int, error)
}

// BodyHandler handles body endpoints.
type BodyHandler struct {
	*BaseHandler
	service BodyService
}

// NewBodyHandler creates a new body handler.
func NewBodyHandler(base *BaseHandler, service BodyService) *BodyHandler {
	return &BodyHandler{
		BaseHandler: base,
		service:     service,
	}
}

// List handles GET /bodies. all=true includes deleted bodies and needs
// global:view_deleted:body.
func (h *BodyHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	includeDeleted, _ := strconv.ParseBool(c.Query("all"))
	if includeDeleted {
		if !appctx.IsAuthenticated(ctx) {
			h.Error(c, apperror.NewUnauthorized("You are not authorized."))
			return
		}
		if !permissions.FromContext(ctx).HasPermission(PermViewDeletedBodies) {
			h.Error(c, apperror.NewPermissionRequired(PermViewDeletedBodies))
			return
		}
	}

	f, ok := h.ListFilter(c, bodies.SortableFields, "name")
	if !ok {
		return
	}

	items, count, err := h.service.List(ctx, f, includeDeleted)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Page(c, items, count)
}

// Get handles GET /bodies/:body_id
func (h *BodyHandler) Get(c *gin.Context) {
	h.OK(c, middleware.BodyFrom(c))
}

// Create handles POST /bodies
func (h *BodyHandler) Create(c *gin.Context) {
	var req dto.CreateBodyRequest
	if !h.BindJSON(c, &req) {
		return
	}

	body := req.ToBody()
	if err := h.service.Create(c.Request.Context(), body); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, body)
}

// Update handles PUT /bodies/:body_id. Fields outside the caller's
// update:body field filter are dropped silently.
func (h *BodyHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()
	body := middleware.BodyFrom(c)

	var payload map[string]any
	if !h.BindJSON(c, &payload) {
		return
	}

	allowed := permissions.FromContext(ctx).FilterFields(PermUpdateBody, &body.ID, payload)
	updated, err := h.service.Update(ctx, body, allowed)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, updated)
}

// SetStatus handles PUT /bodies/:body_id/status
func (h *BodyHandler) SetStatus(c *gin.Context) {
	var req dto.SetStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	updated, err := h.service.SetStatus(c.Request.Context(), middleware.BodyFrom(c), bodies.Status(req.Status))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, updated)
}

// ListMembers handles GET /bodies/:body_id/members
func (h *BodyHandler) ListMembers(c *gin.Context) {
	f, ok := h.ListFilter(c, bodies.MembershipSortableFields, "id")
	if !ok {
		return
	}

	items, count, err := h.service.ListMembers(c.Request.Context(), middleware.BodyFrom(c), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Page(c, items, count)
}

// CreateMember handles POST /bodies/:body_id/members
func (h *BodyHandler) CreateMember(c *gin.Context) {
	var req dto.CreateMemberRequest
	if !h.BindJSON(c, &req) {
		return
	}

	membership, err := h.service.CreateMember(c.Request.Context(), middleware.BodyFrom(c), req.ToNewMember())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, membership)
}

// CreateCircle handles POST /bodies/:body_id/circles
func (h *BodyHandler) CreateCircle(c *gin.Context) {
	var req dto.CreateCircleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	circle := req.ToCircle()
	if err := h.service.CreateBoundCircle(c.Request.Context(), middleware.BodyFrom(c), circle); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, circle)
}

// ListPayments handles GET /bodies/:body_id/payments
func (h *BodyHandler) ListPayments(c *gin.Context) {
	f, ok := h.ListFilter(c, bodies.PaymentSortableFields, "starts")
	if !ok {
		return
	}

	items, count, err := h.service.ListPayments(c.Request.Context(), middleware.BodyFrom(c), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Page(c, items, count)
}
