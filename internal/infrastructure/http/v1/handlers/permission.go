package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"omscore/internal/core/apperror"
	"omscore/internal/domain/audit"
	"omscore/internal/domain/filter"
	"omscore/internal/domain/permissions"
	"omscore/internal/infrastructure/http/v1/dto"
	"omscore/internal/infrastructure/http/v1/middleware"
)

var permissionSortableFields = []string{"id", "combined", "scope", "action", "object", "created_at"}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// PermissionService is the part of permissions.Service the handlers use.
type PermissionService interface {
	List(ctx context.Context, f filter.List) ([]permissions.Record, int, error)
	Create(ctx context.Context, r *permissions.Record) error
	Update(ctx context.Context, r *permissions.Record, changes permissions.Changes) error
	Delete(ctx context.Context, permissionID int64) error
}

// AuditHistory reads the audit trail of one entity.
type AuditHistory interface {
	History(ctx context.Context, entityType string, entityID int64, limit int) ([]audit.Entry, error)
}

// PermissionHandler handles permission definitions and the audit trail.
type PermissionHandler struct {
	*BaseHandler
	service PermissionService
	history AuditHistory
}

// NewPermissionHandler creates a new permission handler.
func NewPermissionHandler(base *BaseHandler, service PermissionService, history AuditHistory) *PermissionHandler {
	return &PermissionHandler{
		BaseHandler: base,
		service:     service,
		history:     history,
	}
}

// List handles GET /permissions
func (h *PermissionHandler) List(c *gin.Context) {
	f, ok := h.ListFilter(c, permissionSortableFields, "combined")
	if !ok {
		return
	}

	items, count, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Page(c, items, count)
}

// Get handles GET /permissions/:permission_id
func (h *PermissionHandler) Get(c *gin.Context) {
	h.OK(c, middleware.PermissionFrom(c))
}

// Create handles POST /permissions
func (h *PermissionHandler) Create(c *gin.Context) {
	var req dto.CreatePermissionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	record := req.ToRecord()
	if err := h.service.Create(c.Request.Context(), record); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, record)
}

// Update handles PUT /permissions/:permission_id
func (h *PermissionHandler) Update(c *gin.Context) {
	var req dto.UpdatePermissionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	record := middleware.PermissionFrom(c)
	if err := h.service.Update(c.Request.Context(), record, req.ToChanges()); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, record)
}

// Delete handles DELETE /permissions/:permission_id
func (h *PermissionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), middleware.PermissionFrom(c).ID); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "Permission is deleted.")
}

// History handles GET /audit/:entity_type/:entity_id
func (h *PermissionHandler) History(c *gin.Context) {
	entityID, err := strconv.ParseInt(c.Param("entity_id"), 10, 64)
	if err != nil {
		h.Error(c, apperror.NewInvalidID("Entity"))
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = min(n, maxHistoryLimit)
		}
	}

	entries, err := h.history.History(c.Request.Context(), c.Param("entity_type"), entityID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromAuditEntries(entries))
}
