package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"omscore/internal/core/apperror"
	appctx "omscore/internal/core/context"
	"omscore/internal/domain/campaigns"
	"omscore/internal/domain/filter"
	"omscore/internal/domain/permissions"
	"omscore/internal/infrastructure/http/v1/middleware"
)

// PermViewInactiveCampaigns lets a caller see campaigns that are switched off.
const PermViewInactiveCampaigns = "global:view:campaign"

// CampaignService is the part of campaigns.Service the handlers use.
type CampaignService interface {
	List(ctx context.Context, f filter.List, includeInactive bool) ([]campaigns.Campaign, int, error)
}

// CampaignHandler handles campaign endpoints.
type CampaignHandler struct {
	*BaseHandler
	service CampaignService
}

// NewCampaignHandler creates a new campaign handler.
func NewCampaignHandler(base *BaseHandler, service CampaignService) *CampaignHandler {
	return &CampaignHandler{
		BaseHandler: base,
		service:     service,
	}
}

// List handles GET /campaigns. all=true includes inactive campaigns and
// needs global:view:campaign.
func (h *CampaignHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	includeInactive, _ := strconv.ParseBool(c.Query("all"))
	if includeInactive {
		if !appctx.IsAuthenticated(ctx) {
			h.Error(c, apperror.NewUnauthorized("You are not authorized."))
			return
		}
		if !permissions.FromContext(ctx).HasPermission(PermViewInactiveCampaigns) {
			h.Error(c, apperror.NewPermissionRequired(PermViewInactiveCampaigns))
			return
		}
	}

	f, ok := h.ListFilter(c, campaigns.SortableFields, "name")
	if !ok {
		return
	}

	items, count, err := h.service.List(ctx, f, includeInactive)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Page(c, items, count)
}

// Get handles GET /campaigns/:campaign_id. An inactive campaign looks
// missing to callers who may not see it.
func (h *CampaignHandler) Get(c *gin.Context) {
	campaign := middleware.CampaignFrom(c)
	if !campaign.Active && !permissions.FromContext(c.Request.Context()).HasPermission(PermViewInactiveCampaigns) {
		h.Error(c, apperror.NewNotFound("Campaign", campaign.ID))
		return
	}
	h.OK(c, campaign)
}
