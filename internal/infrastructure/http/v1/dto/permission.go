package dto

import (
	"omscore/internal/domain/audit"
	"omscore/internal/domain/permissions"
)

// CreatePermissionRequest for creating permissions.
type CreatePermissionRequest struct {
	Scope       string `json:"scope" binding:"required"`
	Action      string `json:"action" binding:"required"`
	Object      string `json:"object" binding:"required"`
	Description string `json:"description"`
}

// ToRecord converts to domain record.
func (r *CreatePermissionRequest) ToRecord() *permissions.Record {
	return &permissions.Record{
		Scope:       r.Scope,
		Action:      r.Action,
		Object:      r.Object,
		Description: r.Description,
	}
}

// UpdatePermissionRequest is a partial update; absent fields are kept.
type UpdatePermissionRequest struct {
	Scope       *string `json:"scope"`
	Action      *string `json:"action"`
	Object      *string `json:"object"`
	Description *string `json:"description"`
}

// ToChanges converts to domain changes.
func (r *UpdatePermissionRequest) ToChanges() permissions.Changes {
	return permissions.Changes{
		Scope:       r.Scope,
		Action:      r.Action,
		Object:      r.Object,
		Description: r.Description,
	}
}

// AssignPermissionRequest grants a permission to a circle.
type AssignPermissionRequest struct {
	PermissionID int64    `json:"permission_id" binding:"required,gt=0"`
	Filters      []string `json:"filters"`
}

// AuditEntryResponse is one audit record.
type AuditEntryResponse struct {
	EntityType string         `json:"entity_type"`
	EntityID   int64          `json:"entity_id"`
	Action     string         `json:"action"`
	ActorID    *int64         `json:"actor_id"`
	Changes    map[string]any `json:"changes"`
}

// FromAuditEntries converts audit entries.
func FromAuditEntries(entries []audit.Entry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp := AuditEntryResponse{
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			Action:     string(e.Action),
			Changes:    e.Changes,
		}
		if e.ActorID != 0 {
			actor := e.ActorID
			resp.ActorID = &actor
		}
		out = append(out, resp)
	}
	return out
}
