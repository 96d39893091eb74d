// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"strings"

	"omscore/internal/domain/filter"
)

// --- Envelopes ---

// Response wraps a single resource.
type Response struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// ListMeta carries the total number of matches, ignoring pagination.
type ListMeta struct {
	Count int `json:"count"`
}

// ListResponse wraps one page of a list.
type ListResponse struct {
	Success bool     `json:"success"`
	Data    any      `json:"data"`
	Meta    ListMeta `json:"meta"`
}

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// --- List query ---

// ListQuery is the query string of every list endpoint.
type ListQuery struct {
	Query     string `form:"query"`
	Limit     int    `form:"limit" binding:"omitempty,min=0"`
	Offset    int    `form:"offset" binding:"omitempty,min=0"`
	Sort      string `form:"sort"`
	Direction string `form:"direction"`
}

// Filter converts the query into a normalized list filter.
func (q ListQuery) Filter(sortable []string, defaultSort string) filter.List {
	return filter.List{
		Query:     strings.TrimSpace(q.Query),
		Limit:     q.Limit,
		Offset:    q.Offset,
		Sort:      q.Sort,
		Direction: strings.ToLower(q.Direction),
	}.Normalize(sortable, defaultSort)
}
