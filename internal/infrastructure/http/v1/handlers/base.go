// Package handlers provides HTTP request handlers.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"omscore/internal/core/apperror"
	"omscore/internal/domain/filter"
	"omscore/internal/infrastructure/http/v1/dto"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON decodes and validates the request body. Malformed JSON is a 400;
// failed binding rules are a 422 listing every bad field.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			h.Error(c, apperror.NewUnprocessable("Validation error.").WithDetail("errors", fieldErrors(invalid)))
			return false
		}
		h.Error(c, apperror.NewInvalidJSON(err))
		return false
	}
	return true
}

// BindQuery binds and validates query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// ListFilter reads limit, offset, sort, direction and query.
func (h *BaseHandler) ListFilter(c *gin.Context, sortable []string, defaultSort string) (filter.List, bool) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return filter.List{}, false
	}
	return q.Filter(sortable, defaultSort), true
}

// Error registers error on Gin context and aborts request.
// Actual JSON response is produced by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.Response{Success: true, Data: data})
}

// Created sends 201 response with the created resource.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.Response{Success: true, Data: data})
}

// Page sends one page of results with the total count.
func (h *BaseHandler) Page(c *gin.Context, data any, count int) {
	c.JSON(http.StatusOK, dto.ListResponse{Success: true, Data: data, Meta: dto.ListMeta{Count: count}})
}

// Success sends success response.
func (h *BaseHandler) Success(c *gin.Context, message string) {
	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true, Message: message})
}
