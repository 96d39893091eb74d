package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"omscore/internal/core/apperror"
	"omscore/pkg/logger"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool           `json:"success"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`

	// Errors repeats details.errors (field -> messages) for validation failures.
	Errors any `json:"errors,omitempty"`
}

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		ctx := c.Request.Context()

		appErr, ok := apperror.AsAppError(err)
		if !ok {
			logger.Error(ctx, "unhandled error", "error", err)
			appErr = apperror.NewInternal(err)
		}

		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Error(ctx, "request failed",
				"code", appErr.Code,
				"status", appErr.HTTPStatus,
				"cause", appErr.Err,
			)
		} else if appErr.Err != nil {
			logger.Debug(ctx, "request rejected", "code", appErr.Code, "cause", appErr.Err)
		}

		body := ErrorResponse{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		}
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			body.Details = map[string]any{"request_id": c.GetString("request_id")}
		}
		if errs, ok := appErr.Details["errors"]; ok {
			body.Errors = errs
		}

		c.JSON(appErr.HTTPStatus, body)
	}
}
