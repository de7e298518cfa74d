package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "flyte-gateway/pkg/errors"
	"flyte-gateway/pkg/logger"
)

// ErrorResponse represents an error response.
// The front end reads message; error is a stable code.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// handleError converts usecase errors to HTTP responses.
func handleError(c *gin.Context, log *zap.Logger, err error) {
	status := apperrors.StatusOf(err)
	resp := ErrorResponse{Error: errorCode(err), Message: err.Error()}

	var (
		verr *apperrors.ValidationError
		ierr *apperrors.InternalError
	)
	switch {
	case errors.As(err, &verr):
		resp.Message = verr.Message
	case errors.As(err, &ierr):
		resp.Message = ierr.Message
	case status == http.StatusInternalServerError:
		resp.Message = "Internal server error"
	}

	l := logger.WithContext(c.Request.Context(), log)
	if status >= http.StatusInternalServerError {
		l.Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		l.Debug("request rejected", zap.Int("status", status), zap.Error(err))
	}

	c.AbortWithStatusJSON(status, resp)
}

func errorCode(err error) string {
	var (
		verr *apperrors.ValidationError
		nerr *apperrors.NotFoundError
		aerr *apperrors.AlreadyExistsError
		uerr *apperrors.UnauthorizedError
		berr *apperrors.UpstreamError
	)
	switch {
	case errors.As(err, &verr):
		return "validation_error"
	case errors.As(err, &nerr):
		return "not_found"
	case errors.As(err, &aerr):
		return "already_exists"
	case errors.As(err, &uerr):
		return "unauthorized"
	case errors.As(err, &berr):
		return "upstream_error"
	default:
		return "internal_error"
	}
}

// badRequest answers a body that could not be decoded.
func badRequest(c *gin.Context, log *zap.Logger, err error) {
	logger.WithContext(c.Request.Context(), log).Warn("invalid request body", zap.Error(err))
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_request",
		Message: "Invalid request body",
	})
}
