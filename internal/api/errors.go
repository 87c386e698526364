package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smartrecipe/backend/internal/service"
	"github.com/smartrecipe/backend/internal/types"
)

// statusFor maps a service error kind to the HTTP status and the message
// shown to the caller.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrAlreadySaved):
		return http.StatusConflict, "Recipe already saved"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrGeneration), errors.Is(err, service.ErrMalformedResponse):
		return http.StatusBadGateway, "generation failed, try again"
	case errors.Is(err, service.ErrStorage):
		return http.StatusBadGateway, "image storage failed, try again"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, types.ErrorResponse{Error: message})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, types.ErrorResponse{Error: message})
}
