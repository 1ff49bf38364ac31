package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/compliance/internal/controller/middleware"
	"github.com/lshigami/compliance/internal/dto"
	"github.com/lshigami/compliance/internal/model"
	"github.com/lshigami/compliance/internal/service"
	"github.com/rs/zerolog/log"
)

// Error writes the HTTP response for a service error.
func Error(ctx *gin.Context, op string, err error) {
	var (
		validation  *service.ValidationError
		authz       *service.AuthorizationError
		eligibility *service.EligibilityError
		integrity   *service.IntegrityError
	)
	switch {
	case errors.As(err, &eligibility):
		ctx.JSON(http.StatusConflict, dto.EligibilityErrorResponse{ErrorCode: string(eligibility.Code), Details: eligibility.Details})
	case errors.Is(err, service.ErrNotFound):
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "Resource not found"})
	case errors.Is(err, service.ErrAttemptCompleted):
		ctx.JSON(http.StatusConflict, dto.ErrorResponse{Message: err.Error()})
	case errors.As(err, &validation):
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Validation failed", Fields: validation.Fields})
	case errors.As(err, &authz):
		ctx.JSON(http.StatusForbidden, dto.ErrorResponse{Message: "Forbidden", Details: []string{authz.Reason}})
	case errors.As(err, &integrity):
		log.Error().Err(err).Str("op", op).Msg("Operation rolled back")
		ctx.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Message: "Operation failed and was rolled back, please retry"})
	default:
		log.Error().Err(err).Str("op", op).Msg("Unhandled service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Internal server error"})
	}
}

// BadRequest answers a malformed request body or parameter.
func BadRequest(ctx *gin.Context, message string, err error) {
	resp := dto.ErrorResponse{Message: message}
	if err != nil {
		resp.Details = []string{err.Error()}
	}
	ctx.JSON(http.StatusBadRequest, resp)
}

// ParamID reads a positive numeric path parameter.
func ParamID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil || id == 0 {
		BadRequest(ctx, "Invalid "+name+" format", nil)
		return 0, false
	}
	return uint(id), true
}

// Actor reads the authenticated caller. Routes are mounted behind the auth
// middleware so a miss means a wiring error.
func Actor(ctx *gin.Context) (model.Actor, bool) {
	actor, ok := middleware.ActorFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Unauthorized"})
	}
	return actor, ok
}
