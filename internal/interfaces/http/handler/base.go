// Package handler exposes the fulfillment, rendition and reconciliation
// operations over HTTP.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/printcore/backend/internal/domain/pod"
	"github.com/printcore/backend/internal/domain/shared"
	"github.com/printcore/backend/internal/interfaces/http/dto"
	"github.com/printcore/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with list metadata
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, count, limit int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, count, limit))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError converts domain and vendor errors to HTTP responses
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		status, ok := dto.ErrorCodeHTTPStatus[code]
		if !ok {
			// Unmapped domain codes are business rule violations
			status = http.StatusUnprocessableEntity
		}
		h.Error(c, status, code, domainErr.Message)
		return
	}

	switch {
	case errors.Is(err, pod.ErrSubmissionConflict):
		h.Error(c, http.StatusConflict, dto.ErrCodeSubmissionConflict,
			"Order submission already in progress")
	case errors.Is(err, pod.ErrQuoteExpired):
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeQuoteExpired,
			"Quote has expired; request a fresh quote")
	case errors.Is(err, pod.ErrVendorRejected):
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeVendorRejected, err.Error())
	case errors.Is(err, pod.ErrProviderUnavailable):
		h.Error(c, http.StatusBadGateway, dto.ErrCodeProviderUnavailable,
			"Print provider is currently unavailable")
	case errors.Is(err, pod.ErrOrderNotFound):
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, "Order not found at vendor")
	case errors.Is(err, pod.ErrWebhookParse):
		h.Error(c, http.StatusBadRequest, dto.ErrCodeWebhookInvalid,
			"Webhook delivery failed verification")
	default:
		h.InternalError(c, "An unexpected error occurred")
	}
}
