package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stellarsupply/fulfillment-gateway/internal/domain/fulfillment"
	"github.com/stellarsupply/fulfillment-gateway/internal/interfaces/http/dto"
)

// RequestIDKey is the context key for request ID
const RequestIDKey = "request_id"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
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

// HandleDomainError converts fulfillment domain errors to HTTP responses.
// Validation failures list every offending field so the storefront can show
// one complete correction prompt instead of a field-by-field trickle.
func (h *BaseHandler) HandleDomainError(c *gin.Context, err error) {
	requestID := getRequestID(c)

	var ve *fulfillment.ValidationError
	if errors.As(err, &ve) {
		details := make([]dto.ValidationDetail, 0, len(ve.Fields))
		for _, field := range ve.Fields {
			details = append(details, dto.ValidationDetail{Field: field, Message: "required"})
		}
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(ve.Error(), requestID, details))
		return
	}

	code := dto.ErrCodeInternal
	switch {
	case errors.Is(err, fulfillment.ErrOrderRecordNotFound),
		errors.Is(err, fulfillment.ErrOrderNotFound):
		code = dto.ErrCodeNotFound
	case errors.Is(err, fulfillment.ErrPaymentMethodNotFound),
		errors.Is(err, fulfillment.ErrInstructionNotFound):
		code = dto.ErrCodeBusinessRule
	case errors.Is(err, fulfillment.ErrOrderMissingUpstreamID),
		errors.Is(err, fulfillment.ErrUpstreamIDConflict):
		code = dto.ErrCodeConflict
	case errors.Is(err, fulfillment.ErrUpstreamRejected):
		code = dto.ErrCodeUpstreamRejected
	case errors.Is(err, fulfillment.ErrUpstreamNotConfigured):
		code = dto.ErrCodeUpstreamNotConfigured
	case errors.Is(err, fulfillment.ErrUpstreamAuthFailed),
		errors.Is(err, fulfillment.ErrUpstreamUnavailable),
		errors.Is(err, fulfillment.ErrUpstreamRequestFailed),
		errors.Is(err, fulfillment.ErrUpstreamInvalidResponse):
		code = dto.ErrCodeUpstreamUnavailable
	}

	message := err.Error()
	if code == dto.ErrCodeInternal {
		message = "An unexpected error occurred"
	}
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, requestID))
}
