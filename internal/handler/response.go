package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"olago/internal/repository"
	"olago/internal/service"
)

// Error codes returned alongside the message so clients can branch on kind.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeInvalidState      = "INVALID_STATE"
	CodeInvalidAmount     = "INVALID_AMOUNT"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodePromoAlreadyUsed  = "PROMO_ALREADY_USED"
	CodeNoDriverAvailable = "NO_DRIVER_AVAILABLE"
	CodeForbidden         = "FORBIDDEN"
	CodeConflict          = "CONFLICT"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInternal          = "INTERNAL"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Persister saves engine state after a successful mutation.
type Persister interface {
	Persist(ctx context.Context)
}

type noopPersister struct{}

func (noopPersister) Persist(context.Context) {}

func orNoop(p Persister) Persister {
	if p == nil {
		return noopPersister{}
	}
	return p
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, code := mapErrorToHTTPStatus(err)
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// respondBadRequest rejects a body that failed to bind.
func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: CodeInvalidRequest})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) (int, string) {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, CodeNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidAmount):
		return http.StatusBadRequest, CodeInvalidAmount
	case errors.Is(err, service.ErrInvalidRiderID),
		errors.Is(err, service.ErrInvalidRiderName),
		errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidPlace),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrInvalidOutcome),
		errors.Is(err, service.ErrInvalidPromoCode):
		return http.StatusBadRequest, CodeInvalidRequest

	// Conflict errors
	case errors.Is(err, service.ErrInvalidState):
		return http.StatusConflict, CodeInvalidState
	case errors.Is(err, service.ErrPromoAlreadyUsed):
		return http.StatusConflict, CodePromoAlreadyUsed
	case errors.Is(err, service.ErrRiderExists):
		return http.StatusConflict, CodeConflict

	// Business rule errors
	case errors.Is(err, service.ErrInsufficientFunds):
		return http.StatusPaymentRequired, CodeInsufficientFunds
	case errors.Is(err, service.ErrRideNotOwned):
		return http.StatusForbidden, CodeForbidden

	// Service unavailable
	case errors.Is(err, service.ErrNoDriverAvailable):
		return http.StatusServiceUnavailable, CodeNoDriverAvailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// currentRider returns the authenticated rider or aborts with 401.
func currentRider(c *gin.Context) (string, bool) {
	riderID, ok := riderFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthenticated", Code: CodeUnauthorized})
	}
	return riderID, ok
}
