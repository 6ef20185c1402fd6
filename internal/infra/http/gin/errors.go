package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/failures"
	listingapp "staybook/internal/app/handlers/listings"
	"staybook/internal/app/middleware"
	"staybook/internal/app/policies"
	"staybook/internal/domain/availability"
	"staybook/internal/domain/booking"
	"staybook/internal/domain/listings"
	"staybook/internal/domain/pricing"
	"staybook/internal/infra/obs"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type httpError struct {
	status  int
	code    string
	message string
}

// classify maps an application error to its HTTP answer. Unknown errors yield ok=false.
func classify(err error) (httpError, bool) {
	var invalid *middleware.ValidationError
	var minStay availability.MinimumStayError
	switch {
	case errors.As(err, &invalid):
		return httpError{http.StatusBadRequest, "invalid_request", err.Error()}, true
	case errors.As(err, &minStay):
		return httpError{http.StatusBadRequest, "minimum_stay", minStay.Error()}, true
	case errors.Is(err, availability.ErrDatesUnavailable):
		return httpError{http.StatusBadRequest, "dates_unavailable", availability.ErrDatesUnavailable.Error()}, true
	case errors.Is(err, availability.ErrGuestsExceeded):
		return httpError{http.StatusBadRequest, "guests_exceeded", availability.ErrGuestsExceeded.Error()}, true
	case errors.Is(err, failures.ErrPriceChanged):
		return httpError{http.StatusBadRequest, "price_changed", failures.ErrPriceChanged.Error()}, true
	case errors.Is(err, pricing.ErrNoApplicableRate):
		return httpError{http.StatusUnprocessableEntity, "no_applicable_rate", err.Error()}, true
	case errors.Is(err, policies.ErrUnauthenticated):
		return httpError{http.StatusUnauthorized, "unauthenticated", "auth required"}, true
	case errors.Is(err, listingapp.ErrListingNotOwned):
		return httpError{http.StatusNotFound, "not_found", "Listing not found"}, true
	case errors.Is(err, policies.ErrForbidden):
		return httpError{http.StatusForbidden, "forbidden", "insufficient permissions"}, true
	case errors.Is(err, failures.ErrNotFound), errors.Is(err, listings.ErrNotFound):
		return httpError{http.StatusNotFound, "not_found", "Listing not found"}, true
	case errors.Is(err, booking.ErrBookingNotFound):
		return httpError{http.StatusNotFound, "not_found", "Booking not found"}, true
	case errors.Is(err, middleware.ErrIdempotencyKeyReused):
		return httpError{http.StatusConflict, "idempotency_key_reused", err.Error()}, true
	case errors.Is(err, booking.ErrInvalidState), errors.Is(err, listings.ErrInvalidState):
		return httpError{http.StatusConflict, "invalid_state", err.Error()}, true
	case errors.Is(err, middleware.ErrServiceUnavailable):
		return httpError{http.StatusServiceUnavailable, "unavailable", "Service temporarily unavailable"}, true
	case failures.IsExpected(err):
		return httpError{http.StatusBadRequest, "invalid_request", err.Error()}, true
	}
	return httpError{}, false
}

// writeError is the single place where application errors become HTTP responses.
// Unexpected errors are logged and answered with fallback.
func writeError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	_ = c.Error(err)
	if mapped, ok := classify(err); ok {
		c.JSON(mapped.status, errorResponse{Error: mapped.message, Code: mapped.code})
		return
	}
	if logger != nil {
		logger.Error("request failed",
			"route", c.FullPath(),
			"request_id", obs.RequestIDFromContext(c.Request.Context()),
			"error", err)
	}
	if fallback == "" {
		fallback = "internal error"
	}
	c.JSON(http.StatusInternalServerError, errorResponse{Error: fallback, Code: "internal"})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: message, Code: "invalid_request"})
}
