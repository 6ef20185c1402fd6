package failures

import (
	"errors"

	"staybook/internal/app/middleware"
	"staybook/internal/app/policies"
	"staybook/internal/domain/availability"
	"staybook/internal/domain/booking"
	"staybook/internal/domain/listings"
	"staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

var (
	ErrPriceChanged      = errors.New("Price has changed, please review the new total")
	ErrNotFound          = errors.New("not found")
	ErrUnsupportedStatus = errors.New("status change not supported")
)

var expected = []error{
	ErrPriceChanged,
	ErrNotFound,
	ErrUnsupportedStatus,
	daterange.ErrInvalidRange,
	money.ErrInvalidCurrency,
	money.ErrCurrencyMismatch,
	money.ErrOverflow,
	availability.ErrListingUnavailable,
	availability.ErrDatesUnavailable,
	availability.ErrGuestsExceeded,
	pricing.ErrNoApplicableRate,
	pricing.ErrInvalidNights,
	pricing.ErrStayTooLong,
	booking.ErrInvalidGuests,
	booking.ErrGuestRequired,
	booking.ErrInvalidState,
	booking.ErrBookingNotFound,
	booking.ErrCheckInInPast,
	booking.ErrStayNotFinished,
	booking.ErrInvalidTotal,
	listings.ErrNotFound,
	listings.ErrIDRequired,
	listings.ErrHostRequired,
	listings.ErrTitleRequired,
	listings.ErrMinNights,
	listings.ErrGuestsLimit,
	listings.ErrRateRequired,
	listings.ErrNegativeRate,
	listings.ErrInvalidState,
	listings.ErrCurrencyUnknown,
	listings.ErrRateTooHigh,
	policies.ErrUnauthenticated,
	policies.ErrForbidden,
	middleware.ErrIdempotencyKeyReused,
}

// IsExpected reports whether err describes the request rather than a failing
// dependency. Expected errors are never retried and never trip circuit breakers.
func IsExpected(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range expected {
		if errors.Is(err, target) {
			return true
		}
	}
	var minStay availability.MinimumStayError
	if errors.As(err, &minStay) {
		return true
	}
	var invalid *middleware.ValidationError
	return errors.As(err, &invalid)
}
