package availability

import (
	"context"
	"errors"
	"fmt"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
)

var (
	ErrListingUnavailable   = errors.New("Listing not available")
	ErrDatesUnavailable     = errors.New("Dates not available")
	ErrGuestsExceeded       = errors.New("Too many guests for this listing")
	ErrCheckerMisconfigured = errors.New("availability: listing lookup and booking query are required")
)

// MinimumStayError reports a stay shorter than the listing allows.
type MinimumStayError struct {
	MinNights int
}

func (e MinimumStayError) Error() string {
	if e.MinNights == 1 {
		return "Minimum stay is 1 night"
	}
	return fmt.Sprintf("Minimum stay is %d nights", e.MinNights)
}

type ListingLookup interface {
	ByID(ctx context.Context, id listings.ListingID) (*listings.Listing, error)
}

type BookingOverlapQuery interface {
	ListBlockingOverlapping(ctx context.Context, listingID listings.ListingID, dr daterange.DateRange) ([]*booking.Booking, error)
}

// Decision is the outcome of an availability check. Reason is set when Available is false.
type Decision struct {
	Available bool
	Nights    int
	Listing   *listings.Listing
	Reason    error
}

type Checker struct {
	Listings ListingLookup
	Bookings BookingOverlapQuery
}

func NewChecker(listingsLookup ListingLookup, bookings BookingOverlapQuery) *Checker {
	return &Checker{Listings: listingsLookup, Bookings: bookings}
}

// Check decides whether dr can be booked on the listing. Invalid ranges are returned
// as errors; business refusals come back as a Decision with a Reason.
func (c *Checker) Check(ctx context.Context, listingID listings.ListingID, dr daterange.DateRange) (Decision, error) {
	if c == nil || c.Listings == nil || c.Bookings == nil {
		return Decision{}, ErrCheckerMisconfigured
	}
	if err := dr.Validate(); err != nil {
		return Decision{}, err
	}
	nights := dr.Nights()

	listing, err := c.Listings.ByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, listings.ErrNotFound) {
			return Decision{Nights: nights, Reason: ErrListingUnavailable}, nil
		}
		return Decision{}, fmt.Errorf("availability: load listing: %w", err)
	}
	if !listing.IsActive() {
		return Decision{Nights: nights, Reason: ErrListingUnavailable}, nil
	}
	if nights < listing.MinNights {
		return Decision{Nights: nights, Listing: listing, Reason: MinimumStayError{MinNights: listing.MinNights}}, nil
	}

	candidates, err := c.Bookings.ListBlockingOverlapping(ctx, listingID, dr)
	if err != nil {
		return Decision{}, fmt.Errorf("availability: query bookings: %w", err)
	}
	if Conflicts(candidates, dr) {
		return Decision{Nights: nights, Listing: listing, Reason: ErrDatesUnavailable}, nil
	}
	return Decision{Available: true, Nights: nights, Listing: listing}, nil
}

// CheckGuests refuses groups larger than the listing accepts.
func CheckGuests(listing *listings.Listing, guests int) error {
	if listing != nil && !listing.AllowsGuests(guests) {
		return ErrGuestsExceeded
	}
	return nil
}

// Conflicts re-applies the overlap rule to whatever a store returned, so every
// backend decides conflicts the same way.
func Conflicts(bookings []*booking.Booking, dr daterange.DateRange) bool {
	for _, b := range bookings {
		if b == nil || !b.Status.Blocking() {
			continue
		}
		if b.Range.Overlaps(dr) {
			return true
		}
	}
	return false
}
