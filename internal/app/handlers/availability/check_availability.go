package availability

import (
	"context"
	"log/slog"
	"time"

	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/policies"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	domainrange "staybook/internal/domain/shared/daterange"
)

const checkAvailabilityKey = "availability.check"

type CheckAvailabilityQuery struct {
	ListingID string    `validate:"required"`
	CheckIn   time.Time `validate:"required"`
	CheckOut  time.Time `validate:"required,gtfield=CheckIn"`
	Guests    int       `validate:"required,min=1"`
}

func (q CheckAvailabilityQuery) Key() string { return checkAvailabilityKey }

type CheckAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
	// Listings overrides the unit's listing repository, typically with a cache.
	Listings domainavailability.ListingLookup
	Pricing  policies.PricingPort
	Logger   *slog.Logger
	Now      func() time.Time
}

func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (dto.AvailabilityResult, error) {
	dr, err := domainrange.New(q.CheckIn, q.CheckOut)
	if err != nil {
		return dto.AvailabilityResult{}, err
	}
	// Same rule as booking creation, so a quoted stay is one that can be booked.
	if err := domainbooking.ValidateDateRange(dr, h.now()); err != nil {
		return dto.AvailabilityResult{}, err
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.AvailabilityResult{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	var lookup domainavailability.ListingLookup = unit.Listings()
	if h.Listings != nil {
		lookup = h.Listings
	}
	checker := domainavailability.NewChecker(lookup, unit.Booking())
	decision, err := checker.Check(execCtx, domainlistings.ListingID(q.ListingID), dr)
	if err != nil {
		return dto.AvailabilityResult{}, err
	}
	if decision.Available {
		decision.Reason = domainavailability.CheckGuests(decision.Listing, q.Guests)
		decision.Available = decision.Reason == nil
	}
	if !decision.Available {
		if h.Logger != nil {
			h.Logger.Debug("stay not available", "listing_id", q.ListingID, "check_in", dr.CheckIn, "check_out", dr.CheckOut, "reason", decision.Reason)
		}
		return dto.AvailabilityResult{Available: false, Error: decision.Reason.Error()}, nil
	}

	quote, err := h.Pricing.Quote(execCtx, decision.Listing, decision.Nights)
	if err != nil {
		return dto.AvailabilityResult{}, err
	}
	pricing := dto.MapPriceBreakdown(quote)
	return dto.AvailabilityResult{
		Available: true,
		Nights:    decision.Nights,
		Pricing:   &pricing,
		Listing: &dto.ListingTerms{
			MinNights:   decision.Listing.MinNights,
			GuestsLimit: decision.Listing.GuestsLimit,
		},
	}, nil
}

func (h *CheckAvailabilityHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

var _ queries.Handler[CheckAvailabilityQuery, dto.AvailabilityResult] = (*CheckAvailabilityHandler)(nil)
