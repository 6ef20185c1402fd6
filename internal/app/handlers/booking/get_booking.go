package booking

import (
	"context"
	"errors"
	"log/slog"

	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/policies"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
)

const getBookingKey = "booking.get"

type GetBookingQuery struct {
	BookingID   string `validate:"required"`
	PrincipalID string `validate:"required"`
}

func (q GetBookingQuery) Key() string { return getBookingKey }

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.BookingDetail, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingDetail{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	booking, err := unit.Booking().ByID(execCtx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return dto.BookingDetail{}, err
	}
	if !booking.VisibleTo(q.PrincipalID) {
		return dto.BookingDetail{}, policies.ErrForbidden
	}
	listing, err := unit.Listings().ByID(execCtx, booking.ListingID)
	if err != nil {
		if !errors.Is(err, domainlistings.ErrNotFound) {
			return dto.BookingDetail{}, err
		}
		if h.Logger != nil {
			h.Logger.Warn("listing missing for booking", "booking_id", booking.ID, "listing_id", booking.ListingID)
		}
	}
	return dto.MapBookingDetail(booking, listing), nil
}

var _ queries.Handler[GetBookingQuery, dto.BookingDetail] = (*GetBookingHandler)(nil)
