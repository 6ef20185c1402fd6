package availability

import (
	"context"
	"time"

	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainlistings "staybook/internal/domain/listings"
	domainrange "staybook/internal/domain/shared/daterange"
)

const (
	getCalendarKey        = "availability.calendar"
	defaultCalendarWindow = 60 * 24 * time.Hour
	maxCalendarWindow     = 366 * 24 * time.Hour
)

type GetCalendarQuery struct {
	ListingID   string `validate:"required"`
	From        time.Time
	To          time.Time
	PrincipalID string
}

func (q GetCalendarQuery) Key() string { return getCalendarKey }

type GetCalendarHandler struct {
	UoWFactory uow.UoWFactory
	Now        func() time.Time
}

func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (dto.Calendar, error) {
	window, err := h.window(q)
	if err != nil {
		return dto.Calendar{}, err
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Calendar{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	listingID := domainlistings.ListingID(q.ListingID)
	listing, err := unit.Listings().ByID(execCtx, listingID)
	if err != nil {
		return dto.Calendar{}, err
	}
	bookings, err := unit.Booking().ListBlockingOverlapping(execCtx, listingID, window)
	if err != nil {
		return dto.Calendar{}, err
	}
	calendar := domainavailability.BuildCalendar(listingID, window, bookings)
	isHost := q.PrincipalID != "" && string(listing.Host) == q.PrincipalID
	return dto.MapCalendar(calendar, isHost), nil
}

func (h *GetCalendarHandler) window(q GetCalendarQuery) (domainrange.DateRange, error) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	from := q.From
	if from.IsZero() {
		from = domainrange.StartOfDay(now())
	}
	to := q.To
	if to.IsZero() {
		to = from.Add(defaultCalendarWindow)
	}
	if to.Sub(from) > maxCalendarWindow {
		to = from.Add(maxCalendarWindow)
	}
	return domainrange.New(from, to)
}

var _ queries.Handler[GetCalendarQuery, dto.Calendar] = (*GetCalendarHandler)(nil)
