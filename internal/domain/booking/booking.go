package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"staybook/internal/domain/listings"
	"staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/events"
)

var (
	ErrInvalidGuests           = errors.New("booking: guests count must be positive")
	ErrGuestRequired           = errors.New("booking: guest id required")
	ErrInvalidState            = errors.New("booking: invalid state transition")
	ErrBookingNotFound         = errors.New("booking: not found")
	ErrInvalidConfirmationCode = errors.New("booking: confirmation code must be 8 characters from A-Z and 0-9")
	ErrStayNotFinished         = errors.New("booking: stay has not ended yet")
	ErrInvalidTotal            = errors.New("booking: total must be positive")
)

type BookingID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Blocking reports whether a booking in this status occupies its dates.
func (s Status) Blocking() bool {
	return s == StatusPending || s == StatusConfirmed
}

// BlockingStatuses lists the statuses repositories filter on for overlap queries.
func BlockingStatuses() []Status {
	return []Status{StatusPending, StatusConfirmed}
}

func ParseStatus(raw string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusPending:
		return StatusPending, true
	case StatusConfirmed:
		return StatusConfirmed, true
	case StatusCancelled:
		return StatusCancelled, true
	case StatusCompleted:
		return StatusCompleted, true
	}
	return "", false
}

type Booking struct {
	ID               BookingID
	ListingID        listings.ListingID
	HostID           listings.HostID
	GuestID          string
	Range            daterange.DateRange
	Guests           int
	Price            pricing.PriceBreakdown
	Status           Status
	ConfirmationCode string
	SpecialRequests  string
	PaymentMethod    string
	CancelReason     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Version          int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	ListByGuest(ctx context.Context, guestID string) ([]*Booking, error)
	// ListBlockingOverlapping returns pending and confirmed bookings of the listing
	// whose range overlaps dr.
	ListBlockingOverlapping(ctx context.Context, listingID listings.ListingID, dr daterange.DateRange) ([]*Booking, error)
	// ListConfirmedEndedBefore returns confirmed bookings whose checkout is not after cutoff.
	ListConfirmedEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*Booking, error)
}

type CreateParams struct {
	ID               BookingID
	ListingID        listings.ListingID
	HostID           listings.HostID
	GuestID          string
	Range            daterange.DateRange
	Guests           int
	Price            pricing.PriceBreakdown
	ConfirmationCode string
	SpecialRequests  string
	PaymentMethod    string
	CreatedAt        time.Time
}

// NewBooking creates a confirmed booking. Availability must be checked by the caller
// inside the same unit of work.
func NewBooking(params CreateParams) (*Booking, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("booking: id required")
	}
	if strings.TrimSpace(params.GuestID) == "" {
		return nil, ErrGuestRequired
	}
	if params.Guests <= 0 {
		return nil, ErrInvalidGuests
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if !ValidConfirmationCode(params.ConfirmationCode) {
		return nil, ErrInvalidConfirmationCode
	}
	if params.Price.Total.Amount <= 0 {
		return nil, ErrInvalidTotal
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:               params.ID,
		ListingID:        params.ListingID,
		HostID:           params.HostID,
		GuestID:          params.GuestID,
		Range:            params.Range,
		Guests:           params.Guests,
		Price:            params.Price,
		Status:           StatusConfirmed,
		ConfirmationCode: params.ConfirmationCode,
		SpecialRequests:  strings.TrimSpace(params.SpecialRequests),
		PaymentMethod:    strings.TrimSpace(params.PaymentMethod),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	b.Record(BookingCreated{
		BookingID:        b.ID,
		ListingID:        b.ListingID,
		GuestID:          b.GuestID,
		CheckIn:          b.Range.CheckIn,
		CheckOut:         b.Range.CheckOut,
		Guests:           b.Guests,
		TotalCents:       b.Price.Total.Amount,
		Currency:         b.Price.Total.Currency,
		ConfirmationCode: b.ConfirmationCode,
		At:               now,
	})
	return b, nil
}

// Cancel releases the dates. Cancelling an already cancelled booking is a no-op.
func (b *Booking) Cancel(reason string, now time.Time) error {
	switch b.Status {
	case StatusCancelled:
		return nil
	case StatusPending, StatusConfirmed:
	default:
		return ErrInvalidState
	}
	b.Status = StatusCancelled
	b.CancelReason = strings.TrimSpace(reason)
	b.UpdatedAt = now.UTC()
	b.Record(BookingCancelled{BookingID: b.ID, ListingID: b.ListingID, Reason: b.CancelReason, At: b.UpdatedAt})
	return nil
}

// Complete marks a confirmed stay as finished once its checkout has passed.
func (b *Booking) Complete(now time.Time) error {
	switch b.Status {
	case StatusCompleted:
		return nil
	case StatusConfirmed:
	default:
		return ErrInvalidState
	}
	if now.Before(b.Range.CheckOut) {
		return ErrStayNotFinished
	}
	b.Status = StatusCompleted
	b.UpdatedAt = now.UTC()
	b.Record(BookingCompleted{BookingID: b.ID, ListingID: b.ListingID, At: b.UpdatedAt})
	return nil
}

// VisibleTo reports whether the principal is the guest or the listing host.
func (b *Booking) VisibleTo(principalID string) bool {
	if principalID == "" {
		return false
	}
	return b.GuestID == principalID || string(b.HostID) == principalID
}

func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	return &Booking{
		ID:               b.ID,
		ListingID:        b.ListingID,
		HostID:           b.HostID,
		GuestID:          b.GuestID,
		Range:            b.Range,
		Guests:           b.Guests,
		Price:            b.Price,
		Status:           b.Status,
		ConfirmationCode: b.ConfirmationCode,
		SpecialRequests:  b.SpecialRequests,
		PaymentMethod:    b.PaymentMethod,
		CancelReason:     b.CancelReason,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
		Version:          b.Version,
	}
}
