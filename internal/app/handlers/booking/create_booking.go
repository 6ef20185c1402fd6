package booking

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/failures"
	"staybook/internal/app/middleware"
	"staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	domainrange "staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

const createBookingKey = "booking.create"

type CreateBookingCommand struct {
	ListingID       string    `validate:"required"`
	GuestID         string    `validate:"required"`
	CheckIn         time.Time `validate:"required"`
	CheckOut        time.Time `validate:"required,gtfield=CheckIn"`
	Guests          int       `validate:"required,min=1"`
	SpecialRequests string    `validate:"max=2000"`
	PaymentMethod   string    `validate:"max=64"`
	// ExpectedTotal is the total the guest was shown, in major units.
	ExpectedTotal   *float64
	IdempotencyKeyV string
}

func (c CreateBookingCommand) Key() string { return createBookingKey }

// IdempotencyKey scopes the client key to the guest, so two guests choosing the
// same key never see each other's booking.
func (c CreateBookingCommand) IdempotencyKey() string {
	if c.IdempotencyKeyV == "" {
		return ""
	}
	return c.GuestID + ":" + c.IdempotencyKeyV
}

// RequestFingerprint covers every field that shapes the stored booking.
func (c CreateBookingCommand) RequestFingerprint() string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		c.ListingID,
		c.CheckIn.UTC().Format(time.DateOnly),
		c.CheckOut.UTC().Format(time.DateOnly),
		strconv.Itoa(c.Guests),
		c.SpecialRequests,
		c.PaymentMethod,
	}, "\x1f")))
	return hex.EncodeToString(sum[:])
}

func (c CreateBookingCommand) ResultPrototype() any { return &dto.CreateBookingResult{} }

// ConfirmationCodes issues human-facing booking references.
type ConfirmationCodes interface {
	NewCode() (string, error)
}

type CreateBookingHandler struct {
	UoWFactory uow.UoWFactory
	Pricing    policies.PricingPort
	Codes      ConfirmationCodes
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Now        func() time.Time
}


var ErrUnitOfWorkRequired = errors.New("booking: unit of work required")

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*dto.CreateBookingResult, error) {
	unit, ok := uow.FromContext(ctx)
	managed := false
	committed := false
	if !ok {
		if h.UoWFactory == nil {
			return nil, ErrUnitOfWorkRequired
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return nil, err
		}
		ctx = uow.Bind(ctx, unit)
		managed = true
	}
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	dr, err := domainrange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, err
	}
	now := h.now()
	if err := domainbooking.ValidateDateRange(dr, now); err != nil {
		return nil, err
	}
	listingID := domainlistings.ListingID(cmd.ListingID)

	// Everything below runs with the listing locked, so the overlap check and the
	// insert cannot interleave with another booking for the same listing.
	if err := unit.Guard().Lock(ctx, listingID); err != nil {
		return nil, err
	}
	checker := domainavailability.NewChecker(unit.Listings(), unit.Booking())
	decision, err := checker.Check(ctx, listingID, dr)
	if err != nil {
		return nil, err
	}
	if !decision.Available {
		if errors.Is(decision.Reason, domainavailability.ErrListingUnavailable) {
			return nil, failures.ErrNotFound
		}
		return nil, decision.Reason
	}
	listing := decision.Listing
	if err := domainavailability.CheckGuests(listing, cmd.Guests); err != nil {
		return nil, err
	}

	quote, err := h.Pricing.Quote(ctx, listing, decision.Nights)
	if err != nil {
		return nil, err
	}
	if cmd.ExpectedTotal != nil {
		expected, err := money.FromMajor(*cmd.ExpectedTotal, quote.Total.Currency)
		if err != nil {
			return nil, err
		}
		if !quote.Matches(expected) {
			return nil, failures.ErrPriceChanged
		}
	}

	code, err := h.Codes.NewCode()
	if err != nil {
		return nil, err
	}
	booking, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:               domainbooking.BookingID(uuid.NewString()),
		ListingID:        listing.ID,
		HostID:           listing.Host,
		GuestID:          cmd.GuestID,
		Range:            dr,
		Guests:           cmd.Guests,
		Price:            quote,
		ConfirmationCode: code,
		SpecialRequests:  cmd.SpecialRequests,
		PaymentMethod:    cmd.PaymentMethod,
		CreatedAt:        now,
	})
	if err != nil {
		return nil, err
	}

	if err := unit.Booking().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := outbox.RecordAggregates(ctx, h.Outbox, h.encoder(), booking); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	if h.Logger != nil {
		h.Logger.Info("booking created", "booking_id", booking.ID, "listing_id", listing.ID, "guest_id", cmd.GuestID, "nights", quote.Nights, "total_cents", quote.Total.Amount)
	}
	return &dto.CreateBookingResult{
		ID:               string(booking.ID),
		ConfirmationCode: booking.ConfirmationCode,
		Status:           string(booking.Status),
	}, nil
}

func (h *CreateBookingHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (h *CreateBookingHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

var _ commands.Handler[CreateBookingCommand, *dto.CreateBookingResult] = (*CreateBookingHandler)(nil)
var (
	_ middleware.IdempotentCommand    = (*CreateBookingCommand)(nil)
	_ middleware.FingerprintedCommand = (*CreateBookingCommand)(nil)
)
