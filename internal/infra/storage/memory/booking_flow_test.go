package memory

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/failures"
	bookinghandlers "staybook/internal/app/handlers/booking"
	"staybook/internal/app/middleware"
	"staybook/internal/app/policies"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainpricing "staybook/internal/domain/pricing"
	domainrange "staybook/internal/domain/shared/daterange"
	infraoutbox "staybook/internal/infra/outbox"
)

type sequenceCodes struct {
	n atomic.Int64
}

func (s *sequenceCodes) NewCode() (string, error) {
	return fmt.Sprintf("BK%06d", s.n.Add(1)), nil
}

type bookingStack struct {
	bus     commands.Bus
	factory Factory
	outbox  *Outbox
}

func newBookingStack(t *testing.T) bookingStack {
	t.Helper()
	box := NewOutbox(infraoutbox.NewSignal())
	factory := Factory{Store: NewStore(), Outbox: box}
	seedListing(t, factory, "listing-1")

	base := commands.NewInMemoryBus()
	commands.RegisterHandler[bookinghandlers.CreateBookingCommand, *dto.CreateBookingResult](base, bookinghandlers.CreateBookingCommand{}.Key(), &bookinghandlers.CreateBookingHandler{
		Pricing: policies.NewTieredPricing(domainpricing.DefaultFeePolicy()),
		Codes:   &sequenceCodes{},
		Outbox:  box,
		Now:     func() time.Time { return seedNow },
	})
	bus := middleware.ChainCommands(base,
		middleware.Idempotency(NewIdempotencyStore(time.Hour), nil, time.Hour, nil),
		middleware.OutboxFlush(box, nil),
		middleware.Transaction(factory, nil, middleware.RetryPolicy{Backoff: []time.Duration{time.Millisecond, 2 * time.Millisecond}}),
	)
	return bookingStack{bus: bus, factory: factory, outbox: box}
}

func january(day int) time.Time {
	return time.Date(2025, time.January, day, 0, 0, 0, 0, time.UTC)
}

func TestConcurrentOverlappingBookingsOnlyOneWins(t *testing.T) {
	stack := newBookingStack(t)
	const attempts = 16

	var wins atomic.Int64
	var conflicts atomic.Int64
	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		guest := fmt.Sprintf("guest-%d", i)
		// Every request overlaps Jan 12-14, so at most one may be accepted.
		checkIn := january(10 + i%3)
		g.Go(func() error {
			_, err := commands.Dispatch[bookinghandlers.CreateBookingCommand, *dto.CreateBookingResult](context.Background(), stack.bus, bookinghandlers.CreateBookingCommand{
				ListingID: "listing-1",
				GuestID:   guest,
				CheckIn:   checkIn,
				CheckOut:  january(15),
				Guests:    2,
			})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, domainavailability.ErrDatesUnavailable):
				conflicts.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wins.Load() != 1 || conflicts.Load() != attempts-1 {
		t.Fatalf("expected 1 win and %d conflicts, got %d and %d", attempts-1, wins.Load(), conflicts.Load())
	}

	unit, _ := stack.factory.Begin(context.Background(), uow.TxOptions{ReadOnly: true})
	defer unit.Rollback(context.Background())
	held, err := unit.Booking().ListBlockingOverlapping(context.Background(), "listing-1", stayRange(t, january(1), january(31)))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(held) != 1 {
		t.Fatalf("expected one stored booking, got %d", len(held))
	}
	if pending := stack.outbox.Pending(); len(pending) != 1 || pending[0].Name != "booking.created" {
		t.Fatalf("expected exactly one booking.created event, got %+v", pending)
	}
}

func TestAdjacentBookingsBothSucceed(t *testing.T) {
	stack := newBookingStack(t)
	ctx := context.Background()
	stays := [][2]time.Time{{january(10), january(15)}, {january(15), january(18)}, {january(5), january(10)}}
	for _, stay := range stays {
		_, err := commands.Dispatch[bookinghandlers.CreateBookingCommand, *dto.CreateBookingResult](ctx, stack.bus, bookinghandlers.CreateBookingCommand{
			ListingID: "listing-1", GuestID: "guest-1", CheckIn: stay[0], CheckOut: stay[1], Guests: 1,
		})
		if err != nil {
			t.Fatalf("stay %v-%v: %v", stay[0], stay[1], err)
		}
	}
}

func TestIdempotentCreateReplaysResult(t *testing.T) {
	stack := newBookingStack(t)
	ctx := context.Background()
	cmd := bookinghandlers.CreateBookingCommand{
		ListingID: "listing-1", GuestID: "guest-1", CheckIn: january(10), CheckOut: january(20), Guests: 2,
		IdempotencyKeyV: "key-1",
	}
	first, err := commands.Dispatch[bookinghandlers.CreateBookingCommand, *dto.CreateBookingResult](ctx, stack.bus, cmd)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := commands.Dispatch[bookinghandlers.CreateBookingCommand, *dto.CreateBookingResult](ctx, stack.bus, cmd)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if first.ID != second.ID || first.ConfirmationCode != second.ConfirmationCode {
		t.Fatalf("replay returned a different booking: %+v vs %+v", first, second)
	}
	if n := len(stack.outbox.Pending()); n != 1 {
		t.Fatalf("replay must not emit events, got %d", n)
	}

	cmd.IdempotencyKeyV = ""
	if _, err := commands.Dispatch[bookinghandlers.CreateBookingCommand, *dto.CreateBookingResult](ctx, stack.bus, cmd); !errors.Is(err, domainavailability.ErrDatesUnavailable) {
		t.Fatalf("expected a fresh attempt to conflict, got %v", err)
	}
}

func TestIdempotencyKeyIsScopedToGuestAndRequest(t *testing.T) {
	stack := newBookingStack(t)
	ctx := context.Background()
	first, err := commands.Dispatch[bookinghandlers.CreateBookingCommand, *dto.CreateBookingResult](ctx, stack.bus, bookinghandlers.CreateBookingCommand{
		ListingID: "listing-1", GuestID: "guest-a", CheckIn: january(10), CheckOut: january(14), Guests: 1,
		IdempotencyKeyV: "k1",
	})
	if err != nil {
		t.Fatalf("guest-a: %v", err)
	}

	other, err := commands.Dispatch[bookinghandlers.CreateBookingCommand, *dto.CreateBookingResult](ctx, stack.bus, bookinghandlers.CreateBookingCommand{
		ListingID: "listing-1", GuestID: "guest-b", CheckIn: january(20), CheckOut: january(24), Guests: 1,
		IdempotencyKeyV: "k1",
	})
	if err != nil {
		t.Fatalf("guest-b: %v", err)
	}
	if other.ID == first.ID || other.ConfirmationCode == first.ConfirmationCode {
		t.Fatalf("guest-b received guest-a's booking %+v", other)
	}

	_, err = commands.Dispatch[bookinghandlers.CreateBookingCommand, *dto.CreateBookingResult](ctx, stack.bus, bookinghandlers.CreateBookingCommand{
		ListingID: "listing-1", GuestID: "guest-a", CheckIn: january(26), CheckOut: january(29), Guests: 1,
		IdempotencyKeyV: "k1",
	})
	if !errors.Is(err, middleware.ErrIdempotencyKeyReused) {
		t.Fatalf("expected key reuse error for changed dates, got %v", err)
	}
	if n := len(stack.outbox.Pending()); n != 2 {
		t.Fatalf("expected two bookings worth of events, got %d", n)
	}
}

func TestCreateRejectsStaleClientTotal(t *testing.T) {
	stack := newBookingStack(t)
	stale := 999.0
	_, err := commands.Dispatch[bookinghandlers.CreateBookingCommand, *dto.CreateBookingResult](context.Background(), stack.bus, bookinghandlers.CreateBookingCommand{
		ListingID: "listing-1", GuestID: "guest-1", CheckIn: january(10), CheckOut: january(20), Guests: 2,
		ExpectedTotal: &stale,
	})
	if !errors.Is(err, failures.ErrPriceChanged) {
		t.Fatalf("expected ErrPriceChanged, got %v", err)
	}
	if n := len(stack.outbox.Pending()); n != 0 {
		t.Fatalf("failed create emitted %d events", n)
	}
}

func stayRange(t *testing.T, in, out time.Time) domainrange.DateRange {
	t.Helper()
	dr, err := domainrange.New(in, out)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	return dr
}
