package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

type fakeListings map[listings.ListingID]*listings.Listing

func (f fakeListings) ByID(_ context.Context, id listings.ListingID) (*listings.Listing, error) {
	l, ok := f[id]
	if !ok {
		return nil, listings.ErrNotFound
	}
	return l, nil
}

type fakeBookings struct {
	items []*booking.Booking
	err   error
}

// ListBlockingOverlapping returns everything for the listing so the checker's own
// filtering is what the tests observe.
func (f fakeBookings) ListBlockingOverlapping(_ context.Context, id listings.ListingID, _ daterange.DateRange) ([]*booking.Booking, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*booking.Booking
	for _, b := range f.items {
		if b.ListingID == id {
			out = append(out, b)
		}
	}
	return out, nil
}

func jan(dayOfMonth int) time.Time {
	return time.Date(2025, 1, dayOfMonth, 0, 0, 0, 0, time.UTC)
}

func stay(t *testing.T, from, to int) daterange.DateRange {
	t.Helper()
	dr, err := daterange.New(jan(from), jan(to))
	if err != nil {
		t.Fatalf("range %d-%d: %v", from, to, err)
	}
	return dr
}

func activeListing(t *testing.T, id listings.ListingID, minNights int) *listings.Listing {
	t.Helper()
	nightly := money.Must(10000, "USD")
	l, err := listings.NewListing(listings.CreateListingParams{
		ID:        id,
		Host:      "host-1",
		Title:     "Cabin",
		Currency:  "USD",
		MinNights: minNights,
		Rates:     listings.Rates{Nightly: &nightly},
		Now:       jan(1),
	})
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if err := l.Activate(jan(1)); err != nil {
		t.Fatalf("activate: %v", err)
	}
	return l
}

func existing(listingID listings.ListingID, dr daterange.DateRange, status booking.Status) *booking.Booking {
	return &booking.Booking{ID: booking.BookingID("bk-" + dr.CheckIn.Format("0102")), ListingID: listingID, Range: dr, Status: status}
}

func TestCheckScenarios(t *testing.T) {
	listing := activeListing(t, "L1", 3)
	draft := activeListing(t, "L2", 1)
	draft.State = listings.ListingDraft

	checker := NewChecker(
		fakeListings{"L1": listing, "L2": draft},
		fakeBookings{items: []*booking.Booking{
			existing("L1", stay(t, 10, 15), booking.StatusConfirmed),
			existing("L1", stay(t, 20, 25), booking.StatusCancelled),
		}},
	)

	cases := []struct {
		name      string
		listingID listings.ListingID
		dr        daterange.DateRange
		available bool
		reason    error
		nights    int
	}{
		{"free window", "L1", stay(t, 1, 5), true, nil, 4},
		{"overlaps confirmed stay", "L1", stay(t, 12, 17), false, ErrDatesUnavailable, 5},
		{"contained in confirmed stay", "L1", stay(t, 11, 14), false, ErrDatesUnavailable, 3},
		{"check-in on previous checkout", "L1", stay(t, 15, 18), true, nil, 3},
		{"checkout on next check-in", "L1", stay(t, 5, 10), true, nil, 5},
		{"cancelled stays never block", "L1", stay(t, 20, 25), true, nil, 5},
		{"short stay", "L1", stay(t, 1, 3), false, MinimumStayError{MinNights: 3}, 2},
		{"unknown listing", "missing", stay(t, 1, 5), false, ErrListingUnavailable, 4},
		{"inactive listing", "L2", stay(t, 1, 5), false, ErrListingUnavailable, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := checker.Check(context.Background(), tc.listingID, tc.dr)
			if err != nil {
				t.Fatalf("check: %v", err)
			}
			if got.Available != tc.available {
				t.Fatalf("available = %v, want %v (reason %v)", got.Available, tc.available, got.Reason)
			}
			if got.Nights != tc.nights {
				t.Fatalf("nights = %d, want %d", got.Nights, tc.nights)
			}
			if !errors.Is(got.Reason, tc.reason) {
				t.Fatalf("reason = %v, want %v", got.Reason, tc.reason)
			}
		})
	}
}

func TestMinimumStayMessageNamesMinimum(t *testing.T) {
	if got := (MinimumStayError{MinNights: 3}).Error(); got != "Minimum stay is 3 nights" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestCheckRejectsInvertedRange(t *testing.T) {
	checker := NewChecker(fakeListings{}, fakeBookings{})
	_, err := checker.Check(context.Background(), "L1", daterange.DateRange{CheckIn: jan(10), CheckOut: jan(10)})
	if !errors.Is(err, daterange.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestCheckPropagatesLookupFailure(t *testing.T) {
	boom := errors.New("connection reset")
	checker := NewChecker(fakeListings{"L1": activeListing(t, "L1", 1)}, fakeBookings{err: boom})
	if _, err := checker.Check(context.Background(), "L1", stay(t, 1, 4)); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped lookup error, got %v", err)
	}
}

func TestBuildCalendarClipsAndOrders(t *testing.T) {
	window := stay(t, 10, 20)
	cal := BuildCalendar("L1", window, []*booking.Booking{
		existing("L1", stay(t, 18, 25), booking.StatusConfirmed),
		existing("L1", stay(t, 5, 12), booking.StatusPending),
		existing("L1", stay(t, 12, 14), booking.StatusConfirmed),
		existing("L1", stay(t, 14, 16), booking.StatusCancelled),
		existing("L9", stay(t, 14, 16), booking.StatusConfirmed),
	})
	if len(cal.Blocked) != 3 {
		t.Fatalf("expected 3 blocked ranges, got %d", len(cal.Blocked))
	}
	if !cal.Blocked[0].Range.CheckIn.Equal(jan(10)) || !cal.Blocked[2].Range.CheckOut.Equal(jan(20)) {
		t.Fatalf("ranges not clipped to the window: %+v", cal.Blocked)
	}
	occupied := cal.Occupied()
	if len(occupied) != 2 {
		t.Fatalf("expected touching ranges to merge into 2 spans, got %+v", occupied)
	}
	if !cal.IsFree(stay(t, 14, 18)) {
		t.Fatalf("gap between stays should be free")
	}
	if cal.IsFree(stay(t, 13, 15)) {
		t.Fatalf("overlapping range reported free")
	}
}
