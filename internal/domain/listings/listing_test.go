package listings

import (
	"errors"
	"testing"
	"time"

	"staybook/internal/domain/shared/money"
)

func price(cents int64) *money.Money {
	m := money.Must(cents, "USD")
	return &m
}

func TestNewListingDefaults(t *testing.T) {
	l, err := NewListing(CreateListingParams{
		ID:       "L1",
		Host:     "H1",
		Title:    "  Studio  ",
		Currency: "usd",
		Rates:    Rates{Weekly: price(60000)},
	})
	if err != nil {
		t.Fatalf("new listing: %v", err)
	}
	if l.MinNights != 1 {
		t.Fatalf("min nights default = %d, want 1", l.MinNights)
	}
	if l.Rates.CleaningFee.Currency != "USD" || l.Rates.CleaningFee.Amount != 0 {
		t.Fatalf("cleaning fee default = %+v", l.Rates.CleaningFee)
	}
	if l.IsActive() {
		t.Fatalf("new listings start as drafts")
	}
	if l.Title != "Studio" {
		t.Fatalf("title not trimmed: %q", l.Title)
	}
}

func TestNewListingValidation(t *testing.T) {
	cases := []struct {
		name   string
		params CreateListingParams
		want   error
	}{
		{"no rates", CreateListingParams{ID: "L", Host: "H", Title: "T", Currency: "USD"}, ErrRateRequired},
		{"negative min nights", CreateListingParams{ID: "L", Host: "H", Title: "T", Currency: "USD", MinNights: -2, Rates: Rates{Nightly: price(100)}}, ErrMinNights},
		{"zero price", CreateListingParams{ID: "L", Host: "H", Title: "T", Currency: "USD", Rates: Rates{Nightly: price(0)}}, ErrNegativeRate},
		{"mixed currency", CreateListingParams{ID: "L", Host: "H", Title: "T", Currency: "EUR", Rates: Rates{Nightly: price(100)}}, ErrCurrencyUnknown},
		{"missing host", CreateListingParams{ID: "L", Title: "T", Currency: "USD", Rates: Rates{Nightly: price(100)}}, ErrHostRequired},
		{"price above cap", CreateListingParams{ID: "L", Host: "H", Title: "T", Currency: "USD", Rates: Rates{Nightly: price(MaxRateAmount + 1)}}, ErrRateTooHigh},
		{"cleaning fee above cap", CreateListingParams{ID: "L", Host: "H", Title: "T", Currency: "USD", Rates: Rates{Nightly: price(100), CleaningFee: money.Must(MaxRateAmount+1, "USD")}}, ErrRateTooHigh},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewListing(tc.params); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestActivateAndSuspend(t *testing.T) {
	l, err := NewListing(CreateListingParams{ID: "L", Host: "H", Title: "T", Currency: "USD", Rates: Rates{Nightly: price(100)}})
	if err != nil {
		t.Fatalf("new listing: %v", err)
	}
	if err := l.Suspend(time.Now(), "x"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("suspending a draft: expected ErrInvalidState, got %v", err)
	}
	if err := l.Activate(time.Now()); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !l.IsActive() {
		t.Fatalf("listing should be active")
	}
	if err := l.Suspend(time.Now(), "maintenance"); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if l.IsActive() || l.State != ListingStateSuspended {
		t.Fatalf("suspended listing reported state %s", l.State)
	}
	names := []string{}
	for _, ev := range l.PendingEvents() {
		names = append(names, ev.EventName())
	}
	if len(names) != 3 || names[0] != "listing.created" || names[2] != "listing.suspended" {
		t.Fatalf("unexpected events %v", names)
	}
}

func TestCloneDoesNotShareRates(t *testing.T) {
	l, err := NewListing(CreateListingParams{ID: "L", Host: "H", Title: "T", Currency: "USD", Rates: Rates{Nightly: price(100)}})
	if err != nil {
		t.Fatalf("new listing: %v", err)
	}
	clone := l.Clone()
	clone.Rates.Nightly.Amount = 999
	if l.Rates.Nightly.Amount != 100 {
		t.Fatalf("clone shares nightly price with original")
	}
	if len(clone.PendingEvents()) != 0 {
		t.Fatalf("clone must not carry pending events")
	}
}

func TestAllowsGuests(t *testing.T) {
	l := &Listing{GuestsLimit: 0}
	if !l.AllowsGuests(50) {
		t.Fatalf("zero limit means unlimited")
	}
	l.GuestsLimit = 4
	if !l.AllowsGuests(4) || l.AllowsGuests(5) {
		t.Fatalf("limit of 4 not enforced")
	}
}
