package mongo

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/pricing"
	domainrange "staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

func TestTranslateMarksTransientErrors(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		transient bool
	}{
		{"labelled", mongo.CommandError{Code: 251, Labels: []string{"TransientTransactionError"}}, true},
		{"write conflict", fmt.Errorf("save: %w", mongo.CommandError{Code: writeConflictCode, Name: "WriteConflict"}), true},
		{"other server error", mongo.CommandError{Code: 2, Name: "BadValue"}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := errors.Is(translate(tc.err), uow.ErrTransientConflict)
			if got != tc.transient {
				t.Fatalf("transient = %v, want %v", got, tc.transient)
			}
		})
	}
	if translate(nil) != nil {
		t.Fatalf("nil must stay nil")
	}
	if !errors.Is(ErrConcurrentUpdate, uow.ErrTransientConflict) {
		t.Fatalf("concurrent update must be retryable")
	}
}

func TestListingDocumentRoundTrip(t *testing.T) {
	nightly := money.Must(10000, "USD")
	monthly := money.Must(200000, "USD")
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	listing := &domainlistings.Listing{
		ID:          "listing-1",
		Host:        "host-1",
		Title:       "Loft",
		Currency:    "USD",
		MinNights:   2,
		GuestsLimit: 4,
		Rates: domainlistings.Rates{
			Nightly:     &nightly,
			Monthly:     &monthly,
			CleaningFee: money.Must(5000, "USD"),
		},
		State:     domainlistings.ListingActive,
		Version:   3,
		CreatedAt: now,
		UpdatedAt: now,
	}
	got := newListingDocument(listing).toAggregate()
	if !reflect.DeepEqual(got, listing) {
		t.Fatalf("round trip mismatch\nwant %+v\ngot  %+v", listing, got)
	}
	if got.Rates.Weekly != nil {
		t.Fatalf("absent tier must stay nil")
	}
}

func TestBookingDocumentRoundTrip(t *testing.T) {
	in := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	dr, _ := domainrange.New(in, in.AddDate(0, 0, 10))
	usd := func(c int64) money.Money { return money.Must(c, "USD") }
	b := &domainbooking.Booking{
		ID:        "b-1",
		ListingID: "listing-1",
		HostID:    "host-1",
		GuestID:   "guest-1",
		Range:     dr,
		Guests:    2,
		Price: pricing.PriceBreakdown{
			Tier: pricing.TierWeekly, Nights: 10,
			NightlyRate: usd(8571), Subtotal: usd(85714), CleaningFee: usd(5000), ServiceFee: usd(10286), Total: usd(101000),
		},
		Status:           domainbooking.StatusConfirmed,
		ConfirmationCode: "ABCD1234",
		CreatedAt:        in.AddDate(0, 0, -5),
		UpdatedAt:        in.AddDate(0, 0, -5),
		Version:          1,
	}
	got := newBookingDocument(b).toAggregate()
	if !reflect.DeepEqual(got, b) {
		t.Fatalf("round trip mismatch\nwant %+v\ngot  %+v", b, got)
	}
}
