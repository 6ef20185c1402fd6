package pricing

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/money"
)

func usd(cents int64) *money.Money {
	m := money.Must(cents, "USD")
	return &m
}

func tieredListing(t *testing.T) *listings.Listing {
	t.Helper()
	listing, err := listings.NewListing(listings.CreateListingParams{
		ID:        "listing-1",
		Host:      "host-1",
		Title:     "Loft",
		Currency:  "USD",
		MinNights: 1,
		Rates: listings.Rates{
			Nightly:     usd(10000),
			Weekly:      usd(60000),
			Monthly:     usd(200000),
			CleaningFee: money.Must(5000, "USD"),
		},
		Now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("new listing: %v", err)
	}
	return listing
}

func TestCalculateWeeklyTierScenario(t *testing.T) {
	got, err := Calculate(tieredListing(t), 10, DefaultFeePolicy())
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if got.Tier != TierWeekly {
		t.Fatalf("expected weekly tier, got %s", got.Tier)
	}
	want := map[string]int64{
		"nightly":  8571,
		"subtotal": 85714,
		"cleaning": 5000,
		"service":  10286,
		"total":    101000,
	}
	actual := map[string]int64{
		"nightly":  got.NightlyRate.Amount,
		"subtotal": got.Subtotal.Amount,
		"cleaning": got.CleaningFee.Amount,
		"service":  got.ServiceFee.Amount,
		"total":    got.Total.Amount,
	}
	if !reflect.DeepEqual(want, actual) {
		t.Fatalf("breakdown mismatch\nwant %v\ngot  %v", want, actual)
	}
}

func TestCalculateTierBoundaries(t *testing.T) {
	full := tieredListing(t)

	nightlyOnly := tieredListing(t)
	nightlyOnly.Rates.Weekly = nil
	nightlyOnly.Rates.Monthly = nil

	noMonthly := tieredListing(t)
	noMonthly.Rates.Monthly = nil

	cases := []struct {
		name    string
		listing *listings.Listing
		nights  int
		want    Tier
	}{
		{"six nights nightly", full, 6, TierNightly},
		{"seven nights weekly", full, 7, TierWeekly},
		{"27 nights never monthly", full, 27, TierWeekly},
		{"28 nights monthly", full, 28, TierMonthly},
		{"28 nights without monthly falls to weekly", noMonthly, 28, TierWeekly},
		{"long stay nightly only", nightlyOnly, 40, TierNightly},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Calculate(tc.listing, tc.nights, DefaultFeePolicy())
			if err != nil {
				t.Fatalf("calculate: %v", err)
			}
			if got.Tier != tc.want {
				t.Fatalf("tier = %s, want %s", got.Tier, tc.want)
			}
		})
	}
}

func TestCalculateMonthlyRate(t *testing.T) {
	got, err := Calculate(tieredListing(t), 30, DefaultFeePolicy())
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if got.NightlyRate.Amount != 6667 {
		t.Fatalf("monthly nightly rate = %d, want 6667", got.NightlyRate.Amount)
	}
	if got.Subtotal.Amount != 200000 {
		t.Fatalf("30 monthly nights subtotal = %d, want 200000", got.Subtotal.Amount)
	}
	if got.ServiceFee.Amount != 24000 {
		t.Fatalf("service fee = %d, want 24000", got.ServiceFee.Amount)
	}
}

func TestCalculateNoApplicableRate(t *testing.T) {
	listing := tieredListing(t)
	listing.Rates.Nightly = nil
	listing.Rates.Monthly = nil
	if _, err := Calculate(listing, 3, DefaultFeePolicy()); !errors.Is(err, ErrNoApplicableRate) {
		t.Fatalf("expected ErrNoApplicableRate, got %v", err)
	}
}

func TestCalculateRejectsNonPositiveNights(t *testing.T) {
	for _, nights := range []int{0, -3} {
		if _, err := Calculate(tieredListing(t), nights, DefaultFeePolicy()); !errors.Is(err, ErrInvalidNights) {
			t.Fatalf("nights %d: expected ErrInvalidNights, got %v", nights, err)
		}
	}
}

func TestCalculateTotalIsSumOfParts(t *testing.T) {
	listing := tieredListing(t)
	policy, err := NewFeePolicy(1250)
	if err != nil {
		t.Fatalf("fee policy: %v", err)
	}
	for nights := 1; nights <= 60; nights++ {
		got, err := Calculate(listing, nights, policy)
		if err != nil {
			t.Fatalf("nights %d: %v", nights, err)
		}
		sum := got.Subtotal.Amount + got.CleaningFee.Amount + got.ServiceFee.Amount
		if sum != got.Total.Amount {
			t.Fatalf("nights %d: total %d != parts %d", nights, got.Total.Amount, sum)
		}
	}
}

func TestCalculateIsDeterministic(t *testing.T) {
	listing := tieredListing(t)
	first, err := Calculate(listing, 12, DefaultFeePolicy())
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	second, err := Calculate(listing, 12, DefaultFeePolicy())
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated calculation differs: %+v vs %+v", first, second)
	}
}

func TestNewFeePolicyBounds(t *testing.T) {
	if _, err := NewFeePolicy(-1); !errors.Is(err, ErrInvalidFeePolicy) {
		t.Fatalf("expected ErrInvalidFeePolicy for negative, got %v", err)
	}
	if _, err := NewFeePolicy(10_001); !errors.Is(err, ErrInvalidFeePolicy) {
		t.Fatalf("expected ErrInvalidFeePolicy above 100%%, got %v", err)
	}
}

func TestCalculateLargeAmountsStayExact(t *testing.T) {
	// price*nights*bps exceeds int64 here even though every result fits.
	listing := &listings.Listing{
		Currency: "USD",
		Rates:    listings.Rates{Nightly: usd(100_000_000_000_000), CleaningFee: money.Must(0, "USD")},
	}
	got, err := Calculate(listing, 100, DefaultFeePolicy())
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if got.Subtotal.Amount != 10_000_000_000_000_000 {
		t.Fatalf("subtotal = %d", got.Subtotal.Amount)
	}
	if got.ServiceFee.Amount != 1_200_000_000_000_000 {
		t.Fatalf("service fee = %d, want 12%% of the subtotal", got.ServiceFee.Amount)
	}
	if got.Total.Amount != got.Subtotal.Amount+got.ServiceFee.Amount {
		t.Fatalf("total %d is not the sum of its parts", got.Total.Amount)
	}
}

func TestCalculateReportsOverflow(t *testing.T) {
	listing := &listings.Listing{
		Currency: "USD",
		Rates:    listings.Rates{Nightly: usd(math.MaxInt64 / 2), CleaningFee: money.Must(0, "USD")},
	}
	if _, err := Calculate(listing, 3, DefaultFeePolicy()); !errors.Is(err, money.ErrOverflow) {
		t.Fatalf("expected money.ErrOverflow, got %v", err)
	}
}

func TestCalculateRejectsOverlongStay(t *testing.T) {
	if _, err := Calculate(tieredListing(t), MaxStayNights+1, DefaultFeePolicy()); !errors.Is(err, ErrStayTooLong) {
		t.Fatalf("expected ErrStayTooLong, got %v", err)
	}
	if _, err := Calculate(tieredListing(t), MaxStayNights, DefaultFeePolicy()); err != nil {
		t.Fatalf("longest allowed stay: %v", err)
	}
}
