package pricing

import (
	"errors"

	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/money"
)

var (
	ErrNoApplicableRate = errors.New("pricing: no rate configured for this stay length")
	ErrInvalidNights    = errors.New("pricing: nights must be positive")
	ErrInvalidFeePolicy = errors.New("pricing: service fee must be between 0 and 100 percent")
	ErrListingRequired  = errors.New("pricing: listing is required")
	ErrStayTooLong      = errors.New("pricing: stays are limited to 730 nights")
)

const (
	MonthlyThresholdNights = 28
	WeeklyThresholdNights  = 7
	MaxStayNights          = 730

	monthlyDivisor = 30
	weeklyDivisor  = 7
	nightlyDivisor = 1

	basisPointsBase = 10_000

	// DefaultServiceFeeBasisPoints is 12% of the subtotal.
	DefaultServiceFeeBasisPoints = 1200
)

type Tier string

const (
	TierMonthly Tier = "monthly"
	TierWeekly  Tier = "weekly"
	TierNightly Tier = "nightly"
)

// FeePolicy is the single service-fee rule applied by every pricing call site.
type FeePolicy struct {
	ServiceFeeBasisPoints int64
}

func DefaultFeePolicy() FeePolicy {
	return FeePolicy{ServiceFeeBasisPoints: DefaultServiceFeeBasisPoints}
}

func NewFeePolicy(basisPoints int64) (FeePolicy, error) {
	if basisPoints < 0 || basisPoints > basisPointsBase {
		return FeePolicy{}, ErrInvalidFeePolicy
	}
	return FeePolicy{ServiceFeeBasisPoints: basisPoints}, nil
}

// PriceBreakdown is the quoted price of a stay. Every amount is rounded to the
// cent and Total is the exact sum of Subtotal, CleaningFee and ServiceFee.
type PriceBreakdown struct {
	Tier        Tier
	Nights      int
	NightlyRate money.Money
	Subtotal    money.Money
	CleaningFee money.Money
	ServiceFee  money.Money
	Total       money.Money
}

// Calculate prices a stay of the given length. It has no side effects.
func Calculate(listing *listings.Listing, nights int, policy FeePolicy) (PriceBreakdown, error) {
	if listing == nil {
		return PriceBreakdown{}, ErrListingRequired
	}
	if nights <= 0 {
		return PriceBreakdown{}, ErrInvalidNights
	}
	if nights > MaxStayNights {
		return PriceBreakdown{}, ErrStayTooLong
	}
	if policy.ServiceFeeBasisPoints < 0 || policy.ServiceFeeBasisPoints > basisPointsBase {
		return PriceBreakdown{}, ErrInvalidFeePolicy
	}
	tier, price, divisor, err := selectRate(listing.Rates, nights)
	if err != nil {
		return PriceBreakdown{}, err
	}

	// All amounts derive from price*nights/divisor without intermediate rounding.
	n := int64(nights)
	nightly, err := price.MulDiv(1, divisor)
	if err != nil {
		return PriceBreakdown{}, err
	}
	subtotal, err := price.MulDiv(n, divisor)
	if err != nil {
		return PriceBreakdown{}, err
	}
	serviceFee, err := price.MulDiv(n*policy.ServiceFeeBasisPoints, divisor*basisPointsBase)
	if err != nil {
		return PriceBreakdown{}, err
	}
	cleaning := listing.Rates.CleaningFee
	if cleaning.Currency == "" {
		cleaning = money.Money{Amount: cleaning.Amount, Currency: price.Currency}
	}

	total, err := subtotal.Add(cleaning)
	if err != nil {
		return PriceBreakdown{}, err
	}
	total, err = total.Add(serviceFee)
	if err != nil {
		return PriceBreakdown{}, err
	}

	return PriceBreakdown{
		Tier:        tier,
		Nights:      nights,
		NightlyRate: nightly,
		Subtotal:    subtotal,
		CleaningFee: cleaning,
		ServiceFee:  serviceFee,
		Total:       total,
	}, nil
}

func selectRate(rates listings.Rates, nights int) (Tier, money.Money, int64, error) {
	switch {
	case nights >= MonthlyThresholdNights && rates.Monthly != nil:
		return TierMonthly, *rates.Monthly, monthlyDivisor, nil
	case nights >= WeeklyThresholdNights && rates.Weekly != nil:
		return TierWeekly, *rates.Weekly, weeklyDivisor, nil
	case rates.Nightly != nil:
		return TierNightly, *rates.Nightly, nightlyDivisor, nil
	default:
		return "", money.Money{}, 0, ErrNoApplicableRate
	}
}

// Matches reports whether a client-side quote total agrees with the authoritative one.
func (p PriceBreakdown) Matches(total money.Money) bool {
	return p.Total.Currency == total.Currency && p.Total.Amount == total.Amount
}
