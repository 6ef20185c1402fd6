package policies

import (
	"context"

	domainlistings "staybook/internal/domain/listings"
	domainpricing "staybook/internal/domain/pricing"
)

// PricingPort is the single entry point for quoting stays. Every caller that shows or
// stores a price goes through it so the fee policy cannot drift between call sites.
type PricingPort interface {
	Quote(ctx context.Context, listing *domainlistings.Listing, nights int) (domainpricing.PriceBreakdown, error)
}

// TieredPricing applies the tiered rate rules with one process-wide fee policy.
type TieredPricing struct {
	Fees domainpricing.FeePolicy
}

func NewTieredPricing(fees domainpricing.FeePolicy) TieredPricing {
	return TieredPricing{Fees: fees}
}

func (p TieredPricing) Quote(_ context.Context, listing *domainlistings.Listing, nights int) (domainpricing.PriceBreakdown, error) {
	return domainpricing.Calculate(listing, nights, p.Fees)
}

var _ PricingPort = TieredPricing{}
