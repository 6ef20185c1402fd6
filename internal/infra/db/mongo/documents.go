package mongo

import (
	"staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/money"
)

type priceDocument struct {
	Tier          string `bson:"tier"`
	Nights        int    `bson:"nights"`
	Currency      string `bson:"currency"`
	NightlyCents  int64  `bson:"nightly_cents"`
	SubtotalCents int64  `bson:"subtotal_cents"`
	CleaningCents int64  `bson:"cleaning_cents"`
	ServiceCents  int64  `bson:"service_cents"`
	TotalCents    int64  `bson:"total_cents"`
}

func newPriceDocument(p pricing.PriceBreakdown) priceDocument {
	return priceDocument{
		Tier:          string(p.Tier),
		Nights:        p.Nights,
		Currency:      p.Total.Currency,
		NightlyCents:  p.NightlyRate.Amount,
		SubtotalCents: p.Subtotal.Amount,
		CleaningCents: p.CleaningFee.Amount,
		ServiceCents:  p.ServiceFee.Amount,
		TotalCents:    p.Total.Amount,
	}
}

func (d priceDocument) toBreakdown() pricing.PriceBreakdown {
	m := func(cents int64) money.Money { return money.Money{Amount: cents, Currency: d.Currency} }
	return pricing.PriceBreakdown{
		Tier:        pricing.Tier(d.Tier),
		Nights:      d.Nights,
		NightlyRate: m(d.NightlyCents),
		Subtotal:    m(d.SubtotalCents),
		CleaningFee: m(d.CleaningCents),
		ServiceFee:  m(d.ServiceCents),
		Total:       m(d.TotalCents),
	}
}

func centsPtr(p *money.Money) *int64 {
	if p == nil {
		return nil
	}
	v := p.Amount
	return &v
}

func moneyPtr(cents *int64, currency string) *money.Money {
	if cents == nil {
		return nil
	}
	return &money.Money{Amount: *cents, Currency: currency}
}
