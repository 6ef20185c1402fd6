package dto

import (
	domainpricing "staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/money"
)

// PriceBreakdown carries amounts in major units rounded to the cent.
type PriceBreakdown struct {
	Tier        string  `json:"tier"`
	Nights      int     `json:"nights"`
	Currency    string  `json:"currency"`
	NightlyRate float64 `json:"nightlyRate"`
	Subtotal    float64 `json:"subtotal"`
	CleaningFee float64 `json:"cleaningFee"`
	ServiceFee  float64 `json:"serviceFee"`
	Total       float64 `json:"total"`
}

func MapPriceBreakdown(p domainpricing.PriceBreakdown) PriceBreakdown {
	return PriceBreakdown{
		Tier:        string(p.Tier),
		Nights:      p.Nights,
		Currency:    p.Total.Currency,
		NightlyRate: p.NightlyRate.Major(),
		Subtotal:    p.Subtotal.Major(),
		CleaningFee: p.CleaningFee.Major(),
		ServiceFee:  p.ServiceFee.Major(),
		Total:       p.Total.Major(),
	}
}

func majorPtr(m *money.Money) *float64 {
	if m == nil {
		return nil
	}
	v := m.Major()
	return &v
}
