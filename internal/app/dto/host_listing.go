package dto

import (
	"time"

	domainlistings "staybook/internal/domain/listings"
)

type HostListingDetail struct {
	ID           string    `json:"id"`
	HostID       string    `json:"hostId"`
	Title        string    `json:"title"`
	Currency     string    `json:"currency"`
	MinNights    int       `json:"minNights"`
	GuestsLimit  int       `json:"guestsLimit"`
	NightlyPrice *float64  `json:"nightlyPrice,omitempty"`
	WeeklyPrice  *float64  `json:"weeklyPrice,omitempty"`
	MonthlyPrice *float64  `json:"monthlyPrice,omitempty"`
	CleaningFee  float64   `json:"cleaningFee"`
	State        string    `json:"state"`
	Version      int64     `json:"version"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func MapHostListingDetail(listing *domainlistings.Listing) HostListingDetail {
	if listing == nil {
		return HostListingDetail{}
	}
	return HostListingDetail{
		ID:           string(listing.ID),
		HostID:       string(listing.Host),
		Title:        listing.Title,
		Currency:     listing.Currency,
		MinNights:    listing.MinNights,
		GuestsLimit:  listing.GuestsLimit,
		NightlyPrice: majorPtr(listing.Rates.Nightly),
		WeeklyPrice:  majorPtr(listing.Rates.Weekly),
		MonthlyPrice: majorPtr(listing.Rates.Monthly),
		CleaningFee:  listing.Rates.CleaningFee.Major(),
		State:        string(listing.State),
		Version:      listing.Version,
		CreatedAt:    listing.CreatedAt,
		UpdatedAt:    listing.UpdatedAt,
	}
}
