package dto

import (
	"time"

	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
)

type CreateBookingResult struct {
	ID               string `json:"id"`
	ConfirmationCode string `json:"confirmationCode"`
	Status           string `json:"status"`
}

type BookingDetail struct {
	ID               string         `json:"id"`
	ListingID        string         `json:"listingId"`
	ListingTitle     string         `json:"listingTitle,omitempty"`
	GuestID          string         `json:"guestId"`
	CheckIn          time.Time      `json:"checkIn"`
	CheckOut         time.Time      `json:"checkOut"`
	Guests           int            `json:"guests"`
	Status           string         `json:"status"`
	ConfirmationCode string         `json:"confirmationCode"`
	SpecialRequests  string         `json:"specialRequests,omitempty"`
	PaymentMethod    string         `json:"paymentMethod,omitempty"`
	Pricing          PriceBreakdown `json:"pricing"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

type GuestBookingCollection struct {
	Items []BookingDetail `json:"items"`
}

type CancelBookingResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type CompleteStaysResult struct {
	Completed int `json:"completed"`
}

// MapBookingDetail builds the booking view. listing may be nil when it was removed.
func MapBookingDetail(b *domainbooking.Booking, listing *domainlistings.Listing) BookingDetail {
	detail := BookingDetail{
		ID:               string(b.ID),
		ListingID:        string(b.ListingID),
		GuestID:          b.GuestID,
		CheckIn:          b.Range.CheckIn,
		CheckOut:         b.Range.CheckOut,
		Guests:           b.Guests,
		Status:           string(b.Status),
		ConfirmationCode: b.ConfirmationCode,
		SpecialRequests:  b.SpecialRequests,
		PaymentMethod:    b.PaymentMethod,
		Pricing:          MapPriceBreakdown(b.Price),
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
	if listing != nil {
		detail.ListingTitle = listing.Title
	}
	return detail
}
