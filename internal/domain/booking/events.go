package booking

import (
	"time"

	"staybook/internal/domain/listings"
)

type BookingCreated struct {
	BookingID        BookingID          `json:"booking_id"`
	ListingID        listings.ListingID `json:"listing_id"`
	GuestID          string             `json:"guest_id"`
	CheckIn          time.Time          `json:"check_in"`
	CheckOut         time.Time          `json:"check_out"`
	Guests           int                `json:"guests"`
	TotalCents       int64              `json:"total_cents"`
	Currency         string             `json:"currency"`
	ConfirmationCode string             `json:"confirmation_code"`
	At               time.Time          `json:"at"`
}

func (e BookingCreated) EventName() string     { return "booking.created" }
func (e BookingCreated) AggregateID() string   { return string(e.BookingID) }
func (e BookingCreated) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID BookingID          `json:"booking_id"`
	ListingID listings.ListingID `json:"listing_id"`
	Reason    string             `json:"reason,omitempty"`
	At        time.Time          `json:"at"`
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type BookingCompleted struct {
	BookingID BookingID          `json:"booking_id"`
	ListingID listings.ListingID `json:"listing_id"`
	At        time.Time          `json:"at"`
}

func (e BookingCompleted) EventName() string     { return "booking.completed" }
func (e BookingCompleted) AggregateID() string   { return string(e.BookingID) }
func (e BookingCompleted) OccurredAt() time.Time { return e.At }
