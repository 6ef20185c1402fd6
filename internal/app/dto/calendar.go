package dto

import (
	"time"

	"staybook/internal/domain/availability"
)

type CalendarBlock struct {
	CheckIn   time.Time `json:"checkIn"`
	CheckOut  time.Time `json:"checkOut"`
	BookingID string    `json:"bookingId,omitempty"`
	Status    string    `json:"status"`
}

type DateSpan struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type Calendar struct {
	ListingID string          `json:"listingId"`
	From      time.Time       `json:"from"`
	To        time.Time       `json:"to"`
	Blocks    []CalendarBlock `json:"blocks"`
	Occupied  []DateSpan      `json:"occupied"`
}

// MapCalendar hides booking ids unless showBookings is set, which is the case for
// the listing host.
func MapCalendar(cal *availability.Calendar, showBookings bool) Calendar {
	if cal == nil {
		return Calendar{}
	}
	blocks := make([]CalendarBlock, 0, len(cal.Blocked))
	for _, b := range cal.Blocked {
		block := CalendarBlock{
			CheckIn:  b.Range.CheckIn,
			CheckOut: b.Range.CheckOut,
			Status:   string(b.Status),
		}
		if showBookings {
			block.BookingID = string(b.BookingID)
		}
		blocks = append(blocks, block)
	}
	occupied := make([]DateSpan, 0)
	for _, span := range cal.Occupied() {
		occupied = append(occupied, DateSpan{From: span.CheckIn, To: span.CheckOut})
	}
	return Calendar{
		ListingID: string(cal.ListingID),
		From:      cal.Window.CheckIn,
		To:        cal.Window.CheckOut,
		Blocks:    blocks,
		Occupied:  occupied,
	}
}
