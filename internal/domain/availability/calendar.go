package availability

import (
	"sort"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
)

type BlockedRange struct {
	Range     daterange.DateRange
	BookingID booking.BookingID
	Status    booking.Status
}

// Calendar is the read model of occupied dates of a listing inside a window.
type Calendar struct {
	ListingID listings.ListingID
	Window    daterange.DateRange
	Blocked   []BlockedRange
}

// BuildCalendar keeps the blocking bookings that overlap window, clipped to it and
// ordered by check-in.
func BuildCalendar(listingID listings.ListingID, window daterange.DateRange, bookings []*booking.Booking) *Calendar {
	cal := &Calendar{ListingID: listingID, Window: window}
	for _, b := range bookings {
		if b == nil || !b.Status.Blocking() || b.ListingID != listingID {
			continue
		}
		clipped, ok := b.Range.Clip(window)
		if !ok {
			continue
		}
		cal.Blocked = append(cal.Blocked, BlockedRange{Range: clipped, BookingID: b.ID, Status: b.Status})
	}
	sort.Slice(cal.Blocked, func(i, j int) bool {
		return cal.Blocked[i].Range.CheckIn.Before(cal.Blocked[j].Range.CheckIn)
	})
	return cal
}

// IsFree reports whether dr fits the window without touching a blocked range.
func (c *Calendar) IsFree(dr daterange.DateRange) bool {
	for _, block := range c.Blocked {
		if block.Range.Overlaps(dr) {
			return false
		}
	}
	return true
}

// Occupied merges blocked ranges that overlap or touch into contiguous spans.
func (c *Calendar) Occupied() []daterange.DateRange {
	if len(c.Blocked) == 0 {
		return nil
	}
	out := []daterange.DateRange{c.Blocked[0].Range}
	for _, block := range c.Blocked[1:] {
		last := out[len(out)-1]
		if merged, ok := last.Merge(block.Range); ok {
			out[len(out)-1] = merged
			continue
		}
		out = append(out, block.Range)
	}
	return out
}
