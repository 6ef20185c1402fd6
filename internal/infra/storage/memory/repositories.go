package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	domainrange "staybook/internal/domain/shared/daterange"
)

var errGuestRequired = errors.New("memory: guest id required")

// unitListings reads through the unit's staged writes to the committed store.
type unitListings struct {
	unit *Unit
}

func (r unitListings) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	u := r.unit
	u.mu.Lock()
	staged, ok := u.listings[id]
	u.mu.Unlock()
	if ok {
		return staged.value.Clone(), nil
	}
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	listing, ok := u.store.listings[id]
	if !ok {
		return nil, domainlistings.ErrNotFound
	}
	return listing.Clone(), nil
}

func (r unitListings) Save(ctx context.Context, listing *domainlistings.Listing) error {
	u := r.unit
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return ErrUnitClosed
	}
	base := listing.Version
	if prev, ok := u.listings[listing.ID]; ok {
		base = prev.base
	}
	listing.Version++
	u.listings[listing.ID] = stagedListing{value: listing.Clone(), base: base}
	return nil
}

type unitBookings struct {
	unit *Unit
}

func (r unitBookings) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	u := r.unit
	u.mu.Lock()
	staged, ok := u.bookings[id]
	u.mu.Unlock()
	if ok {
		return staged.value.Clone(), nil
	}
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	b, ok := u.store.bookings[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return b.Clone(), nil
}

func (r unitBookings) Save(ctx context.Context, b *domainbooking.Booking) error {
	u := r.unit
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return ErrUnitClosed
	}
	base := b.Version
	if prev, ok := u.bookings[b.ID]; ok {
		base = prev.base
	}
	b.Version++
	u.bookings[b.ID] = stagedBooking{value: b.Clone(), base: base}
	return nil
}

// snapshot merges committed bookings with this unit's staged ones.
func (r unitBookings) snapshot(match func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	u := r.unit
	u.mu.Lock()
	staged := make(map[domainbooking.BookingID]*domainbooking.Booking, len(u.bookings))
	for id, s := range u.bookings {
		staged[id] = s.value
	}
	u.mu.Unlock()

	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	out := make([]*domainbooking.Booking, 0)
	for id, b := range u.store.bookings {
		if override, ok := staged[id]; ok {
			b = override
			delete(staged, id)
		}
		if match(b) {
			out = append(out, b.Clone())
		}
	}
	for _, b := range staged {
		if match(b) {
			out = append(out, b.Clone())
		}
	}
	return out
}

func (r unitBookings) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	id := strings.TrimSpace(guestID)
	if id == "" {
		return nil, errGuestRequired
	}
	matches := r.snapshot(func(b *domainbooking.Booking) bool { return b.GuestID == id })
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches, nil
}

func (r unitBookings) ListBlockingOverlapping(ctx context.Context, listingID domainlistings.ListingID, dr domainrange.DateRange) ([]*domainbooking.Booking, error) {
	matches := r.snapshot(func(b *domainbooking.Booking) bool {
		return b.ListingID == listingID && b.Status.Blocking() && b.Range.Overlaps(dr)
	})
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Range.CheckIn.Before(matches[j].Range.CheckIn)
	})
	return matches, nil
}

func (r unitBookings) ListConfirmedEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domainbooking.Booking, error) {
	matches := r.snapshot(func(b *domainbooking.Booking) bool {
		return b.Status == domainbooking.StatusConfirmed && !b.Range.CheckOut.After(cutoff)
	})
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Range.CheckOut.Before(matches[j].Range.CheckOut)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}
