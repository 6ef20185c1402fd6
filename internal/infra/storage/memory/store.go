package memory

import (
	"context"
	"sync"

	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
)

// Store holds committed state for the in-memory driver. Units of work stage
// their writes and apply them under the store lock on commit.
type Store struct {
	mu       sync.RWMutex
	listings map[domainlistings.ListingID]*domainlistings.Listing
	bookings map[domainbooking.BookingID]*domainbooking.Booking

	locksMu sync.Mutex
	locks   map[domainlistings.ListingID]chan struct{}
}

func NewStore() *Store {
	return &Store{
		listings: make(map[domainlistings.ListingID]*domainlistings.Listing),
		bookings: make(map[domainbooking.BookingID]*domainbooking.Booking),
		locks:    make(map[domainlistings.ListingID]chan struct{}),
	}
}

// lock acquires the listing's booking lock or gives up when ctx ends.
func (s *Store) lock(ctx context.Context, id domainlistings.ListingID) error {
	s.locksMu.Lock()
	ch, ok := s.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[id] = ch
	}
	s.locksMu.Unlock()
	select {
	case ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) unlock(id domainlistings.ListingID) {
	s.locksMu.Lock()
	ch := s.locks[id]
	s.locksMu.Unlock()
	if ch == nil {
		return
	}
	select {
	case <-ch:
	default:
	}
}
