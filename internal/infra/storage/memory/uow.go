package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
)

// ErrFactoryMisconfigured indicates a factory built without a store.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// ErrUnitClosed is returned when a unit is used after commit or rollback.
var ErrUnitClosed = errors.New("memory: unit of work already closed")

// Factory wires the in-memory store into a unit-of-work boundary.
type Factory struct {
	Store  *Store
	Outbox *Outbox
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		store:    f.Store,
		outbox:   f.Outbox,
		readOnly: opts.ReadOnly,
		listings: make(map[domainlistings.ListingID]stagedListing),
		bookings: make(map[domainbooking.BookingID]stagedBooking),
		locked:   make(map[domainlistings.ListingID]struct{}),
	}, nil
}

type stagedListing struct {
	value *domainlistings.Listing
	base  int64
}

type stagedBooking struct {
	value *domainbooking.Booking
	base  int64
}

// Unit buffers writes until Commit. Saved aggregates are checked against the
// version they were read at, so a lost update surfaces as a transient conflict.
type Unit struct {
	store    *Store
	outbox   *Outbox
	readOnly bool

	mu       sync.Mutex
	closed   bool
	listings map[domainlistings.ListingID]stagedListing
	bookings map[domainbooking.BookingID]stagedBooking
	records  []appoutbox.EventRecord
	locked   map[domainlistings.ListingID]struct{}
}

func (u *Unit) Listings() domainlistings.ListingRepository {
	return unitListings{unit: u}
}

func (u *Unit) Booking() domainbooking.Repository {
	return unitBookings{unit: u}
}

func (u *Unit) Guard() uow.BookingGuard {
	return unitGuard{unit: u}
}

func (u *Unit) stageRecord(rec appoutbox.EventRecord) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return ErrUnitClosed
	}
	u.records = append(u.records, rec)
	return nil
}

func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return ErrUnitClosed
	}
	u.closed = true
	defer u.releaseLocks()
	if u.readOnly && (len(u.listings) > 0 || len(u.bookings) > 0 || len(u.records) > 0) {
		return errors.New("memory: write in read-only unit of work")
	}

	s := u.store
	s.mu.Lock()
	for id, staged := range u.listings {
		if current := currentListingVersion(s, id); current != staged.base {
			s.mu.Unlock()
			return fmt.Errorf("listing %s: %w", id, uow.ErrTransientConflict)
		}
	}
	for id, staged := range u.bookings {
		if current := currentBookingVersion(s, id); current != staged.base {
			s.mu.Unlock()
			return fmt.Errorf("booking %s: %w", id, uow.ErrTransientConflict)
		}
	}
	for id, staged := range u.listings {
		s.listings[id] = staged.value
	}
	for id, staged := range u.bookings {
		s.bookings[id] = staged.value
	}
	s.mu.Unlock()

	if u.outbox != nil && len(u.records) > 0 {
		u.outbox.enqueue(u.records...)
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return nil
	}
	u.closed = true
	u.releaseLocks()
	return nil
}

func (u *Unit) releaseLocks() {
	for id := range u.locked {
		u.store.unlock(id)
	}
	u.locked = map[domainlistings.ListingID]struct{}{}
}

func currentListingVersion(s *Store, id domainlistings.ListingID) int64 {
	if l, ok := s.listings[id]; ok {
		return l.Version
	}
	return 0
}

func currentBookingVersion(s *Store, id domainbooking.BookingID) int64 {
	if b, ok := s.bookings[id]; ok {
		return b.Version
	}
	return 0
}

type unitGuard struct {
	unit *Unit
}

// Lock holds the listing until the unit commits or rolls back. Locking the same
// listing twice in one unit is a no-op.
func (g unitGuard) Lock(ctx context.Context, listingID domainlistings.ListingID) error {
	u := g.unit
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return ErrUnitClosed
	}
	if _, ok := u.locked[listingID]; ok {
		u.mu.Unlock()
		return nil
	}
	u.mu.Unlock()

	if err := u.store.lock(ctx, listingID); err != nil {
		return err
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		u.store.unlock(listingID)
		return ErrUnitClosed
	}
	u.locked[listingID] = struct{}{}
	return nil
}

var _ uow.UoWFactory = Factory{}
