package cache

import (
	"context"
	"errors"
	"testing"

	"staybook/internal/app/uow"
	"staybook/internal/domain/listings"
	"staybook/internal/infra/storage/memory"
)

func TestUnitListingSourceReadsCommittedListing(t *testing.T) {
	factory := memory.Factory{Store: memory.NewStore(), Outbox: memory.NewOutbox(nil)}
	ctx := context.Background()

	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := unit.Listings().Save(ctx, newListing(t)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := unit.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	c := NewListingCache(UnitListingSource{Factory: factory}, 0, 0)
	defer c.Stop()
	got, err := c.ByID(ctx, "listing-1")
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if got.Title != "Loft" || got.Version != 1 {
		t.Fatalf("unexpected listing %+v", got)
	}
	if _, err := c.ByID(ctx, "other"); !errors.Is(err, listings.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
