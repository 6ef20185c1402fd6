package cache

import (
	"context"

	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/uow"
	"staybook/internal/domain/listings"
)

// UnitListingSource loads listings through a read-only unit of work, reusing the
// unit already carried by ctx when there is one.
type UnitListingSource struct {
	Factory uow.UoWFactory
}

func (s UnitListingSource) ByID(ctx context.Context, id listings.ListingID) (*listings.Listing, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, s.Factory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	return unit.Listings().ByID(execCtx, id)
}

var _ ListingSource = UnitListingSource{}
