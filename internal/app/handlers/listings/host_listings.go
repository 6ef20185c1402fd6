package listings

import (
	"context"
	"log/slog"

	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/policies"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
)

const getHostListingKey = "host.listings.get"

type GetHostListingQuery struct {
	HostID    string `validate:"required"`
	ListingID string `validate:"required"`
}

func (q GetHostListingQuery) Key() string { return getHostListingKey }

func (q GetHostListingQuery) RequiredRole() string { return policies.RoleHost }

type GetHostListingHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *GetHostListingHandler) Handle(ctx context.Context, q GetHostListingQuery) (dto.HostListingDetail, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.HostListingDetail{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	listing, err := ownedListing(execCtx, unit, q.HostID, q.ListingID)
	if err != nil {
		return dto.HostListingDetail{}, err
	}
	return dto.MapHostListingDetail(listing), nil
}

var _ queries.Handler[GetHostListingQuery, dto.HostListingDetail] = (*GetHostListingHandler)(nil)
