package listings

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/app/uow"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/money"
)

const (
	createHostListingKey    = "host.listings.create"
	updateHostListingKey    = "host.listings.update"
	publishHostListingKey   = "host.listings.publish"
	unpublishHostListingKey = "host.listings.unpublish"
)

var ErrListingNotOwned = fmt.Errorf("listings: not owned by host: %w", policies.ErrForbidden)

// HostListingPayload carries prices in major units. A nil price leaves the tier unset.
type HostListingPayload struct {
	Title        string   `validate:"required,max=200"`
	Currency     string   `validate:"omitempty,len=3,alpha"`
	MinNights    int      `validate:"min=0,max=365"`
	GuestsLimit  int      `validate:"min=0,max=100"`
	NightlyPrice *float64 `validate:"omitempty,gt=0,lte=1000000"`
	WeeklyPrice  *float64 `validate:"omitempty,gt=0,lte=1000000"`
	MonthlyPrice *float64 `validate:"omitempty,gt=0,lte=1000000"`
	CleaningFee  float64  `validate:"min=0,lte=1000000"`
}

func (p HostListingPayload) rates(currency string) (domainlistings.Rates, error) {
	var rates domainlistings.Rates
	var err error
	if rates.Nightly, err = optionalPrice(p.NightlyPrice, currency); err != nil {
		return rates, err
	}
	if rates.Weekly, err = optionalPrice(p.WeeklyPrice, currency); err != nil {
		return rates, err
	}
	if rates.Monthly, err = optionalPrice(p.MonthlyPrice, currency); err != nil {
		return rates, err
	}
	rates.CleaningFee, err = money.FromMajor(p.CleaningFee, currency)
	return rates, err
}

func optionalPrice(v *float64, currency string) (*money.Money, error) {
	if v == nil {
		return nil, nil
	}
	m, err := money.FromMajor(*v, currency)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListingInvalidator drops cached copies of a listing after it changes.
type ListingInvalidator interface {
	Invalidate(id domainlistings.ListingID)
}

// hostSupport holds what every host listing handler shares.
type hostSupport struct {
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	Invalidator ListingInvalidator
	Logger      *slog.Logger
	// DefaultCurrency applies when a payload names none.
	DefaultCurrency string
}

func (s hostSupport) persist(ctx context.Context, unit uow.UnitOfWork, listing *domainlistings.Listing) error {
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return err
	}
	if err := outbox.RecordAggregates(ctx, s.Outbox, s.Encoder, listing); err != nil {
		return err
	}
	if s.Invalidator != nil {
		s.Invalidator.Invalidate(listing.ID)
	}
	return nil
}

func (s hostSupport) currency(requested string) string {
	if requested != "" {
		return requested
	}
	if s.DefaultCurrency != "" {
		return s.DefaultCurrency
	}
	return "USD"
}

func ownedListing(ctx context.Context, unit uow.UnitOfWork, hostID, listingID string) (*domainlistings.Listing, error) {
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(listingID))
	if err != nil {
		return nil, err
	}
	if listing.Host != domainlistings.HostID(hostID) {
		return nil, ErrListingNotOwned
	}
	return listing, nil
}

type CreateHostListingCommand struct {
	HostID  string `validate:"required"`
	Payload HostListingPayload
	// Publish activates the listing right away.
	Publish bool
}

func (c CreateHostListingCommand) Key() string { return createHostListingKey }

func (c CreateHostListingCommand) RequiredRole() string { return policies.RoleHost }

type CreateHostListingHandler struct {
	hostSupport
}

func NewCreateHostListingHandler(box outbox.Outbox, inv ListingInvalidator, defaultCurrency string, logger *slog.Logger) *CreateHostListingHandler {
	return &CreateHostListingHandler{hostSupport{Outbox: box, Invalidator: inv, DefaultCurrency: defaultCurrency, Logger: logger}}
}

func (h *CreateHostListingHandler) Handle(ctx context.Context, cmd CreateHostListingCommand) (*dto.HostListingDetail, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	currency := h.currency(cmd.Payload.Currency)
	rates, err := cmd.Payload.rates(currency)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:          domainlistings.ListingID(uuid.NewString()),
		Host:        domainlistings.HostID(cmd.HostID),
		Title:       cmd.Payload.Title,
		Currency:    currency,
		MinNights:   cmd.Payload.MinNights,
		GuestsLimit: cmd.Payload.GuestsLimit,
		Rates:       rates,
		Now:         now,
	})
	if err != nil {
		return nil, err
	}
	if cmd.Publish {
		if err := listing.Activate(now); err != nil {
			return nil, err
		}
	}
	if err := h.persist(ctx, unit, listing); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.Info("host listing created", "listing_id", listing.ID, "host_id", cmd.HostID)
	}

	result := dto.MapHostListingDetail(listing)
	return &result, nil
}

type UpdateHostListingCommand struct {
	HostID    string `validate:"required"`
	ListingID string `validate:"required"`
	Payload   HostListingPayload
}

func (c UpdateHostListingCommand) Key() string { return updateHostListingKey }

func (c UpdateHostListingCommand) RequiredRole() string { return policies.RoleHost }

type UpdateHostListingHandler struct {
	hostSupport
}

func NewUpdateHostListingHandler(box outbox.Outbox, inv ListingInvalidator, logger *slog.Logger) *UpdateHostListingHandler {
	return &UpdateHostListingHandler{hostSupport{Outbox: box, Invalidator: inv, Logger: logger}}
}

// Handle changes the terms of future bookings. Existing bookings keep the price
// they were created with.
func (h *UpdateHostListingHandler) Handle(ctx context.Context, cmd UpdateHostListingCommand) (*dto.HostListingDetail, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	listing, err := ownedListing(ctx, unit, cmd.HostID, cmd.ListingID)
	if err != nil {
		return nil, err
	}
	rates, err := cmd.Payload.rates(listing.Currency)
	if err != nil {
		return nil, err
	}
	if err := listing.UpdateTerms(domainlistings.TermsParams{
		Title:       cmd.Payload.Title,
		MinNights:   cmd.Payload.MinNights,
		GuestsLimit: cmd.Payload.GuestsLimit,
		Rates:       rates,
		Now:         time.Now(),
	}); err != nil {
		return nil, err
	}
	if err := h.persist(ctx, unit, listing); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.Info("host listing updated", "listing_id", listing.ID, "host_id", cmd.HostID)
	}

	result := dto.MapHostListingDetail(listing)
	return &result, nil
}

type PublishHostListingCommand struct {
	HostID    string `validate:"required"`
	ListingID string `validate:"required"`
}

func (c PublishHostListingCommand) Key() string { return publishHostListingKey }

func (c PublishHostListingCommand) RequiredRole() string { return policies.RoleHost }

type PublishHostListingHandler struct {
	hostSupport
}

func NewPublishHostListingHandler(box outbox.Outbox, inv ListingInvalidator, logger *slog.Logger) *PublishHostListingHandler {
	return &PublishHostListingHandler{hostSupport{Outbox: box, Invalidator: inv, Logger: logger}}
}

func (h *PublishHostListingHandler) Handle(ctx context.Context, cmd PublishHostListingCommand) (*dto.HostListingDetail, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	listing, err := ownedListing(ctx, unit, cmd.HostID, cmd.ListingID)
	if err != nil {
		return nil, err
	}
	if err := listing.Activate(time.Now()); err != nil {
		return nil, err
	}
	if err := h.persist(ctx, unit, listing); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.Info("host listing published", "listing_id", listing.ID, "host_id", cmd.HostID)
	}

	result := dto.MapHostListingDetail(listing)
	return &result, nil
}

type UnpublishHostListingCommand struct {
	HostID    string `validate:"required"`
	ListingID string `validate:"required"`
}

func (c UnpublishHostListingCommand) Key() string { return unpublishHostListingKey }

func (c UnpublishHostListingCommand) RequiredRole() string { return policies.RoleHost }

type UnpublishHostListingHandler struct {
	hostSupport
}

func NewUnpublishHostListingHandler(box outbox.Outbox, inv ListingInvalidator, logger *slog.Logger) *UnpublishHostListingHandler {
	return &UnpublishHostListingHandler{hostSupport{Outbox: box, Invalidator: inv, Logger: logger}}
}

func (h *UnpublishHostListingHandler) Handle(ctx context.Context, cmd UnpublishHostListingCommand) (*dto.HostListingDetail, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	listing, err := ownedListing(ctx, unit, cmd.HostID, cmd.ListingID)
	if err != nil {
		return nil, err
	}
	if err := listing.Suspend(time.Now(), "host-request"); err != nil {
		return nil, err
	}
	if err := h.persist(ctx, unit, listing); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.Info("host listing unpublished", "listing_id", listing.ID, "host_id", cmd.HostID)
	}

	result := dto.MapHostListingDetail(listing)
	return &result, nil
}

var (
	_ commands.Handler[CreateHostListingCommand, *dto.HostListingDetail]    = (*CreateHostListingHandler)(nil)
	_ commands.Handler[UpdateHostListingCommand, *dto.HostListingDetail]    = (*UpdateHostListingHandler)(nil)
	_ commands.Handler[PublishHostListingCommand, *dto.HostListingDetail]   = (*PublishHostListingHandler)(nil)
	_ commands.Handler[UnpublishHostListingCommand, *dto.HostListingDetail] = (*UnpublishHostListingHandler)(nil)
)
