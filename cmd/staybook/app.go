package main

import (
	"log/slog"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/failures"
	availabilityapp "staybook/internal/app/handlers/availability"
	bookingapp "staybook/internal/app/handlers/booking"
	listingapp "staybook/internal/app/handlers/listings"
	meapp "staybook/internal/app/handlers/me"
	"staybook/internal/app/middleware"
	"staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/app/queries"
	"staybook/internal/domain/pricing"
	"staybook/internal/infra/cache"
	"staybook/internal/infra/config"
	ginserver "staybook/internal/infra/http/gin"
	"staybook/internal/infra/security"
	"staybook/internal/infra/validation"
)

type application struct {
	handlers ginserver.Handlers
	commands commands.Bus
	listings *cache.ListingCache
}

func buildApplication(cfg config.Config, store *storage, auth *security.JWTAuthenticator, logger *slog.Logger) (application, error) {
	fees, err := pricing.NewFeePolicy(cfg.ServiceFeeBasisPoints)
	if err != nil {
		return application{}, err
	}
	pricingPort := policies.NewTieredPricing(fees)
	encoder := outbox.JSONEventEncoder{}
	listingCache := cache.NewListingCache(cache.UnitListingSource{Factory: store.factory}, cfg.ListingCacheTTL, cfg.ListingCacheSize)

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler[bookingapp.CreateBookingCommand, *dto.CreateBookingResult](commandBus, bookingapp.CreateBookingCommand{}.Key(), &bookingapp.CreateBookingHandler{
		Pricing: pricingPort,
		Codes:   security.ConfirmationCodeGenerator{},
		Outbox:  store.outbox,
		Encoder: encoder,
		Logger:  logger,
	})
	commands.RegisterHandler[bookingapp.CancelBookingCommand, *dto.CancelBookingResult](commandBus, bookingapp.CancelBookingCommand{}.Key(), &bookingapp.CancelBookingHandler{
		Outbox: store.outbox, Encoder: encoder, Logger: logger,
	})
	commands.RegisterHandler[bookingapp.ApplyStatusCommand, *dto.CancelBookingResult](commandBus, bookingapp.ApplyStatusCommand{}.Key(), &bookingapp.ApplyStatusHandler{
		Outbox: store.outbox, Encoder: encoder, Logger: logger,
	})
	commands.RegisterHandler[bookingapp.CompleteStaysCommand, *dto.CompleteStaysResult](commandBus, bookingapp.CompleteStaysCommand{}.Key(), &bookingapp.CompleteStaysHandler{
		Outbox: store.outbox, Encoder: encoder, Logger: logger,
	})
	commands.RegisterHandler[listingapp.CreateHostListingCommand, *dto.HostListingDetail](commandBus, listingapp.CreateHostListingCommand{}.Key(),
		listingapp.NewCreateHostListingHandler(store.outbox, listingCache, cfg.DefaultCurrency, logger))
	commands.RegisterHandler[listingapp.UpdateHostListingCommand, *dto.HostListingDetail](commandBus, listingapp.UpdateHostListingCommand{}.Key(),
		listingapp.NewUpdateHostListingHandler(store.outbox, listingCache, logger))
	commands.RegisterHandler[listingapp.PublishHostListingCommand, *dto.HostListingDetail](commandBus, listingapp.PublishHostListingCommand{}.Key(),
		listingapp.NewPublishHostListingHandler(store.outbox, listingCache, logger))
	commands.RegisterHandler[listingapp.UnpublishHostListingCommand, *dto.HostListingDetail](commandBus, listingapp.UnpublishHostListingCommand{}.Key(),
		listingapp.NewUnpublishHostListingHandler(store.outbox, listingCache, logger))

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[availabilityapp.CheckAvailabilityQuery, dto.AvailabilityResult](queryBus, availabilityapp.CheckAvailabilityQuery{}.Key(), &availabilityapp.CheckAvailabilityHandler{
		UoWFactory: store.factory,
		Listings:   listingCache,
		Pricing:    pricingPort,
		Logger:     logger,
	})
	queries.RegisterHandler[availabilityapp.GetCalendarQuery, dto.Calendar](queryBus, availabilityapp.GetCalendarQuery{}.Key(), &availabilityapp.GetCalendarHandler{
		UoWFactory: store.factory,
	})
	queries.RegisterHandler[bookingapp.GetBookingQuery, dto.BookingDetail](queryBus, bookingapp.GetBookingQuery{}.Key(), &bookingapp.GetBookingHandler{
		UoWFactory: store.factory, Logger: logger,
	})
	queries.RegisterHandler[meapp.ListGuestBookingsQuery, dto.GuestBookingCollection](queryBus, meapp.ListGuestBookingsQuery{}.Key(), &meapp.ListGuestBookingsHandler{
		UoWFactory: store.factory, Logger: logger,
	})
	queries.RegisterHandler[listingapp.GetHostListingQuery, dto.HostListingDetail](queryBus, listingapp.GetHostListingQuery{}.Key(), &listingapp.GetHostListingHandler{
		UoWFactory: store.factory, Logger: logger,
	})

	validator := validation.New()
	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Validation(validator),
		middleware.Authorization(policies.RoleAuthorizer{}),
		middleware.Idempotency(store.idempotency, nil, cfg.IdempotencyTTL, logger),
		middleware.OutboxFlush(store.outbox, logger),
		middleware.Transaction(store.factory, nil, middleware.RetryPolicy{Backoff: cfg.TxRetryBackoff, Logger: logger}),
	)
	queryBusWithMiddleware := middleware.ChainQueries(
		queryBus,
		middleware.QueryValidation(validator),
		middleware.QueryAuthorization(policies.RoleAuthorizer{}),
		middleware.CircuitBreaker("storage-reads", cfg.BreakerTimeout, failures.IsExpected, logger),
		middleware.QueryRetry(cfg.ReadRetryBackoff, failures.IsExpected, logger),
	)

	return application{
		handlers: ginserver.Handlers{
			Booking: ginserver.BookingHandler{
				Commands: commandBusWithMiddleware,
				Queries:  queryBusWithMiddleware,
				Logger:   logger,
			},
			Availability: ginserver.AvailabilityHandler{
				Queries: queryBusWithMiddleware,
				Logger:  logger,
			},
			HostListing: ginserver.HostListingHandler{
				Commands: commandBusWithMiddleware,
				Queries:  queryBusWithMiddleware,
				Logger:   logger,
			},
			Me: ginserver.MeHandler{
				Queries: queryBusWithMiddleware,
				Logger:  logger,
			},
			AuthMiddleware: ginserver.AuthMiddleware{Verifier: auth, Logger: logger}.Handle,
		},
		commands: commandBusWithMiddleware,
		listings: listingCache,
	}, nil
}

const (
	completeStaysBatch = 200
	shutdownTimeout    = 10 * time.Second
)
