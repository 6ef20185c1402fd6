package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/middleware"
	"staybook/internal/app/schedule"
	"staybook/internal/app/uow"
	"staybook/internal/infra/config"
	mongostore "staybook/internal/infra/db/mongo"
	"staybook/internal/infra/db/postgres"
	"staybook/internal/infra/inbox"
	"staybook/internal/infra/obs"
	infraoutbox "staybook/internal/infra/outbox"
	"staybook/internal/infra/storage/memory"
)

const statusConsumerName = "booking-status"

// storage is everything the application needs from the selected backend.
type storage struct {
	factory     uow.UoWFactory
	outbox      appoutbox.Outbox
	queue       infraoutbox.Queue
	idempotency middleware.IdempotencyStore
	inbox       inbox.Deduplicator
	ready       obs.ReadinessCheck
	// maintenance jobs the backend needs on a schedule, keyed by name.
	maintenance map[string]schedule.Job
	close       func(ctx context.Context) error
}

func openStorage(ctx context.Context, cfg config.Config, wake *infraoutbox.Signal, logger *slog.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.StorageMongo:
		return openMongo(ctx, cfg, wake)
	case config.StoragePostgres:
		return openPostgres(ctx, cfg, wake)
	default:
		logger.Warn("using in-memory storage; data is lost on restart")
		return openMemory(cfg, wake), nil
	}
}

func openMemory(cfg config.Config, wake *infraoutbox.Signal) *storage {
	box := memory.NewOutbox(wake)
	return &storage{
		factory:     memory.Factory{Store: memory.NewStore(), Outbox: box},
		outbox:      box,
		queue:       box,
		idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
		inbox:       memory.NewInbox(),
		ready:       func(context.Context) error { return nil },
		close:       func(context.Context) error { return nil },
	}
}

func openMongo(ctx context.Context, cfg config.Config, wake *infraoutbox.Signal) (*storage, error) {
	client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	fail := func(err error) (*storage, error) {
		_ = client.Close(context.Background())
		return nil, err
	}
	listingsRepo, err := mongostore.NewListingRepository(ctx, client.DB)
	if err != nil {
		return fail(fmt.Errorf("listings repository: %w", err))
	}
	bookingRepo, err := mongostore.NewBookingRepository(ctx, client.DB)
	if err != nil {
		return fail(fmt.Errorf("bookings repository: %w", err))
	}
	box, err := infraoutbox.NewStore(ctx, client.DB, wake)
	if err != nil {
		return fail(fmt.Errorf("outbox store: %w", err))
	}
	idem, err := mongostore.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
	if err != nil {
		return fail(fmt.Errorf("idempotency store: %w", err))
	}
	seen, err := inbox.NewStore(ctx, client.DB, statusConsumerName, 30*24*time.Hour)
	if err != nil {
		return fail(fmt.Errorf("inbox store: %w", err))
	}
	return &storage{
		factory:     mongostore.Factory{DB: client.DB, ListingsRepo: listingsRepo, BookingRepo: bookingRepo},
		outbox:      box,
		queue:       box,
		idempotency: idem,
		inbox:       seen,
		ready:       client.Ping,
		close:       client.Close,
	}, nil
}

func openPostgres(ctx context.Context, cfg config.Config, wake *infraoutbox.Signal) (*storage, error) {
	db, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	box := postgres.NewOutboxStore(db, wake)
	idem := postgres.NewIdempotencyStore(db, cfg.IdempotencyTTL)
	return &storage{
		factory:     postgres.Factory{DB: db},
		outbox:      box,
		queue:       box,
		idempotency: idem,
		inbox:       postgres.NewInboxStore(db, statusConsumerName),
		ready:       db.PingContext,
		maintenance: map[string]schedule.Job{
			"purge-idempotency": idem.Purge,
		},
		close: closeSQL(db),
	}, nil
}

func closeSQL(db *sql.DB) func(context.Context) error {
	return func(context.Context) error { return db.Close() }
}
