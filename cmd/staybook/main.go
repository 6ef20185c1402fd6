package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"staybook/internal/app/schedule"
	"staybook/internal/infra/broker/kafka"
	"staybook/internal/infra/config"
	ginserver "staybook/internal/infra/http/gin"
	"staybook/internal/infra/obs"
	infraoutbox "staybook/internal/infra/outbox"
	infraschedule "staybook/internal/infra/schedule"
	"staybook/internal/infra/security"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("staybook stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("staybook stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	wake := infraoutbox.NewSignal()
	store, err := openStorage(ctx, cfg, wake, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.close(closeCtx); err != nil {
			logger.Warn("storage close failed", "error", err)
		}
	}()

	auth, err := security.NewJWTAuthenticator(cfg.AuthJWTSecret, cfg.AuthJWTIssuer)
	if err != nil {
		return err
	}
	app, err := buildApplication(cfg, store, auth, logger)
	if err != nil {
		return err
	}
	defer app.listings.Stop()

	if err := loadListingFixtures(ctx, store.factory, cfg.ListingsFixtures, cfg.DefaultCurrency, logger); err != nil {
		logger.Warn("listing fixtures load failed", "error", err, "path", cfg.ListingsFixtures)
	}

	health := obs.HealthHandlers{Checks: map[string]obs.ReadinessCheck{cfg.StorageDriver: store.ready}}
	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, health, app.handlers)

	producer, closeProducer, err := newProducer(cfg, logger)
	if err != nil {
		return err
	}
	defer closeProducer()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	worker := &infraoutbox.Worker{
		Queue:       store.queue,
		Producer:    producer,
		Wake:        wake,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}
	g.Go(func() error { return worker.Run(gctx) })

	if cfg.KafkaEnabled() {
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaStatusGroup, nil, &kafka.StatusHandler{
			Bus:    app.commands,
			Inbox:  store.inbox,
			Logger: logger,
		}, cfg.RetryBackoff, logger)
		if err != nil {
			return fmt.Errorf("status consumer: %w", err)
		}
		g.Go(func() error {
			return consumer.Run(gctx, []string{cfg.KafkaTopicPrefix + kafka.StatusTopic})
		})
		g.Go(func() error {
			<-gctx.Done()
			return consumer.Close()
		})
	}

	if cfg.SchedulerEnabled {
		cron := infraschedule.NewCronScheduler(logger, 5*time.Minute)
		if err := cron.Every(cfg.CompleteStaysSchedule, "complete-stays", schedule.CompleteStaysJob(app.commands, completeStaysBatch, logger)); err != nil {
			return fmt.Errorf("schedule complete-stays: %w", err)
		}
		for name, job := range store.maintenance {
			if err := cron.Every("@daily", name, job); err != nil {
				return fmt.Errorf("schedule %s: %w", name, err)
			}
		}
		g.Go(func() error { return cron.Run(gctx) })
	}

	return g.Wait()
}

func newProducer(cfg config.Config, logger *slog.Logger) (infraoutbox.Producer, func(), error) {
	if !cfg.KafkaEnabled() {
		logger.Info("kafka not configured; outbox events are logged only")
		return infraoutbox.LogProducer{Logger: logger}, func() {}, nil
	}
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() {
		if err := producer.Close(); err != nil {
			logger.Warn("kafka producer close failed", "error", err)
		}
	}, nil
}
