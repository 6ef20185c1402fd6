package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open connects through lib/pq and applies the schema.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate is idempotent; every statement is guarded by IF NOT EXISTS.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: schema step %d: %w", i+1, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS btree_gist`,
	`CREATE TABLE IF NOT EXISTS listings (
		id                 TEXT PRIMARY KEY,
		host_id            TEXT NOT NULL,
		title              TEXT NOT NULL,
		currency           CHAR(3) NOT NULL,
		min_nights         INT NOT NULL,
		guests_limit       INT NOT NULL,
		nightly_cents      BIGINT,
		weekly_cents       BIGINT,
		monthly_cents      BIGINT,
		cleaning_fee_cents BIGINT NOT NULL DEFAULT 0,
		state              TEXT NOT NULL,
		version            BIGINT NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL,
		updated_at         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS listings_host_idx ON listings (host_id)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id                TEXT PRIMARY KEY,
		listing_id        TEXT NOT NULL REFERENCES listings (id),
		host_id           TEXT NOT NULL,
		guest_id          TEXT NOT NULL,
		check_in          TIMESTAMPTZ NOT NULL,
		check_out         TIMESTAMPTZ NOT NULL,
		guests            INT NOT NULL,
		status            TEXT NOT NULL,
		confirmation_code TEXT NOT NULL UNIQUE,
		special_requests  TEXT NOT NULL DEFAULT '',
		payment_method    TEXT NOT NULL DEFAULT '',
		cancel_reason     TEXT NOT NULL DEFAULT '',
		price_tier        TEXT NOT NULL,
		nights            INT NOT NULL,
		currency          CHAR(3) NOT NULL,
		nightly_cents     BIGINT NOT NULL,
		subtotal_cents    BIGINT NOT NULL,
		cleaning_cents    BIGINT NOT NULL,
		service_cents     BIGINT NOT NULL,
		total_cents       BIGINT NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL,
		updated_at        TIMESTAMPTZ NOT NULL,
		version           BIGINT NOT NULL,
		CHECK (check_out > check_in),
		CONSTRAINT bookings_no_overlap EXCLUDE USING gist (
			listing_id WITH =,
			tstzrange(check_in, check_out, '[)') WITH &&
		) WHERE (status IN ('pending', 'confirmed'))
	)`,
	`CREATE INDEX IF NOT EXISTS bookings_guest_idx ON bookings (guest_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS bookings_ended_idx ON bookings (status, check_out)`,
	`CREATE TABLE IF NOT EXISTS app_outbox (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		payload         BYTEA NOT NULL,
		occurred_at     TIMESTAMPTZ NOT NULL,
		aggregate       TEXT NOT NULL,
		headers         JSONB NOT NULL DEFAULT '{}',
		state           TEXT NOT NULL,
		attempts        INT NOT NULL DEFAULT 0,
		next_attempt_at TIMESTAMPTZ NOT NULL,
		claimed_by      TEXT,
		claimed_at      TIMESTAMPTZ,
		sent_at         TIMESTAMPTZ,
		last_error      TEXT,
		created_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS app_outbox_due_idx ON app_outbox (state, next_attempt_at)`,
	`CREATE TABLE IF NOT EXISTS app_idempotency (
		key         TEXT PRIMARY KEY,
		command     TEXT NOT NULL,
		fingerprint TEXT NOT NULL DEFAULT '',
		payload     BYTEA,
		occurred_at TIMESTAMPTZ NOT NULL
	)`,
	`ALTER TABLE app_idempotency ADD COLUMN IF NOT EXISTS fingerprint TEXT NOT NULL DEFAULT ''`,
	`CREATE TABLE IF NOT EXISTS app_inbox (
		event_id    TEXT NOT NULL,
		consumer    TEXT NOT NULL,
		received_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (event_id, consumer)
	)`,
}
