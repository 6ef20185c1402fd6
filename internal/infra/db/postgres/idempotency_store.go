package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"staybook/internal/app/middleware"
)

type IdempotencyStore struct {
	db  *sql.DB
	ttl time.Duration
}

func NewIdempotencyStore(db *sql.DB, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{db: db, ttl: ttl}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	rec := middleware.IdempotencyRecord{Key: key}
	err := s.db.QueryRowContext(ctx, `SELECT command, fingerprint, payload, occurred_at FROM app_idempotency WHERE key = $1`, key).
		Scan(&rec.Command, &rec.Fingerprint, &rec.Payload, &rec.OccurredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return middleware.IdempotencyRecord{}, false, nil
		}
		return middleware.IdempotencyRecord{}, false, err
	}
	return rec, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_idempotency (key, command, fingerprint, payload, occurred_at) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE SET command = EXCLUDED.command, fingerprint = EXCLUDED.fingerprint,
			payload = EXCLUDED.payload, occurred_at = EXCLUDED.occurred_at`,
		rec.Key, rec.Command, rec.Fingerprint, rec.Payload, rec.OccurredAt)
	return err
}

// Purge deletes records older than the replay window. It runs from the scheduler.
func (s *IdempotencyStore) Purge(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM app_idempotency WHERE occurred_at < $1`, time.Now().UTC().Add(-s.ttl))
	return err
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
