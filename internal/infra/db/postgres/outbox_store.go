package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	appoutbox "staybook/internal/app/outbox"
	infraoutbox "staybook/internal/infra/outbox"
)

// ErrOutboxOutsideUnit is returned when Add is called without an open postgres unit.
var ErrOutboxOutsideUnit = errors.New("postgres: outbox add requires a unit of work")

// OutboxStore writes records in the caller's transaction and serves them to
// the worker with SKIP LOCKED claims.
type OutboxStore struct {
	db    *sql.DB
	wake  *infraoutbox.Signal
	lease time.Duration
}

func NewOutboxStore(db *sql.DB, wake *infraoutbox.Signal) *OutboxStore {
	return &OutboxStore{db: db, wake: wake, lease: time.Minute}
}

func (s *OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	tx, ok := txFromContext(ctx)
	if !ok {
		return ErrOutboxOutsideUnit
	}
	headers, err := json.Marshal(record.Headers)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO app_outbox (id, name, payload, occurred_at, aggregate, headers, state, next_attempt_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		record.ID, record.Name, record.Payload, record.OccurredAt, record.Aggregate, headers,
		infraoutbox.StateNew, now, now)
	return translate(err)
}

func (s *OutboxStore) Flush(context.Context) error {
	s.wake.Notify()
	return nil
}

func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*infraoutbox.Message, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE app_outbox SET state = $1, claimed_by = $2, claimed_at = now()
		WHERE id = (
			SELECT id FROM app_outbox
			WHERE (state IN ($3, $4) AND next_attempt_at <= now())
			   OR (state = $1 AND claimed_at <= now() - $5 * interval '1 second')
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, name, payload, occurred_at, aggregate, headers, attempts`,
		infraoutbox.StateClaimed, workerID, infraoutbox.StateNew, infraoutbox.StateFailed, s.lease.Seconds())
	var (
		msg     infraoutbox.Message
		headers []byte
	)
	if err := row.Scan(&msg.ID, &msg.Name, &msg.Payload, &msg.OccurredAt, &msg.Aggregate, &headers, &msg.Attempts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(headers) > 0 {
		if err := json.Unmarshal(headers, &msg.Headers); err != nil {
			return nil, err
		}
	}
	return &msg, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE app_outbox SET state = $1, sent_at = now() WHERE id = $2`, infraoutbox.StateSent, id)
	return err
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE app_outbox SET state = $1, next_attempt_at = $2, last_error = $3, attempts = attempts + 1
		WHERE id = $4`,
		infraoutbox.StateFailed, next.UTC(), errMsg, id)
	return err
}

var (
	_ appoutbox.Outbox  = (*OutboxStore)(nil)
	_ infraoutbox.Queue = (*OutboxStore)(nil)
)
