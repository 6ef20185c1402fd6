package postgres

import (
	"context"
	"database/sql"

	"staybook/internal/infra/inbox"
)

type InboxStore struct {
	db       *sql.DB
	consumer string
}

func NewInboxStore(db *sql.DB, consumer string) *InboxStore {
	return &InboxStore{db: db, consumer: consumer}
}

func (s *InboxStore) Seen(ctx context.Context, eventID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO app_inbox (event_id, consumer, received_at) VALUES ($1, $2, now())
		ON CONFLICT DO NOTHING`, eventID, s.consumer)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

func (s *InboxStore) Forget(ctx context.Context, eventID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM app_inbox WHERE event_id = $1 AND consumer = $2`, eventID, s.consumer)
	return err
}

var _ inbox.Deduplicator = (*InboxStore)(nil)
