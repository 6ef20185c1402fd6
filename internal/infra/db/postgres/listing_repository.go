package postgres

import (
	"context"
	"database/sql"
	"errors"

	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/money"
)

type listingRepository struct {
	q querier
}

const listingColumns = `id, host_id, title, currency, min_nights, guests_limit, nightly_cents, weekly_cents,
	monthly_cents, cleaning_fee_cents, state, version, created_at, updated_at`

func (r listingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, string(id))
	var (
		l                         domainlistings.Listing
		nightly, weekly, monthly  sql.NullInt64
		cleaning                  int64
		host, state, listingIDRaw string
	)
	err := row.Scan(&listingIDRaw, &host, &l.Title, &l.Currency, &l.MinNights, &l.GuestsLimit,
		&nightly, &weekly, &monthly, &cleaning, &state, &l.Version, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainlistings.ErrNotFound
		}
		return nil, translate(err)
	}
	l.ID = domainlistings.ListingID(listingIDRaw)
	l.Host = domainlistings.HostID(host)
	l.State = domainlistings.ListingState(state)
	l.Rates = domainlistings.Rates{
		Nightly:     nullMoney(nightly, l.Currency),
		Weekly:      nullMoney(weekly, l.Currency),
		Monthly:     nullMoney(monthly, l.Currency),
		CleaningFee: money.Money{Amount: cleaning, Currency: l.Currency},
	}
	l.CreatedAt = l.CreatedAt.UTC()
	l.UpdatedAt = l.UpdatedAt.UTC()
	return &l, nil
}

// Save upserts the listing only when the stored version matches the one it was read at.
func (r listingRepository) Save(ctx context.Context, l *domainlistings.Listing) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO listings (`+listingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			min_nights = EXCLUDED.min_nights,
			guests_limit = EXCLUDED.guests_limit,
			nightly_cents = EXCLUDED.nightly_cents,
			weekly_cents = EXCLUDED.weekly_cents,
			monthly_cents = EXCLUDED.monthly_cents,
			cleaning_fee_cents = EXCLUDED.cleaning_fee_cents,
			state = EXCLUDED.state,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at
		WHERE listings.version = $15`,
		string(l.ID), string(l.Host), l.Title, l.Currency, l.MinNights, l.GuestsLimit,
		nullCents(l.Rates.Nightly), nullCents(l.Rates.Weekly), nullCents(l.Rates.Monthly),
		l.Rates.CleaningFee.Amount, string(l.State), l.Version+1, l.CreatedAt, l.UpdatedAt, l.Version)
	if err != nil {
		return translate(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrConcurrentUpdate
	}
	l.Version++
	return nil
}

func nullCents(m *money.Money) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: m.Amount, Valid: true}
}

func nullMoney(v sql.NullInt64, currency string) *money.Money {
	if !v.Valid {
		return nil
	}
	return &money.Money{Amount: v.Int64, Currency: currency}
}

var _ domainlistings.ListingRepository = listingRepository{}
