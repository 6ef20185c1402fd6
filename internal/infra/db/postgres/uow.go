package postgres

import (
	"context"
	"database/sql"
	"errors"

	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
)

// Factory opens one database transaction per unit of work.
type Factory struct {
	DB *sql.DB
}

var ErrUnitOfWorkNotConfigured = errors.New("postgres: unit of work factory missing database")

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	tx, err := f.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted, ReadOnly: opts.ReadOnly})
	if err != nil {
		return nil, err
	}
	return &Unit{tx: tx}, nil
}

type Unit struct {
	tx     *sql.Tx
	closed bool
}

func (u *Unit) Listings() domainlistings.ListingRepository {
	return listingRepository{q: u.tx}
}

func (u *Unit) Booking() domainbooking.Repository {
	return bookingRepository{q: u.tx}
}

func (u *Unit) Guard() uow.BookingGuard {
	return rowGuard{q: u.tx}
}

func (u *Unit) Commit(ctx context.Context) error {
	if u.closed {
		return nil
	}
	u.closed = true
	return translate(u.tx.Commit())
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.closed {
		return nil
	}
	u.closed = true
	err := u.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// txFromContext returns the transaction of the postgres unit bound to ctx.
func txFromContext(ctx context.Context) (*sql.Tx, bool) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, false
	}
	pu, ok := unit.(*Unit)
	if !ok || pu.closed {
		return nil, false
	}
	return pu.tx, true
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowGuard locks the listing row until commit or rollback. A missing listing
// takes no lock; the availability check rejects it right after.
type rowGuard struct {
	q querier
}

func (g rowGuard) Lock(ctx context.Context, listingID domainlistings.ListingID) error {
	var id string
	err := g.q.QueryRowContext(ctx, `SELECT id FROM listings WHERE id = $1 FOR UPDATE`, string(listingID)).Scan(&id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return translate(err)
	}
	return nil
}

var _ uow.UoWFactory = Factory{}
