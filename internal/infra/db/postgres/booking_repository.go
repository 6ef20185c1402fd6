package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/pricing"
	domainrange "staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

type bookingRepository struct {
	q querier
}

const bookingColumns = `id, listing_id, host_id, guest_id, check_in, check_out, guests, status, confirmation_code,
	special_requests, payment_method, cancel_reason, price_tier, nights, currency, nightly_cents, subtotal_cents,
	cleaning_cents, service_cents, total_cents, created_at, updated_at, version`

type scanner interface {
	Scan(dest ...any) error
}

func scanBooking(s scanner) (*domainbooking.Booking, error) {
	var (
		b                                             domainbooking.Booking
		id, listingID, hostID, status, tier, currency string
		nightly, subtotal, cleaning, service, total   int64
		nights                                        int
	)
	err := s.Scan(&id, &listingID, &hostID, &b.GuestID, &b.Range.CheckIn, &b.Range.CheckOut, &b.Guests, &status,
		&b.ConfirmationCode, &b.SpecialRequests, &b.PaymentMethod, &b.CancelReason, &tier, &nights, &currency,
		&nightly, &subtotal, &cleaning, &service, &total, &b.CreatedAt, &b.UpdatedAt, &b.Version)
	if err != nil {
		return nil, err
	}
	m := func(c int64) money.Money { return money.Money{Amount: c, Currency: currency} }
	b.ID = domainbooking.BookingID(id)
	b.ListingID = domainlistings.ListingID(listingID)
	b.HostID = domainlistings.HostID(hostID)
	b.Status = domainbooking.Status(status)
	b.Range = domainrange.DateRange{CheckIn: b.Range.CheckIn.UTC(), CheckOut: b.Range.CheckOut.UTC()}
	b.Price = pricing.PriceBreakdown{
		Tier:        pricing.Tier(tier),
		Nights:      nights,
		NightlyRate: m(nightly),
		Subtotal:    m(subtotal),
		CleaningFee: m(cleaning),
		ServiceFee:  m(service),
		Total:       m(total),
	}
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}

func (r bookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	b, err := scanBooking(r.q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, string(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, translate(err)
	}
	return b, nil
}

// Save relies on the bookings_no_overlap constraint as a second line of defence
// behind the listing guard; a violation surfaces as ErrDatesUnavailable.
func (r bookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	p := b.Price
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			cancel_reason = EXCLUDED.cancel_reason,
			updated_at = EXCLUDED.updated_at,
			version = EXCLUDED.version
		WHERE bookings.version = $24`,
		string(b.ID), string(b.ListingID), string(b.HostID), b.GuestID, b.Range.CheckIn, b.Range.CheckOut, b.Guests,
		string(b.Status), b.ConfirmationCode, b.SpecialRequests, b.PaymentMethod, b.CancelReason,
		string(p.Tier), p.Nights, p.Total.Currency, p.NightlyRate.Amount, p.Subtotal.Amount, p.CleaningFee.Amount,
		p.ServiceFee.Amount, p.Total.Amount, b.CreatedAt, b.UpdatedAt, b.Version+1, b.Version)
	if err != nil {
		return translate(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrConcurrentUpdate
	}
	b.Version++
	return nil
}

func (r bookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE guest_id = $1 ORDER BY created_at DESC`, guestID)
}

func (r bookingRepository) ListBlockingOverlapping(ctx context.Context, listingID domainlistings.ListingID, dr domainrange.DateRange) ([]*domainbooking.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE listing_id = $1 AND status = ANY($2) AND check_in < $3 AND check_out > $4
		ORDER BY check_in`,
		string(listingID), pq.Array(blockingStatuses()), dr.CheckOut, dr.CheckIn)
}

func (r bookingRepository) ListConfirmedEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domainbooking.Booking, error) {
	if limit <= 0 {
		limit = 200
	}
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE status = $1 AND check_out <= $2
		ORDER BY check_out
		LIMIT $3`,
		string(domainbooking.StatusConfirmed), cutoff, limit)
}

func (r bookingRepository) list(ctx context.Context, query string, args ...any) ([]*domainbooking.Booking, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []*domainbooking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, translate(rows.Err())
}

func blockingStatuses() []string {
	statuses := domainbooking.BlockingStatuses()
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

var _ domainbooking.Repository = bookingRepository{}
