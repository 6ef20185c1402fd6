package listings

import (
	"context"
	"errors"
	"strings"
	"time"

	"staybook/internal/domain/shared/events"
	"staybook/internal/domain/shared/money"
)

var (
	ErrNotFound        = errors.New("listings: not found")
	ErrIDRequired      = errors.New("listings: id is required")
	ErrHostRequired    = errors.New("listings: host is required")
	ErrTitleRequired   = errors.New("listings: title is required")
	ErrMinNights       = errors.New("listings: min nights must be at least 1")
	ErrGuestsLimit     = errors.New("listings: guests limit must not be negative")
	ErrRateRequired    = errors.New("listings: at least one of nightly, weekly or monthly price is required")
	ErrNegativeRate    = errors.New("listings: prices and fees must be positive")
	ErrInvalidState    = errors.New("listings: invalid state transition")
	ErrCurrencyUnknown = errors.New("listings: prices must share the listing currency")
	ErrRateTooHigh     = errors.New("listings: prices and fees must not exceed 1,000,000.00")
)

// MaxRateAmount caps every listing price and fee, in minor units.
const MaxRateAmount int64 = 100_000_000

type ListingID string
type HostID string

type ListingState string

const (
	ListingDraft          ListingState = "DRAFT"
	ListingActive         ListingState = "ACTIVE"
	ListingStateSuspended ListingState = "SUSPENDED"
)

// Rates holds the tiered prices of a listing. A nil price means the tier is not offered.
type Rates struct {
	Nightly     *money.Money
	Weekly      *money.Money
	Monthly     *money.Money
	CleaningFee money.Money
}

func (r Rates) validate(currency string) error {
	if r.Nightly == nil && r.Weekly == nil && r.Monthly == nil {
		return ErrRateRequired
	}
	for _, price := range []*money.Money{r.Nightly, r.Weekly, r.Monthly} {
		if price == nil {
			continue
		}
		if price.Amount <= 0 {
			return ErrNegativeRate
		}
		if price.Amount > MaxRateAmount {
			return ErrRateTooHigh
		}
		if price.Currency != currency {
			return ErrCurrencyUnknown
		}
	}
	if r.CleaningFee.Amount < 0 {
		return ErrNegativeRate
	}
	if r.CleaningFee.Amount > MaxRateAmount {
		return ErrRateTooHigh
	}
	if r.CleaningFee.Currency != "" && r.CleaningFee.Currency != currency {
		return ErrCurrencyUnknown
	}
	return nil
}

func (r Rates) copy() Rates {
	clone := Rates{CleaningFee: r.CleaningFee}
	clone.Nightly = copyPrice(r.Nightly)
	clone.Weekly = copyPrice(r.Weekly)
	clone.Monthly = copyPrice(r.Monthly)
	return clone
}

func copyPrice(p *money.Money) *money.Money {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

type Listing struct {
	ID          ListingID
	Host        HostID
	Title       string
	Currency    string
	MinNights   int
	GuestsLimit int
	Rates       Rates
	State       ListingState
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	events.EventRecorder
}

type ListingRepository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
}

type CreateListingParams struct {
	ID          ListingID
	Host        HostID
	Title       string
	Currency    string
	MinNights   int
	GuestsLimit int
	Rates       Rates
	Now         time.Time
}

func NewListing(params CreateListingParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.Host)) == "" {
		return nil, ErrHostRequired
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	minNights := params.MinNights
	if minNights == 0 {
		minNights = 1
	}
	if minNights < 1 {
		return nil, ErrMinNights
	}
	if params.GuestsLimit < 0 {
		return nil, ErrGuestsLimit
	}
	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if len(currency) != 3 {
		return nil, money.ErrInvalidCurrency
	}
	rates := params.Rates.copy()
	if rates.CleaningFee.Currency == "" {
		rates.CleaningFee.Currency = currency
	}
	if err := rates.validate(currency); err != nil {
		return nil, err
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	listing := &Listing{
		ID:          params.ID,
		Host:        params.Host,
		Title:       strings.TrimSpace(params.Title),
		Currency:    currency,
		MinNights:   minNights,
		GuestsLimit: params.GuestsLimit,
		Rates:       rates,
		State:       ListingDraft,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
	listing.Record(ListingCreated{ListingID: listing.ID, HostID: listing.Host, At: listing.CreatedAt})
	return listing, nil
}

type TermsParams struct {
	Title       string
	MinNights   int
	GuestsLimit int
	Rates       Rates
	Now         time.Time
}

// UpdateTerms replaces the bookable terms. Bookings already made keep their frozen price.
func (l *Listing) UpdateTerms(params TermsParams) error {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return ErrTitleRequired
	}
	minNights := params.MinNights
	if minNights == 0 {
		minNights = 1
	}
	if minNights < 1 {
		return ErrMinNights
	}
	if params.GuestsLimit < 0 {
		return ErrGuestsLimit
	}
	rates := params.Rates.copy()
	if rates.CleaningFee.Currency == "" {
		rates.CleaningFee.Currency = l.Currency
	}
	if err := rates.validate(l.Currency); err != nil {
		return err
	}
	l.Title = title
	l.MinNights = minNights
	l.GuestsLimit = params.GuestsLimit
	l.Rates = rates
	l.UpdatedAt = params.Now.UTC()
	l.Record(ListingTermsUpdated{ListingID: l.ID, MinNights: minNights, At: l.UpdatedAt})
	return nil
}

// IsActive reports whether the listing accepts bookings.
func (l *Listing) IsActive() bool {
	return l != nil && l.State == ListingActive
}

// AllowsGuests reports whether the listing fits the group; a zero limit means no limit.
func (l *Listing) AllowsGuests(guests int) bool {
	return l.GuestsLimit == 0 || guests <= l.GuestsLimit
}

func (l *Listing) Activate(now time.Time) error {
	if l.State == ListingActive {
		return nil
	}
	if err := l.Rates.validate(l.Currency); err != nil {
		return err
	}
	l.State = ListingActive
	l.UpdatedAt = now.UTC()
	l.Record(ListingActivated{ListingID: l.ID, HostID: l.Host, At: l.UpdatedAt})
	return nil
}

func (l *Listing) Suspend(now time.Time, reason string) error {
	if l.State != ListingActive {
		return ErrInvalidState
	}
	l.State = ListingStateSuspended
	l.UpdatedAt = now.UTC()
	l.Record(ListingSuspended{ListingID: l.ID, Reason: reason, At: l.UpdatedAt})
	return nil
}

// Clone returns a copy without pending events, used by stores that must not leak
// their internal pointers.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	clone := &Listing{
		ID:          l.ID,
		Host:        l.Host,
		Title:       l.Title,
		Currency:    l.Currency,
		MinNights:   l.MinNights,
		GuestsLimit: l.GuestsLimit,
		Rates:       l.Rates.copy(),
		State:       l.State,
		Version:     l.Version,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
	return clone
}
