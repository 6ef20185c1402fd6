package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"staybook/internal/app/uow"
	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/money"
)

// listingFixture describes a seed listing with prices in major units.
type listingFixture struct {
	ID           string   `json:"id"`
	Host         string   `json:"host"`
	Title        string   `json:"title"`
	Currency     string   `json:"currency"`
	MinNights    int      `json:"min_nights"`
	GuestsLimit  int      `json:"guests_limit"`
	NightlyPrice *float64 `json:"nightly_price"`
	WeeklyPrice  *float64 `json:"weekly_price"`
	MonthlyPrice *float64 `json:"monthly_price"`
	CleaningFee  float64  `json:"cleaning_fee"`
	// Draft keeps the listing unpublished.
	Draft bool `json:"draft"`
}

// loadListingFixtures imports listings that do not exist yet. A missing file is not an error.
func loadListingFixtures(ctx context.Context, factory uow.UoWFactory, path, defaultCurrency string, logger *slog.Logger) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("listing fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures []listingFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now()
	imported := 0
	for _, fx := range fixtures {
		listing, err := fx.listing(defaultCurrency, now)
		if err != nil {
			logger.Error("fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		created, err := saveIfAbsent(ctx, factory, listing)
		if err != nil {
			logger.Error("cannot store fixture listing", "listing_id", fx.ID, "error", err)
			continue
		}
		if created {
			imported++
		}
	}
	logger.Info("listing fixtures loaded", "path", path, "imported", imported, "total", len(fixtures))
	return nil
}

func (fx listingFixture) listing(defaultCurrency string, now time.Time) (*listings.Listing, error) {
	currency := fx.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	var rates listings.Rates
	var err error
	if rates.Nightly, err = fixturePrice(fx.NightlyPrice, currency); err != nil {
		return nil, err
	}
	if rates.Weekly, err = fixturePrice(fx.WeeklyPrice, currency); err != nil {
		return nil, err
	}
	if rates.Monthly, err = fixturePrice(fx.MonthlyPrice, currency); err != nil {
		return nil, err
	}
	if rates.CleaningFee, err = money.FromMajor(fx.CleaningFee, currency); err != nil {
		return nil, err
	}
	listing, err := listings.NewListing(listings.CreateListingParams{
		ID:          listings.ListingID(fx.ID),
		Host:        listings.HostID(fx.Host),
		Title:       fx.Title,
		Currency:    currency,
		MinNights:   fx.MinNights,
		GuestsLimit: fx.GuestsLimit,
		Rates:       rates,
		Now:         now,
	})
	if err != nil {
		return nil, err
	}
	if !fx.Draft {
		if err := listing.Activate(now); err != nil {
			return nil, err
		}
	}
	return listing, nil
}

func fixturePrice(v *float64, currency string) (*money.Money, error) {
	if v == nil {
		return nil, nil
	}
	m, err := money.FromMajor(*v, currency)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func saveIfAbsent(ctx context.Context, factory uow.UoWFactory, listing *listings.Listing) (bool, error) {
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return false, err
	}
	execCtx := uow.Bind(ctx, unit)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(execCtx)
		}
	}()
	if _, err := unit.Listings().ByID(execCtx, listing.ID); err == nil {
		return false, nil
	} else if !errors.Is(err, listings.ErrNotFound) {
		return false, err
	}
	// Fixture events are not published.
	listing.Drain()
	if err := unit.Listings().Save(execCtx, listing); err != nil {
		return false, err
	}
	committed = true
	if err := unit.Commit(execCtx); err != nil {
		return false, err
	}
	return true, nil
}
