package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/money"
)

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(ctx context.Context, db *mongo.Database) (*ListingRepository, error) {
	col := db.Collection("listings")
	if _, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "host_id", Value: 1}}}); err != nil {
		return nil, err
	}
	return &ListingRepository{col: col}, nil
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlistings.ErrNotFound
		}
		return nil, translate(err)
	}
	return doc.toAggregate(), nil
}

// Save writes the listing if it is still at the version it was read at.
func (r *ListingRepository) Save(ctx context.Context, l *domainlistings.Listing) error {
	doc := newListingDocument(l)
	doc.Version = l.Version + 1
	filter := bson.M{"_id": doc.ID, "version": l.Version}
	res, err := r.col.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return translate(err)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	l.Version = doc.Version
	return nil
}

type listingDocument struct {
	ID           string    `bson:"_id"`
	HostID       string    `bson:"host_id"`
	Title        string    `bson:"title"`
	Currency     string    `bson:"currency"`
	MinNights    int       `bson:"min_nights"`
	GuestsLimit  int       `bson:"guests_limit"`
	NightlyCents *int64    `bson:"nightly_cents,omitempty"`
	WeeklyCents  *int64    `bson:"weekly_cents,omitempty"`
	MonthlyCents *int64    `bson:"monthly_cents,omitempty"`
	CleaningFee  int64     `bson:"cleaning_fee_cents"`
	State        string    `bson:"state"`
	Version      int64     `bson:"version"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func newListingDocument(l *domainlistings.Listing) listingDocument {
	return listingDocument{
		ID:           string(l.ID),
		HostID:       string(l.Host),
		Title:        l.Title,
		Currency:     l.Currency,
		MinNights:    l.MinNights,
		GuestsLimit:  l.GuestsLimit,
		NightlyCents: centsPtr(l.Rates.Nightly),
		WeeklyCents:  centsPtr(l.Rates.Weekly),
		MonthlyCents: centsPtr(l.Rates.Monthly),
		CleaningFee:  l.Rates.CleaningFee.Amount,
		State:        string(l.State),
		Version:      l.Version,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

func (d listingDocument) toAggregate() *domainlistings.Listing {
	return &domainlistings.Listing{
		ID:          domainlistings.ListingID(d.ID),
		Host:        domainlistings.HostID(d.HostID),
		Title:       d.Title,
		Currency:    d.Currency,
		MinNights:   d.MinNights,
		GuestsLimit: d.GuestsLimit,
		Rates: domainlistings.Rates{
			Nightly:     moneyPtr(d.NightlyCents, d.Currency),
			Weekly:      moneyPtr(d.WeeklyCents, d.Currency),
			Monthly:     moneyPtr(d.MonthlyCents, d.Currency),
			CleaningFee: money.Money{Amount: d.CleaningFee, Currency: d.Currency},
		},
		State:     domainlistings.ListingState(d.State),
		Version:   d.Version,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

var _ domainlistings.ListingRepository = (*ListingRepository)(nil)
