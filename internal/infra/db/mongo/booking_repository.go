package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/listings"
	domainrange "staybook/internal/domain/shared/daterange"
)

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(ctx context.Context, db *mongo.Database) (*BookingRepository, error) {
	col := db.Collection("bookings")
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "status", Value: 1}, {Key: "check_in", Value: 1}}},
		{Keys: bson.D{{Key: "guest_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "check_out", Value: 1}}},
	})
	if err != nil {
		return nil, err
	}
	return &BookingRepository{col: col}, nil
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, translate(err)
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
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
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"guest_id": guestID}, opts)
}

// ListBlockingOverlapping uses half-open comparison: a stay ending on check-in day does not overlap.
func (r *BookingRepository) ListBlockingOverlapping(ctx context.Context, listingID listings.ListingID, dr domainrange.DateRange) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"listing_id": string(listingID),
		"status":     bson.M{"$in": blockingStatuses()},
		"check_in":   bson.M{"$lt": dr.CheckOut},
		"check_out":  bson.M{"$gt": dr.CheckIn},
	}
	opts := options.Find().SetSort(bson.D{{Key: "check_in", Value: 1}})
	return r.find(ctx, filter, opts)
}

func (r *BookingRepository) ListConfirmedEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"status":    string(domainbooking.StatusConfirmed),
		"check_out": bson.M{"$lte": cutoff},
	}
	opts := options.Find().SetSort(bson.D{{Key: "check_out", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, filter, opts)
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err)
	}
	defer cur.Close(ctx)
	var docs []bookingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate(err)
	}
	out := make([]*domainbooking.Booking, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

func blockingStatuses() bson.A {
	statuses := domainbooking.BlockingStatuses()
	out := make(bson.A, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

type bookingDocument struct {
	ID               string        `bson:"_id"`
	ListingID        string        `bson:"listing_id"`
	HostID           string        `bson:"host_id"`
	GuestID          string        `bson:"guest_id"`
	CheckIn          time.Time     `bson:"check_in"`
	CheckOut         time.Time     `bson:"check_out"`
	Guests           int           `bson:"guests"`
	Price            priceDocument `bson:"price"`
	Status           string        `bson:"status"`
	ConfirmationCode string        `bson:"confirmation_code"`
	SpecialRequests  string        `bson:"special_requests,omitempty"`
	PaymentMethod    string        `bson:"payment_method,omitempty"`
	CancelReason     string        `bson:"cancel_reason,omitempty"`
	CreatedAt        time.Time     `bson:"created_at"`
	UpdatedAt        time.Time     `bson:"updated_at"`
	Version          int64         `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:               string(b.ID),
		ListingID:        string(b.ListingID),
		HostID:           string(b.HostID),
		GuestID:          b.GuestID,
		CheckIn:          b.Range.CheckIn,
		CheckOut:         b.Range.CheckOut,
		Guests:           b.Guests,
		Price:            newPriceDocument(b.Price),
		Status:           string(b.Status),
		ConfirmationCode: b.ConfirmationCode,
		SpecialRequests:  b.SpecialRequests,
		PaymentMethod:    b.PaymentMethod,
		CancelReason:     b.CancelReason,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
		Version:          b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:               domainbooking.BookingID(d.ID),
		ListingID:        listings.ListingID(d.ListingID),
		HostID:           listings.HostID(d.HostID),
		GuestID:          d.GuestID,
		Range:            domainrange.DateRange{CheckIn: d.CheckIn.UTC(), CheckOut: d.CheckOut.UTC()},
		Guests:           d.Guests,
		Price:            d.Price.toBreakdown(),
		Status:           domainbooking.Status(d.Status),
		ConfirmationCode: d.ConfirmationCode,
		SpecialRequests:  d.SpecialRequests,
		PaymentMethod:    d.PaymentMethod,
		CancelReason:     d.CancelReason,
		CreatedAt:        d.CreatedAt.UTC(),
		UpdatedAt:        d.UpdatedAt.UTC(),
		Version:          d.Version,
	}
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
