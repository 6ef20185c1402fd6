package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"

	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	ListingsRepo *ListingRepository
	BookingRepo  *BookingRepository
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session/transaction with snapshot reads.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil || f.ListingsRepo == nil || f.BookingRepo == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(readconcern.Snapshot()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		session:  session,
		guards:   f.DB.Collection("booking_guards"),
		listings: f.ListingsRepo,
		booking:  f.BookingRepo,
	}, nil
}

type Unit struct {
	session mongo.Session
	guards  *mongo.Collection
	closed  bool

	listings *ListingRepository
	booking  *BookingRepository
}

func (u *Unit) Listings() domainlistings.ListingRepository {
	return u.listings
}

func (u *Unit) Booking() domainbooking.Repository {
	return u.booking
}

func (u *Unit) Guard() uow.BookingGuard {
	return sessionGuard{col: u.guards}
}

func (u *Unit) Commit(ctx context.Context) error {
	if u.closed {
		return nil
	}
	u.closed = true
	defer u.session.EndSession(ctx)
	return translate(u.session.CommitTransaction(ctx))
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.closed {
		return nil
	}
	u.closed = true
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

// sessionGuard writes the listing's guard document inside the transaction. A
// second transaction touching the same listing hits a write conflict and is
// retried after the first one finishes.
type sessionGuard struct {
	col *mongo.Collection
}

func (g sessionGuard) Lock(ctx context.Context, listingID domainlistings.ListingID) error {
	_, err := g.col.UpdateByID(ctx, string(listingID),
		bson.M{"$inc": bson.M{"seq": 1}},
		options.Update().SetUpsert(true))
	return translate(err)
}

var (
	_ uow.UoWFactory      = Factory{}
	_ uow.ContextInjector = (*Unit)(nil)
)
