package cache

import (
	"context"
	"errors"
	"time"

	"github.com/karlseguin/ccache/v3"

	"staybook/internal/domain/listings"
)

// ListingSource is the authoritative store behind the cache.
type ListingSource interface {
	ByID(ctx context.Context, id listings.ListingID) (*listings.Listing, error)
}

// ListingCache is a read-through cache for listing terms used by availability
// checks. Booking creation reads listings inside its unit of work and never
// goes through the cache.
type ListingCache struct {
	source ListingSource
	ttl    time.Duration
	items  *ccache.Cache[*listings.Listing]
}

func NewListingCache(source ListingSource, ttl time.Duration, size int64) *ListingCache {
	if size <= 0 {
		size = 10_000
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &ListingCache{
		source: source,
		ttl:    ttl,
		items:  ccache.New(ccache.Configure[*listings.Listing]().MaxSize(size)),
	}
}

// ByID returns a copy of the cached listing, loading it on a miss. Missing
// listings are not cached.
func (c *ListingCache) ByID(ctx context.Context, id listings.ListingID) (*listings.Listing, error) {
	key := string(id)
	if item := c.items.Get(key); item != nil && !item.Expired() {
		return item.Value().Clone(), nil
	}
	listing, err := c.source.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, listings.ErrNotFound) {
			c.items.Delete(key)
		}
		return nil, err
	}
	c.items.Set(key, listing.Clone(), c.ttl)
	return listing, nil
}

// Invalidate drops the cached entry after a host changes the listing.
func (c *ListingCache) Invalidate(id listings.ListingID) {
	c.items.Delete(string(id))
}

func (c *ListingCache) Stop() {
	c.items.Stop()
}
