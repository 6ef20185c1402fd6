package listings

import (
	"time"
)

type ListingCreated struct {
	ListingID ListingID `json:"listing_id"`
	HostID    HostID    `json:"host_id"`
	At        time.Time `json:"at"`
}

func (e ListingCreated) EventName() string     { return "listing.created" }
func (e ListingCreated) AggregateID() string   { return string(e.ListingID) }
func (e ListingCreated) OccurredAt() time.Time { return e.At }

type ListingActivated struct {
	ListingID ListingID `json:"listing_id"`
	HostID    HostID    `json:"host_id"`
	At        time.Time `json:"at"`
}

func (e ListingActivated) EventName() string     { return "listing.activated" }
func (e ListingActivated) AggregateID() string   { return string(e.ListingID) }
func (e ListingActivated) OccurredAt() time.Time { return e.At }

type ListingSuspended struct {
	ListingID ListingID `json:"listing_id"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

func (e ListingSuspended) EventName() string     { return "listing.suspended" }
func (e ListingSuspended) AggregateID() string   { return string(e.ListingID) }
func (e ListingSuspended) OccurredAt() time.Time { return e.At }

type ListingTermsUpdated struct {
	ListingID ListingID `json:"listing_id"`
	MinNights int       `json:"min_nights"`
	At        time.Time `json:"at"`
}

func (e ListingTermsUpdated) EventName() string     { return "listing.terms_updated" }
func (e ListingTermsUpdated) AggregateID() string   { return string(e.ListingID) }
func (e ListingTermsUpdated) OccurredAt() time.Time { return e.At }
