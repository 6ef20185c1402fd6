package dto

type ListingTerms struct {
	MinNights   int `json:"minNights"`
	GuestsLimit int `json:"guestsLimit,omitempty"`
}

// AvailabilityResult is the answer to an availability check. Error is set when
// Available is false.
type AvailabilityResult struct {
	Available bool            `json:"available"`
	Nights    int             `json:"nights,omitempty"`
	Pricing   *PriceBreakdown `json:"pricing,omitempty"`
	Listing   *ListingTerms   `json:"listing,omitempty"`
	Error     string          `json:"error,omitempty"`
}
