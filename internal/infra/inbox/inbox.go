package inbox

import "context"

// Deduplicator records consumed event ids. Seen records the id and reports true
// when it was already recorded for this consumer. Forget releases an id whose
// processing failed so a redelivery is handled again.
type Deduplicator interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}
