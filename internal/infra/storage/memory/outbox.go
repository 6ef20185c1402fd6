package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	infraoutbox "staybook/internal/infra/outbox"
)

type outboxEntry struct {
	msg       infraoutbox.Message
	state     string
	next      time.Time
	claimedBy string
	lastError string
}

// Outbox keeps records in memory. Records added inside a memory unit of work are
// staged on the unit and only become visible to the worker after commit.
type Outbox struct {
	mu      sync.Mutex
	entries []*outboxEntry
	wake    *infraoutbox.Signal
	now     func() time.Time
}

func NewOutbox(wake *infraoutbox.Signal) *Outbox {
	return &Outbox{wake: wake, now: time.Now}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if unit, ok := uow.FromContext(ctx); ok {
		if mu, ok := unit.(*Unit); ok {
			return mu.stageRecord(record)
		}
	}
	o.enqueue(record)
	return nil
}

func (o *Outbox) Flush(context.Context) error {
	o.wake.Notify()
	return nil
}

func (o *Outbox) enqueue(records ...appoutbox.EventRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	for _, rec := range records {
		o.entries = append(o.entries, &outboxEntry{
			msg: infraoutbox.Message{
				ID:         rec.ID,
				Name:       rec.Name,
				Payload:    append([]byte(nil), rec.Payload...),
				OccurredAt: rec.OccurredAt,
				Aggregate:  rec.Aggregate,
				Headers:    copyHeaders(rec.Headers),
			},
			state: infraoutbox.StateNew,
			next:  now,
		})
	}
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.Message, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	for _, e := range o.entries {
		if e.state != infraoutbox.StateNew && e.state != infraoutbox.StateFailed {
			continue
		}
		if e.next.After(now) {
			continue
		}
		e.state = infraoutbox.StateClaimed
		e.claimedBy = workerID
		msg := e.msg
		msg.Headers = copyHeaders(e.msg.Headers)
		return &msg, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	kept := o.entries[:0]
	for _, e := range o.entries {
		if e.msg.ID == id {
			continue
		}
		kept = append(kept, e)
	}
	o.entries = kept
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range o.entries {
		if e.msg.ID == id {
			e.state = infraoutbox.StateFailed
			e.next = next
			e.lastError = errMsg
			e.msg.Attempts++
		}
	}
	return nil
}

// Pending returns the records not yet delivered, oldest first.
func (o *Outbox) Pending() []infraoutbox.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]infraoutbox.Message, 0, len(o.entries))
	for _, e := range o.entries {
		out = append(out, e.msg)
	}
	return out
}

func copyHeaders(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var (
	_ appoutbox.Outbox  = (*Outbox)(nil)
	_ infraoutbox.Queue = (*Outbox)(nil)
)
