package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeQueue struct {
	mu      sync.Mutex
	pending []*Message
	sent    []string
	failed  map[string]time.Time
}

func (q *fakeQueue) Claim(context.Context, string) (*Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, nil
	}
	msg := q.pending[0]
	q.pending = q.pending[1:]
	return msg, nil
}

func (q *fakeQueue) MarkSent(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sent = append(q.sent, id)
	return nil
}

func (q *fakeQueue) MarkFailed(_ context.Context, id string, next time.Time, _ string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failed == nil {
		q.failed = map[string]time.Time{}
	}
	q.failed[id] = next
	return nil
}

func (q *fakeQueue) sentSnapshot() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.sent...)
}

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	out []published
	err error
}

func (p *fakeProducer) Publish(_ context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if p.err != nil {
		return p.err
	}
	p.out = append(p.out, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func TestWorkerPublishesCloudEvent(t *testing.T) {
	at := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	queue := &fakeQueue{pending: []*Message{{
		ID: "evt-1", Name: "booking.created", Aggregate: "b-1", OccurredAt: at,
		Payload: []byte(`{"booking_id":"b-1"}`),
		Headers: map[string]string{"traceparent": "00-abc-def-01"},
	}}}
	producer := &fakeProducer{}
	w := &Worker{Queue: queue, Producer: producer, TopicPrefix: "prod.", ID: "w-1"}

	delivered, err := w.ProcessOnce(context.Background())
	if err != nil || !delivered {
		t.Fatalf("process: delivered=%v err=%v", delivered, err)
	}
	if len(producer.out) != 1 {
		t.Fatalf("expected one publish, got %d", len(producer.out))
	}
	got := producer.out[0]
	if got.topic != "prod.booking.events.v1" || got.key != "b-1" {
		t.Fatalf("unexpected routing topic=%q key=%q", got.topic, got.key)
	}
	var evt CloudEvent
	if err := json.Unmarshal(got.payload, &evt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if evt.ID != "evt-1" || evt.Type != "booking.created.v1" || evt.TraceParent != "00-abc-def-01" || !evt.Time.Equal(at) {
		t.Fatalf("unexpected envelope %+v", evt)
	}
	if string(evt.Data) != `{"booking_id":"b-1"}` {
		t.Fatalf("data not passed through: %s", evt.Data)
	}
	if got.headers["content-type"] != "application/cloudevents+json" {
		t.Fatalf("missing content type header: %v", got.headers)
	}
	if len(queue.sent) != 1 || queue.sent[0] != "evt-1" {
		t.Fatalf("expected evt-1 marked sent, got %v", queue.sent)
	}
}

func TestWorkerSchedulesRetryWithBackoff(t *testing.T) {
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	queue := &fakeQueue{pending: []*Message{
		{ID: "evt-1", Name: "booking.created", Payload: []byte(`{}`), Attempts: 1},
		{ID: "evt-2", Name: "booking.created", Payload: []byte(`{}`), Attempts: 5},
	}}
	w := &Worker{
		Queue:    queue,
		Producer: &fakeProducer{err: errors.New("broker unavailable")},
		Backoff:  []time.Duration{time.Second, 5 * time.Second},
		Now:      func() time.Time { return now },
	}
	for i := 0; i < 2; i++ {
		if _, err := w.ProcessOnce(context.Background()); err != nil {
			t.Fatalf("process: %v", err)
		}
	}
	if got := queue.failed["evt-1"]; !got.Equal(now.Add(5 * time.Second)) {
		t.Fatalf("evt-1 retry at %v, want +5s", got)
	}
	if got := queue.failed["evt-2"]; !got.Equal(now.Add(5 * time.Second)) {
		t.Fatalf("attempts past the schedule must reuse the last backoff, got %v", got)
	}
	if len(queue.sent) != 0 {
		t.Fatalf("nothing should be marked sent")
	}
}

func TestWorkerRejectsInvalidPayload(t *testing.T) {
	queue := &fakeQueue{pending: []*Message{{ID: "evt-1", Name: "booking.created", Payload: []byte("not json")}}}
	producer := &fakeProducer{}
	w := &Worker{Queue: queue, Producer: producer}
	if _, err := w.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(producer.out) != 0 {
		t.Fatalf("invalid payload must not be published")
	}
	if _, ok := queue.failed["evt-1"]; !ok {
		t.Fatalf("invalid payload must be marked failed")
	}
}

func TestWorkerWakesOnSignal(t *testing.T) {
	queue := &fakeQueue{pending: []*Message{{ID: "evt-1", Name: "listing.created", Payload: []byte(`{}`)}}}
	producer := &fakeProducer{}
	wake := NewSignal()
	w := &Worker{Queue: queue, Producer: producer, Wake: wake, Interval: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	wake.Notify()
	wake.Notify()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-deadline:
			cancel()
			t.Fatalf("worker did not deliver after wake-up")
		case <-time.After(5 * time.Millisecond):
		}
		if len(queue.sentSnapshot()) == 1 {
			break
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestTopicFor(t *testing.T) {
	cases := map[string]string{
		"booking.created":       "booking.events.v1",
		"listing.terms_updated": "listing.events.v1",
		"plain":                 "plain.events.v1",
	}
	for name, want := range cases {
		if got := TopicFor("", name); got != want {
			t.Fatalf("TopicFor(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestWorkerRequiresDependencies(t *testing.T) {
	if err := (&Worker{}).Run(context.Background()); !errors.Is(err, ErrWorkerNotConfigured) {
		t.Fatalf("expected ErrWorkerNotConfigured, got %v", err)
	}
}
