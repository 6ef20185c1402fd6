package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Worker drains the outbox queue into the broker as CloudEvents. Delivery is
// at least once; consumers deduplicate on the event id.
type Worker struct {
	Queue       Queue
	Producer    Producer
	Wake        *Signal
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
	// BatchSize caps how many records one tick delivers.
	BatchSize int
	Logger    *slog.Logger
	Now       func() time.Time
}

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

func (w *Worker) Run(ctx context.Context) error {
	if w.Queue == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-w.Wake.C():
		}
		if err := w.drain(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.log().Error("outbox delivery stalled", "worker", w.ID, "error", err)
		}
	}
}

func (w *Worker) drain(ctx context.Context) error {
	for i := 0; i < w.batchSize(); i++ {
		delivered, err := w.ProcessOnce(ctx)
		if err != nil {
			return err
		}
		if !delivered {
			return nil
		}
	}
	return nil
}

// ProcessOnce delivers at most one record. It reports whether a record was claimed.
func (w *Worker) ProcessOnce(ctx context.Context) (bool, error) {
	msg, err := w.Queue.Claim(ctx, w.ID)
	if err != nil || msg == nil {
		return false, err
	}
	topic := w.topicFor(msg.Name)
	payload, headers, err := w.formatPayload(msg)
	if err != nil {
		return true, w.fail(ctx, msg, err)
	}
	if err := w.Producer.Publish(ctx, topic, msg.Aggregate, payload, headers); err != nil {
		return true, w.fail(ctx, msg, err)
	}
	return true, w.Queue.MarkSent(ctx, msg.ID)
}

func (w *Worker) fail(ctx context.Context, msg *Message, cause error) error {
	w.log().Warn("outbox publish failed", "event_id", msg.ID, "event", msg.Name, "attempts", msg.Attempts+1, "error", cause)
	return w.Queue.MarkFailed(ctx, msg.ID, w.nextRetry(msg.Attempts), cause.Error())
}

// CloudEvent is the envelope published for every outbox record.
type CloudEvent struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	Subject         string          `json:"subject,omitempty"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	TraceParent     string          `json:"traceparent,omitempty"`
	Data            json.RawMessage `json:"data"`
}

func (w *Worker) formatPayload(msg *Message) ([]byte, map[string]string, error) {
	if !json.Valid(msg.Payload) {
		return nil, nil, errors.New("outbox: payload is not valid json")
	}
	// The record id is reused so redeliveries carry the same event id.
	evt := CloudEvent{
		SpecVersion:     "1.0",
		ID:              msg.ID,
		Type:            msg.Name + ".v1",
		Source:          w.source(),
		Subject:         msg.Aggregate,
		Time:            msg.OccurredAt.UTC(),
		DataContentType: "application/json",
		TraceParent:     msg.Headers["traceparent"],
		Data:            json.RawMessage(msg.Payload),
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{
		"content-type": "application/cloudevents+json",
		"ce_id":        msg.ID,
		"ce_type":      evt.Type,
	}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

// TopicFor maps "booking.created" to "<prefix>booking.events.v1".
func TopicFor(prefix, name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	return prefix + base + ".events.v1"
}

func (w *Worker) topicFor(name string) string {
	return TopicFor(w.TopicPrefix, name)
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) batchSize() int {
	if w.BatchSize <= 0 {
		return 100
	}
	return w.BatchSize
}

func (w *Worker) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

func (w *Worker) nextRetry(attempts int) time.Time {
	now := w.now()
	if attempts < len(w.Backoff) {
		return now.Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return now.Add(w.Backoff[len(w.Backoff)-1])
	}
	return now.Add(5 * time.Second)
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return "app://staybook"
}

func (w *Worker) log() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}
