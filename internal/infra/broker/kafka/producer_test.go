package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func TestProducerSendsKeyedMessageWithSortedHeaders(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "booking.events.v1" {
			return fmt.Errorf("topic %q", msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "b-1" {
			return fmt.Errorf("key %q", key)
		}
		if len(msg.Headers) != 2 || string(msg.Headers[0].Key) != "ce_id" || string(msg.Headers[1].Key) != "content-type" {
			return fmt.Errorf("headers %v", msg.Headers)
		}
		return nil
	})
	p := newProducer(mock)
	err := p.Publish(context.Background(), "booking.events.v1", "b-1", []byte(`{}`), map[string]string{
		"content-type": "application/cloudevents+json",
		"ce_id":        "evt-1",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestProducerWrapsSendFailure(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	boom := errors.New("broker down")
	mock.ExpectSendMessageAndFail(boom)
	p := newProducer(mock)
	err := p.Publish(context.Background(), "listing.events.v1", "l-1", nil, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped broker error, got %v", err)
	}
	_ = p.Close()
}

func TestProducerHonorsCancelledContext(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	p := newProducer(mock)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Publish(ctx, "t", "k", nil, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	_ = p.Close()
}

func TestProducerConfigIsIdempotent(t *testing.T) {
	cfg := ProducerConfig()
	if !cfg.Producer.Idempotent || cfg.Net.MaxOpenRequests != 1 || cfg.Producer.RequiredAcks != sarama.WaitForAll {
		t.Fatalf("unexpected producer config %+v", cfg.Producer)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config invalid: %v", err)
	}
}
