package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

// ErrSkipMessage tells the consumer a message can never be processed; it is
// committed without further retries.
var ErrSkipMessage = errors.New("kafka: message skipped")

type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	backoff []time.Duration
	logger  *slog.Logger
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler, backoff []time.Duration, logger *slog.Logger) (*Consumer, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}
	g, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{group: g, handler: handler, backoff: backoff, logger: logger}, nil
}

// Run consumes until ctx ends. Consume returns on every rebalance, so it is re-entered in a loop.
func (c *Consumer) Run(ctx context.Context, topics []string) error {
	for {
		if err := c.group.Consume(ctx, topics, consumerGroupHandler{c: c}); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

// process retries the handler with backoff. After the last attempt the message
// is logged and committed so one poison record cannot stall the partition.
func (c *Consumer) process(ctx context.Context, msg *sarama.ConsumerMessage) {
	for attempt := 0; ; attempt++ {
		err := c.handler.Handle(ctx, msg)
		if err == nil {
			return
		}
		if errors.Is(err, ErrSkipMessage) || attempt >= len(c.backoff) {
			c.logger.Error("kafka message dropped", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "attempts", attempt+1, "error", err)
			return
		}
		c.logger.Warn("kafka message retry", "topic", msg.Topic, "offset", msg.Offset, "attempt", attempt+1, "error", err)
		timer := time.NewTimer(c.backoff[attempt])
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

type consumerGroupHandler struct {
	c *Consumer
}

func (h consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-sess.Context().Done():
			return nil
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			h.c.process(sess.Context(), message)
			if sess.Context().Err() != nil {
				// Not marked: the message is redelivered after the rebalance.
				return nil
			}
			sess.MarkMessage(message, "")
		}
	}
}
