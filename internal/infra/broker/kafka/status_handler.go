package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/failures"
	bookinghandlers "staybook/internal/app/handlers/booking"
	"staybook/internal/infra/inbox"
)

// StatusTopic carries booking status decisions from the external workflow.
const StatusTopic = "booking-status.events.v1"

type statusEnvelope struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Time time.Time       `json:"time"`
	Data json.RawMessage `json:"data"`
}

type statusData struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
	Reason    string `json:"reason"`
}

// StatusHandler applies workflow status events to bookings. Each event id is
// recorded in the inbox before dispatch, so redeliveries are ignored.
type StatusHandler struct {
	Bus    commands.Bus
	Inbox  inbox.Deduplicator
	Logger *slog.Logger
}

func (h *StatusHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var env statusEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return fmt.Errorf("%w: decode envelope: %v", ErrSkipMessage, err)
	}
	if env.ID == "" {
		return fmt.Errorf("%w: event id missing", ErrSkipMessage)
	}
	var data statusData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return fmt.Errorf("%w: decode data: %v", ErrSkipMessage, err)
	}

	seen, err := h.Inbox.Seen(ctx, env.ID)
	if err != nil {
		return err
	}
	if seen {
		h.log().Debug("duplicate booking status event", "event_id", env.ID)
		return nil
	}

	_, err = commands.Dispatch[bookinghandlers.ApplyStatusCommand, *dto.CancelBookingResult](ctx, h.Bus, bookinghandlers.ApplyStatusCommand{
		BookingID: data.BookingID,
		Status:    data.Status,
		Reason:    data.Reason,
		At:        env.Time,
	})
	switch {
	case err == nil:
		return nil
	case failures.IsExpected(err):
		h.log().Warn("booking status event rejected", "event_id", env.ID, "booking_id", data.BookingID, "status", data.Status, "error", err)
		return nil
	default:
		// Release the id so the redelivery is processed.
		if ferr := h.Inbox.Forget(ctx, env.ID); ferr != nil {
			h.log().Warn("inbox release failed", "event_id", env.ID, "error", ferr)
		}
		return err
	}
}

func (h *StatusHandler) log() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
