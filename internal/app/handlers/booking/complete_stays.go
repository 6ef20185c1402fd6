package booking

import (
	"context"
	"log/slog"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
)

const (
	completeStaysKey     = "booking.complete_stays"
	defaultCompleteBatch = 200
)

// CompleteStaysCommand marks confirmed bookings whose checkout is not after At as completed.
type CompleteStaysCommand struct {
	At    time.Time
	Limit int
}

func (c CompleteStaysCommand) Key() string { return completeStaysKey }

type CompleteStaysHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
}

func (h *CompleteStaysHandler) Handle(ctx context.Context, cmd CompleteStaysCommand) (*dto.CompleteStaysResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	at := cmd.At
	if at.IsZero() {
		at = time.Now()
	}
	limit := cmd.Limit
	if limit <= 0 {
		limit = defaultCompleteBatch
	}
	due, err := unit.Booking().ListConfirmedEndedBefore(ctx, at.UTC(), limit)
	if err != nil {
		return nil, err
	}
	completed := 0
	for _, booking := range due {
		if err := booking.Complete(at); err != nil {
			if h.Logger != nil {
				h.Logger.Warn("booking not completed", "booking_id", booking.ID, "error", err)
			}
			continue
		}
		if err := unit.Booking().Save(ctx, booking); err != nil {
			return nil, err
		}
		if err := outbox.RecordAggregates(ctx, h.Outbox, h.Encoder, booking); err != nil {
			return nil, err
		}
		completed++
	}
	if h.Logger != nil && completed > 0 {
		h.Logger.Info("stays completed", "count", completed)
	}
	return &dto.CompleteStaysResult{Completed: completed}, nil
}

var _ commands.Handler[CompleteStaysCommand, *dto.CompleteStaysResult] = (*CompleteStaysHandler)(nil)
