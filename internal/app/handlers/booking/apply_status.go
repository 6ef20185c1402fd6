package booking

import (
	"context"
	"log/slog"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/failures"
	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
)

const applyStatusKey = "booking.apply_status"

// ApplyStatusCommand carries a status decided by the external booking workflow.
type ApplyStatusCommand struct {
	BookingID string `validate:"required"`
	Status    string `validate:"required"`
	Reason    string
	At        time.Time
}

func (c ApplyStatusCommand) Key() string { return applyStatusKey }

type ApplyStatusHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
}

func (h *ApplyStatusHandler) Handle(ctx context.Context, cmd ApplyStatusCommand) (*dto.CancelBookingResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	status, ok := domainbooking.ParseStatus(cmd.Status)
	if !ok || (status != domainbooking.StatusCancelled && status != domainbooking.StatusCompleted) {
		return nil, failures.ErrUnsupportedStatus
	}
	booking, err := unit.Booking().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	at := cmd.At
	if at.IsZero() {
		at = time.Now()
	}
	switch status {
	case domainbooking.StatusCancelled:
		err = booking.Cancel(cmd.Reason, at)
	case domainbooking.StatusCompleted:
		err = booking.Complete(at)
	}
	if err != nil {
		return nil, err
	}
	if err := unit.Booking().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := outbox.RecordAggregates(ctx, h.Outbox, h.Encoder, booking); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("booking status applied", "booking_id", booking.ID, "status", booking.Status)
	}
	return &dto.CancelBookingResult{ID: string(booking.ID), Status: string(booking.Status)}, nil
}

var _ commands.Handler[ApplyStatusCommand, *dto.CancelBookingResult] = (*ApplyStatusHandler)(nil)
