package schedule

import (
	"context"
	"log/slog"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	bookingapp "staybook/internal/app/handlers/booking"
)

// Job is a unit of periodic background work.
type Job func(ctx context.Context) error

// Scheduler runs named jobs on a recurring schedule expression.
type Scheduler interface {
	Every(spec string, name string, job Job) error
}

// CompleteStaysJob dispatches the sweep that finishes stays whose checkout has passed.
func CompleteStaysJob(bus commands.Bus, batch int, logger *slog.Logger) Job {
	return func(ctx context.Context) error {
		res, err := commands.Dispatch[bookingapp.CompleteStaysCommand, *dto.CompleteStaysResult](ctx, bus, bookingapp.CompleteStaysCommand{
			At:    time.Now().UTC(),
			Limit: batch,
		})
		if err != nil {
			return err
		}
		if logger != nil && res != nil {
			logger.Debug("complete stays sweep finished", "completed", res.Completed)
		}
		return nil
	}
}
