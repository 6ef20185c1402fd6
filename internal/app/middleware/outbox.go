package middleware

import (
	"context"
	"log/slog"

	"staybook/internal/app/commands"
	"staybook/internal/app/outbox"
)

// OutboxFlush wakes the outbox worker once a command has committed. It must sit
// outside Transaction. A failed wake is logged and the command still succeeds,
// the records are durable and the worker's poll picks them up.
func OutboxFlush(box outbox.Outbox, logger *slog.Logger) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if ferr := box.Flush(ctx); ferr != nil && logger != nil {
				logger.Warn("outbox wake failed", "command", cmd.Key(), "error", ferr)
			}
			return res, nil
		})
	}
}
