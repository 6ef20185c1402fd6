package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/uow"
)

var ErrUnitOfWorkMissing = errors.New("middleware: unit of work not found")

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// RetryPolicy bounds how often a command is re-run after a transient conflict.
// Backoff holds the wait before each retry; its length is the retry budget.
type RetryPolicy struct {
	Backoff   []time.Duration
	Retryable func(error) bool
	Logger    *slog.Logger
}

func (p RetryPolicy) retryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return errors.Is(err, uow.ErrTransientConflict)
}

func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider, retry RetryPolicy) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := next.Dispatch
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			opts := uow.TxOptions{}
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			for attempt := 0; ; attempt++ {
				res, err := runInUnit(ctx, factory, opts, cmd, nextFn)
				if err == nil {
					return res, nil
				}
				if attempt >= len(retry.Backoff) || !retry.retryable(err) {
					return nil, err
				}
				if retry.Logger != nil {
					retry.Logger.Debug("retrying command after transient conflict", "command", cmd.Key(), "attempt", attempt+1, "error", err)
				}
				if err := sleep(ctx, retry.Backoff[attempt]); err != nil {
					return nil, err
				}
			}
		})
	}
}

func runInUnit(ctx context.Context, factory uow.UoWFactory, opts uow.TxOptions, cmd commands.Command, nextFn commandFunc) (any, error) {
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return nil, err
	}
	execCtx := uow.Bind(ctx, unit)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(execCtx)
		}
	}()

	res, err := nextFn(execCtx, cmd)
	if err != nil {
		return nil, err
	}
	if err := unit.Commit(execCtx); err != nil {
		// Commit ends the unit whether or not it succeeded.
		committed = true
		return nil, err
	}
	committed = true
	return res, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
