package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"staybook/internal/app/queries"
)

// ErrServiceUnavailable is returned while the read circuit is open.
var ErrServiceUnavailable = errors.New("middleware: storage temporarily unavailable")

// QueryRetry re-asks a read query after infrastructure failures. Reads are idempotent
// so retrying them never changes state. Errors for which expected returns true describe
// the request and are returned at once.
func QueryRetry(backoff []time.Duration, expected func(error) bool, logger *slog.Logger) QueryMiddleware {
	return func(next queries.Bus) queries.Bus {
		nextFn := next.Ask
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			for attempt := 0; ; attempt++ {
				res, err := nextFn(ctx, q)
				if err == nil {
					return res, nil
				}
				if attempt >= len(backoff) || isExpected(expected, err) || ctx.Err() != nil {
					return nil, err
				}
				if logger != nil {
					logger.Warn("query failed, retrying", "query", q.Key(), "attempt", attempt+1, "error", err)
				}
				if err := sleep(ctx, backoff[attempt]); err != nil {
					return nil, err
				}
			}
		})
	}
}

// CircuitBreaker stops hammering an unhealthy store. Only unexpected errors count as
// failures; a refused booking is a successful read.
func CircuitBreaker(name string, timeout time.Duration, expected func(error) bool, logger *slog.Logger) QueryMiddleware {
	settings := gobreaker.Settings{
		Name:    name,
		Timeout: timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isExpected(expected, err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			}
		},
	}
	cb := gobreaker.NewCircuitBreaker(settings)
	return func(next queries.Bus) queries.Bus {
		nextFn := next.Ask
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			res, err := cb.Execute(func() (interface{}, error) {
				return nextFn(ctx, q)
			})
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return nil, ErrServiceUnavailable
			}
			return res, err
		})
	}
}

func isExpected(expected func(error) bool, err error) bool {
	return expected != nil && expected(err)
}
