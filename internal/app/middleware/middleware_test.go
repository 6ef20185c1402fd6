package middleware

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
)

type fakeUnit struct {
	commits   int
	rollbacks int
	commitErr error
}

func (u *fakeUnit) Listings() domainlistings.ListingRepository { return nil }
func (u *fakeUnit) Booking() domainbooking.Repository        { return nil }
func (u *fakeUnit) Guard() uow.BookingGuard                  { return nil }
func (u *fakeUnit) Commit(context.Context) error {
	u.commits++
	return u.commitErr
}
func (u *fakeUnit) Rollback(context.Context) error {
	u.rollbacks++
	return nil
}

type fakeFactory struct {
	units []*fakeUnit
}

func (f *fakeFactory) Begin(context.Context, uow.TxOptions) (uow.UnitOfWork, error) {
	u := &fakeUnit{}
	f.units = append(f.units, u)
	return u, nil
}

type testCommand struct {
	key   string
	idemp string
}

func (c testCommand) Key() string            { return c.key }
func (c testCommand) IdempotencyKey() string { return c.idemp }
func (c testCommand) ResultPrototype() any   { return &testResult{} }

type fingerprintedCommand struct {
	testCommand
	body string
}

func (c fingerprintedCommand) RequestFingerprint() string { return c.body }

type testResult struct {
	ID string `json:"id"`
}

type testQuery struct{}

func (testQuery) Key() string { return "test.query" }

type memoryIdempotency struct {
	records map[string]IdempotencyRecord
}

func (m *memoryIdempotency) Get(_ context.Context, key string) (IdempotencyRecord, bool, error) {
	rec, ok := m.records[key]
	return rec, ok, nil
}

func (m *memoryIdempotency) Save(_ context.Context, rec IdempotencyRecord) error {
	m.records[rec.Key] = rec
	return nil
}

func TestTransactionRetriesTransientConflicts(t *testing.T) {
	factory := &fakeFactory{}
	calls := 0
	base := commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		calls++
		if _, ok := uow.FromContext(ctx); !ok {
			t.Fatalf("handler ran without a unit of work")
		}
		if calls < 3 {
			return nil, fmt.Errorf("listing-1: %w", uow.ErrTransientConflict)
		}
		return "ok", nil
	})
	bus := ChainCommands(base, Transaction(factory, nil, RetryPolicy{Backoff: []time.Duration{time.Millisecond, time.Millisecond}}))

	res, err := bus.Dispatch(context.Background(), testCommand{key: "test"})
	if err != nil || res != "ok" {
		t.Fatalf("expected success after retries, got %v, %v", res, err)
	}
	if calls != 3 || len(factory.units) != 3 {
		t.Fatalf("expected three attempts in three units, got %d calls and %d units", calls, len(factory.units))
	}
	for i, u := range factory.units[:2] {
		if u.commits != 0 || u.rollbacks != 1 {
			t.Fatalf("attempt %d: expected rollback only, got %+v", i, u)
		}
	}
	if last := factory.units[2]; last.commits != 1 || last.rollbacks != 0 {
		t.Fatalf("final attempt should commit once, got %+v", last)
	}
}

func TestTransactionGivesUpAfterBudget(t *testing.T) {
	factory := &fakeFactory{}
	base := commandFunc(func(context.Context, commands.Command) (any, error) {
		return nil, uow.ErrTransientConflict
	})
	bus := ChainCommands(base, Transaction(factory, nil, RetryPolicy{Backoff: []time.Duration{time.Millisecond}}))
	if _, err := bus.Dispatch(context.Background(), testCommand{key: "test"}); !errors.Is(err, uow.ErrTransientConflict) {
		t.Fatalf("expected transient conflict, got %v", err)
	}
	if len(factory.units) != 2 {
		t.Fatalf("expected one retry, got %d attempts", len(factory.units))
	}
}

func TestTransactionDoesNotRetryOtherErrors(t *testing.T) {
	factory := &fakeFactory{}
	boom := errors.New("boom")
	base := commandFunc(func(context.Context, commands.Command) (any, error) { return nil, boom })
	bus := ChainCommands(base, Transaction(factory, nil, RetryPolicy{Backoff: []time.Duration{time.Millisecond}}))
	if _, err := bus.Dispatch(context.Background(), testCommand{key: "test"}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(factory.units) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(factory.units))
	}
}

func TestIdempotencyReplaysOnlySuccessfulResults(t *testing.T) {
	store := &memoryIdempotency{records: map[string]IdempotencyRecord{}}
	calls := 0
	fail := true
	base := commandFunc(func(context.Context, commands.Command) (any, error) {
		calls++
		if fail {
			return nil, errors.New("temporary")
		}
		return &testResult{ID: fmt.Sprintf("r-%d", calls)}, nil
	})
	bus := ChainCommands(base, Idempotency(store, nil, time.Hour, nil))
	cmd := testCommand{key: "booking.create", idemp: "key-1"}

	if _, err := bus.Dispatch(context.Background(), cmd); err == nil {
		t.Fatalf("expected first attempt to fail")
	}
	fail = false
	first, err := bus.Dispatch(context.Background(), cmd)
	if err != nil {
		t.Fatalf("second attempt: %v", err)
	}
	replay, err := bus.Dispatch(context.Background(), cmd)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if calls != 2 {
		t.Fatalf("replay must not reach the handler, got %d calls", calls)
	}
	if first.(*testResult).ID != replay.(*testResult).ID {
		t.Fatalf("replayed %+v, want %+v", replay, first)
	}

	if _, err := bus.Dispatch(context.Background(), testCommand{key: "booking.cancel", idemp: "key-1"}); !errors.Is(err, ErrIdempotencyKeyReused) {
		t.Fatalf("expected key reuse error, got %v", err)
	}
}

func TestIdempotencyRejectsKeyReplayedWithDifferentRequest(t *testing.T) {
	store := &memoryIdempotency{records: map[string]IdempotencyRecord{}}
	calls := 0
	base := commandFunc(func(context.Context, commands.Command) (any, error) {
		calls++
		return &testResult{ID: fmt.Sprintf("r-%d", calls)}, nil
	})
	bus := ChainCommands(base, Idempotency(store, nil, time.Hour, nil))
	original := fingerprintedCommand{testCommand: testCommand{key: "booking.create", idemp: "key-1"}, body: "feb-1..feb-5"}

	if _, err := bus.Dispatch(context.Background(), original); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := bus.Dispatch(context.Background(), original); err != nil {
		t.Fatalf("same request replay: %v", err)
	}
	changed := original
	changed.body = "mar-1..mar-5"
	if _, err := bus.Dispatch(context.Background(), changed); !errors.Is(err, ErrIdempotencyKeyReused) {
		t.Fatalf("expected key reuse error for a different request, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
}

func TestIdempotencyExpiredRecordRunsAgain(t *testing.T) {
	store := &memoryIdempotency{records: map[string]IdempotencyRecord{
		"key-1": {Key: "key-1", Command: "booking.create", Payload: []byte(`{"id":"old"}`), OccurredAt: time.Now().Add(-2 * time.Hour)},
	}}
	base := commandFunc(func(context.Context, commands.Command) (any, error) {
		return &testResult{ID: "new"}, nil
	})
	bus := ChainCommands(base, Idempotency(store, nil, time.Hour, nil))
	res, err := bus.Dispatch(context.Background(), testCommand{key: "booking.create", idemp: "key-1"})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.(*testResult).ID != "new" {
		t.Fatalf("expired record was replayed: %+v", res)
	}
}

func TestQueryRetryStopsOnExpectedErrors(t *testing.T) {
	expectedErr := errors.New("dates not available")
	isExpectedErr := func(err error) bool { return errors.Is(err, expectedErr) }

	cases := []struct {
		name    string
		errs    []error
		wantErr error
		calls   int
	}{
		{name: "recovers", errs: []error{errors.New("io"), nil}, calls: 2},
		{name: "expected not retried", errs: []error{expectedErr}, wantErr: expectedErr, calls: 1},
		{name: "budget exhausted", errs: []error{errors.New("io"), errors.New("io"), errors.New("io")}, calls: 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			base := queryFunc(func(context.Context, queries.Query) (any, error) {
				err := tc.errs[calls]
				calls++
				if err != nil {
					return nil, err
				}
				return "ok", nil
			})
			bus := ChainQueries(base, QueryRetry([]time.Duration{time.Millisecond, time.Millisecond}, isExpectedErr, nil))
			_, err := bus.Ask(context.Background(), testQuery{})
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if calls != tc.calls {
				t.Fatalf("expected %d calls, got %d", tc.calls, calls)
			}
		})
	}
}

func TestCircuitBreakerOpensOnInfrastructureFailures(t *testing.T) {
	expectedErr := errors.New("listing not available")
	failWith := expectedErr
	base := queryFunc(func(context.Context, queries.Query) (any, error) { return nil, failWith })
	bus := ChainQueries(base, CircuitBreaker("test", time.Minute, func(err error) bool { return errors.Is(err, expectedErr) }, nil))

	for i := 0; i < 10; i++ {
		if _, err := bus.Ask(context.Background(), testQuery{}); !errors.Is(err, expectedErr) {
			t.Fatalf("expected errors must not trip the breaker, got %v", err)
		}
	}

	failWith = errors.New("connection refused")
	for i := 0; i < 5; i++ {
		_, _ = bus.Ask(context.Background(), testQuery{})
	}
	if _, err := bus.Ask(context.Background(), testQuery{}); !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected open circuit, got %v", err)
	}
}
