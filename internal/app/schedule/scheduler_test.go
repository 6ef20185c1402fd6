package schedule

import (
	"context"
	"errors"
	"testing"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	bookingapp "staybook/internal/app/handlers/booking"
)

type recordingBus struct {
	got []commands.Command
	err error
}

func (b *recordingBus) Dispatch(_ context.Context, cmd commands.Command) (any, error) {
	b.got = append(b.got, cmd)
	if b.err != nil {
		return nil, b.err
	}
	return &dto.CompleteStaysResult{Completed: 3}, nil
}

func TestCompleteStaysJobDispatchesBatch(t *testing.T) {
	bus := &recordingBus{}
	if err := CompleteStaysJob(bus, 50, nil)(context.Background()); err != nil {
		t.Fatalf("job: %v", err)
	}
	if len(bus.got) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(bus.got))
	}
	cmd, ok := bus.got[0].(bookingapp.CompleteStaysCommand)
	if !ok || cmd.Limit != 50 || cmd.At.IsZero() {
		t.Fatalf("unexpected command %#v", bus.got[0])
	}
}

func TestCompleteStaysJobReturnsBusError(t *testing.T) {
	boom := errors.New("store down")
	bus := &recordingBus{err: boom}
	if err := CompleteStaysJob(bus, 10, nil)(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected bus error, got %v", err)
	}
}
