package commands

import (
	"context"
	"errors"
	"testing"
)

type pingCommand struct{ n int }

func (pingCommand) Key() string { return "ping" }

type otherCommand struct{}

func (otherCommand) Key() string { return "other" }

type pingHandler struct{}

func (pingHandler) Handle(_ context.Context, cmd pingCommand) (int, error) {
	return cmd.n + 1, nil
}

func TestDispatchRoutesByKey(t *testing.T) {
	bus := NewInMemoryBus()
	RegisterHandler[pingCommand, int](bus, pingCommand{}.Key(), pingHandler{})

	got, err := Dispatch[pingCommand, int](context.Background(), bus, pingCommand{n: 41})
	if err != nil || got != 42 {
		t.Fatalf("expected 42, got %d, %v", got, err)
	}
	if _, err := Dispatch[otherCommand, int](context.Background(), bus, otherCommand{}); !errors.Is(err, ErrHandlerNotFound) {
		t.Fatalf("expected ErrHandlerNotFound, got %v", err)
	}
	if _, err := Dispatch[pingCommand, string](context.Background(), bus, pingCommand{}); !errors.Is(err, ErrResultType) {
		t.Fatalf("expected ErrResultType, got %v", err)
	}
	if _, err := Dispatch[pingCommand, int](context.Background(), nil, pingCommand{}); !errors.Is(err, ErrNilBus) {
		t.Fatalf("expected ErrNilBus, got %v", err)
	}
	if keys := bus.Keys(); len(keys) != 1 || keys[0] != "ping" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	bus := NewInMemoryBus()
	RegisterHandler[pingCommand, int](bus, "ping", pingHandler{})
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on duplicate key")
		}
	}()
	RegisterHandler[pingCommand, int](bus, "ping", pingHandler{})
}
