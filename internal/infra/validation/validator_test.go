package validation

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"staybook/internal/app/middleware"
)

type stayRequest struct {
	ListingID string    `validate:"required"`
	CheckIn   time.Time `validate:"required"`
	CheckOut  time.Time `validate:"required,gtfield=CheckIn"`
	Guests    int       `validate:"required,min=1"`
}

type nested struct {
	HostID  string `validate:"required"`
	Payload struct {
		Title string `validate:"required"`
	}
}

func TestValidateReportsFields(t *testing.T) {
	v := New()
	in := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	err := v.Validate(context.Background(), stayRequest{CheckIn: in, CheckOut: in})
	var verr *middleware.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := []string{"listingID", "checkOut", "guests"}
	if !reflect.DeepEqual(verr.Fields, want) {
		t.Fatalf("fields = %v, want %v", verr.Fields, want)
	}
}

func TestValidateNestedNamespace(t *testing.T) {
	err := New().Validate(context.Background(), &nested{HostID: "host-1"})
	var verr *middleware.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Fields) != 1 || verr.Fields[0] != "payload.title" {
		t.Fatalf("unexpected fields %v", verr.Fields)
	}
}

func TestValidatePassesValidAndNonStructMessages(t *testing.T) {
	v := New()
	in := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	ok := stayRequest{ListingID: "l-1", CheckIn: in, CheckOut: in.AddDate(0, 0, 2), Guests: 2}
	for name, msg := range map[string]any{
		"valid":       ok,
		"pointer":     &ok,
		"string":      "ping",
		"nil pointer": (*stayRequest)(nil),
	} {
		if err := v.Validate(context.Background(), msg); err != nil {
			t.Fatalf("%s: unexpected error %v", name, err)
		}
	}
}
