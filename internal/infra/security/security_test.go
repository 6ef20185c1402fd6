package security

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"staybook/internal/app/policies"
	"staybook/internal/domain/booking"
)

func TestConfirmationCodeGeneratorProducesValidCodes(t *testing.T) {
	gen := ConfirmationCodeGenerator{}
	seen := map[string]struct{}{}
	for i := 0; i < 200; i++ {
		code, err := gen.NewCode()
		if err != nil {
			t.Fatalf("new code: %v", err)
		}
		if !booking.ValidConfirmationCode(code) {
			t.Fatalf("invalid code %q", code)
		}
		seen[code] = struct{}{}
	}
	if len(seen) < 199 {
		t.Fatalf("expected unique codes, got %d distinct of 200", len(seen))
	}
}

func TestConfirmationCodeGeneratorSkipsBiasedBytes(t *testing.T) {
	// 252 and above fall outside the largest multiple of 36 and must be dropped.
	src := append(bytes.Repeat([]byte{255}, 16), []byte{0, 1, 2, 3, 4, 5, 6, 7, 26, 27, 28, 29, 30, 31, 32, 33}...)
	code, err := ConfirmationCodeGenerator{Source: bytes.NewReader(src)}.NewCode()
	if err != nil {
		t.Fatalf("new code: %v", err)
	}
	if code != "ABCDEFGH" {
		t.Fatalf("code = %q, want ABCDEFGH", code)
	}
}

func TestConfirmationCodeGeneratorEntropyFailure(t *testing.T) {
	if _, err := (ConfirmationCodeGenerator{Source: bytes.NewReader(nil)}).NewCode(); err == nil {
		t.Fatalf("expected error on empty entropy source")
	}
}

func TestJWTAuthenticatorRoundTrip(t *testing.T) {
	auth, err := NewJWTAuthenticator("secret", "staybook-test")
	if err != nil {
		t.Fatalf("authenticator: %v", err)
	}
	token, err := auth.Issue(policies.Principal{ID: "guest-1", Roles: []string{policies.RoleGuest}}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	principal, err := auth.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if principal.ID != "guest-1" || !principal.HasRole(policies.RoleGuest) {
		t.Fatalf("unexpected principal %+v", principal)
	}
}

func TestJWTAuthenticatorRejects(t *testing.T) {
	auth, _ := NewJWTAuthenticator("secret", "staybook-test")
	other, _ := NewJWTAuthenticator("other-secret", "staybook-test")
	wrongIssuer, _ := NewJWTAuthenticator("secret", "someone-else")

	foreign, _ := other.Issue(policies.Principal{ID: "guest-1"}, time.Hour)
	expired, _ := auth.Issue(policies.Principal{ID: "guest-1"}, -time.Minute)
	issuer, _ := wrongIssuer.Issue(policies.Principal{ID: "guest-1"}, time.Hour)
	noSubject, _ := auth.Issue(policies.Principal{}, time.Hour)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "guest-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	cases := map[string]string{
		"garbage":        "not-a-token",
		"wrong secret":   foreign,
		"expired":        expired,
		"wrong issuer":   issuer,
		"missing sub":    noSubject,
		"unsigned token": none,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := auth.Verify(token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestNewJWTAuthenticatorRequiresSecret(t *testing.T) {
	if _, err := NewJWTAuthenticator(" ", ""); err == nil {
		t.Fatalf("expected empty secret to fail")
	}
}
