package security

import (
	"crypto/rand"
	"fmt"
	"io"

	"staybook/internal/domain/booking"
)

// ConfirmationCodeGenerator draws booking references from crypto/rand.
type ConfirmationCodeGenerator struct {
	// Source overrides the entropy reader; tests use it for deterministic codes.
	Source io.Reader
}

// NewCode returns an uppercase alphanumeric code. Bytes that would bias the
// distribution over the alphabet are discarded.
func (g ConfirmationCodeGenerator) NewCode() (string, error) {
	src := g.Source
	if src == nil {
		src = rand.Reader
	}
	alphabet := booking.ConfirmationCodeAlphabet
	limit := 256 - (256 % len(alphabet))
	out := make([]byte, 0, booking.ConfirmationCodeLength)
	buf := make([]byte, booking.ConfirmationCodeLength*2)
	for len(out) < booking.ConfirmationCodeLength {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", fmt.Errorf("confirmation code: entropy read failed: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == booking.ConfirmationCodeLength {
				break
			}
		}
	}
	return string(out), nil
}
