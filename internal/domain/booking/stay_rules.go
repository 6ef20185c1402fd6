package booking

import (
	"errors"
	"time"

	"staybook/internal/domain/shared/daterange"
)

const (
	ConfirmationCodeLength   = 8
	ConfirmationCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var ErrCheckInInPast = errors.New("booking: check-in date is in the past")

// ValidateDateRange rejects stays that start before today (UTC).
func ValidateDateRange(dr daterange.DateRange, now time.Time) error {
	if err := dr.Validate(); err != nil {
		return err
	}
	if daterange.StartOfDay(dr.CheckIn).Before(daterange.StartOfDay(now)) {
		return ErrCheckInInPast
	}
	return nil
}

func ValidConfirmationCode(code string) bool {
	if len(code) != ConfirmationCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
