package ginserver

import (
	"errors"
	"strings"
	"time"
)

var errInvalidDate = errors.New("dates must be YYYY-MM-DD or RFC 3339")

// parseStayDate accepts a calendar date or an RFC 3339 timestamp and returns the
// UTC midnight of that day.
func parseStayDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return truncateToDay(t), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return truncateToDay(t), nil
	}
	return time.Time{}, errInvalidDate
}

func truncateToDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseStay(checkInRaw, checkOutRaw string) (time.Time, time.Time, error) {
	checkIn, err := parseStayDate(checkInRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	checkOut, err := parseStayDate(checkOutRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return checkIn, checkOut, nil
}
