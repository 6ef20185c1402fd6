package postgres

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
)

var ErrConcurrentUpdate = fmt.Errorf("postgres: concurrent update detected: %w", uow.ErrTransientConflict)

const (
	codeExclusionViolation   = "23P01"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// translate maps driver errors onto the application's error vocabulary.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case codeExclusionViolation:
		return domainavailability.ErrDatesUnavailable
	case codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w: %v", uow.ErrTransientConflict, err)
	default:
		return err
	}
}
