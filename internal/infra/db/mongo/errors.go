package mongo

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"staybook/internal/app/uow"
)

// ErrConcurrentUpdate is returned when an aggregate changed since it was read.
var ErrConcurrentUpdate = fmt.Errorf("mongo: concurrent update detected: %w", uow.ErrTransientConflict)

const writeConflictCode = 112

// translate marks server errors that abort the whole transaction as transient so
// the transaction middleware can rerun the command.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		if se.HasErrorLabel("TransientTransactionError") || se.HasErrorCode(writeConflictCode) {
			return fmt.Errorf("%w: %v", uow.ErrTransientConflict, err)
		}
	}
	return err
}
