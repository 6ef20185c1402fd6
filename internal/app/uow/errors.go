package uow

import "errors"

// ErrTransientConflict marks a transaction aborted by a concurrent writer. The whole
// unit of work may be retried.
var ErrTransientConflict = errors.New("uow: transient transaction conflict")
