package progression

import "errors"

// Business outcomes the caller is expected to branch on. Anything else
// returned by the engine or reader is a storage failure: the transaction was
// rolled back and no partial state is observable.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyCompleted = errors.New("task already completed")
	ErrInvalidInput     = errors.New("invalid input")
)
