package domain

import (
	"errors"
	"fmt"
)

// ErrDuplicateIdempotencyKey is returned by storage when a second request
// records a key that another request already committed.
var ErrDuplicateIdempotencyKey = errors.New("idempotency key already recorded")

// TransitionError is returned by state machines for a disallowed move.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: invalid transition %s -> %s", e.Entity, e.From, e.To)
}
