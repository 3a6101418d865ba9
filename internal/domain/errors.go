package domain

import "errors"

var (
	// ErrMalformedEvent marks a wire payload that must be dropped and
	// logged, never applied.
	ErrMalformedEvent = errors.New("malformed event")

	// ErrNotFound means a patch targeted an item/order the store does not
	// track; local state has drifted and a resync is due.
	ErrNotFound = errors.New("not found")

	// ErrPrecondition means an operator action was attempted against an
	// invalid current state. Surfaced to the operator, nothing mutated.
	ErrPrecondition = errors.New("precondition failed")

	// ErrActionPending rejects a second action on an order while one is
	// still awaiting remote confirmation.
	ErrActionPending = errors.New("action already pending for order")
)
