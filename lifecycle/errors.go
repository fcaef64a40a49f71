// Package lifecycle is the single decision point for claim, appointment and
// payment status transitions. Handlers ask it whether an actor's requested
// transition is allowed; it never touches the database.
package lifecycle

import "errors"

var (
	// ErrForbidden means the transition exists but the actor's role may not perform it.
	ErrForbidden = errors.New("role is not allowed to perform this transition")
	// ErrInvalidTransition means no rule defines the requested transition at all.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidState means a precondition on a related record does not hold.
	ErrInvalidState = errors.New("operation not allowed in current state")
)
