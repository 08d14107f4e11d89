// Package errs defines the error taxonomy shared across the message
// processing pipeline. Every error here resolves to a reply or a state
// transition inside the orchestrator; none of them reach the transport
// as raw failures.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateMessage is returned by the idempotency gate for a message
	// that was already processed. It is dropped silently, no reply is sent.
	ErrDuplicateMessage = errors.New("duplicate message")

	// ErrInsufficientBalance aborts a flow step without any ledger mutation.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrExternalService marks an unreachable, timed-out or malformed
	// collaborator response. Callers must recover via a deterministic
	// fallback rather than propagate it to the user.
	ErrExternalService = errors.New("external service unavailable")
)

// ValidationError is malformed user input, recovered locally by
// re-prompting at the same flow stage.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
