package service

import (
	"errors"
	"fmt"
)

// ErrForbidden is returned when the caller lacks the standing an
// operation requires (payer, owner, or participant, depending on the
// operation).
var ErrForbidden = errors.New("caller is not allowed to perform this operation")

// InvalidInputError reports a caller-supplied field that failed
// validation. Like the calculator's validation errors, it is returned
// before any mutation is committed.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
