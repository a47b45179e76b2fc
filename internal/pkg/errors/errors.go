package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrConflict signals a state precondition or uniqueness violation.
	ErrConflict = errors.New("conflict")
	// ErrIllegalTransition is an analysis status change the state machine
	// forbids, such as leaving complete or skipping reading. It is a conflict.
	ErrIllegalTransition = fmt.Errorf("illegal status transition: %w", ErrConflict)
)
