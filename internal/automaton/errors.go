package automaton

import (
	"errors"
	"fmt"
)

// ContractError reports a definition that breaks the engine's contract.
//
// Counter indices outside the register file are authoring bugs: Build
// rejects them, and if one is ever reached at runtime the action is skipped
// and the error logged. Out-of-range destinations are tolerated and reset the
// instance to state 0.
type ContractError struct {
	// Code identifies the error category.
	Code ContractErrorCode

	// Message is a human-readable description.
	Message string

	// Pattern names the definition involved.
	Pattern string

	// State and Arrow locate the offending arrow, or -1 when not applicable.
	State int
	Arrow int
}

// ContractErrorCode categorizes contract errors.
type ContractErrorCode string

const (
	// ErrCodeBadCounter indicates an action addresses a counter outside the
	// register file.
	ErrCodeBadCounter ContractErrorCode = "BAD_COUNTER"

	// ErrCodeBadDestination indicates an arrow leads to a state that does
	// not exist.
	ErrCodeBadDestination ContractErrorCode = "BAD_DESTINATION"

	// ErrCodeEmptyDefinition indicates a definition without states or with
	// a negative counter count.
	ErrCodeEmptyDefinition ContractErrorCode = "EMPTY_DEFINITION"

	// ErrCodeDanglingAction indicates a builder action with no arrow to
	// attach to.
	ErrCodeDanglingAction ContractErrorCode = "DANGLING_ACTION"
)

// Error implements the error interface.
func (e *ContractError) Error() string {
	if e.State >= 0 && e.Arrow >= 0 {
		return fmt.Sprintf("%s: %s (pattern=%s, state=%d, arrow=%d)", e.Code, e.Message, e.Pattern, e.State, e.Arrow)
	}
	return fmt.Sprintf("%s: %s (pattern=%s)", e.Code, e.Message, e.Pattern)
}

// IsContractError reports whether err is, or wraps, a ContractError.
func IsContractError(err error) bool {
	var ce *ContractError
	return errors.As(err, &ce)
}

// HasCode reports whether err is a ContractError with the given code.
func HasCode(err error, code ContractErrorCode) bool {
	var ce *ContractError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}
