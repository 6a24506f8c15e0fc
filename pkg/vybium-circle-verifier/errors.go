package vybiumcircleverifier

import (
	"errors"
	"fmt"

	"github.com/vybium/vybium-circle-verifier/internal/vybium-circle-verifier/core"
)

// ErrorCode represents a verifier error code
type ErrorCode int

const (
	// ErrUnknown represents an unknown error
	ErrUnknown ErrorCode = iota

	// ErrInvalidConfig represents an invalid verifier configuration
	ErrInvalidConfig

	// ErrMalformedInput represents a structurally invalid proof or
	// verification parameter set
	ErrMalformedInput

	// ErrArithmeticDomain represents an arithmetic domain violation such as
	// inverting zero or an off-curve point; treated as malformed input,
	// never silently repaired
	ErrArithmeticDomain
)

// VerifierError represents a verification pipeline error
type VerifierError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error returns the error message
func (e *VerifierError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("vybium-circle-verifier error [%d]: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("vybium-circle-verifier error [%d]: %s", e.Code, e.Message)
}

// Unwrap returns the cause of the error
func (e *VerifierError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error
func (e *VerifierError) Is(target error) bool {
	t, ok := target.(*VerifierError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// newError creates a VerifierError with the given code
func newError(code ErrorCode, message string, cause error) *VerifierError {
	return &VerifierError{Code: code, Message: message, Cause: cause}
}

// causeCode classifies an internal verification error: arithmetic-domain
// failures such as inverting zero keep their own code, everything else is
// malformed input
func causeCode(err error) ErrorCode {
	if errors.Is(err, core.ErrZeroInverse) {
		return ErrArithmeticDomain
	}
	return ErrMalformedInput
}
