package avl6381

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTimeout indicates a polling step exhausted its attempt budget
	ErrTimeout = errors.New("operation timed out")

	// ErrIdentity indicates an unexpected family or chip id
	ErrIdentity = errors.New("unrecognized demodulator")

	// ErrNotInitialized indicates an operation that needs Initialize first
	ErrNotInitialized = errors.New("demodulator not initialized")

	// ErrUnsupportedProfile indicates a profile with no capability row
	ErrUnsupportedProfile = errors.New("unsupported delivery profile")

	// ErrProfileMismatch indicates a request for a profile the chip is not
	// running
	ErrProfileMismatch = errors.New("demodulator profile mismatch")

	// ErrPatchTruncated indicates a micro-patch record runs past the blob
	ErrPatchTruncated = errors.New("micro-patch record truncated")
)

// IdentityError carries the ids read from an unrecognized chip
type IdentityError struct {
	Family uint32
	Chip   uint32
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("unrecognized demodulator: family 0x%08X chip 0x%08X", e.Family, e.Chip)
}

func (e *IdentityError) Unwrap() error {
	return ErrIdentity
}

// StepError records which bring-up step failed and why
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// StepErrors accumulates the failures of a best-effort sequence
type StepErrors []*StepError

func (e StepErrors) Error() string {
	msgs := make([]string, len(e))
	for i, se := range e {
		msgs[i] = se.Error()
	}
	return fmt.Sprintf("%d step(s) failed: %s", len(e), strings.Join(msgs, "; "))
}

// Unwrap exposes every step failure to errors.Is and errors.As
func (e StepErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for i, se := range e {
		errs[i] = se
	}
	return errs
}

// Steps returns the names of the failed steps in order
func (e StepErrors) Steps() []string {
	names := make([]string, len(e))
	for i, se := range e {
		names[i] = se.Step
	}
	return names
}

// orNil returns nil for an empty accumulation
func (e StepErrors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
