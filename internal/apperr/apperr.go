// Package apperr defines the error taxonomy: a closed set of
// error kinds that callers branch on to decide whether an investigation
// aborts (InvalidInput, InternalInvariant) or continues with a quality
// penalty (PartialData, External) or exits as unserviceable (DataUnavailable).
package apperr

import (
	"errors"
	"fmt"
)

// Kind is one of the five error classes the pipeline distinguishes.
type Kind string

const (
	// InvalidInput: malformed address, non-positive bounds. Aborts.
	InvalidInput Kind = "invalid_input"
	// DataUnavailable: chain client returned empty or all failures. Aborts.
	DataUnavailable Kind = "data_unavailable"
	// PartialData: a stage succeeded but a quality penalty applies
	// (timeout, low parse rate, RPC fallback). Non-fatal.
	PartialData Kind = "partial_data"
	// InternalInvariant: a pipeline validator failed. Fatal.
	InternalInvariant Kind = "internal_invariant"
	// External: AI or persistence call failed. Non-fatal.
	External Kind = "external"
)

// Error is a Kind-tagged error. Use As/Is or KindOf to recover the Kind
// across wrapping.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error of the given Kind with no wrapped cause.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given Kind wrapping an existing error.
func Wrap(kind Kind, message string, err error) error {
	if err == nil {
		return New(kind, message)
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf walks the error chain and returns the first apperr.Kind found,
// or "" if none is present.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsFatal reports whether an error of this kind must abort the
// investigation outright, per the propagation policy.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case InvalidInput, InternalInvariant:
		return true
	default:
		return false
	}
}
