package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies every failure the session core can surface.
// Validation, permission and invariant checks always run before any
// store call, so a rejected precondition never leaves partial state.
type Kind int

const (
	// KindValidation marks malformed or missing caller input.
	KindValidation Kind = iota + 1

	// KindPermission marks a caller lacking the required role.
	KindPermission

	// KindInvariant marks an operation that would break a group
	// invariant (non-empty admins, admins subset of members).
	KindInvariant

	// KindNotFound marks a referenced group, contact or user that does
	// not exist locally or in the store.
	KindNotFound

	// KindRemote marks a failed store call.
	KindRemote
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPermission:
		return "permission"
	case KindInvariant:
		return "invariant"
	case KindNotFound:
		return "not_found"
	case KindRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Error is the single error type surfaced by the managers. It wraps an
// optional cause so callers can use errors.Is / errors.As through it.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports invalid caller input.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Permission reports a missing role or right.
func Permission(format string, args ...any) error {
	return &Error{Kind: KindPermission, Msg: fmt.Sprintf(format, args...)}
}

// Invariant reports an operation that would corrupt group state.
func Invariant(format string, args ...any) error {
	return &Error{Kind: KindInvariant, Msg: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing entity.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Remote wraps a failed store call.
func Remote(err error, format string, args ...any) error {
	return &Error{Kind: KindRemote, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind from err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsPermission reports whether err is a permission failure.
func IsPermission(err error) bool { return KindOf(err) == KindPermission }

// IsInvariant reports whether err is an invariant violation.
func IsInvariant(err error) bool { return KindOf(err) == KindInvariant }

// IsNotFound reports whether err is a missing-entity failure.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsRemote reports whether err is a store failure.
func IsRemote(err error) bool { return KindOf(err) == KindRemote }
