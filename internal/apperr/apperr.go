// Package apperr defines the typed error kinds returned by the turn
// scheduler. Every ledger and driver operation reports failures as one of
// these kinds instead of opaque errors so handlers can map them to HTTP
// statuses without string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a scheduler failure.
type Kind byte

const (
	// KindUnknown covers wrapped infrastructure failures (database down, etc).
	KindUnknown Kind = iota
	// KindNotFound means the event, participant or listing does not exist.
	KindNotFound
	// KindInvalidState means an operation's precondition does not hold, such
	// as advancing an event with no active participant.
	KindInvalidState
	// KindConflict means a uniqueness constraint would be violated, such as a
	// second selection for the same listing.
	KindConflict
	// KindLostRace means an optimistic update found its expected prior state
	// already changed by another committed caller. It is absorbed internally
	// and never surfaces to API clients as a failure.
	KindLostRace
	// KindUnauthorized means the caller is not a participant of the event or
	// does not hold the active turn.
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindConflict:
		return "conflict"
	case KindLostRace:
		return "lost_race"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// Error is a failure with a classification and a human-readable reason.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes errors.Is match two apperr values by kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error without losing it.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...), Err: err}
}

// NotFound reports a missing record.
func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

// InvalidState reports a failed precondition.
func InvalidState(format string, args ...any) *Error {
	return New(KindInvalidState, format, args...)
}

// Conflict reports a uniqueness violation.
func Conflict(format string, args ...any) *Error {
	return New(KindConflict, format, args...)
}

// LostRace reports a lost optimistic update.
func LostRace(format string, args ...any) *Error {
	return New(KindLostRace, format, args...)
}

// Unauthorized reports a caller without the required standing.
func Unauthorized(format string, args ...any) *Error {
	return New(KindUnauthorized, format, args...)
}

// KindOf extracts the kind of an error, or KindUnknown for plain errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
