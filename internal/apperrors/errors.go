// Package apperrors defines the error taxonomy returned by the event and
// friendship core. Every failed precondition maps to exactly one Kind.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can map it to a stable code.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindAuthorization   Kind = "authorization"
	KindConflict        Kind = "conflict"
	KindState           Kind = "state"
	KindUnauthenticated Kind = "unauthenticated"
	// KindInternal is reported by KindOf for errors outside the taxonomy.
	KindInternal Kind = "internal"
)

// Reason narrows a conflict or state error.
type Reason string

const (
	ReasonAlreadyMember    Reason = "already_member"
	ReasonCapacityExceeded Reason = "capacity_exceeded"
	ReasonNotMember        Reason = "not_member"
	ReasonDuplicatePending Reason = "duplicate_pending"
	ReasonAlreadyFriends   Reason = "already_friends"
	ReasonAlreadyResolved  Reason = "already_resolved"
	ReasonEmailTaken       Reason = "email_taken"
)

// Error is the typed error returned by the core packages.
type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
		if e.Reason != "" {
			msg += ": " + string(e.Reason)
		}
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind, and on Reason when the target carries one, so
// errors.Is(err, ErrCapacityExceeded) works regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// Sentinels for errors.Is checks.
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrAuthorization   = &Error{Kind: KindAuthorization}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrState           = &Error{Kind: KindState}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}

	ErrAlreadyMember    = &Error{Kind: KindConflict, Reason: ReasonAlreadyMember}
	ErrCapacityExceeded = &Error{Kind: KindConflict, Reason: ReasonCapacityExceeded}
	ErrNotMember        = &Error{Kind: KindConflict, Reason: ReasonNotMember}
	ErrDuplicatePending = &Error{Kind: KindConflict, Reason: ReasonDuplicatePending}
	ErrAlreadyFriends   = &Error{Kind: KindConflict, Reason: ReasonAlreadyFriends}
	ErrAlreadyResolved  = &Error{Kind: KindState, Reason: ReasonAlreadyResolved}
	ErrEmailTaken       = &Error{Kind: KindConflict, Reason: ReasonEmailTaken}
)

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Authorization(format string, args ...any) *Error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

func Conflict(reason Reason, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func State(reason Reason, format string, args ...any) *Error {
	return &Error{Kind: KindState, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func Unauthenticated(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthenticated, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ReasonOf returns the Reason of the first *Error in err's chain.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
