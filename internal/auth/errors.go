package auth

import (
	"errors"
	"fmt"
)

// Kind classifies lifecycle failures so the transport can pick a status code.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindConflict
	KindInvalidCredentials
	KindInvalidOrExpired
	KindNotFound
	KindUnauthenticated
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindInvalidOrExpired:
		return "invalid_or_expired"
	case KindNotFound:
		return "not_found"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Error is the error type returned by the lifecycle operations.
// Two errors are considered equal by errors.Is when their kinds match.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation         = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrUserExists         = &Error{Kind: KindConflict, Message: "user already exists"}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "invalid credentials"}
	ErrInvalidOrExpired   = &Error{Kind: KindInvalidOrExpired, Message: "invalid or expired code"}
	ErrUserNotFound       = &Error{Kind: KindNotFound, Message: "user not found"}
	ErrInvalidToken       = &Error{Kind: KindUnauthenticated, Message: "invalid token"}
	ErrUpstream           = &Error{Kind: KindUpstream, Message: "upstream failure"}
)

func validationError(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

func invalidOrExpired(message string) error {
	return &Error{Kind: KindInvalidOrExpired, Message: message}
}

// upstream wraps a store failure unless it already carries a kind.
func upstream(op string, err error) error {
	var authErr *Error
	if errors.As(err, &authErr) {
		return err
	}
	return &Error{Kind: KindUpstream, Message: op, Err: err}
}

// KindOf returns the kind carried by err, or zero when err is not an *Error.
func KindOf(err error) Kind {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return 0
}
