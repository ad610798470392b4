// Package errors defines the two failure kinds every core operation
// reports: Unauthorized (the caller is not who they claim to be, or lacks
// the role an action requires) and InvalidRequest (a well-authenticated
// caller named a target that does not exist or violated an input
// constraint).
package errors

import (
	stderrors "errors"
	"fmt"
)

type Kind int

const (
	Unauthorized Kind = iota + 1
	InvalidRequest
)

func (k Kind) String() string {
	switch k {
	case Unauthorized:
		return "unauthorized"
	case InvalidRequest:
		return "invalid request"
	default:
		return "unknown"
	}
}

// Error is terminal for the triggering call: an operation either fully
// succeeds or fails with one of the two kinds and no observable partial
// mutation.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func Unauthorizedf(format string, args ...any) error {
	return &Error{Kind: Unauthorized, Reason: fmt.Sprintf(format, args...)}
}

func Invalidf(format string, args ...any) error {
	return &Error{Kind: InvalidRequest, Reason: fmt.Sprintf(format, args...)}
}

func kindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsUnauthorized(err error) bool {
	return kindOf(err) == Unauthorized
}

func IsInvalid(err error) bool {
	return kindOf(err) == InvalidRequest
}
