// Package apperr defines the error kinds the storefront reports to callers.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotAuthenticated        Kind = "NOT_AUTHENTICATED"
	KindInvalidQuantity         Kind = "INVALID_QUANTITY"
	KindInvalidArgument         Kind = "INVALID_ARGUMENT"
	KindIncompleteCheckout      Kind = "INCOMPLETE_CHECKOUT"
	KindOrderWriteFailed        Kind = "ORDER_WRITE_FAILED"
	KindCartClearPartialFailure Kind = "CART_CLEAR_PARTIAL_FAILURE"
	KindBackendUnavailable      Kind = "BACKEND_UNAVAILABLE"
	KindNotFound                Kind = "NOT_FOUND"
	KindInternal                Kind = "INTERNAL"
)

func (k Kind) String() string {
	return string(k)
}

// Sentinels for errors.Is. Every *Error of the same kind matches its sentinel.
var (
	ErrNotAuthenticated        = &Error{Kind: KindNotAuthenticated}
	ErrInvalidQuantity         = &Error{Kind: KindInvalidQuantity}
	ErrInvalidArgument         = &Error{Kind: KindInvalidArgument}
	ErrIncompleteCheckout      = &Error{Kind: KindIncompleteCheckout}
	ErrOrderWriteFailed        = &Error{Kind: KindOrderWriteFailed}
	ErrCartClearPartialFailure = &Error{Kind: KindCartClearPartialFailure}
	ErrBackendUnavailable      = &Error{Kind: KindBackendUnavailable}
	ErrNotFound                = &Error{Kind: KindNotFound}
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Retryable reports whether the caller may retry the same request unchanged.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindBackendUnavailable, KindOrderWriteFailed:
		return true
	default:
		return false
	}
}
