// Package apperr is the closed set of error kinds the gateway returns. Every
// kind maps to a gRPC status code and, through it, to an HTTP status.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Kind string

const (
	Validation  Kind = "validation"
	NotFound    Kind = "not_found"
	Unavailable Kind = "unavailable"
	EmptyCart   Kind = "empty_cart"
	Upstream    Kind = "upstream"
	Internal    Kind = "internal"

	// InvalidOperation is a request that cannot apply to the current state
	// of a resource, such as updating a line the cart does not have.
	InvalidOperation Kind = "invalid_operation"
)

type Error struct {
	Kind   Kind
	Msg    string            // safe to show to the caller
	Fields map[string]string // per-field validation messages, optional
	Err    error             // cause, logged but never rendered
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality against a bare sentinel, so errors.Is(err, ErrX)
// holds for every error of the same kind as ErrX.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

func (e *Error) GRPCStatus() *status.Status {
	return status.New(Code(e.Kind), e.Msg)
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func Invalid(msg string, fields map[string]string) *Error {
	return &Error{Kind: Validation, Msg: msg, Fields: fields}
}

func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf returns Internal for errors that do not carry a kind.
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return Internal
}

func Code(kind Kind) codes.Code {
	switch kind {
	case Validation:
		return codes.InvalidArgument
	case NotFound:
		return codes.NotFound
	case Unavailable, EmptyCart, InvalidOperation:
		return codes.FailedPrecondition
	case Upstream:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// HTTPStatus maps err to an HTTP status, a stable upper-case code and a
// message that is safe to render.
func HTTPStatus(err error) (int, string, string) {
	msg := "internal error"
	if ae, ok := As(err); ok && ae.Msg != "" {
		msg = ae.Msg
	}

	st, ok := status.FromError(err)
	if !ok {
		return http.StatusInternalServerError, "INTERNAL", msg
	}
	if _, isApp := As(err); !isApp && st.Message() != "" {
		msg = st.Message()
	}

	switch st.Code() {
	case codes.InvalidArgument:
		return http.StatusBadRequest, "INVALID_ARGUMENT", msg
	case codes.FailedPrecondition:
		return http.StatusBadRequest, "FAILED_PRECONDITION", msg
	case codes.NotFound:
		return http.StatusNotFound, "NOT_FOUND", msg
	case codes.Unavailable, codes.DeadlineExceeded:
		return http.StatusServiceUnavailable, "UNAVAILABLE", msg
	default:
		return http.StatusInternalServerError, "INTERNAL", "internal error"
	}
}
