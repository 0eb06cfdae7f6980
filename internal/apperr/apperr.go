package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// Kind classifies a business-rule violation so the API layer can pick a
// status code without inspecting message text.
type Kind string

// Error kinds
const (
	KindBadRequest          Kind = "bad_request"            // Malformed or missing input
	KindInvalidQuantity     Kind = "invalid_quantity"       // Gram amount violates the 0.1 g unit
	KindInsufficientBalance Kind = "insufficient_balance"   // Debit exceeds available balance
	KindNotFound            Kind = "not_found"              // Unknown wallet/plan/kitty/member
	KindConflict            Kind = "conflict"               // Duplicate allocation, full kitty, etc.
	KindNoQuote             Kind = "no_quote_available"     // Neither override nor snapshot exists
	KindChargeFailed        Kind = "external_charge_failed" // Payment collaborator rejected the charge
)

// Error is a typed, user-facing business error.
type Error struct {
	Kind    Kind
	Message string
	Err     error // Optional underlying cause

	// SuggestedLower/Upper accompany KindInvalidQuantity so callers can
	// offer the nearest valid amounts.
	SuggestedLower *decimal.Decimal
	SuggestedUpper *decimal.Decimal
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around an underlying cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// BadRequest builds a KindBadRequest error.
func BadRequest(format string, args ...any) *Error { return New(KindBadRequest, format, args...) }

// NotFound builds a KindNotFound error.
func NotFound(format string, args ...any) *Error { return New(KindNotFound, format, args...) }

// Conflict builds a KindConflict error.
func Conflict(format string, args ...any) *Error { return New(KindConflict, format, args...) }

// InsufficientBalance builds a KindInsufficientBalance error.
func InsufficientBalance(format string, args ...any) *Error {
	return New(KindInsufficientBalance, format, args...)
}

// InvalidQuantity builds a KindInvalidQuantity error carrying the nearest
// valid amounts below and above the rejected value.
func InvalidQuantity(lower, upper decimal.Decimal, format string, args ...any) *Error {
	e := New(KindInvalidQuantity, format, args...)
	e.SuggestedLower = &lower
	e.SuggestedUpper = &upper
	return e
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }

// HTTPStatus maps an error to the status code the API layer should return.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindBadRequest, KindInvalidQuantity, KindInsufficientBalance:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindNoQuote:
		return http.StatusServiceUnavailable
	case KindChargeFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
