// Package apperror carries the error kinds and codes that services return and
// handlers translate into HTTP responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindConflict
)

// Error codes shared by services, handlers and locale files.
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeInvalidQuantity      = "INVALID_QUANTITY"
	CodeInvalidStatus        = "INVALID_STATUS"
	CodeInvalidRating        = "INVALID_RATING"
	CodeInvalidImages        = "INVALID_IMAGES"
	CodeEmptyOrder           = "EMPTY_ORDER"
	CodeOrderNotDelivered    = "ORDER_NOT_DELIVERED"
	CodeProductNotInOrder    = "PRODUCT_NOT_IN_ORDER"
	CodeAlreadyInWishlist    = "ALREADY_IN_WISHLIST"
	CodeNotInWishlist        = "NOT_IN_WISHLIST"
	CodeProductNotFound      = "PRODUCT_NOT_FOUND"
	CodeItemNotFound         = "ITEM_NOT_FOUND"
	CodeOrderNotFound        = "ORDER_NOT_FOUND"
	CodeReviewNotFound       = "REVIEW_NOT_FOUND"
	CodeAddressNotFound      = "ADDRESS_NOT_FOUND"
	CodeUserNotFound         = "USER_NOT_FOUND"
	CodeForbidden            = "FORBIDDEN"
	CodeInsufficientStock    = "INSUFFICIENT_STOCK"
	CodeRequestInProgress    = "REQUEST_IN_PROGRESS"
	CodeIdempotencyKeyReused = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal             = "INTERNAL_ERROR"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy of e carrying details for the response body.
func (e *Error) WithDetails(details interface{}) *Error {
	clone := *e
	clone.Details = details
	return &clone
}

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Code: CodeForbidden, Message: message}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

// Internal wraps an unexpected failure. The cause is kept for logging only.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: message, Err: err}
}

// From returns err as an *Error, wrapping anything else as internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("unexpected error", err)
}

// HasCode reports whether err is an *Error with the given code.
func HasCode(err error, code string) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
