// Package apierror provides standardized error response structures for the API
// and the domain error taxonomy the services return.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"net/http"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation error", Fields: fields}
}

// ── Domain taxonomy ──────────────────────────────────────────────────────────

// Kind classifies a domain error. Callers branch on the kind, never on text.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindConcurrency
	KindConsistency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindConcurrency:
		return "concurrency"
	case KindConsistency:
		return "consistency"
	default:
		return "internal"
	}
}

// Error is a classified domain error. Two errors match under errors.Is when
// kind and code are equal, so sentinels can be wrapped with extra detail.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// Wrap returns a copy of the sentinel carrying cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

// WithMessage returns a copy of the sentinel with a more specific message.
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Code: "invalid_" + field, Field: field, Message: msg}
}

func NotFound(code, msg string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: msg}
}

func Conflict(code, msg string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: msg}
}

func Consistency(msg string) *Error {
	return &Error{Kind: KindConsistency, Code: "consistency_violation", Message: msg}
}

var (
	ErrOrderNotFound       = NotFound("order_not_found", "order not found")
	ErrOrderItemNotFound   = NotFound("order_item_not_found", "order item not found")
	ErrCatalogItemNotFound = NotFound("catalog_item_not_found", "catalog item not found")
	ErrRegisterNotFound    = NotFound("register_not_found", "cash register not found")
	ErrMovementNotFound    = NotFound("movement_not_found", "cash movement not found")
	ErrPaymentNotFound     = NotFound("payment_not_found", "payment not found")
	ErrInstallmentNotFound = NotFound("installment_not_found", "installment not found")
	ErrPartRequestNotFound = NotFound("part_request_not_found", "part request not found")

	ErrDuplicateService        = Conflict("duplicate_service", "service already added to this order")
	ErrRegisterAlreadyOpen     = Conflict("register_already_open", "a cash register is already open for this establishment")
	ErrRegisterClosed          = Conflict("register_closed", "cash register is closed")
	ErrPaymentAlreadyExists    = Conflict("payment_already_exists", "an active payment already exists for this order")
	ErrPaymentAlreadyPaid      = Conflict("payment_already_paid", "payment is already paid")
	ErrPaymentCancelled        = Conflict("payment_cancelled", "payment is cancelled")
	ErrInvalidTransition       = Conflict("invalid_transition", "status transition not allowed")
	ErrOrderClosed             = Conflict("order_closed", "order is finalized or cancelled")
	ErrPartRequestClosed       = Conflict("part_request_closed", "part request is already closed")
	ErrMovementAlreadyReversed = Conflict("movement_already_reversed", "movement was already reversed")

	ErrConcurrency = &Error{Kind: KindConcurrency, Code: "concurrency", Message: "too much contention, retry the request"}
	ErrConsistency = Consistency("stored values diverge from recomputed values")
)

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }
func IsConflict(err error) bool { return KindOf(err) == KindConflict }
func IsConcurrency(err error) bool { return KindOf(err) == KindConcurrency }
func IsConsistency(err error) bool { return KindOf(err) == KindConsistency }

// HTTPStatus maps an error to the response status the adapter writes.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindConcurrency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FromError builds the response envelope. Internal errors never leak detail.
func FromError(err error) *APIError {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal && e.Kind != KindConsistency {
		return &APIError{Detail: e.Message, Code: e.Code}
	}
	return &APIError{Detail: "internal server error"}
}
