package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Error code strings surfaced in the {"error":{...}} envelope.
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeInvalidAmount        = "INVALID_AMOUNT"
	CodeInvalidCurrency      = "INVALID_CURRENCY"
	CodeInvalidCustomerID    = "INVALID_CUSTOMER_ID"
	CodeMissingIdempotency   = "MISSING_IDEMPOTENCY_KEY"
	CodeIdempotencyMismatch  = "IDEMPOTENCY_KEY_REUSED_WITH_DIFFERENT_PAYLOAD"
	CodeNoGatewayAvailable   = "NO_GATEWAY_AVAILABLE"
	CodeRouterSelectionError = "ROUTER_SELECTION_FAILED"
	CodeRetryExhausted       = "RETRY_EXHAUSTED"
	CodeInternal             = "INTERNAL_ERROR"
	CodeNotFound             = "NOT_FOUND"
	CodeRateLimited          = "RATE_LIMITED"
	CodeUnauthorized         = "UNAUTHORIZED"
)

// Error is the typed failure the HTTP layer maps onto the envelope.
type Error struct {
	Code    string
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// HTTPStatus maps the code to the response status the surface documents.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeInvalidRequest, CodeInvalidAmount, CodeInvalidCurrency, CodeInvalidCustomerID, CodeMissingIdempotency:
		return http.StatusBadRequest
	case CodeIdempotencyMismatch:
		return http.StatusConflict
	case CodeNoGatewayAvailable, CodeRetryExhausted:
		return http.StatusServiceUnavailable
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUnauthorized:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// WrapInternal shields callers from infrastructure error text while
// keeping the cause reachable through errors.Unwrap for logging.
func WrapInternal(err error) *Error {
	return &Error{Code: CodeInternal, Message: "internal error", cause: err}
}

// AsError extracts a *Error, falling back to an INTERNAL_ERROR wrapper.
func AsError(err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return WrapInternal(err)
}
