// Package gateway defines the provider adapter contract and the
// concrete adapters (mock for tests and local runs, razorpay for real
// traffic).
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/paymux/gateway/internal/domain"
)

// Response is the adapter-agnostic outcome of one provider call.
type Response struct {
	Status              domain.PaymentStatus `json:"status"`
	TransactionID       *string              `json:"transaction_id,omitempty"`
	AuthCode            *string              `json:"auth_code,omitempty"`
	ErrorCode           *string              `json:"error_code,omitempty"`
	ErrorMessage        *string              `json:"error_message,omitempty"`
	GatewayResponseCode *string              `json:"gateway_response_code,omitempty"`
}

// Adapter is the single capability every provider integration exposes.
type Adapter interface {
	InitiatePayment(ctx context.Context, pc domain.PaymentContext, req domain.CreatePaymentRequest) (Response, error)
}

// MinTimeout is the floor applied to configured provider deadlines.
const MinTimeout = 100 * time.Millisecond

// Invoke calls the adapter under a hard deadline derived from the
// gateway config. Deadline expiry and adapter transport errors are
// normalised into a Timeout / Failure response rather than propagated.
func Invoke(ctx context.Context, a Adapter, timeoutMs int, pc domain.PaymentContext, req domain.CreatePaymentRequest) Response {
	timeout := time.Duration(timeoutMs) * time.Millisecond
	if timeout < MinTimeout {
		timeout = MinTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := a.InitiatePayment(callCtx, pc, req)
	if err == nil {
		return resp
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return TimeoutResponse()
	}
	msg := err.Error()
	code := "GATEWAY_ERROR"
	return Response{Status: domain.StatusFailure, ErrorCode: &code, ErrorMessage: &msg}
}

// TimeoutResponse is the normalised shape for a deadline expiry.
func TimeoutResponse() Response {
	code := "GATEWAY_TIMEOUT"
	msg := "gateway did not respond within the deadline"
	return Response{Status: domain.StatusTimeout, ErrorCode: &code, ErrorMessage: &msg}
}
