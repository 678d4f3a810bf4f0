package gateway

import (
	"context"

	"github.com/google/uuid"

	"github.com/paymux/gateway/internal/domain"
)

// Mock behaviours, selected by gateways_config.mock_behavior. Anything
// else authorises.
const (
	BehaviorAlwaysSuccess = "ALWAYS_SUCCESS"
	BehaviorAlwaysFailure = "ALWAYS_FAILURE"
	BehaviorAlwaysTimeout = "ALWAYS_TIMEOUT"
)

// MockAdapter is the deterministic provider used in tests and local
// environments.
type MockAdapter struct {
	behavior string
}

func NewMockAdapter(behavior string) *MockAdapter {
	return &MockAdapter{behavior: behavior}
}

func (m *MockAdapter) InitiatePayment(ctx context.Context, _ domain.PaymentContext, _ domain.CreatePaymentRequest) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	switch m.behavior {
	case BehaviorAlwaysFailure:
		code, msg, wire := "MOCK_DECLINED", "mock decline", "400"
		return Response{
			Status:              domain.StatusFailure,
			ErrorCode:           &code,
			ErrorMessage:        &msg,
			GatewayResponseCode: &wire,
		}, nil
	case BehaviorAlwaysTimeout:
		code, msg, wire := "MOCK_TIMEOUT", "mock timeout", "504"
		return Response{
			Status:              domain.StatusTimeout,
			ErrorCode:           &code,
			ErrorMessage:        &msg,
			GatewayResponseCode: &wire,
		}, nil
	}
	txn := "mock_txn_" + uuid.NewString()
	auth, wire := "MOCK_AUTH", "200"
	return Response{
		Status:              domain.StatusSuccess,
		TransactionID:       &txn,
		AuthCode:            &auth,
		GatewayResponseCode: &wire,
	}, nil
}
