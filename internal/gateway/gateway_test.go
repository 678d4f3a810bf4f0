package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paymux/gateway/internal/domain"
)

func TestMockAdapterSuccess(t *testing.T) {
	resp, err := NewMockAdapter(BehaviorAlwaysSuccess).InitiatePayment(context.Background(), domain.PaymentContext{}, domain.CreatePaymentRequest{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, resp.Status)
	require.NotNil(t, resp.TransactionID)
	assert.True(t, strings.HasPrefix(*resp.TransactionID, "mock_txn_"))
	require.NotNil(t, resp.AuthCode)
	assert.Equal(t, "MOCK_AUTH", *resp.AuthCode)
}

func TestMockAdapterFailure(t *testing.T) {
	resp, err := NewMockAdapter(BehaviorAlwaysFailure).InitiatePayment(context.Background(), domain.PaymentContext{}, domain.CreatePaymentRequest{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailure, resp.Status)
	require.NotNil(t, resp.ErrorCode)
	assert.Equal(t, "MOCK_DECLINED", *resp.ErrorCode)
}

func TestMockAdapterTimeout(t *testing.T) {
	resp, err := NewMockAdapter(BehaviorAlwaysTimeout).InitiatePayment(context.Background(), domain.PaymentContext{}, domain.CreatePaymentRequest{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTimeout, resp.Status)
	require.NotNil(t, resp.ErrorCode)
	assert.Equal(t, "MOCK_TIMEOUT", *resp.ErrorCode)
}

type slowAdapter struct{ delay time.Duration }

func (s slowAdapter) InitiatePayment(ctx context.Context, _ domain.PaymentContext, _ domain.CreatePaymentRequest) (Response, error) {
	select {
	case <-time.After(s.delay):
		return Response{Status: domain.StatusSuccess}, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

func TestInvokeAppliesDeadline(t *testing.T) {
	resp := Invoke(context.Background(), slowAdapter{delay: 2 * time.Second}, 100, domain.PaymentContext{}, domain.CreatePaymentRequest{})
	assert.Equal(t, domain.StatusTimeout, resp.Status)
	require.NotNil(t, resp.ErrorCode)
	assert.Equal(t, "GATEWAY_TIMEOUT", *resp.ErrorCode)
}

func TestInvokeFloorsTinyTimeouts(t *testing.T) {
	// 1 ms configured, 50 ms adapter: the 100 ms floor lets it pass.
	resp := Invoke(context.Background(), slowAdapter{delay: 50 * time.Millisecond}, 1, domain.PaymentContext{}, domain.CreatePaymentRequest{})
	assert.Equal(t, domain.StatusSuccess, resp.Status)
}

func TestRazorpayAdapterSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_abc","status":"created"}`))
	}))
	defer srv.Close()

	a := NewRazorpayAdapter(srv.Client(), RazorpayCredentials{KeyID: "key", KeySecret: "secret", BaseURL: srv.URL}, nil)
	resp, err := a.InitiatePayment(context.Background(), domain.PaymentContext{}, domain.CreatePaymentRequest{AmountMinor: 50000, Currency: "INR"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, resp.Status)
	require.NotNil(t, resp.TransactionID)
	assert.Equal(t, "order_abc", *resp.TransactionID)
}

func TestRazorpayAdapterDecline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
	}))
	defer srv.Close()

	a := NewRazorpayAdapter(srv.Client(), RazorpayCredentials{BaseURL: srv.URL}, nil)
	resp, err := a.InitiatePayment(context.Background(), domain.PaymentContext{}, domain.CreatePaymentRequest{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailure, resp.Status)
	require.NotNil(t, resp.ErrorCode)
	assert.Equal(t, "BAD_REQUEST_ERROR", *resp.ErrorCode)
	require.NotNil(t, resp.ErrorMessage)
	assert.Equal(t, "amount too small", *resp.ErrorMessage)
}

func TestFactoryCachesAndSelects(t *testing.T) {
	f := NewFactory(nil, RazorpayCredentials{}, nil)

	mockCfg := domain.GatewayConfig{GatewayID: "m1", AdapterType: AdapterMock, MockBehavior: BehaviorAlwaysSuccess}
	a1 := f.AdapterFor(mockCfg)
	a2 := f.AdapterFor(mockCfg)
	assert.Same(t, a1.(*MockAdapter), a2.(*MockAdapter))

	rz := f.AdapterFor(domain.GatewayConfig{GatewayID: "r1", AdapterType: AdapterRazorpay})
	_, ok := rz.(*RazorpayAdapter)
	assert.True(t, ok)

	unknown := f.AdapterFor(domain.GatewayConfig{GatewayID: "u1", AdapterType: "grpc"})
	_, ok = unknown.(*MockAdapter)
	assert.True(t, ok)
}
