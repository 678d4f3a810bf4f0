package gateway

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paymux/gateway/internal/domain"
)

type configSourceFake struct{ cfg *domain.GatewayConfig }

func (f configSourceFake) Get(context.Context, string) (*domain.GatewayConfig, error) {
	return f.cfg, nil
}

func TestStatusServiceConclusiveMock(t *testing.T) {
	svc := NewStatusService(configSourceFake{cfg: &domain.GatewayConfig{
		GatewayID:   "hdfc_mock",
		AdapterType: AdapterMock,
	}}, NewFactory(nil, RazorpayCredentials{}, nil), nil)

	status, conclusive, err := svc.CheckStatus(context.Background(), "hdfc_mock", uuid.New())
	require.NoError(t, err)
	assert.True(t, conclusive)
	assert.Equal(t, domain.StatusSuccess, status)
}

func TestStatusServiceTimeoutMockStaysInconclusive(t *testing.T) {
	svc := NewStatusService(configSourceFake{cfg: &domain.GatewayConfig{
		GatewayID:    "flaky",
		AdapterType:  AdapterMock,
		MockBehavior: BehaviorAlwaysTimeout,
	}}, NewFactory(nil, RazorpayCredentials{}, nil), nil)

	_, conclusive, err := svc.CheckStatus(context.Background(), "flaky", uuid.New())
	require.NoError(t, err)
	assert.False(t, conclusive)
}

func TestStatusServiceUnknownGateway(t *testing.T) {
	svc := NewStatusService(configSourceFake{}, NewFactory(nil, RazorpayCredentials{}, nil), nil)

	_, conclusive, err := svc.CheckStatus(context.Background(), "ghost", uuid.New())
	require.NoError(t, err)
	assert.False(t, conclusive)
}
