package gateway

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/paymux/gateway/internal/domain"
)

// StatusQuerier is the optional adapter capability the verification
// worker uses. Adapters without it leave pending payments to exhaust.
type StatusQuerier interface {
	QueryStatus(ctx context.Context, paymentID uuid.UUID) (status domain.PaymentStatus, conclusive bool, err error)
}

// QueryStatus resolves per the configured behavior: the timeout mock
// stays inconclusive so exhaustion paths stay testable.
func (m *MockAdapter) QueryStatus(ctx context.Context, _ uuid.UUID) (domain.PaymentStatus, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.StatusFailure, false, err
	}
	switch m.behavior {
	case BehaviorAlwaysFailure:
		return domain.StatusFailure, true, nil
	case BehaviorAlwaysTimeout:
		return domain.StatusPendingVerification, false, nil
	}
	return domain.StatusSuccess, true, nil
}

// ConfigSource resolves one gateway's configuration by id.
type ConfigSource interface {
	Get(ctx context.Context, gatewayID string) (*domain.GatewayConfig, error)
}

// StatusService routes verification checks to the owning adapter.
type StatusService struct {
	configs ConfigSource
	factory *Factory
	log     *slog.Logger
}

func NewStatusService(configs ConfigSource, factory *Factory, log *slog.Logger) *StatusService {
	if log == nil {
		log = slog.Default()
	}
	return &StatusService{configs: configs, factory: factory, log: log}
}

func (s *StatusService) CheckStatus(ctx context.Context, gatewayID string, paymentID uuid.UUID) (domain.PaymentStatus, bool, error) {
	cfg, err := s.configs.Get(ctx, gatewayID)
	if err != nil {
		return domain.StatusFailure, false, err
	}
	if cfg == nil {
		s.log.Warn("verification against unknown gateway", "gateway", gatewayID, "payment_id", paymentID)
		return domain.StatusFailure, false, nil
	}
	querier, ok := s.factory.AdapterFor(*cfg).(StatusQuerier)
	if !ok {
		return domain.StatusFailure, false, nil
	}
	return querier.QueryStatus(ctx, paymentID)
}
