package scoring

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/paymux/gateway/internal/domain"
)

// Defaults used when a signal has no observed data.
const (
	DefaultSuccessRate    = 0.5
	DefaultP95LatencyMs   = 1500.0
	DefaultMethodAffinity = 0.7
	DefaultAmountFit      = 0.7
	DefaultTimeMultiplier = 1.0
)

// MetricSource yields the freshest observed health of a gateway for a
// (method, bank) slice. ok=false means no data, which falls back to the
// defaults above.
type MetricSource interface {
	GatewayMetric(ctx context.Context, gatewayID string, method domain.PaymentMethod, bank string) (successRate, p95Ms float64, ok bool, err error)
}

// AffinityProvider resolves the configured affinity tables. ok=false on
// a missing row falls back to the defaults above.
type AffinityProvider interface {
	MethodAffinity(gatewayID string, method domain.PaymentMethod) (float64, bool)
	AmountFit(gatewayID string, bucket string) (float64, bool)
	TimeMultiplier(gatewayID string, hour int) (float64, bool)
}

// SignalReader assembles per-candidate Signals from the hot metric store
// and the affinity tables.
type SignalReader struct {
	metrics  MetricSource
	affinity AffinityProvider
	log      *slog.Logger
}

func NewSignalReader(metrics MetricSource, affinity AffinityProvider, log *slog.Logger) *SignalReader {
	if log == nil {
		log = slog.Default()
	}
	return &SignalReader{metrics: metrics, affinity: affinity, log: log}
}

// Read collects the six scoring inputs for one candidate. Metric store
// errors degrade to defaults rather than failing the request.
func (r *SignalReader) Read(ctx context.Context, gw domain.GatewayConfig, pc domain.PaymentContext, now time.Time) Signals {
	s := Signals{
		SuccessRate:    DefaultSuccessRate,
		P95LatencyMs:   DefaultP95LatencyMs,
		MethodAffinity: DefaultMethodAffinity,
		BankAffinity:   BankAffinity(gw.GatewayID, gw.GatewayName, pc.IssuingBank),
		AmountFit:      DefaultAmountFit,
		TimeMultiplier: DefaultTimeMultiplier,
	}

	sr, p95, ok, err := r.metrics.GatewayMetric(ctx, gw.GatewayID, pc.PaymentMethod, pc.IssuingBank)
	if err != nil {
		r.log.Warn("metric read failed, using defaults",
			"gateway", gw.GatewayID, "method", pc.PaymentMethod, "err", err)
	} else if ok {
		s.SuccessRate = sr
		s.P95LatencyMs = p95
	}

	if v, ok := r.affinity.MethodAffinity(gw.GatewayID, pc.PaymentMethod); ok {
		s.MethodAffinity = v
	}
	if v, ok := r.affinity.AmountFit(gw.GatewayID, domain.AmountBucket(pc.AmountMinor)); ok {
		s.AmountFit = v
	}
	if v, ok := r.affinity.TimeMultiplier(gw.GatewayID, now.Hour()); ok {
		s.TimeMultiplier = v
	}
	return s
}

// BankAffinity scores how well a gateway matches the issuing bank: 1.0
// when the gateway's name or id carries the bank, 0.6 when the bank is
// unknown, 0.5 otherwise.
func BankAffinity(gatewayID, gatewayName, issuingBank string) float64 {
	if issuingBank == "" || issuingBank == domain.BankUnknown || strings.HasPrefix(issuingBank, "BIN:") {
		return 0.6
	}
	bank := strings.ToUpper(issuingBank)
	if strings.Contains(strings.ToUpper(gatewayName), bank) || strings.Contains(strings.ToUpper(gatewayID), bank) {
		return 1.0
	}
	return 0.5
}
