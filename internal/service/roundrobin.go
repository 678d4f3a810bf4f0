package service

import (
	"sync/atomic"

	"github.com/paymux/gateway/internal/domain"
)

// RoundRobin is the fallback router used when scoring weights cannot be
// loaded. A relaxed atomic counter rotates the candidate order.
type RoundRobin struct {
	counter atomic.Uint64
}

// Order rotates the candidates starting at the counter position and
// renders them as a ranked list with zero scores.
func (r *RoundRobin) Order(candidates []domain.GatewayConfig) []domain.RankedGateway {
	n := len(candidates)
	if n == 0 {
		return nil
	}
	start := int((r.counter.Add(1) - 1) % uint64(n))
	out := make([]domain.RankedGateway, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.RankedGateway{GatewayID: candidates[(start+i)%n].GatewayID})
	}
	return out
}
