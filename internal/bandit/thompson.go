// Package bandit reorders the ranked gateway list by Thompson sampling
// over per-segment Beta posteriors.
package bandit

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/paymux/gateway/internal/domain"
)

// Sampler draws from Beta posteriors. Safe for concurrent use; inject a
// seeded source for deterministic tests.
type Sampler struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSampler(src rand.Source) *Sampler {
	return &Sampler{rnd: rand.New(src)}
}

// SampleBeta draws theta ~ Beta(alpha, beta) as the ratio of two Gamma
// draws. Non-positive parameters are clamped to 1 (the uniform prior).
func (s *Sampler) SampleBeta(alpha, beta float64) float64 {
	if alpha <= 0 {
		alpha = 1
	}
	if beta <= 0 {
		beta = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	x := s.gamma(alpha)
	y := s.gamma(beta)
	if x+y == 0 {
		return 0.5
	}
	return x / (x + y)
}

// gamma draws from Gamma(shape, 1) with the Marsaglia-Tsang squeeze.
// Shapes below 1 use the standard boosting identity.
func (s *Sampler) gamma(shape float64) float64 {
	if shape < 1 {
		u := s.rnd.Float64()
		return s.gamma(shape+1) * math.Pow(u, 1/shape)
	}
	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		x := s.rnd.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := s.rnd.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

// Reorder sorts the ranked list by a fresh theta draw per gateway,
// highest first. Gateways without an arm use the (1,1) prior. The input
// slice is not mutated.
func (s *Sampler) Reorder(ranked []domain.RankedGateway, arms map[string]domain.BanditArm) []domain.RankedGateway {
	type draw struct {
		rg    domain.RankedGateway
		theta float64
	}
	draws := make([]draw, len(ranked))
	for i, rg := range ranked {
		alpha, beta := 1.0, 1.0
		if arm, ok := arms[rg.GatewayID]; ok {
			alpha, beta = arm.Alpha, arm.Beta
		}
		draws[i] = draw{rg: rg, theta: s.SampleBeta(alpha, beta)}
	}
	sort.SliceStable(draws, func(i, j int) bool { return draws[i].theta > draws[j].theta })

	out := make([]domain.RankedGateway, len(draws))
	for i, d := range draws {
		out[i] = d.rg
	}
	return out
}
