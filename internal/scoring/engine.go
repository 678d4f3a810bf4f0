// Package scoring ranks candidate gateways for one request. The engine
// itself is a pure function over candidate signals and weights; signal
// collection lives in signals.go.
package scoring

import (
	"sort"

	"github.com/paymux/gateway/internal/domain"
)

// Weights are the six non-negative multipliers of the weighted sum,
// nominally summing to 1.
type Weights struct {
	SuccessRate    float64 `json:"success_rate" yaml:"success_rate"`
	Latency        float64 `json:"latency" yaml:"latency"`
	MethodAffinity float64 `json:"method_affinity" yaml:"method_affinity"`
	BankAffinity   float64 `json:"bank_affinity" yaml:"bank_affinity"`
	AmountFit      float64 `json:"amount_fit" yaml:"amount_fit"`
	TimeOfDay      float64 `json:"time_of_day" yaml:"time_of_day"`
}

// DefaultWeights is used until the stored scoring config loads.
func DefaultWeights() Weights {
	return Weights{
		SuccessRate:    0.35,
		Latency:        0.25,
		MethodAffinity: 0.15,
		BankAffinity:   0.12,
		AmountFit:      0.08,
		TimeOfDay:      0.05,
	}
}

// Signals are the raw per-candidate inputs to the scorer.
type Signals struct {
	SuccessRate    float64
	P95LatencyMs   float64
	MethodAffinity float64
	BankAffinity   float64
	AmountFit      float64
	TimeMultiplier float64
}

// Candidate pairs a gateway with its observed signals.
type Candidate struct {
	GatewayID string
	Signals   Signals
}

// Rank scores every candidate and returns them best-first. Ties keep
// input order, so a caller-supplied priority order survives equal scores.
func Rank(candidates []Candidate, w Weights) []domain.RankedGateway {
	ranked := make([]domain.RankedGateway, 0, len(candidates))
	for _, c := range candidates {
		b := breakdown(c.Signals, w)
		ranked = append(ranked, domain.RankedGateway{
			GatewayID: c.GatewayID,
			Score:     b.FinalScore,
			Breakdown: b,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func breakdown(s Signals, w Weights) domain.ScoreBreakdown {
	b := domain.ScoreBreakdown{
		SuccessRate:    clamp01(s.SuccessRate),
		LatencyScore:   latencyScore(s.P95LatencyMs),
		MethodAffinity: clamp01(s.MethodAffinity),
		BankAffinity:   clamp01(s.BankAffinity),
		AmountFit:      clamp01(s.AmountFit),
		TimeMultiplier: clamp01(s.TimeMultiplier),
	}
	score := b.SuccessRate*w.SuccessRate +
		b.LatencyScore*w.Latency +
		b.MethodAffinity*w.MethodAffinity +
		b.BankAffinity*w.BankAffinity +
		b.AmountFit*w.AmountFit +
		b.TimeMultiplier*w.TimeOfDay
	b.FinalScore = clamp01(score)
	return b
}

// latencyScore maps p95 milliseconds onto (0,1]: 0 ms scores 1, 1 s
// scores 0.5, 3 s scores 0.25.
func latencyScore(p95Ms float64) float64 {
	if p95Ms < 0 {
		p95Ms = 0
	}
	return 1.0 / (1.0 + p95Ms/1000.0)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
