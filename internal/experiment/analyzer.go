package experiment

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// zCritical is the two-sided 95% significance bound.
const zCritical = 1.96

// Guardrails pause a treatment that is measurably hurting traffic.
type Guardrails struct {
	MinSamples           int64   `yaml:"min_samples"`
	MaxSuccessRateDrop   float64 `yaml:"max_success_rate_drop"`
	MaxLatencyMultiplier float64 `yaml:"max_latency_multiplier"`
}

func DefaultGuardrails() Guardrails {
	return Guardrails{
		MinSamples:           100,
		MaxSuccessRateDrop:   0.05,
		MaxLatencyMultiplier: 1.5,
	}
}

// VariantStats are the pooled rollups for one variant.
type VariantStats struct {
	TotalRequests int64   `json:"total_requests"`
	Successes     int64   `json:"successes"`
	P95LatencyMs  float64 `json:"p95_latency_ms"`
}

func (v VariantStats) SuccessRate() float64 {
	if v.TotalRequests == 0 {
		return 0
	}
	return float64(v.Successes) / float64(v.TotalRequests)
}

// WinnerReport is the output of GET /experiments/:id/winner.
type WinnerReport struct {
	ExperimentID   uuid.UUID    `json:"experiment_id"`
	Control        VariantStats `json:"control"`
	Treatment      VariantStats `json:"treatment"`
	ZScore         float64      `json:"z_score"`
	Significant    bool         `json:"significant"`
	Winner         string       `json:"winner"`
	Recommendation string       `json:"recommendation"`
}

// Analyze runs a two-sample z-test over pooled success rates. Below the
// sample floor on either side the report recommends waiting.
func Analyze(id uuid.UUID, control, treatment VariantStats, g Guardrails) WinnerReport {
	report := WinnerReport{ExperimentID: id, Control: control, Treatment: treatment}

	if control.TotalRequests < g.MinSamples || treatment.TotalRequests < g.MinSamples {
		report.Winner = "none"
		report.Recommendation = fmt.Sprintf(
			"insufficient sample size: need %d requests per variant (control=%d treatment=%d)",
			g.MinSamples, control.TotalRequests, treatment.TotalRequests)
		return report
	}

	report.ZScore = zScore(control, treatment)
	report.Significant = math.Abs(report.ZScore) > zCritical

	switch {
	case !report.Significant:
		report.Winner = "none"
		report.Recommendation = "no statistically significant difference; keep the experiment running"
	case report.ZScore > 0:
		report.Winner = "treatment"
		report.Recommendation = fmt.Sprintf(
			"treatment outperforms control (%.2f%% vs %.2f%% success); consider promoting the treatment gateway",
			treatment.SuccessRate()*100, control.SuccessRate()*100)
	default:
		report.Winner = "control"
		report.Recommendation = fmt.Sprintf(
			"control outperforms treatment (%.2f%% vs %.2f%% success); consider stopping the experiment",
			control.SuccessRate()*100, treatment.SuccessRate()*100)
	}
	return report
}

// zScore is positive when the treatment's success rate exceeds the
// control's. Degenerate pools (zero variance) score 0.
func zScore(control, treatment VariantStats) float64 {
	n1, n2 := float64(control.TotalRequests), float64(treatment.TotalRequests)
	p1, p2 := control.SuccessRate(), treatment.SuccessRate()
	pooled := (float64(control.Successes) + float64(treatment.Successes)) / (n1 + n2)
	se := math.Sqrt(pooled * (1 - pooled) * (1/n1 + 1/n2))
	if se == 0 {
		return 0
	}
	return (p2 - p1) / se
}

// CheckGuardrails reports whether the treatment breached a guardrail
// and should be paused. Only meaningful once the treatment has
// MinSamples requests.
func CheckGuardrails(control, treatment VariantStats, g Guardrails) (breach bool, reason string) {
	if treatment.TotalRequests < g.MinSamples {
		return false, ""
	}
	if drop := control.SuccessRate() - treatment.SuccessRate(); drop > g.MaxSuccessRateDrop {
		return true, fmt.Sprintf("treatment success rate dropped %.2f%% below control (limit %.2f%%)",
			drop*100, g.MaxSuccessRateDrop*100)
	}
	if control.P95LatencyMs > 0 && treatment.P95LatencyMs > control.P95LatencyMs*g.MaxLatencyMultiplier {
		return true, fmt.Sprintf("treatment p95 %.0fms exceeds control p95 %.0fms x %.1f",
			treatment.P95LatencyMs, control.P95LatencyMs, g.MaxLatencyMultiplier)
	}
	return false, ""
}
