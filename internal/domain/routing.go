package domain

import (
	"time"

	"github.com/google/uuid"
)

// Routing strategy tags recorded on the decision row.
const (
	StrategyScore      = "SCORE"
	StrategyExperiment = "EXPERIMENT"
	StrategyBandit     = "BANDIT"
	StrategyRoundRobin = "ROUND_ROBIN"
)

// ScoreBreakdown records each normalised component feeding the weighted
// sum, plus the final score.
type ScoreBreakdown struct {
	SuccessRate    float64 `json:"success_rate"`
	LatencyScore   float64 `json:"latency_score"`
	MethodAffinity float64 `json:"method_affinity"`
	BankAffinity   float64 `json:"bank_affinity"`
	AmountFit      float64 `json:"amount_fit"`
	TimeMultiplier float64 `json:"time_multiplier"`
	FinalScore     float64 `json:"final_score"`
}

// RankedGateway is one entry of the scorer's output, best first.
type RankedGateway struct {
	GatewayID string         `json:"gateway_id"`
	Score     float64        `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// RoutingDecision is the insert-only record of why a payment went where
// it did.
type RoutingDecision struct {
	PaymentID       uuid.UUID       `json:"payment_id"`
	SelectedGateway string          `json:"selected_gateway"`
	SelectedScore   float64         `json:"selected_score"`
	RunnerUp        *string         `json:"runner_up"`
	Strategy        string          `json:"strategy"`
	Reason          string          `json:"reason"`
	Breakdown       ScoreBreakdown  `json:"breakdown"`
	RankedList      []RankedGateway `json:"ranked_list"`
	CreatedAt       time.Time       `json:"created_at"`
}
