// Package circuit implements the per-(gateway, method) breaker: a pure
// admission evaluator and transition function over a snapshot document,
// backed by rolling minute buckets in Redis.
package circuit

import "time"

// State of one breaker.
type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

// Manual override values. Empty string means no override.
const (
	ForceOpen   = "FORCE_OPEN"
	ForceClosed = "FORCE_CLOSED"
)

// Snapshot is the last-writer-wins breaker document for one
// (gateway, method) pair. Rates are cached here for visibility; the
// minute buckets remain the source of truth.
type Snapshot struct {
	GatewayID           string     `json:"gateway_id"`
	PaymentMethod       string     `json:"payment_method"`
	State               State      `json:"state"`
	FailureRate2m       float64    `json:"failure_rate_2m"`
	TimeoutRate5m       float64    `json:"timeout_rate_5m"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	SuccessStreak       int        `json:"success_streak"`
	OpenedAt            *time.Time `json:"opened_at"`
	CooldownUntil       *time.Time `json:"cooldown_until"`
	ProbeTotal          int        `json:"probe_total"`
	ProbeSuccess        int        `json:"probe_success"`
	ProbeFailureStreak  int        `json:"probe_failure_streak"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// NewSnapshot returns the initial closed breaker for a pair.
func NewSnapshot(gatewayID, method string, now time.Time) Snapshot {
	return Snapshot{
		GatewayID:     gatewayID,
		PaymentMethod: method,
		State:         StateClosed,
		UpdatedAt:     now,
	}
}

// Thresholds tune the state machine.
type Thresholds struct {
	FailureRate2m            float64 `yaml:"failure_rate_2m"`
	TimeoutRate5m            float64 `yaml:"timeout_rate_5m"`
	ConsecutiveFailures      int     `yaml:"consecutive_failures"`
	CooldownSeconds          int     `yaml:"cooldown_seconds"`
	HalfOpenProbeRatio       float64 `yaml:"half_open_probe_ratio"`
	HalfOpenMinProbeCount    int     `yaml:"half_open_min_probe_count"`
	HalfOpenSuccessRateClose float64 `yaml:"half_open_success_rate_close"`
	HalfOpenSuccessClose     int     `yaml:"half_open_success_close"`
	HalfOpenFailureReopen    int     `yaml:"half_open_failure_reopen"`
}

// DefaultThresholds are applied when no tuning is configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FailureRate2m:            0.40,
		TimeoutRate5m:            0.50,
		ConsecutiveFailures:      10,
		CooldownSeconds:          30,
		HalfOpenProbeRatio:       0.10,
		HalfOpenMinProbeCount:    5,
		HalfOpenSuccessRateClose: 0.80,
		HalfOpenSuccessClose:     5,
		HalfOpenFailureReopen:    3,
	}
}
