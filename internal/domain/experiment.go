package domain

import (
	"time"

	"github.com/google/uuid"
)

// Experiment statuses.
const (
	ExperimentRunning   = "RUNNING"
	ExperimentPaused    = "PAUSED"
	ExperimentCompleted = "COMPLETED"
)

// Variant labels.
const (
	VariantControl   = "control"
	VariantTreatment = "treatment"
)

// Experiment is a routing A/B test diverting a fraction of matching
// traffic to a treatment gateway.
type Experiment struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Status           string     `json:"status"`
	ControlPct       int        `json:"control_pct"`
	TreatmentPct     int        `json:"treatment_pct"`
	TreatmentGateway string     `json:"treatment_gateway"`
	Filter           ExpFilter  `json:"filter"`
	StartsAt         time.Time  `json:"starts_at"`
	EndsAt           *time.Time `json:"ends_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

// ExpFilter is the conjunctive request predicate attached to an
// experiment. Nil fields match everything.
type ExpFilter struct {
	PaymentMethod  *PaymentMethod `json:"payment_method,omitempty"`
	MinAmountMinor *int64         `json:"min_amount_minor,omitempty"`
	MaxAmountMinor *int64         `json:"max_amount_minor,omitempty"`
	MerchantID     *string        `json:"merchant_id,omitempty"`
	AmountBucket   *string        `json:"amount_bucket,omitempty"`
}

// Assignment is the stable (experiment, customer) variant record.
type Assignment struct {
	ExperimentID uuid.UUID `json:"experiment_id"`
	CustomerID   string    `json:"customer_id"`
	Variant      string    `json:"variant"`
	Bucket       int       `json:"bucket"`
	AssignedAt   time.Time `json:"assigned_at"`
}

// ExperimentResult is the hourly rollup per (experiment, variant).
type ExperimentResult struct {
	ExperimentID  uuid.UUID `json:"experiment_id"`
	Variant       string    `json:"variant"`
	Hour          time.Time `json:"hour"`
	TotalRequests int64     `json:"total_requests"`
	Successes     int64     `json:"successes"`
	Failures      int64     `json:"failures"`
	AvgLatencyMs  float64   `json:"avg_latency_ms"`
	P95LatencyMs  float64   `json:"p95_latency_ms"`
	RevenueMinor  int64     `json:"revenue_minor"`
}

// BanditArm is the Beta posterior for one gateway within a segment.
type BanditArm struct {
	Segment   string    `json:"segment"`
	GatewayID string    `json:"gateway_id"`
	Alpha     float64   `json:"alpha"`
	Beta      float64   `json:"beta"`
	UpdatedAt time.Time `json:"updated_at"`
}
