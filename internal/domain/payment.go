// Package domain holds the wire and core types shared by the routing,
// scoring, and persistence layers. Types here carry no behaviour beyond
// construction and normalisation; everything stateful lives in the
// packages that own it.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is the merchant-facing payment rail.
type PaymentMethod string

const (
	MethodUPI        PaymentMethod = "UPI"
	MethodCard       PaymentMethod = "CARD"
	MethodNetbanking PaymentMethod = "NETBANKING"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodUPI, MethodCard, MethodNetbanking:
		return true
	}
	return false
}

// PaymentStatus is the normalised outcome of a payment or a single
// gateway attempt, independent of any adapter's wire format.
type PaymentStatus string

const (
	StatusSuccess             PaymentStatus = "SUCCESS"
	StatusFailure             PaymentStatus = "FAILURE"
	StatusTimeout             PaymentStatus = "TIMEOUT"
	StatusPendingVerification PaymentStatus = "PENDING_VERIFICATION"
)

// ParseStatus maps a stored status string back to a PaymentStatus.
// Unrecognised values degrade to FAILURE.
func ParseStatus(s string) PaymentStatus {
	switch PaymentStatus(s) {
	case StatusSuccess, StatusTimeout, StatusPendingVerification:
		return PaymentStatus(s)
	}
	return StatusFailure
}

// Instrument carries the method-specific payment details. The type
// discriminator selects which fields are meaningful.
type Instrument struct {
	Type     string `json:"type"` // CARD | UPI | NETBANKING
	Number   string `json:"number,omitempty"`
	ExpMonth int    `json:"exp_month,omitempty"`
	ExpYear  int    `json:"exp_year,omitempty"`
	CVV      string `json:"cvv,omitempty"`
	Name     string `json:"name,omitempty"`
	VPA      string `json:"vpa,omitempty"`
	BankCode string `json:"bank_code,omitempty"`
}

// CreatePaymentRequest is the body of POST /payments.
type CreatePaymentRequest struct {
	AmountMinor   int64         `json:"amount_minor"`
	Currency      string        `json:"currency"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	MerchantID    string        `json:"merchant_id"`
	CustomerID    string        `json:"customer_id"`
	Instrument    Instrument    `json:"instrument"`
}

// Hash returns the SHA-256 hex digest of the canonical JSON encoding.
// Two requests hash equal iff every field matches, which is what the
// idempotency conflict check compares.
func (r CreatePaymentRequest) Hash() string {
	raw, _ := json.Marshal(r)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// CreatePaymentResponse is returned for both fresh and replayed requests.
type CreatePaymentResponse struct {
	PaymentID       uuid.UUID     `json:"payment_id"`
	Status          PaymentStatus `json:"status"`
	GatewayUsed     string        `json:"gateway_used"`
	TransactionRef  *string       `json:"transaction_ref"`
	RoutingStrategy string        `json:"routing_strategy"`
	RoutingReason   string        `json:"routing_reason"`
	LatencyMs       int           `json:"latency_ms"`
}

// Payment is the durable record of one routed payment. Written once
// inside the request transaction, never mutated afterwards except for
// verification outcomes.
type Payment struct {
	ID              uuid.UUID     `json:"id"`
	MerchantID      string        `json:"merchant_id"`
	IdempotencyKey  string        `json:"idempotency_key"`
	RequestHash     string        `json:"request_hash"`
	CustomerID      string        `json:"customer_id"`
	AmountMinor     int64         `json:"amount_minor"`
	Currency        string        `json:"currency"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	IssuingBank     string        `json:"issuing_bank"`
	Status          PaymentStatus `json:"status"`
	GatewayUsed     string        `json:"gateway_used"`
	TransactionRef  *string       `json:"transaction_ref"`
	RoutingStrategy string        `json:"routing_strategy"`
	RoutingReason   string        `json:"routing_reason"`
	LatencyMs       int           `json:"latency_ms"`
	CreatedAt       time.Time     `json:"created_at"`
}

// Response renders the stored payment as the API response, used both
// for fresh commits and idempotent replays.
func (p Payment) Response() CreatePaymentResponse {
	return CreatePaymentResponse{
		PaymentID:       p.ID,
		Status:          p.Status,
		GatewayUsed:     p.GatewayUsed,
		TransactionRef:  p.TransactionRef,
		RoutingStrategy: p.RoutingStrategy,
		RoutingReason:   p.RoutingReason,
		LatencyMs:       p.LatencyMs,
	}
}

// GatewayConfig mirrors one row of gateways_config.
type GatewayConfig struct {
	GatewayID        string   `json:"gateway_id"`
	GatewayName      string   `json:"gateway_name"`
	AdapterType      string   `json:"adapter_type"`
	IsEnabled        bool     `json:"is_enabled"`
	Priority         int      `json:"priority"`
	SupportedMethods []string `json:"supported_methods"`
	TimeoutMs        int      `json:"timeout_ms"`
	MockBehavior     string   `json:"mock_behavior,omitempty"`
}

// RetryPolicy is the per-merchant fallback budget. Merchants without a
// stored row get DefaultRetryPolicy.
type RetryPolicy struct {
	MerchantID      string `json:"merchant_id"`
	MaxAttempts     int    `json:"max_attempts"`
	LatencyBudgetMs int    `json:"latency_budget_ms"`
	RetryOnTimeout  bool   `json:"retry_on_timeout"`
	Enabled         bool   `json:"enabled"`
}

func DefaultRetryPolicy(merchantID string) RetryPolicy {
	return RetryPolicy{
		MerchantID:      merchantID,
		MaxAttempts:     3,
		LatencyBudgetMs: 10000,
		RetryOnTimeout:  false,
		Enabled:         true,
	}
}

// ErrorClass is the per-(gateway, code) classification driving retries.
// The zero value (all false) is the fail-now default for unknown codes.
type ErrorClass struct {
	Retryable             bool
	TimeoutLike           bool
	NonRetryableUserError bool
}

// PaymentAttempt is one gateway call (or circuit skip) within a payment.
type PaymentAttempt struct {
	PaymentID           uuid.UUID     `json:"payment_id"`
	AttemptNumber       int           `json:"attempt_number"`
	GatewayUsed         string        `json:"gateway_used"`
	Status              PaymentStatus `json:"status"`
	ErrorCode           *string       `json:"error_code"`
	LatencyMs           int           `json:"latency_ms"`
	CircuitBreakerState *string       `json:"circuit_breaker_state"`
	FallbackReason      *string       `json:"fallback_reason"`
	TransactionRef      *string       `json:"transaction_ref"`
	CreatedAt           time.Time     `json:"created_at"`
}
