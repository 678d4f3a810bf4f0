package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventPaymentAttempted is the outbox event type emitted once per payment.
const EventPaymentAttempted = "payment.attempted"

// PaymentEvent is the lifecycle record published to the event stream and
// consumed by the sliding-window aggregator. One event per finished
// payment, carrying the final gateway's outcome.
type PaymentEvent struct {
	PaymentID     uuid.UUID     `json:"payment_id"`
	MerchantID    string        `json:"merchant_id"`
	GatewayID     string        `json:"gateway_id"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	IssuingBank   string        `json:"issuing_bank"`
	Status        PaymentStatus `json:"status"`
	ErrorCode     *string       `json:"error_code"`
	LatencyMs     int           `json:"latency_ms"`
	AmountMinor   int64         `json:"amount_minor"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

// OutboxStatus values for outbox_events rows.
const (
	OutboxPending    = "PENDING"
	OutboxProcessing = "PROCESSING"
	OutboxPublished  = "PUBLISHED"
)

// OutboxRecord is one row of the transactional outbox.
type OutboxRecord struct {
	ID            int64     `json:"id"`
	PaymentID     uuid.UUID `json:"payment_id"`
	EventType     string    `json:"event_type"`
	Payload       []byte    `json:"payload"`
	Status        string    `json:"status"`
	Attempts      int       `json:"attempts"`
	NextAttemptAt time.Time `json:"next_attempt_at"`
	CreatedAt     time.Time `json:"created_at"`
}
