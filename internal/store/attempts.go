package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/paymux/gateway/internal/domain"
)

// AttemptRepo persists per-gateway attempt rows.
type AttemptRepo struct {
	db *sql.DB
}

func NewAttemptRepo(db *sql.DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

func (r *AttemptRepo) Insert(ctx context.Context, a domain.PaymentAttempt) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_attempts
			(payment_id, attempt_number, gateway_used, status, error_code,
			 latency_ms, circuit_breaker_state, fallback_reason, transaction_ref, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.PaymentID, a.AttemptNumber, a.GatewayUsed, a.Status, a.ErrorCode,
		a.LatencyMs, a.CircuitBreakerState, a.FallbackReason, a.TransactionRef, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (r *AttemptRepo) ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]domain.PaymentAttempt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT payment_id, attempt_number, gateway_used, status, error_code,
		       latency_ms, circuit_breaker_state, fallback_reason, transaction_ref, created_at
		FROM payment_attempts
		WHERE payment_id = $1
		ORDER BY attempt_number`, paymentID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []domain.PaymentAttempt
	for rows.Next() {
		var a domain.PaymentAttempt
		if err := rows.Scan(&a.PaymentID, &a.AttemptNumber, &a.GatewayUsed, &a.Status, &a.ErrorCode,
			&a.LatencyMs, &a.CircuitBreakerState, &a.FallbackReason, &a.TransactionRef, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
