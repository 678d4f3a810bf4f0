package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Verification statuses.
const (
	VerificationPending   = "PENDING"
	VerificationResolved  = "RESOLVED"
	VerificationExhausted = "EXHAUSTED"
)

// maxVerificationAttempts before a record is parked as EXHAUSTED.
const maxVerificationAttempts = 3

// VerificationRecord queues a timed-out payment for reconciliation.
type VerificationRecord struct {
	PaymentID   uuid.UUID `json:"payment_id"`
	GatewayID   string    `json:"gateway_id"`
	Status      string    `json:"status"`
	Attempts    int       `json:"attempts"`
	NextCheckAt time.Time `json:"next_check_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// VerificationRepo owns payment_status_verifications.
type VerificationRepo struct {
	db *sql.DB
}

func NewVerificationRepo(db *sql.DB) *VerificationRepo {
	return &VerificationRepo{db: db}
}

// Schedule enqueues a payment for its first check two minutes out.
func (r *VerificationRepo) Schedule(ctx context.Context, paymentID uuid.UUID, gatewayID string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_status_verifications
			(payment_id, gateway_id, status, attempts, next_check_at, created_at)
		VALUES ($1, $2, $3, 0, $4, $5)
		ON CONFLICT (payment_id) DO NOTHING`,
		paymentID, gatewayID, VerificationPending, now.Add(2*time.Minute), now)
	if err != nil {
		return fmt.Errorf("schedule verification: %w", err)
	}
	return nil
}

// Due claims pending records whose check time has arrived.
func (r *VerificationRepo) Due(ctx context.Context, now time.Time, limit int) ([]VerificationRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT payment_id, gateway_id, status, attempts, next_check_at, created_at
		FROM payment_status_verifications
		WHERE status = $1 AND next_check_at <= $2
		ORDER BY next_check_at
		LIMIT $3`,
		VerificationPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due verifications: %w", err)
	}
	defer rows.Close()

	var out []VerificationRecord
	for rows.Next() {
		var v VerificationRecord
		if err := rows.Scan(&v.PaymentID, &v.GatewayID, &v.Status, &v.Attempts, &v.NextCheckAt, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan verification: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// MarkChecked records an inconclusive check: reschedule two minutes
// out, or park as EXHAUSTED after the attempt cap.
func (r *VerificationRepo) MarkChecked(ctx context.Context, paymentID uuid.UUID, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_status_verifications
		SET attempts = attempts + 1,
		    next_check_at = $2,
		    status = CASE WHEN attempts + 1 >= $3 THEN $4 ELSE status END
		WHERE payment_id = $1`,
		paymentID, now.Add(2*time.Minute), maxVerificationAttempts, VerificationExhausted)
	if err != nil {
		return fmt.Errorf("mark verification checked: %w", err)
	}
	return nil
}

// MarkResolved closes a verification whose payment reached a final
// state.
func (r *VerificationRepo) MarkResolved(ctx context.Context, paymentID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_status_verifications SET status = $2 WHERE payment_id = $1`,
		paymentID, VerificationResolved)
	if err != nil {
		return fmt.Errorf("mark verification resolved: %w", err)
	}
	return nil
}

// ByPayment returns the verification record for one payment, if any.
func (r *VerificationRepo) ByPayment(ctx context.Context, paymentID uuid.UUID) (*VerificationRecord, error) {
	var v VerificationRecord
	err := r.db.QueryRowContext(ctx, `
		SELECT payment_id, gateway_id, status, attempts, next_check_at, created_at
		FROM payment_status_verifications WHERE payment_id = $1`, paymentID).
		Scan(&v.PaymentID, &v.GatewayID, &v.Status, &v.Attempts, &v.NextCheckAt, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get verification: %w", err)
	}
	return &v, nil
}
