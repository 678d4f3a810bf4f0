package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/paymux/gateway/internal/domain"
)

// PaymentRepo persists payment rows.
type PaymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo {
	return &PaymentRepo{db: db}
}

const paymentColumns = `id, merchant_id, idempotency_key, request_hash, customer_id,
	amount_minor, currency, payment_method, issuing_bank, status, gateway_used,
	transaction_ref, routing_strategy, routing_reason, latency_ms, created_at`

// InsertTx writes the payment inside the caller's transaction so the
// outbox row commits or rolls back with it.
func (r *PaymentRepo) InsertTx(ctx context.Context, tx *sql.Tx, p domain.Payment) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		p.ID, p.MerchantID, p.IdempotencyKey, p.RequestHash, p.CustomerID,
		p.AmountMinor, p.Currency, p.PaymentMethod, p.IssuingBank, p.Status, p.GatewayUsed,
		p.TransactionRef, p.RoutingStrategy, p.RoutingReason, p.LatencyMs, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// ByIdempotency resolves the stored payment for a (merchant, key) pair.
// Returns nil when no payment exists yet.
func (r *PaymentRepo) ByIdempotency(ctx context.Context, merchantID, idempotencyKey string) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE merchant_id = $1 AND idempotency_key = $2`,
		merchantID, idempotencyKey)
	return scanPayment(row)
}

// ByID looks a payment up by its server-generated id.
func (r *PaymentRepo) ByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	return scanPayment(row)
}

// UpdateStatus is used by the verifier when a pending payment resolves.
func (r *PaymentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	return nil
}

func scanPayment(row *sql.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID, &p.MerchantID, &p.IdempotencyKey, &p.RequestHash, &p.CustomerID,
		&p.AmountMinor, &p.Currency, &p.PaymentMethod, &p.IssuingBank, &p.Status, &p.GatewayUsed,
		&p.TransactionRef, &p.RoutingStrategy, &p.RoutingReason, &p.LatencyMs, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return &p, nil
}
