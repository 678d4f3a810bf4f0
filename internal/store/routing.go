package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/paymux/gateway/internal/domain"
)

// RoutingRepo persists one routing decision per payment.
type RoutingRepo struct {
	db *sql.DB
}

func NewRoutingRepo(db *sql.DB) *RoutingRepo {
	return &RoutingRepo{db: db}
}

// Insert is idempotent on payment_id so a retried post-commit step
// cannot duplicate the row.
func (r *RoutingRepo) Insert(ctx context.Context, d domain.RoutingDecision) error {
	breakdown, err := json.Marshal(d.Breakdown)
	if err != nil {
		return fmt.Errorf("encode breakdown: %w", err)
	}
	rankedList, err := json.Marshal(d.RankedList)
	if err != nil {
		return fmt.Errorf("encode ranked list: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO routing_decisions
			(payment_id, selected_gateway, selected_score, runner_up, strategy,
			 reason, breakdown, ranked_list, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (payment_id) DO NOTHING`,
		d.PaymentID, d.SelectedGateway, d.SelectedScore, d.RunnerUp, d.Strategy,
		d.Reason, breakdown, rankedList, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert routing decision: %w", err)
	}
	return nil
}

func (r *RoutingRepo) ByPayment(ctx context.Context, paymentID uuid.UUID) (*domain.RoutingDecision, error) {
	var (
		d          domain.RoutingDecision
		breakdown  []byte
		rankedList []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT payment_id, selected_gateway, selected_score, runner_up, strategy,
		       reason, breakdown, ranked_list, created_at
		FROM routing_decisions WHERE payment_id = $1`, paymentID).
		Scan(&d.PaymentID, &d.SelectedGateway, &d.SelectedScore, &d.RunnerUp, &d.Strategy,
			&d.Reason, &breakdown, &rankedList, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get routing decision: %w", err)
	}
	if err := json.Unmarshal(breakdown, &d.Breakdown); err != nil {
		return nil, fmt.Errorf("decode breakdown: %w", err)
	}
	if err := json.Unmarshal(rankedList, &d.RankedList); err != nil {
		return nil, fmt.Errorf("decode ranked list: %w", err)
	}
	return &d, nil
}
