package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/paymux/gateway/internal/domain"
)

// BanditRepo owns the per-segment Beta posteriors and policy flags.
type BanditRepo struct {
	db *sql.DB
}

func NewBanditRepo(db *sql.DB) *BanditRepo {
	return &BanditRepo{db: db}
}

// Arms loads the posteriors for one segment keyed by gateway id.
func (r *BanditRepo) Arms(ctx context.Context, segment string) (map[string]domain.BanditArm, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT segment, gateway_id, alpha, beta, updated_at
		FROM bandit_arms WHERE segment = $1`, segment)
	if err != nil {
		return nil, fmt.Errorf("load bandit arms: %w", err)
	}
	defer rows.Close()

	arms := make(map[string]domain.BanditArm)
	for rows.Next() {
		var a domain.BanditArm
		if err := rows.Scan(&a.Segment, &a.GatewayID, &a.Alpha, &a.Beta, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan bandit arm: %w", err)
		}
		arms[a.GatewayID] = a
	}
	return arms, rows.Err()
}

// AllArms lists every posterior for GET /bandit/state.
func (r *BanditRepo) AllArms(ctx context.Context) ([]domain.BanditArm, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT segment, gateway_id, alpha, beta, updated_at
		FROM bandit_arms ORDER BY segment, gateway_id`)
	if err != nil {
		return nil, fmt.Errorf("list bandit arms: %w", err)
	}
	defer rows.Close()

	var out []domain.BanditArm
	for rows.Next() {
		var a domain.BanditArm
		if err := rows.Scan(&a.Segment, &a.GatewayID, &a.Alpha, &a.Beta, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan bandit arm: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Update folds one outcome into the posterior: success bumps alpha,
// failure bumps beta. Parameters only ever grow.
func (r *BanditRepo) Update(ctx context.Context, segment, gatewayID string, success bool, now time.Time) error {
	da, db_ := 0.0, 1.0
	if success {
		da, db_ = 1.0, 0.0
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bandit_arms (segment, gateway_id, alpha, beta, updated_at)
		VALUES ($1, $2, 1 + $3, 1 + $4, $5)
		ON CONFLICT (segment, gateway_id) DO UPDATE SET
			alpha = bandit_arms.alpha + $3,
			beta = bandit_arms.beta + $4,
			updated_at = $5`,
		segment, gatewayID, da, db_, now)
	if err != nil {
		return fmt.Errorf("update bandit arm: %w", err)
	}
	return nil
}

// PolicyEnabled reports whether Thompson reordering is on for a
// segment. Absent rows mean disabled.
func (r *BanditRepo) PolicyEnabled(ctx context.Context, segment string) (bool, error) {
	var enabled bool
	err := r.db.QueryRowContext(ctx,
		`SELECT enabled FROM bandit_policies WHERE segment = $1`, segment).Scan(&enabled)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get bandit policy: %w", err)
	}
	return enabled, nil
}

func (r *BanditRepo) SetPolicy(ctx context.Context, segment string, enabled bool) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bandit_policies (segment, enabled)
		VALUES ($1, $2)
		ON CONFLICT (segment) DO UPDATE SET enabled = EXCLUDED.enabled`,
		segment, enabled)
	if err != nil {
		return fmt.Errorf("set bandit policy: %w", err)
	}
	return nil
}
