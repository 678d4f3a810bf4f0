package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/paymux/gateway/internal/domain"
)

// RetryPolicyRepo owns merchant_retry_policies.
type RetryPolicyRepo struct {
	db *sql.DB
}

func NewRetryPolicyRepo(db *sql.DB) *RetryPolicyRepo {
	return &RetryPolicyRepo{db: db}
}

// Get returns the merchant's policy, falling back to the defaults when
// no row exists.
func (r *RetryPolicyRepo) Get(ctx context.Context, merchantID string) (domain.RetryPolicy, error) {
	var p domain.RetryPolicy
	err := r.db.QueryRowContext(ctx, `
		SELECT merchant_id, max_attempts, latency_budget_ms, retry_on_timeout, enabled
		FROM merchant_retry_policies WHERE merchant_id = $1`, merchantID).
		Scan(&p.MerchantID, &p.MaxAttempts, &p.LatencyBudgetMs, &p.RetryOnTimeout, &p.Enabled)
	if err == sql.ErrNoRows {
		return domain.DefaultRetryPolicy(merchantID), nil
	}
	if err != nil {
		return domain.RetryPolicy{}, fmt.Errorf("get retry policy: %w", err)
	}
	return p, nil
}

func (r *RetryPolicyRepo) Upsert(ctx context.Context, p domain.RetryPolicy) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO merchant_retry_policies (merchant_id, max_attempts, latency_budget_ms, retry_on_timeout, enabled)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (merchant_id) DO UPDATE SET
			max_attempts = EXCLUDED.max_attempts,
			latency_budget_ms = EXCLUDED.latency_budget_ms,
			retry_on_timeout = EXCLUDED.retry_on_timeout,
			enabled = EXCLUDED.enabled`,
		p.MerchantID, p.MaxAttempts, p.LatencyBudgetMs, p.RetryOnTimeout, p.Enabled)
	if err != nil {
		return fmt.Errorf("upsert retry policy: %w", err)
	}
	return nil
}

// ErrorClassRepo owns gateway_error_classifications.
type ErrorClassRepo struct {
	db *sql.DB
}

func NewErrorClassRepo(db *sql.DB) *ErrorClassRepo {
	return &ErrorClassRepo{db: db}
}

// Get returns the classification for a (gateway, code) pair. Unknown
// codes yield the zero class, which the orchestrator treats as
// fail-now.
func (r *ErrorClassRepo) Get(ctx context.Context, gatewayID, errorCode string) (domain.ErrorClass, error) {
	var c domain.ErrorClass
	err := r.db.QueryRowContext(ctx, `
		SELECT retryable, timeout_like, non_retryable_user_error
		FROM gateway_error_classifications
		WHERE gateway_id = $1 AND error_code = $2`, gatewayID, errorCode).
		Scan(&c.Retryable, &c.TimeoutLike, &c.NonRetryableUserError)
	if err == sql.ErrNoRows {
		return domain.ErrorClass{}, nil
	}
	if err != nil {
		return domain.ErrorClass{}, fmt.Errorf("get error classification: %w", err)
	}
	return c, nil
}

// BinRepo owns bin_bank_map, resolving card BINs to issuing banks.
type BinRepo struct {
	db *sql.DB
}

func NewBinRepo(db *sql.DB) *BinRepo {
	return &BinRepo{db: db}
}

func (r *BinRepo) BankForBIN(ctx context.Context, bin string) (string, bool, error) {
	var bank string
	err := r.db.QueryRowContext(ctx,
		`SELECT bank_name FROM bin_bank_map WHERE bin = $1`, bin).Scan(&bank)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("bin lookup: %w", err)
	}
	return bank, true, nil
}
