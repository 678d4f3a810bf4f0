package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/paymux/gateway/internal/scoring"
)

// ScoringConfigRepo reads the stored scoring weights. A single row
// keyed 'default' is expected; absence falls back to code defaults.
type ScoringConfigRepo struct {
	db *sql.DB
}

func NewScoringConfigRepo(db *sql.DB) *ScoringConfigRepo {
	return &ScoringConfigRepo{db: db}
}

func (r *ScoringConfigRepo) Weights(ctx context.Context) (scoring.Weights, bool, error) {
	var w scoring.Weights
	err := r.db.QueryRowContext(ctx, `
		SELECT w_success_rate, w_latency, w_method_affinity, w_bank_affinity, w_amount_fit, w_time_of_day
		FROM scoring_config WHERE name = 'default'`).
		Scan(&w.SuccessRate, &w.Latency, &w.MethodAffinity, &w.BankAffinity, &w.AmountFit, &w.TimeOfDay)
	if err == sql.ErrNoRows {
		return scoring.Weights{}, false, nil
	}
	if err != nil {
		return scoring.Weights{}, false, fmt.Errorf("load scoring weights: %w", err)
	}
	return w, true, nil
}
