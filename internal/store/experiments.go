package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/paymux/gateway/internal/domain"
	"github.com/paymux/gateway/internal/experiment"
)

// ExperimentRepo owns experiments, assignments and hourly results.
type ExperimentRepo struct {
	db *sql.DB
}

func NewExperimentRepo(db *sql.DB) *ExperimentRepo {
	return &ExperimentRepo{db: db}
}

func (r *ExperimentRepo) Create(ctx context.Context, e domain.Experiment) error {
	filter, err := json.Marshal(e.Filter)
	if err != nil {
		return fmt.Errorf("encode experiment filter: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO experiments
			(id, name, status, control_pct, treatment_pct, treatment_gateway,
			 filter, starts_at, ends_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		e.ID, e.Name, e.Status, e.ControlPct, e.TreatmentPct, e.TreatmentGateway,
		filter, e.StartsAt, e.EndsAt, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert experiment: %w", err)
	}
	return nil
}

const experimentColumns = `id, name, status, control_pct, treatment_pct, treatment_gateway,
	filter, starts_at, ends_at, created_at`

func scanExperiment(sc interface{ Scan(...any) error }) (domain.Experiment, error) {
	var (
		e      domain.Experiment
		filter []byte
	)
	if err := sc.Scan(&e.ID, &e.Name, &e.Status, &e.ControlPct, &e.TreatmentPct, &e.TreatmentGateway,
		&filter, &e.StartsAt, &e.EndsAt, &e.CreatedAt); err != nil {
		return e, err
	}
	if err := json.Unmarshal(filter, &e.Filter); err != nil {
		return e, fmt.Errorf("decode experiment filter: %w", err)
	}
	return e, nil
}

// List returns all experiments, newest first.
func (r *ExperimentRepo) List(ctx context.Context) ([]domain.Experiment, error) {
	return r.list(ctx, `SELECT `+experimentColumns+` FROM experiments ORDER BY created_at DESC`)
}

// Running returns RUNNING experiments inside their time window, newest
// first; the first match wins during routing.
func (r *ExperimentRepo) Running(ctx context.Context, now time.Time) ([]domain.Experiment, error) {
	return r.list(ctx, `
		SELECT `+experimentColumns+` FROM experiments
		WHERE status = 'RUNNING' AND starts_at <= $1 AND (ends_at IS NULL OR ends_at > $1)
		ORDER BY created_at DESC`, now)
}

func (r *ExperimentRepo) list(ctx context.Context, query string, args ...any) ([]domain.Experiment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}
	defer rows.Close()

	var out []domain.Experiment
	for rows.Next() {
		e, err := scanExperiment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan experiment: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *ExperimentRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Experiment, error) {
	e, err := scanExperiment(r.db.QueryRowContext(ctx,
		`SELECT `+experimentColumns+` FROM experiments WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get experiment: %w", err)
	}
	return &e, nil
}

// SetStatus moves an experiment to PAUSED or COMPLETED.
func (r *ExperimentRepo) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE experiments SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set experiment status: %w", err)
	}
	return nil
}

// UpsertAssignment records the stable variant for a customer. Replays
// keep the original row.
func (r *ExperimentRepo) UpsertAssignment(ctx context.Context, a domain.Assignment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO experiment_assignments (experiment_id, customer_id, variant, bucket, assigned_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (experiment_id, customer_id) DO NOTHING`,
		a.ExperimentID, a.CustomerID, a.Variant, a.Bucket, a.AssignedAt)
	if err != nil {
		return fmt.Errorf("upsert assignment: %w", err)
	}
	return nil
}

// RecordOutcome folds one payment outcome into the variant's hourly
// rollup row.
func (r *ExperimentRepo) RecordOutcome(ctx context.Context, experimentID uuid.UUID, variant string, success bool, latencyMs int, amountMinor int64, now time.Time) error {
	hour := now.Truncate(time.Hour)
	successes, revenue := 0, int64(0)
	if success {
		successes = 1
		revenue = amountMinor
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO experiment_results
			(experiment_id, variant, hour, total_requests, successes, failures,
			 avg_latency_ms, p95_latency_ms, revenue_minor)
		VALUES ($1,$2,$3,1,$4,1-$4,$5,$5,$6)
		ON CONFLICT (experiment_id, variant, hour) DO UPDATE SET
			total_requests = experiment_results.total_requests + 1,
			successes      = experiment_results.successes + $4,
			failures       = experiment_results.failures + (1 - $4),
			avg_latency_ms = (experiment_results.avg_latency_ms * experiment_results.total_requests + $5)
			                 / (experiment_results.total_requests + 1),
			p95_latency_ms = GREATEST(experiment_results.p95_latency_ms, $5),
			revenue_minor  = experiment_results.revenue_minor + $6`,
		experimentID, variant, hour, successes, float64(latencyMs), revenue)
	if err != nil {
		return fmt.Errorf("record experiment outcome: %w", err)
	}
	return nil
}

// Results lists the hourly rollups for one experiment.
func (r *ExperimentRepo) Results(ctx context.Context, experimentID uuid.UUID) ([]domain.ExperimentResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT experiment_id, variant, hour, total_requests, successes, failures,
		       avg_latency_ms, p95_latency_ms, revenue_minor
		FROM experiment_results
		WHERE experiment_id = $1
		ORDER BY hour, variant`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("list experiment results: %w", err)
	}
	defer rows.Close()

	var out []domain.ExperimentResult
	for rows.Next() {
		var res domain.ExperimentResult
		if err := rows.Scan(&res.ExperimentID, &res.Variant, &res.Hour, &res.TotalRequests,
			&res.Successes, &res.Failures, &res.AvgLatencyMs, &res.P95LatencyMs, &res.RevenueMinor); err != nil {
			return nil, fmt.Errorf("scan experiment result: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// PooledStats aggregates all hours per variant for the analyzer.
func (r *ExperimentRepo) PooledStats(ctx context.Context, experimentID uuid.UUID) (control, treatment experiment.VariantStats, err error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT variant, COALESCE(SUM(total_requests),0), COALESCE(SUM(successes),0), COALESCE(MAX(p95_latency_ms),0)
		FROM experiment_results
		WHERE experiment_id = $1
		GROUP BY variant`, experimentID)
	if err != nil {
		return control, treatment, fmt.Errorf("pool experiment stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			variant string
			stats   experiment.VariantStats
		)
		if err := rows.Scan(&variant, &stats.TotalRequests, &stats.Successes, &stats.P95LatencyMs); err != nil {
			return control, treatment, fmt.Errorf("scan pooled stats: %w", err)
		}
		switch variant {
		case domain.VariantControl:
			control = stats
		case domain.VariantTreatment:
			treatment = stats
		}
	}
	return control, treatment, rows.Err()
}
