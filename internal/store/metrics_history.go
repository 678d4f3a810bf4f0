package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/paymux/gateway/internal/metrics"
)

// MetricsHistoryRepo mirrors hot aggregates into gateway_metrics, one
// upsert per snapshot minute.
type MetricsHistoryRepo struct {
	db *sql.DB
}

func NewMetricsHistoryRepo(db *sql.DB) *MetricsHistoryRepo {
	return &MetricsHistoryRepo{db: db}
}

func (r *MetricsHistoryRepo) UpsertSnapshot(ctx context.Context, minute time.Time, key metrics.Key, windowMinutes int, agg metrics.Aggregate) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO gateway_metrics
			(snapshot_minute, gateway_id, payment_method, issuing_bank, window_minutes,
			 success_rate, timeout_rate, avg_latency_ms, p50_latency_ms, p95_latency_ms,
			 p99_latency_ms, total_requests)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (snapshot_minute, gateway_id, payment_method, issuing_bank, window_minutes)
		DO UPDATE SET
			success_rate   = EXCLUDED.success_rate,
			timeout_rate   = EXCLUDED.timeout_rate,
			avg_latency_ms = EXCLUDED.avg_latency_ms,
			p50_latency_ms = EXCLUDED.p50_latency_ms,
			p95_latency_ms = EXCLUDED.p95_latency_ms,
			p99_latency_ms = EXCLUDED.p99_latency_ms,
			total_requests = EXCLUDED.total_requests`,
		minute, key.GatewayID, key.Method, key.Bank, windowMinutes,
		agg.SuccessRate, agg.TimeoutRate, agg.AvgLatencyMs, agg.P50LatencyMs, agg.P95LatencyMs,
		agg.P99LatencyMs, agg.TotalRequests)
	if err != nil {
		return fmt.Errorf("upsert metrics history: %w", err)
	}
	return nil
}
