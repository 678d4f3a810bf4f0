package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/paymux/gateway/internal/domain"
)

// AffinityTable caches the gateway affinity tables in memory and serves
// them to the scorer. Reload replaces the maps wholesale under the
// write lock.
type AffinityTable struct {
	db *sql.DB

	mu     sync.RWMutex
	method map[string]float64 // "<gateway>|<method>"
	amount map[string]float64 // "<gateway>|<bucket>"
	tod    map[string]float64 // "<gateway>|<hour>"
}

func NewAffinityTable(db *sql.DB) *AffinityTable {
	return &AffinityTable{
		db:     db,
		method: map[string]float64{},
		amount: map[string]float64{},
		tod:    map[string]float64{},
	}
}

// Reload reads all three tables. Called at startup and from the config
// cache refresh.
func (t *AffinityTable) Reload(ctx context.Context) error {
	method, err := t.loadPairs(ctx,
		`SELECT gateway_id, payment_method, affinity FROM gateway_method_affinity`)
	if err != nil {
		return fmt.Errorf("load method affinity: %w", err)
	}
	amount, err := t.loadPairs(ctx,
		`SELECT gateway_id, amount_bucket, fit FROM gateway_amount_affinity`)
	if err != nil {
		return fmt.Errorf("load amount affinity: %w", err)
	}
	tod, err := t.loadPairs(ctx,
		`SELECT gateway_id, hour::text, multiplier FROM gateway_time_multipliers`)
	if err != nil {
		return fmt.Errorf("load time multipliers: %w", err)
	}

	t.mu.Lock()
	t.method, t.amount, t.tod = method, amount, tod
	t.mu.Unlock()
	return nil
}

func (t *AffinityTable) loadPairs(ctx context.Context, query string) (map[string]float64, error) {
	rows, err := t.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var gatewayID, key string
		var value float64
		if err := rows.Scan(&gatewayID, &key, &value); err != nil {
			return nil, err
		}
		out[gatewayID+"|"+key] = value
	}
	return out, rows.Err()
}

func (t *AffinityTable) MethodAffinity(gatewayID string, method domain.PaymentMethod) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.method[gatewayID+"|"+string(method)]
	return v, ok
}

func (t *AffinityTable) AmountFit(gatewayID string, bucket string) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.amount[gatewayID+"|"+bucket]
	return v, ok
}

func (t *AffinityTable) TimeMultiplier(gatewayID string, hour int) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.tod[fmt.Sprintf("%s|%d", gatewayID, hour)]
	return v, ok
}
