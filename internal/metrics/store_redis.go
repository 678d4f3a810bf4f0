package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/paymux/gateway/internal/domain"
)

// HotStore publishes window aggregates into Redis where the scorer
// reads them.
type HotStore struct {
	rdb *redis.Client
}

func NewHotStore(rdb *redis.Client) *HotStore {
	return &HotStore{rdb: rdb}
}

func aggregateKey(gatewayID, method, bank string, windowMinutes int) string {
	return fmt.Sprintf("metrics:%s:%s:%s:%dm",
		strings.ToLower(gatewayID), strings.ToLower(method), strings.ToLower(bank), windowMinutes)
}

func indexKey(gatewayID string, windowMinutes int) string {
	return fmt.Sprintf("metrics:index:%s:%dm", strings.ToLower(gatewayID), windowMinutes)
}

// Publish writes one aggregate with a TTL of window + 2 minutes and
// indexes its (method, bank) pair for discovery.
func (s *HotStore) Publish(ctx context.Context, key Key, windowMinutes int, agg Aggregate) error {
	raw, err := json.Marshal(agg)
	if err != nil {
		return fmt.Errorf("metrics publish encode: %w", err)
	}
	ttl := time.Duration(windowMinutes*60+120) * time.Second

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, aggregateKey(key.GatewayID, key.Method, key.Bank, windowMinutes), raw, ttl)
	pipe.SAdd(ctx, indexKey(key.GatewayID, windowMinutes), strings.ToLower(key.Method)+":"+strings.ToLower(key.Bank))
	pipe.Expire(ctx, indexKey(key.GatewayID, windowMinutes), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("metrics publish: %w", err)
	}
	return nil
}

// Window reads one aggregate; nil when absent or expired.
func (s *HotStore) Window(ctx context.Context, gatewayID, method, bank string, windowMinutes int) (*Aggregate, error) {
	raw, err := s.rdb.Get(ctx, aggregateKey(gatewayID, method, bank, windowMinutes)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("metrics window get: %w", err)
	}
	var agg Aggregate
	if err := json.Unmarshal([]byte(raw), &agg); err != nil {
		return nil, fmt.Errorf("metrics window decode: %w", err)
	}
	return &agg, nil
}

// Slices lists the indexed (method, bank) pairs for a gateway window.
func (s *HotStore) Slices(ctx context.Context, gatewayID string, windowMinutes int) ([]Key, error) {
	members, err := s.rdb.SMembers(ctx, indexKey(gatewayID, windowMinutes)).Result()
	if err != nil {
		return nil, fmt.Errorf("metrics index read: %w", err)
	}
	keys := make([]Key, 0, len(members))
	for _, m := range members {
		parts := strings.SplitN(m, ":", 2)
		if len(parts) != 2 {
			continue
		}
		keys = append(keys, Key{GatewayID: gatewayID, Method: parts[0], Bank: parts[1]})
	}
	return keys, nil
}

// GatewayMetric satisfies the scorer's MetricSource over the 5-minute
// window. ok=false on a cold key.
func (s *HotStore) GatewayMetric(ctx context.Context, gatewayID string, method domain.PaymentMethod, bank string) (float64, float64, bool, error) {
	agg, err := s.Window(ctx, gatewayID, string(method), bank, 5)
	if err != nil {
		return 0, 0, false, err
	}
	if agg == nil || agg.TotalRequests == 0 {
		return 0, 0, false, nil
	}
	return agg.SuccessRate, agg.P95LatencyMs, true, nil
}
