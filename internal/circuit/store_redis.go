package circuit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/paymux/gateway/internal/domain"
)

const (
	statePrefix    = "circuit:state:"
	statsPrefix    = "circuit:stats:"
	overridePrefix = "circuit:manual_override:"

	// Buckets must outlive the longest rolling window (5 min) with
	// margin.
	bucketTTL = 600 * time.Second
)

// Rates is the rolling aggregate the transition function consumes.
type Rates struct {
	FailureRate2m float64
	TimeoutRate5m float64
}

// Store keeps breaker snapshots, rolling minute buckets and manual
// overrides in Redis.
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func pairKey(prefix, gatewayID, method string) string {
	return prefix + strings.ToLower(gatewayID) + ":" + strings.ToLower(method)
}

// Snapshot loads the breaker document, returning a fresh closed breaker
// when none exists yet.
func (s *Store) Snapshot(ctx context.Context, gatewayID, method string, now time.Time) (Snapshot, error) {
	raw, err := s.rdb.Get(ctx, pairKey(statePrefix, gatewayID, method)).Result()
	if err == redis.Nil {
		return NewSnapshot(gatewayID, method, now), nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("circuit snapshot get: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return Snapshot{}, fmt.Errorf("circuit snapshot decode: %w", err)
	}
	return snap, nil
}

// SaveSnapshot persists the document. Last writer wins; the minute
// buckets remain authoritative for rates.
func (s *Store) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("circuit snapshot encode: %w", err)
	}
	key := pairKey(statePrefix, snap.GatewayID, snap.PaymentMethod)
	if err := s.rdb.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("circuit snapshot set: %w", err)
	}
	return nil
}

// RecordOutcome bumps the current minute bucket. TIMEOUT counts as both
// failed and timeout; PENDING_VERIFICATION is timeout-like.
func (s *Store) RecordOutcome(ctx context.Context, gatewayID, method string, status domain.PaymentStatus, now time.Time) error {
	key := fmt.Sprintf("%s:%d", pairKey(statsPrefix, gatewayID, method), now.Unix()/60)
	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, key, "total", 1)
	switch status {
	case domain.StatusSuccess:
		pipe.HIncrBy(ctx, key, "success", 1)
	case domain.StatusTimeout, domain.StatusPendingVerification:
		pipe.HIncrBy(ctx, key, "failed", 1)
		pipe.HIncrBy(ctx, key, "timeout", 1)
	default:
		pipe.HIncrBy(ctx, key, "failed", 1)
	}
	pipe.Expire(ctx, key, bucketTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("circuit bucket incr: %w", err)
	}
	return nil
}

// Rates sums the trailing minute buckets: failures over 2 minutes,
// timeouts over 5. Empty windows yield zero rates.
func (s *Store) Rates(ctx context.Context, gatewayID, method string, now time.Time) (Rates, error) {
	base := pairKey(statsPrefix, gatewayID, method)
	minute := now.Unix() / 60

	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 5)
	for i := 0; i < 5; i++ {
		cmds[i] = pipe.HGetAll(ctx, fmt.Sprintf("%s:%d", base, minute-int64(i)))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return Rates{}, fmt.Errorf("circuit bucket read: %w", err)
	}

	var total2, failed2, total5, timeout5 int64
	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil {
			continue
		}
		total := parseField(fields, "total")
		total5 += total
		timeout5 += parseField(fields, "timeout")
		if i < 2 {
			total2 += total
			failed2 += parseField(fields, "failed")
		}
	}

	var r Rates
	if total2 > 0 {
		r.FailureRate2m = float64(failed2) / float64(total2)
	}
	if total5 > 0 {
		r.TimeoutRate5m = float64(timeout5) / float64(total5)
	}
	return r, nil
}

func parseField(fields map[string]string, name string) int64 {
	v, err := strconv.ParseInt(fields[name], 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// Override returns FORCE_OPEN, FORCE_CLOSED or "".
func (s *Store) Override(ctx context.Context, gatewayID, method string) (string, error) {
	v, err := s.rdb.Get(ctx, pairKey(overridePrefix, gatewayID, method)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("circuit override get: %w", err)
	}
	return v, nil
}

// SetOverride installs a manual override and aligns the snapshot to the
// forced state so status reads stay coherent. No TTL: the operator
// clears it explicitly.
func (s *Store) SetOverride(ctx context.Context, gatewayID, method, value string, now time.Time) error {
	if value != ForceOpen && value != ForceClosed {
		return fmt.Errorf("circuit override: invalid value %q", value)
	}
	if err := s.rdb.Set(ctx, pairKey(overridePrefix, gatewayID, method), value, 0).Err(); err != nil {
		return fmt.Errorf("circuit override set: %w", err)
	}

	snap, err := s.Snapshot(ctx, gatewayID, method, now)
	if err != nil {
		return err
	}
	if value == ForceOpen {
		snap.State = StateOpen
		openedAt := now
		snap.OpenedAt = &openedAt
		snap.CooldownUntil = nil
	} else {
		snap.State = StateClosed
		snap.OpenedAt = nil
		snap.CooldownUntil = nil
	}
	resetProbes(&snap)
	snap.UpdatedAt = now
	return s.SaveSnapshot(ctx, snap)
}

// ClearOverride removes a manual override.
func (s *Store) ClearOverride(ctx context.Context, gatewayID, method string) error {
	if err := s.rdb.Del(ctx, pairKey(overridePrefix, gatewayID, method)).Err(); err != nil {
		return fmt.Errorf("circuit override del: %w", err)
	}
	return nil
}

// StatusEntry pairs a snapshot with its active override for the status
// endpoint.
type StatusEntry struct {
	Snapshot Snapshot `json:"snapshot"`
	Override string   `json:"override,omitempty"`
}

// AllStatuses scans every breaker document.
func (s *Store) AllStatuses(ctx context.Context) ([]StatusEntry, error) {
	var entries []StatusEntry
	iter := s.rdb.Scan(ctx, 0, statePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := s.rdb.Get(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}
		var snap Snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			continue
		}
		override, err := s.Override(ctx, snap.GatewayID, snap.PaymentMethod)
		if err != nil {
			override = ""
		}
		entries = append(entries, StatusEntry{Snapshot: snap, Override: override})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("circuit status scan: %w", err)
	}
	return entries, nil
}
