// Package metrics consumes payment lifecycle events from the Redis
// stream and maintains sliding-window health aggregates for the scorer.
package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/paymux/gateway/internal/domain"
)

// Windows computed for every key, in minutes.
var WindowMinutes = []int{1, 5, 15, 60}

// retainMinutes is how much trailing history each key keeps; must cover
// the largest window.
const retainMinutes = 59

// Key identifies one aggregation slice.
type Key struct {
	GatewayID string
	Method    string
	Bank      string
}

// Aggregate is the published health summary for one key and window.
type Aggregate struct {
	SuccessRate   float64          `json:"success_rate"`
	TimeoutRate   float64          `json:"timeout_rate"`
	AvgLatencyMs  float64          `json:"avg_latency_ms"`
	P50LatencyMs  float64          `json:"p50_latency_ms"`
	P95LatencyMs  float64          `json:"p95_latency_ms"`
	P99LatencyMs  float64          `json:"p99_latency_ms"`
	TotalRequests int64            `json:"total_requests"`
	ErrorCodes    map[string]int64 `json:"error_codes,omitempty"`
	GeneratedAt   time.Time        `json:"generated_at"`
}

type bucket struct {
	total      int64
	failed     int64
	timeout    int64
	latencies  []float64
	errorCodes map[string]int64
}

// Tracker accumulates per-minute buckets per key. Not safe for
// concurrent use; the consumer owns one and runs single-threaded.
type Tracker struct {
	buckets map[Key]map[int64]*bucket
}

func NewTracker() *Tracker {
	return &Tracker{buckets: make(map[Key]map[int64]*bucket)}
}

// Observe records one event into the current minute bucket and trims
// history older than the retained horizon.
func (t *Tracker) Observe(ev domain.PaymentEvent, now time.Time) Key {
	key := Key{GatewayID: ev.GatewayID, Method: string(ev.PaymentMethod), Bank: ev.IssuingBank}
	minute := now.Unix() / 60

	mins, ok := t.buckets[key]
	if !ok {
		mins = make(map[int64]*bucket)
		t.buckets[key] = mins
	}
	b, ok := mins[minute]
	if !ok {
		b = &bucket{errorCodes: make(map[string]int64)}
		mins[minute] = b
	}

	b.total++
	b.latencies = append(b.latencies, float64(ev.LatencyMs))
	switch ev.Status {
	case domain.StatusFailure:
		b.failed++
	case domain.StatusTimeout, domain.StatusPendingVerification:
		b.failed++
		b.timeout++
	}
	if ev.ErrorCode != nil && *ev.ErrorCode != "" {
		b.errorCodes[*ev.ErrorCode]++
	}

	for m := range mins {
		if m < minute-retainMinutes {
			delete(mins, m)
		}
	}
	return key
}

// Window aggregates the trailing w minutes for one key.
func (t *Tracker) Window(key Key, windowMinutes int, now time.Time) Aggregate {
	agg := Aggregate{ErrorCodes: map[string]int64{}, GeneratedAt: now}
	mins := t.buckets[key]
	if mins == nil {
		return agg
	}

	minute := now.Unix() / 60
	var failed, timeout int64
	var latencies []float64
	for m := minute - int64(windowMinutes) + 1; m <= minute; m++ {
		b, ok := mins[m]
		if !ok {
			continue
		}
		agg.TotalRequests += b.total
		failed += b.failed
		timeout += b.timeout
		latencies = append(latencies, b.latencies...)
		for code, n := range b.errorCodes {
			agg.ErrorCodes[code] += n
		}
	}
	if agg.TotalRequests > 0 {
		agg.SuccessRate = float64(agg.TotalRequests-failed) / float64(agg.TotalRequests)
		agg.TimeoutRate = float64(timeout) / float64(agg.TotalRequests)
	}
	if len(latencies) > 0 {
		var sum float64
		for _, l := range latencies {
			sum += l
		}
		agg.AvgLatencyMs = sum / float64(len(latencies))
	}
	agg.P50LatencyMs = Percentile(latencies, 0.50)
	agg.P95LatencyMs = Percentile(latencies, 0.95)
	agg.P99LatencyMs = Percentile(latencies, 0.99)
	return agg
}

// Percentile uses nearest-rank on a sorted copy: sorted[round((n-1)*p)].
// Empty input returns 0.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	idx := int(math.Round(float64(len(sorted)-1) * p))
	return sorted[idx]
}
