package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type loadConfig struct {
	BaseURL        string
	NumPayments    int
	Concurrency    int
	ReportInterval time.Duration
}

type loadStats struct {
	Total      uint64
	Succeeded  uint64
	Failed     uint64
	RateLimits uint64

	TotalDuration time.Duration
	Throughput    float64
	AvgLatency    time.Duration
	MinLatency    time.Duration
	MaxLatency    time.Duration
	P95Latency    time.Duration
	P99Latency    time.Duration
}

var methods = []string{"UPI", "CARD", "NETBANKING"}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Gateway base URL")
	numPayments := flag.Int("payments", 1000, "Number of payments to send")
	concurrency := flag.Int("concurrency", 50, "Number of concurrent workers")
	reportInterval := flag.Duration("report", 5*time.Second, "Stats reporting interval")
	flag.Parse()

	cfg := loadConfig{
		BaseURL:        *baseURL,
		NumPayments:    *numPayments,
		Concurrency:    *concurrency,
		ReportInterval: *reportInterval,
	}

	slog.Info("starting payment load test",
		"url", cfg.BaseURL, "payments", cfg.NumPayments, "concurrency", cfg.Concurrency)

	stats := run(cfg)
	printResults(stats)
}

func run(cfg loadConfig) *loadStats {
	client := &http.Client{Timeout: 30 * time.Second}

	stats := &loadStats{MinLatency: time.Hour}
	var latencies []time.Duration
	var mu sync.Mutex

	jobs := make(chan int, cfg.NumPayments)
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reportProgress(ctx, stats, cfg.ReportInterval)

	start := time.Now()
	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for n := range jobs {
				sendPayment(ctx, client, cfg.BaseURL, worker, n, stats, &latencies, &mu)
			}
		}(i)
	}

	for i := 0; i < cfg.NumPayments; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	stats.TotalDuration = time.Since(start)
	stats.Throughput = float64(stats.Total) / stats.TotalDuration.Seconds()

	mu.Lock()
	if len(latencies) > 0 {
		stats.AvgLatency = average(latencies)
		stats.P95Latency = percentile(latencies, 95)
		stats.P99Latency = percentile(latencies, 99)
	}
	mu.Unlock()

	return stats
}

func sendPayment(
	ctx context.Context,
	client *http.Client,
	baseURL string,
	worker, n int,
	stats *loadStats,
	latencies *[]time.Duration,
	mu *sync.Mutex,
) {
	body, _ := json.Marshal(map[string]any{
		"merchant_id":    fmt.Sprintf("load-merchant-%d", worker%5),
		"customer_id":    fmt.Sprintf("load-customer-%d", n%200),
		"amount_minor":   int64(1000 + n%500000),
		"currency":       "INR",
		"payment_method": methods[n%len(methods)],
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		atomic.AddUint64(&stats.Failed, 1)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)

	atomic.AddUint64(&stats.Total, 1)
	switch {
	case err != nil:
		atomic.AddUint64(&stats.Failed, 1)
		return
	case resp.StatusCode == http.StatusTooManyRequests:
		atomic.AddUint64(&stats.RateLimits, 1)
	case resp.StatusCode < 400:
		atomic.AddUint64(&stats.Succeeded, 1)
	default:
		atomic.AddUint64(&stats.Failed, 1)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	mu.Lock()
	*latencies = append(*latencies, latency)
	if latency > stats.MaxLatency {
		stats.MaxLatency = latency
	}
	if latency < stats.MinLatency {
		stats.MinLatency = latency
	}
	mu.Unlock()
}

func reportProgress(ctx context.Context, stats *loadStats, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			slog.Info("progress",
				"total", atomic.LoadUint64(&stats.Total),
				"succeeded", atomic.LoadUint64(&stats.Succeeded),
				"failed", atomic.LoadUint64(&stats.Failed),
				"rate_limited", atomic.LoadUint64(&stats.RateLimits))
		case <-ctx.Done():
			return
		}
	}
}

func printResults(stats *loadStats) {
	fmt.Printf("\nPayments sent:      %d\n", stats.Total)
	fmt.Printf("Succeeded:          %d (%.2f%%)\n",
		stats.Succeeded, pct(stats.Succeeded, stats.Total))
	fmt.Printf("Failed:             %d (%.2f%%)\n",
		stats.Failed, pct(stats.Failed, stats.Total))
	fmt.Printf("Rate limited:       %d\n", stats.RateLimits)
	fmt.Printf("Duration:           %v\n", stats.TotalDuration)
	fmt.Printf("Throughput:         %.2f payments/sec\n", stats.Throughput)
	fmt.Printf("Latency min/avg:    %v / %v\n", stats.MinLatency, stats.AvgLatency)
	fmt.Printf("Latency p95/p99:    %v / %v\n", stats.P95Latency, stats.P99Latency)
	fmt.Printf("Latency max:        %v\n", stats.MaxLatency)
}

func pct(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func average(latencies []time.Duration) time.Duration {
	var total time.Duration
	for _, l := range latencies {
		total += l
	}
	return total / time.Duration(len(latencies))
}

func percentile(latencies []time.Duration, p int) time.Duration {
	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
