package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/paymux/gateway/internal/config"
	"github.com/paymux/gateway/internal/store"
)

// checkResult stores the outcome for one table.
type checkResult struct {
	Table   string
	OK      bool
	Details string
}

var tables = []string{
	"payments",
	"payment_attempts",
	"routing_decisions",
	"outbox_events",
	"gateways_config",
	"merchant_retry_policies",
	"gateway_error_classifications",
	"bin_bank_map",
	"experiments",
	"experiment_assignments",
	"experiment_results",
	"bandit_arms",
	"bandit_policies",
	"payment_status_verifications",
	"gateway_metrics",
	"scoring_config",
	"gateway_method_affinity",
	"gateway_amount_affinity",
	"gateway_time_multipliers",
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("postgres connect failed: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Println("Verifying payment gateway schema...")
	fmt.Println()

	failed := 0
	for _, table := range tables {
		r := checkTable(ctx, db, table)
		if !r.OK {
			failed++
		}
		printResult(r)
	}

	r := checkSeed(ctx, db)
	if !r.OK {
		failed++
	}
	printResult(r)

	fmt.Println()
	if failed > 0 {
		fmt.Printf("%d check(s) failed. Apply migrations/schema.sql and retry.\n", failed)
		os.Exit(1)
	}
	fmt.Println("All checks passed.")
}

func printResult(r checkResult) {
	status := "PASS"
	if !r.OK {
		status = "FAIL"
	}
	fmt.Printf("  %-32s [%s]  %s\n", r.Table, status, r.Details)
}

func checkTable(ctx context.Context, db *sql.DB, table string) checkResult {
	var count int64
	err := db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT count(*) FROM %s", table)).Scan(&count)
	if err != nil {
		return checkResult{table, false, err.Error()}
	}
	return checkResult{table, true, fmt.Sprintf("%d rows", count)}
}

// checkSeed confirms the default scoring weights row is present, since
// routing falls back to built-in weights without it and the fallback is
// easy to miss in a fresh environment.
func checkSeed(ctx context.Context, db *sql.DB) checkResult {
	var total float64
	err := db.QueryRowContext(ctx, `
		SELECT w_success_rate + w_latency + w_method_affinity
		     + w_bank_affinity + w_amount_fit + w_time_of_day
		FROM scoring_config WHERE name = 'default'`).Scan(&total)
	if err != nil {
		return checkResult{"scoring_config seed", false, err.Error()}
	}
	if total < 0.99 || total > 1.01 {
		return checkResult{"scoring_config seed", false,
			fmt.Sprintf("weights sum to %.3f, expected 1.0", total)}
	}
	return checkResult{"scoring_config seed", true, "default weights present"}
}
