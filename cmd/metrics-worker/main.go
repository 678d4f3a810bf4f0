package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/paymux/gateway/internal/config"
	"github.com/paymux/gateway/internal/metrics"
	"github.com/paymux/gateway/internal/store"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", "err", err)
		os.Exit(1)
	}

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Error("invalid REDIS_URL", "err", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumerName := fmt.Sprintf("metrics-%s", uuid.NewString()[:8])
	consumer := metrics.NewConsumer(rdb,
		cfg.MetricsStreamKey, cfg.MetricsStreamGroup, consumerName,
		metrics.NewHotStore(rdb), store.NewMetricsHistoryRepo(db), log)

	if err := consumer.Run(ctx); err != nil && err != context.Canceled {
		log.Error("metrics consumer stopped", "err", err)
		os.Exit(1)
	}
	log.Info("metrics worker stopped")
}
