package main

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/paymux/gateway/internal/api"
	"github.com/paymux/gateway/internal/bandit"
	"github.com/paymux/gateway/internal/circuit"
	"github.com/paymux/gateway/internal/config"
	"github.com/paymux/gateway/internal/gateway"
	"github.com/paymux/gateway/internal/metrics"
	"github.com/paymux/gateway/internal/scoring"
	"github.com/paymux/gateway/internal/service"
	"github.com/paymux/gateway/internal/store"
)

const affinityReloadInterval = time.Minute

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

	// Repositories.
	payments := store.NewPaymentRepo(db)
	attempts := store.NewAttemptRepo(db)
	routing := store.NewRoutingRepo(db)
	outbox := store.NewOutboxRepo(db)
	gateways := store.NewGatewayRepo(db)
	policies := store.NewRetryPolicyRepo(db)
	errorClasses := store.NewErrorClassRepo(db)
	bins := store.NewBinRepo(db)
	experiments := store.NewExperimentRepo(db)
	bandits := store.NewBanditRepo(db)
	verifications := store.NewVerificationRepo(db)
	scoringConfig := store.NewScoringConfigRepo(db)
	committer := store.NewPaymentWriter(db, payments, outbox)

	affinity := store.NewAffinityTable(db)
	if err := affinity.Reload(ctx); err != nil {
		log.Warn("affinity tables unavailable at startup, using scoring defaults", "err", err)
	}

	// Redis-backed state.
	circuits := circuit.NewStore(rdb)
	hotMetrics := metrics.NewHotStore(rdb)
	stream := metrics.NewStream(rdb, cfg.MetricsStreamKey)

	adapters := gateway.NewFactory(nil, gateway.RazorpayCredentials{
		KeyID:     cfg.RazorpayKeyID,
		KeySecret: cfg.RazorpayKeySecret,
		BaseURL:   cfg.RazorpayBaseURL,
	}, log)

	weightsCache := service.NewWeightsCache(scoringConfig, cfg.Tunables.WeightsCacheTTL(), nil)
	signals := scoring.NewSignalReader(hotMetrics, affinity, log)
	sampler := bandit.NewSampler(rand.NewSource(time.Now().UnixNano()))

	conductor := service.NewPaymentService(service.PaymentServiceDeps{
		Payments:         payments,
		Committer:        committer,
		Attempts:         attempts,
		Routing:          routing,
		Gateways:         gateways,
		Policies:         policies,
		ErrorClasses:     errorClasses,
		Bins:             bins,
		Circuits:         circuits,
		Experiments:      experiments,
		Bandits:          bandits,
		Verifications:    verifications,
		Adapters:         adapters,
		Signals:          signals,
		Weights:          weightsCache,
		Sampler:          sampler,
		Thresholds:       cfg.Tunables.Circuit,
		DefaultTimeoutMs: cfg.GatewayTimeoutMs,
		ProbeDraw:        rand.Float64,
		Log:              log,
	})

	// Background workers.
	relay := service.NewOutboxRelay(outbox, stream,
		cfg.Tunables.OutboxTick(), cfg.Tunables.OutboxBatchSize, nil, log)
	go relay.Run(ctx)

	checker := gateway.NewStatusService(gateways, adapters, log)
	verifier := service.NewVerifier(verifications, payments, checker,
		cfg.Tunables.VerifierTick(), cfg.Tunables.VerifierBatchSize, nil, log)
	go verifier.Run(ctx)

	guardrails := service.NewGuardrailMonitor(experiments, cfg.Guardrails, time.Minute, nil, log)
	go guardrails.Run(ctx)

	go reloadAffinity(ctx, affinity, log)

	server := api.NewServer(api.ServerDeps{
		Payments:      conductor,
		PaymentReads:  payments,
		Decisions:     routing,
		Attempts:      attempts,
		Verifications: verifications,
		Gateways:      gateways,
		Metrics:       hotMetrics,
		Circuits:      circuits,
		Experiments:   experiments,
		Bandits:       bandits,
		Policies:      policies,
		Limiter:       api.NewRedisRateLimiter(rdb, cfg.RateLimitPerMinute, nil),
		Guardrails:    cfg.Guardrails,
		InternalKey:   cfg.InternalAPIKey,
		CheckDB:       db.PingContext,
		CheckRedis:    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		Log:           log,
	})

	srv := &http.Server{
		Addr:         cfg.BindAddr,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("payment gateway listening", "addr", cfg.BindAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "err", err)
	}
}

func reloadAffinity(ctx context.Context, affinity *store.AffinityTable, log *slog.Logger) {
	ticker := time.NewTicker(affinityReloadInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := affinity.Reload(ctx); err != nil {
				log.Warn("affinity reload failed", "err", err)
			}
		}
	}
}
