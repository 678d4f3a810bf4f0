// Package api is the REST surface: merchant payment routes, read models,
// operator admin routes and the ops probes.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paymux/gateway/internal/circuit"
	"github.com/paymux/gateway/internal/domain"
	"github.com/paymux/gateway/internal/experiment"
	"github.com/paymux/gateway/internal/metrics"
	"github.com/paymux/gateway/internal/service"
	"github.com/paymux/gateway/internal/store"
)

// Capability interfaces over the service and store layers; handler tests
// substitute fakes.
type (
	PaymentProcessor interface {
		Process(ctx context.Context, req domain.CreatePaymentRequest, meta service.RequestMeta) (domain.CreatePaymentResponse, error)
		DebugRank(ctx context.Context, method domain.PaymentMethod, amountMinor int64, issuingBank string) ([]domain.RankedGateway, error)
	}
	PaymentReader interface {
		ByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	}
	DecisionReader interface {
		ByPayment(ctx context.Context, paymentID uuid.UUID) (*domain.RoutingDecision, error)
	}
	AttemptReader interface {
		ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]domain.PaymentAttempt, error)
	}
	VerificationReader interface {
		ByPayment(ctx context.Context, paymentID uuid.UUID) (*store.VerificationRecord, error)
	}
	GatewayAdmin interface {
		List(ctx context.Context) ([]domain.GatewayConfig, error)
		Get(ctx context.Context, gatewayID string) (*domain.GatewayConfig, error)
		Update(ctx context.Context, gatewayID string, patch store.GatewayPatch) (*domain.GatewayConfig, error)
	}
	MetricsReader interface {
		Window(ctx context.Context, gatewayID, method, bank string, windowMinutes int) (*metrics.Aggregate, error)
		Slices(ctx context.Context, gatewayID string, windowMinutes int) ([]metrics.Key, error)
	}
	CircuitAdmin interface {
		AllStatuses(ctx context.Context) ([]circuit.StatusEntry, error)
		SetOverride(ctx context.Context, gatewayID, method, value string, now time.Time) error
		ClearOverride(ctx context.Context, gatewayID, method string) error
	}
	ExperimentAdmin interface {
		Create(ctx context.Context, e domain.Experiment) error
		List(ctx context.Context) ([]domain.Experiment, error)
		Get(ctx context.Context, id uuid.UUID) (*domain.Experiment, error)
		SetStatus(ctx context.Context, id uuid.UUID, status string) error
		Results(ctx context.Context, experimentID uuid.UUID) ([]domain.ExperimentResult, error)
		PooledStats(ctx context.Context, experimentID uuid.UUID) (control, treatment experiment.VariantStats, err error)
	}
	BanditAdmin interface {
		AllArms(ctx context.Context) ([]domain.BanditArm, error)
		SetPolicy(ctx context.Context, segment string, enabled bool) error
	}
	PolicyAdmin interface {
		Get(ctx context.Context, merchantID string) (domain.RetryPolicy, error)
		Upsert(ctx context.Context, p domain.RetryPolicy) error
	}
	RateLimiter interface {
		Allow(ctx context.Context, clientIP string) (bool, error)
	}
)

// Server owns the router and its collaborators.
type Server struct {
	payments      PaymentProcessor
	paymentReads  PaymentReader
	decisions     DecisionReader
	attempts      AttemptReader
	verifications VerificationReader
	gateways      GatewayAdmin
	metrics       MetricsReader
	circuits      CircuitAdmin
	experiments   ExperimentAdmin
	bandits       BanditAdmin
	policies      PolicyAdmin
	limiter       RateLimiter
	guardrails    experiment.Guardrails

	internalKey string
	checkDB     func(ctx context.Context) error
	checkRedis  func(ctx context.Context) error
	now         func() time.Time
	log         *slog.Logger
}

// ServerDeps bundles everything the router needs.
type ServerDeps struct {
	Payments      PaymentProcessor
	PaymentReads  PaymentReader
	Decisions     DecisionReader
	Attempts      AttemptReader
	Verifications VerificationReader
	Gateways      GatewayAdmin
	Metrics       MetricsReader
	Circuits      CircuitAdmin
	Experiments   ExperimentAdmin
	Bandits       BanditAdmin
	Policies      PolicyAdmin
	Limiter       RateLimiter
	Guardrails    experiment.Guardrails

	InternalKey string
	CheckDB     func(ctx context.Context) error
	CheckRedis  func(ctx context.Context) error
	Now         func() time.Time
	Log         *slog.Logger
}

func NewServer(d ServerDeps) *Server {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return &Server{
		payments:      d.Payments,
		paymentReads:  d.PaymentReads,
		decisions:     d.Decisions,
		attempts:      d.Attempts,
		verifications: d.Verifications,
		gateways:      d.Gateways,
		metrics:       d.Metrics,
		circuits:      d.Circuits,
		experiments:   d.Experiments,
		bandits:       d.Bandits,
		policies:      d.Policies,
		limiter:       d.Limiter,
		guardrails:    d.Guardrails,
		internalKey:   d.InternalKey,
		checkDB:       d.CheckDB,
		checkRedis:    d.CheckRedis,
		now:           d.Now,
		log:           d.Log,
	}
}

// Router wires every route. Admin routes sit behind the internal key;
// the payment route additionally passes the per-IP rate limit.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.Handle("/payments", s.rateLimited(http.HandlerFunc(s.handleCreatePayment))).Methods("POST")
	r.HandleFunc("/payments/{id}", s.handleGetPayment).Methods("GET")
	r.HandleFunc("/payments/{id}/routing-decision", s.handleRoutingDecision).Methods("GET")
	r.HandleFunc("/payments/{id}/attempts", s.handleAttempts).Methods("GET")
	r.HandleFunc("/payments/{id}/status-verification", s.handleVerification).Methods("GET")

	r.HandleFunc("/gateways", s.handleListGateways).Methods("GET")
	r.HandleFunc("/gateways/{id}", s.handlePatchGateway).Methods("PATCH")
	r.HandleFunc("/metrics/gateways/{name}", s.handleGatewayMetrics).Methods("GET")
	r.HandleFunc("/scoring/debug", s.handleScoringDebug).Methods("GET")
	r.HandleFunc("/circuit-breaker/status", s.handleCircuitStatus).Methods("GET")

	r.HandleFunc("/experiments", s.handleListExperiments).Methods("GET")
	r.HandleFunc("/experiments/{id}/results", s.handleExperimentResults).Methods("GET")
	r.HandleFunc("/experiments/{id}/winner", s.handleExperimentWinner).Methods("GET")
	r.HandleFunc("/bandit/state", s.handleBanditState).Methods("GET")

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(s.requireInternalKey)
	admin.HandleFunc("/circuit-breaker/force-open/{gateway}/{method}", s.handleForceOpen).Methods("POST")
	admin.HandleFunc("/circuit-breaker/force-close/{gateway}/{method}", s.handleForceClose).Methods("POST")
	admin.HandleFunc("/circuit-breaker/override/{gateway}/{method}", s.handleClearOverride).Methods("DELETE")
	admin.HandleFunc("/experiments", s.handleCreateExperiment).Methods("POST")
	admin.HandleFunc("/experiments/{id}/stop", s.handleStopExperiment).Methods("POST")
	admin.HandleFunc("/bandit/policy/{segment}/enable", s.handleBanditPolicy(true)).Methods("POST")
	admin.HandleFunc("/bandit/policy/{segment}/disable", s.handleBanditPolicy(false)).Methods("POST")
	admin.HandleFunc("/retry-policy/{merchant}", s.handleGetRetryPolicy).Methods("GET")
	admin.HandleFunc("/retry-policy/{merchant}", s.handlePutRetryPolicy).Methods("PUT")

	r.HandleFunc("/ops/liveness", s.handleLiveness).Methods("GET")
	r.HandleFunc("/ops/readiness", s.handleReadiness).Methods("GET")
	r.Handle("/ops/metrics", promhttp.Handler()).Methods("GET")

	return r
}
