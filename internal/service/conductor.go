// Package service wires the decision core together: the payment
// conductor, the weights cache, the outbox relay and the verification
// worker.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paymux/gateway/internal/bandit"
	"github.com/paymux/gateway/internal/circuit"
	"github.com/paymux/gateway/internal/domain"
	"github.com/paymux/gateway/internal/experiment"
	"github.com/paymux/gateway/internal/gateway"
	"github.com/paymux/gateway/internal/metrics"
	"github.com/paymux/gateway/internal/retry"
	"github.com/paymux/gateway/internal/scoring"
)

// Narrow capability interfaces over the stores; tests substitute fakes.
type (
	PaymentStore interface {
		ByIdempotency(ctx context.Context, merchantID, idempotencyKey string) (*domain.Payment, error)
	}
	PaymentCommitter interface {
		Commit(ctx context.Context, p domain.Payment, ev domain.PaymentEvent) error
	}
	AttemptStore interface {
		Insert(ctx context.Context, a domain.PaymentAttempt) error
	}
	RoutingStore interface {
		Insert(ctx context.Context, d domain.RoutingDecision) error
	}
	GatewayCatalog interface {
		EnabledForMethod(ctx context.Context, method domain.PaymentMethod) ([]domain.GatewayConfig, error)
	}
	PolicySource interface {
		Get(ctx context.Context, merchantID string) (domain.RetryPolicy, error)
	}
	ErrorClassifier interface {
		Get(ctx context.Context, gatewayID, errorCode string) (domain.ErrorClass, error)
	}
	BinResolver interface {
		BankForBIN(ctx context.Context, bin string) (string, bool, error)
	}
	CircuitControl interface {
		Snapshot(ctx context.Context, gatewayID, method string, now time.Time) (circuit.Snapshot, error)
		SaveSnapshot(ctx context.Context, snap circuit.Snapshot) error
		RecordOutcome(ctx context.Context, gatewayID, method string, status domain.PaymentStatus, now time.Time) error
		Rates(ctx context.Context, gatewayID, method string, now time.Time) (circuit.Rates, error)
		Override(ctx context.Context, gatewayID, method string) (string, error)
	}
	ExperimentSource interface {
		Running(ctx context.Context, now time.Time) ([]domain.Experiment, error)
		UpsertAssignment(ctx context.Context, a domain.Assignment) error
		RecordOutcome(ctx context.Context, experimentID uuid.UUID, variant string, success bool, latencyMs int, amountMinor int64, now time.Time) error
	}
	BanditStore interface {
		PolicyEnabled(ctx context.Context, segment string) (bool, error)
		Arms(ctx context.Context, segment string) (map[string]domain.BanditArm, error)
		Update(ctx context.Context, segment, gatewayID string, success bool, now time.Time) error
	}
	VerificationScheduler interface {
		Schedule(ctx context.Context, paymentID uuid.UUID, gatewayID string, now time.Time) error
	}
	AdapterProvider interface {
		AdapterFor(cfg domain.GatewayConfig) gateway.Adapter
	}
	SignalSource interface {
		Read(ctx context.Context, gw domain.GatewayConfig, pc domain.PaymentContext, now time.Time) scoring.Signals
	}
	WeightsProvider interface {
		Weights(ctx context.Context) (scoring.Weights, error)
	}
)

// PaymentService is the conductor: idempotency, context, scoring,
// retry loop, persistence and event emission for one payment.
type PaymentService struct {
	payments      PaymentStore
	committer     PaymentCommitter
	attempts      AttemptStore
	routing       RoutingStore
	gateways      GatewayCatalog
	policies      PolicySource
	errorClasses  ErrorClassifier
	bins          BinResolver
	circuits      CircuitControl
	experiments   ExperimentSource
	bandits       BanditStore
	verifications VerificationScheduler
	adapters      AdapterProvider
	signals       SignalSource
	weights       WeightsProvider
	roundRobin    *RoundRobin
	sampler       *bandit.Sampler
	thresholds    circuit.Thresholds

	defaultTimeoutMs int
	now              func() time.Time
	probeDraw        func() float64
	log              *slog.Logger
}

// PaymentServiceDeps bundles the conductor's collaborators.
type PaymentServiceDeps struct {
	Payments      PaymentStore
	Committer     PaymentCommitter
	Attempts      AttemptStore
	Routing       RoutingStore
	Gateways      GatewayCatalog
	Policies      PolicySource
	ErrorClasses  ErrorClassifier
	Bins          BinResolver
	Circuits      CircuitControl
	Experiments   ExperimentSource
	Bandits       BanditStore
	Verifications VerificationScheduler
	Adapters      AdapterProvider
	Signals       SignalSource
	Weights       WeightsProvider
	Sampler       *bandit.Sampler
	Thresholds    circuit.Thresholds

	DefaultTimeoutMs int
	Now              func() time.Time
	ProbeDraw        func() float64
	Log              *slog.Logger
}

func NewPaymentService(d PaymentServiceDeps) *PaymentService {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.DefaultTimeoutMs <= 0 {
		d.DefaultTimeoutMs = 2500
	}
	return &PaymentService{
		payments:         d.Payments,
		committer:        d.Committer,
		attempts:         d.Attempts,
		routing:          d.Routing,
		gateways:         d.Gateways,
		policies:         d.Policies,
		errorClasses:     d.ErrorClasses,
		bins:             d.Bins,
		circuits:         d.Circuits,
		experiments:      d.Experiments,
		bandits:          d.Bandits,
		verifications:    d.Verifications,
		adapters:         d.Adapters,
		signals:          d.Signals,
		weights:          d.Weights,
		roundRobin:       &RoundRobin{},
		sampler:          d.Sampler,
		thresholds:       d.Thresholds,
		defaultTimeoutMs: d.DefaultTimeoutMs,
		now:              d.Now,
		probeDraw:        d.ProbeDraw,
		log:              d.Log,
	}
}

// RequestMeta carries the transport-level inputs of one call.
type RequestMeta struct {
	IdempotencyKey string
	ClientIP       string
	UserAgent      string
}

// Process runs one payment end to end.
func (s *PaymentService) Process(ctx context.Context, req domain.CreatePaymentRequest, meta RequestMeta) (domain.CreatePaymentResponse, error) {
	if err := validate(req, meta); err != nil {
		return domain.CreatePaymentResponse{}, err
	}

	existing, err := s.payments.ByIdempotency(ctx, req.MerchantID, meta.IdempotencyKey)
	if err != nil {
		return domain.CreatePaymentResponse{}, domain.WrapInternal(err)
	}
	requestHash := req.Hash()
	if existing != nil {
		if existing.RequestHash == requestHash {
			return existing.Response(), nil
		}
		return domain.CreatePaymentResponse{}, domain.NewError(domain.CodeIdempotencyMismatch,
			"idempotency key was already used with a different payload")
	}

	start := s.now()
	pc := domain.BuildContext(uuid.New(), req, meta.ClientIP, meta.UserAgent)
	pc.IssuingBank = s.resolveBank(ctx, pc.IssuingBank)

	candidates, err := s.gateways.EnabledForMethod(ctx, req.PaymentMethod)
	if err != nil {
		return domain.CreatePaymentResponse{}, domain.WrapInternal(err)
	}
	if len(candidates) == 0 {
		return domain.CreatePaymentResponse{}, domain.NewError(domain.CodeNoGatewayAvailable,
			fmt.Sprintf("no enabled gateway supports %s", req.PaymentMethod))
	}
	byID := make(map[string]domain.GatewayConfig, len(candidates))
	for _, c := range candidates {
		byID[c.GatewayID] = c
	}

	ranked, strategy, reason := s.rank(ctx, candidates, pc, start)
	ranked, strategy, reason, activeExp, variant := s.applyExperiment(ctx, pc, ranked, strategy, reason, start)
	if strategy != domain.StrategyExperiment {
		ranked, strategy, reason = s.applyBandit(ctx, pc, ranked, strategy, reason)
	}

	policy, err := s.policies.Get(ctx, req.MerchantID)
	if err != nil {
		s.log.Warn("retry policy load failed, using defaults", "merchant", req.MerchantID, "err", err)
		policy = domain.DefaultRetryPolicy(req.MerchantID)
	}

	outcome := s.runAttempts(ctx, pc, req, ranked, byID, policy, start)

	latencyMs := int(s.now().Sub(start).Milliseconds())
	if outcome.directive == retry.Continue {
		// Loop ended without a terminal directive.
		s.recordDecision(ctx, pc, ranked, strategy, reason)
		return domain.CreatePaymentResponse{}, domain.NewError(domain.CodeRetryExhausted,
			"all gateway attempts failed within the retry budget")
	}

	status := outcome.finalStatus()
	payment := domain.Payment{
		ID:              pc.PaymentID,
		MerchantID:      req.MerchantID,
		IdempotencyKey:  meta.IdempotencyKey,
		RequestHash:     requestHash,
		CustomerID:      req.CustomerID,
		AmountMinor:     req.AmountMinor,
		Currency:        req.Currency,
		PaymentMethod:   req.PaymentMethod,
		IssuingBank:     pc.IssuingBank,
		Status:          status,
		GatewayUsed:     outcome.gatewayID,
		TransactionRef:  outcome.response.TransactionID,
		RoutingStrategy: strategy,
		RoutingReason:   reason,
		LatencyMs:       latencyMs,
		CreatedAt:       start,
	}
	event := domain.PaymentEvent{
		PaymentID:     pc.PaymentID,
		MerchantID:    req.MerchantID,
		GatewayID:     outcome.gatewayID,
		PaymentMethod: req.PaymentMethod,
		IssuingBank:   pc.IssuingBank,
		Status:        status,
		ErrorCode:     outcome.response.ErrorCode,
		LatencyMs:     latencyMs,
		AmountMinor:   req.AmountMinor,
		OccurredAt:    s.now(),
	}
	if err := s.committer.Commit(ctx, payment, event); err != nil {
		return domain.CreatePaymentResponse{}, domain.WrapInternal(err)
	}
	metrics.PaymentsTotal.WithLabelValues(string(status)).Inc()

	if outcome.directive == retry.PendingVerification {
		if err := s.verifications.Schedule(ctx, pc.PaymentID, outcome.gatewayID, s.now()); err != nil {
			s.log.Error("verification scheduling failed", "payment_id", pc.PaymentID, "err", err)
		}
	}

	s.recordDecision(ctx, pc, ranked, strategy, reason)
	s.emitFeedback(ctx, pc, activeExp, variant, outcome, latencyMs)

	return payment.Response(), nil
}

func validate(req domain.CreatePaymentRequest, meta RequestMeta) error {
	if meta.IdempotencyKey == "" {
		return domain.NewError(domain.CodeMissingIdempotency, "Idempotency-Key header is required")
	}
	if req.AmountMinor <= 0 {
		return domain.NewError(domain.CodeInvalidAmount, "amount_minor must be positive")
	}
	if req.Currency != "INR" {
		return domain.NewError(domain.CodeInvalidCurrency, "only INR is supported")
	}
	if strings.TrimSpace(req.CustomerID) == "" {
		return domain.NewError(domain.CodeInvalidCustomerID, "customer_id is required")
	}
	if !req.PaymentMethod.Valid() {
		return domain.NewError(domain.CodeInvalidRequest, "unsupported payment_method").
			WithDetail("payment_method", string(req.PaymentMethod))
	}
	return nil
}

// resolveBank turns a BIN hint into a bank name via the BIN table.
func (s *PaymentService) resolveBank(ctx context.Context, hint string) string {
	if !strings.HasPrefix(hint, "BIN:") {
		return hint
	}
	bank, found, err := s.bins.BankForBIN(ctx, strings.TrimPrefix(hint, "BIN:"))
	if err != nil {
		s.log.Warn("bin lookup failed", "err", err)
		return domain.BankUnknown
	}
	if !found {
		return domain.BankUnknown
	}
	return strings.ToUpper(bank)
}

func (s *PaymentService) rank(ctx context.Context, candidates []domain.GatewayConfig, pc domain.PaymentContext, now time.Time) ([]domain.RankedGateway, string, string) {
	weights, err := s.weights.Weights(ctx)
	if err != nil {
		s.log.Warn("scoring weights unavailable, falling back to round robin", "err", err)
		return s.roundRobin.Order(candidates), domain.StrategyRoundRobin, "scoring weights unavailable; round-robin fallback"
	}

	scored := make([]scoring.Candidate, 0, len(candidates))
	for _, gw := range candidates {
		scored = append(scored, scoring.Candidate{
			GatewayID: gw.GatewayID,
			Signals:   s.signals.Read(ctx, gw, pc, now),
		})
	}
	ranked := scoring.Rank(scored, weights)
	return ranked, domain.StrategyScore, fmt.Sprintf("highest weighted score %.4f", ranked[0].Score)
}

func (s *PaymentService) applyExperiment(ctx context.Context, pc domain.PaymentContext, ranked []domain.RankedGateway, strategy, reason string, now time.Time) ([]domain.RankedGateway, string, string, *domain.Experiment, string) {
	running, err := s.experiments.Running(ctx, now)
	if err != nil {
		s.log.Warn("experiment lookup failed", "err", err)
		return ranked, strategy, reason, nil, ""
	}
	for i := range running {
		exp := running[i]
		if !experiment.Matches(exp.Filter, pc.PaymentMethod, pc.AmountMinor, pc.MerchantID) {
			continue
		}
		variant, bucket := experiment.Assign(pc.CustomerID, exp.ID, exp.ControlPct)
		if err := s.experiments.UpsertAssignment(ctx, domain.Assignment{
			ExperimentID: exp.ID,
			CustomerID:   pc.CustomerID,
			Variant:      variant,
			Bucket:       bucket,
			AssignedAt:   now,
		}); err != nil {
			s.log.Warn("assignment upsert failed", "experiment_id", exp.ID, "err", err)
		}
		if variant == domain.VariantTreatment {
			if overridden, ok := experiment.ApplyOverride(ranked, exp.TreatmentGateway); ok {
				return overridden, domain.StrategyExperiment,
					fmt.Sprintf("experiment %s treatment routes to %s", exp.ID, exp.TreatmentGateway),
					&exp, variant
			}
		}
		return ranked, strategy, reason, &exp, variant
	}
	return ranked, strategy, reason, nil, ""
}

func (s *PaymentService) applyBandit(ctx context.Context, pc domain.PaymentContext, ranked []domain.RankedGateway, strategy, reason string) ([]domain.RankedGateway, string, string) {
	if s.sampler == nil {
		return ranked, strategy, reason
	}
	segment := domain.Segment(pc.PaymentMethod, pc.AmountMinor)
	enabled, err := s.bandits.PolicyEnabled(ctx, segment)
	if err != nil {
		s.log.Warn("bandit policy lookup failed", "segment", segment, "err", err)
		return ranked, strategy, reason
	}
	if !enabled {
		return ranked, strategy, reason
	}
	arms, err := s.bandits.Arms(ctx, segment)
	if err != nil {
		s.log.Warn("bandit arms load failed", "segment", segment, "err", err)
		return ranked, strategy, reason
	}
	reordered := s.sampler.Reorder(ranked, arms)
	return reordered, domain.StrategyBandit, fmt.Sprintf("thompson sampling over segment %s", segment)
}

// attemptOutcome is the terminal state of the retry loop.
type attemptOutcome struct {
	directive retry.Directive
	gatewayID string
	response  gateway.Response
}

func (o attemptOutcome) finalStatus() domain.PaymentStatus {
	switch o.directive {
	case retry.Success:
		return domain.StatusSuccess
	case retry.PendingVerification:
		return domain.StatusPendingVerification
	}
	return domain.StatusFailure
}

func (s *PaymentService) runAttempts(ctx context.Context, pc domain.PaymentContext, req domain.CreatePaymentRequest, ranked []domain.RankedGateway, byID map[string]domain.GatewayConfig, policy domain.RetryPolicy, start time.Time) attemptOutcome {
	outcome := attemptOutcome{directive: retry.Continue}
	limit := retry.AttemptLimit(policy)
	attemptNumber := 0
	var lastGateway string

	for _, candidate := range ranked {
		if attemptNumber >= limit {
			break
		}
		if attemptNumber > 0 && retry.BudgetExceeded(start, s.now(), policy) {
			s.log.Info("latency budget exhausted", "payment_id", pc.PaymentID, "attempts", attemptNumber)
			break
		}
		cfg, ok := byID[candidate.GatewayID]
		if !ok {
			continue
		}
		attemptNumber++

		decision, snap := s.admit(ctx, cfg.GatewayID, pc)
		if !decision.Admitted() {
			s.recordSkip(ctx, pc, cfg.GatewayID, attemptNumber, snap.State, decision.Reason)
			lastGateway = cfg.GatewayID
			continue
		}

		var fallbackReason *string
		if attemptNumber > 1 {
			r := fmt.Sprintf("fallback from %s", lastGateway)
			fallbackReason = &r
		}

		attemptStart := s.now()
		resp := gateway.Invoke(ctx, s.adapters.AdapterFor(cfg), s.timeoutFor(cfg), pc, req)
		attemptLatency := int(s.now().Sub(attemptStart).Milliseconds())

		stateStr := string(snap.State)
		s.record(ctx, domain.PaymentAttempt{
			PaymentID:           pc.PaymentID,
			AttemptNumber:       attemptNumber,
			GatewayUsed:         cfg.GatewayID,
			Status:              resp.Status,
			ErrorCode:           resp.ErrorCode,
			LatencyMs:           attemptLatency,
			CircuitBreakerState: &stateStr,
			FallbackReason:      fallbackReason,
			TransactionRef:      resp.TransactionID,
			CreatedAt:           attemptStart,
		})
		metrics.AttemptsTotal.WithLabelValues(cfg.GatewayID, string(resp.Status)).Inc()
		metrics.AttemptLatency.WithLabelValues(cfg.GatewayID).Observe(float64(attemptLatency))

		s.updateCircuit(ctx, cfg.GatewayID, pc, snap, resp.Status, decision.Kind == circuit.DecisionProbe)

		directive := retry.Classify(resp.Status, s.classify(ctx, cfg.GatewayID, resp), policy.RetryOnTimeout)
		lastGateway = cfg.GatewayID
		if directive.Terminal() {
			return attemptOutcome{directive: directive, gatewayID: cfg.GatewayID, response: resp}
		}
		outcome = attemptOutcome{directive: retry.Continue, gatewayID: cfg.GatewayID, response: resp}
	}
	return outcome
}

func (s *PaymentService) timeoutFor(cfg domain.GatewayConfig) int {
	if cfg.TimeoutMs > 0 {
		return cfg.TimeoutMs
	}
	return s.defaultTimeoutMs
}

func (s *PaymentService) admit(ctx context.Context, gatewayID string, pc domain.PaymentContext) (circuit.Decision, circuit.Snapshot) {
	now := s.now()
	method := string(pc.PaymentMethod)
	snap, err := s.circuits.Snapshot(ctx, gatewayID, method, now)
	if err != nil {
		s.log.Warn("circuit snapshot load failed, allowing", "gateway", gatewayID, "err", err)
		return circuit.Decision{Kind: circuit.DecisionAllow}, circuit.NewSnapshot(gatewayID, method, now)
	}
	override, err := s.circuits.Override(ctx, gatewayID, method)
	if err != nil {
		s.log.Warn("circuit override load failed", "gateway", gatewayID, "err", err)
		override = ""
	}
	draw := s.probeDraw
	if draw == nil {
		draw = func() float64 { return 0 }
	}
	return circuit.Evaluate(snap, s.thresholds, override, now, draw), snap
}

func (s *PaymentService) updateCircuit(ctx context.Context, gatewayID string, pc domain.PaymentContext, snap circuit.Snapshot, status domain.PaymentStatus, wasProbe bool) {
	now := s.now()
	method := string(pc.PaymentMethod)
	if err := s.circuits.RecordOutcome(ctx, gatewayID, method, status, now); err != nil {
		s.log.Error("circuit outcome record failed", "gateway", gatewayID, "err", err)
	}
	rates, err := s.circuits.Rates(ctx, gatewayID, method, now)
	if err != nil {
		s.log.Error("circuit rates read failed", "gateway", gatewayID, "err", err)
		rates = circuit.Rates{}
	}
	next := circuit.Transition(snap, s.thresholds, rates.FailureRate2m, rates.TimeoutRate5m, status, wasProbe, now)
	if next.State != snap.State {
		metrics.CircuitTransitions.WithLabelValues(gatewayID, method, string(next.State)).Inc()
		s.log.Info("circuit transition", "gateway", gatewayID, "method", method,
			"from", snap.State, "to", next.State)
	}
	if err := s.circuits.SaveSnapshot(ctx, next); err != nil {
		s.log.Error("circuit snapshot save failed", "gateway", gatewayID, "err", err)
	}
}

func (s *PaymentService) classify(ctx context.Context, gatewayID string, resp gateway.Response) domain.ErrorClass {
	if resp.Status != domain.StatusFailure || resp.ErrorCode == nil {
		return domain.ErrorClass{}
	}
	class, err := s.errorClasses.Get(ctx, gatewayID, *resp.ErrorCode)
	if err != nil {
		s.log.Warn("error classification lookup failed", "gateway", gatewayID, "code", *resp.ErrorCode, "err", err)
		return domain.ErrorClass{}
	}
	return class
}

func (s *PaymentService) record(ctx context.Context, a domain.PaymentAttempt) {
	if err := s.attempts.Insert(ctx, a); err != nil {
		s.log.Error("attempt insert failed", "payment_id", a.PaymentID, "attempt", a.AttemptNumber, "err", err)
	}
}

func (s *PaymentService) recordSkip(ctx context.Context, pc domain.PaymentContext, gatewayID string, attemptNumber int, state circuit.State, reason string) {
	code := "CIRCUIT_SKIPPED"
	stateStr := string(state)
	fallback := "circuit breaker: " + reason
	s.record(ctx, domain.PaymentAttempt{
		PaymentID:           pc.PaymentID,
		AttemptNumber:       attemptNumber,
		GatewayUsed:         gatewayID,
		Status:              domain.StatusFailure,
		ErrorCode:           &code,
		CircuitBreakerState: &stateStr,
		FallbackReason:      &fallback,
		CreatedAt:           s.now(),
	})
	metrics.AttemptsTotal.WithLabelValues(gatewayID, "SKIPPED").Inc()
}

func (s *PaymentService) recordDecision(ctx context.Context, pc domain.PaymentContext, ranked []domain.RankedGateway, strategy, reason string) {
	if len(ranked) == 0 {
		return
	}
	d := domain.RoutingDecision{
		PaymentID:       pc.PaymentID,
		SelectedGateway: ranked[0].GatewayID,
		SelectedScore:   ranked[0].Score,
		Strategy:        strategy,
		Reason:          reason,
		Breakdown:       ranked[0].Breakdown,
		RankedList:      ranked,
		CreatedAt:       s.now(),
	}
	if len(ranked) > 1 {
		runnerUp := ranked[1].GatewayID
		d.RunnerUp = &runnerUp
	}
	if err := s.routing.Insert(ctx, d); err != nil {
		s.log.Error("routing decision insert failed", "payment_id", pc.PaymentID, "err", err)
	}
}

// emitFeedback writes the experiment rollup and bandit update.
// Best-effort: failures are logged, never propagated.
func (s *PaymentService) emitFeedback(ctx context.Context, pc domain.PaymentContext, exp *domain.Experiment, variant string, outcome attemptOutcome, latencyMs int) {
	success := outcome.directive == retry.Success
	now := s.now()
	if exp != nil {
		if err := s.experiments.RecordOutcome(ctx, exp.ID, variant, success, latencyMs, pc.AmountMinor, now); err != nil {
			s.log.Warn("experiment rollup failed", "experiment_id", exp.ID, "err", err)
		}
	}
	if outcome.gatewayID != "" {
		segment := domain.Segment(pc.PaymentMethod, pc.AmountMinor)
		if err := s.bandits.Update(ctx, segment, outcome.gatewayID, success, now); err != nil {
			s.log.Warn("bandit update failed", "segment", segment, "err", err)
		}
	}
}

// DebugRank exposes the full ranked list for a hypothetical request on
// the scoring debug endpoint.
func (s *PaymentService) DebugRank(ctx context.Context, method domain.PaymentMethod, amountMinor int64, issuingBank string) ([]domain.RankedGateway, error) {
	candidates, err := s.gateways.EnabledForMethod(ctx, method)
	if err != nil {
		return nil, domain.WrapInternal(err)
	}
	if len(candidates) == 0 {
		return nil, domain.NewError(domain.CodeNoGatewayAvailable,
			fmt.Sprintf("no enabled gateway supports %s", method))
	}
	if issuingBank == "" {
		issuingBank = domain.BankUnknown
	}
	pc := domain.PaymentContext{
		PaymentMethod: method,
		AmountMinor:   amountMinor,
		IssuingBank:   strings.ToUpper(issuingBank),
	}
	ranked, _, _ := s.rank(ctx, candidates, pc, s.now())
	return ranked, nil
}
