package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paymux/gateway/internal/circuit"
	"github.com/paymux/gateway/internal/domain"
	"github.com/paymux/gateway/internal/experiment"
	"github.com/paymux/gateway/internal/metrics"
	"github.com/paymux/gateway/internal/service"
	"github.com/paymux/gateway/internal/store"
)

type processorFake struct {
	resp     domain.CreatePaymentResponse
	err      error
	lastMeta service.RequestMeta
	ranked   []domain.RankedGateway
}

func (p *processorFake) Process(_ context.Context, _ domain.CreatePaymentRequest, meta service.RequestMeta) (domain.CreatePaymentResponse, error) {
	p.lastMeta = meta
	return p.resp, p.err
}

func (p *processorFake) DebugRank(context.Context, domain.PaymentMethod, int64, string) ([]domain.RankedGateway, error) {
	return p.ranked, nil
}

type readsFake struct {
	payment      *domain.Payment
	decision     *domain.RoutingDecision
	attempts     []domain.PaymentAttempt
	verification *store.VerificationRecord
}

func (f *readsFake) ByID(context.Context, uuid.UUID) (*domain.Payment, error) {
	return f.payment, nil
}

func (f *readsFake) ByPayment(context.Context, uuid.UUID) (*domain.RoutingDecision, error) {
	return f.decision, nil
}

func (f *readsFake) ListByPayment(context.Context, uuid.UUID) ([]domain.PaymentAttempt, error) {
	return f.attempts, nil
}

type verificationReadsFake struct{ rec *store.VerificationRecord }

func (f verificationReadsFake) ByPayment(context.Context, uuid.UUID) (*store.VerificationRecord, error) {
	return f.rec, nil
}

type circuitAdminFake struct {
	entries   []circuit.StatusEntry
	overrides map[string]string
	cleared   []string
}

func (f *circuitAdminFake) AllStatuses(context.Context) ([]circuit.StatusEntry, error) {
	return f.entries, nil
}

func (f *circuitAdminFake) SetOverride(_ context.Context, gateway, method, value string, _ time.Time) error {
	if f.overrides == nil {
		f.overrides = map[string]string{}
	}
	f.overrides[gateway+"|"+method] = value
	return nil
}

func (f *circuitAdminFake) ClearOverride(_ context.Context, gateway, method string) error {
	f.cleared = append(f.cleared, gateway+"|"+method)
	return nil
}

type limiterFake struct{ allow bool }

func (l limiterFake) Allow(context.Context, string) (bool, error) { return l.allow, nil }

type policyAdminFake struct{ saved *domain.RetryPolicy }

func (f *policyAdminFake) Get(_ context.Context, merchantID string) (domain.RetryPolicy, error) {
	return domain.DefaultRetryPolicy(merchantID), nil
}

func (f *policyAdminFake) Upsert(_ context.Context, p domain.RetryPolicy) error {
	f.saved = &p
	return nil
}

type experimentAdminFake struct {
	created   []domain.Experiment
	stored    *domain.Experiment
	stopped   []uuid.UUID
	control   experiment.VariantStats
	treatment experiment.VariantStats
}

func (f *experimentAdminFake) Create(_ context.Context, e domain.Experiment) error {
	f.created = append(f.created, e)
	return nil
}

func (f *experimentAdminFake) List(context.Context) ([]domain.Experiment, error) {
	return f.created, nil
}

func (f *experimentAdminFake) Get(context.Context, uuid.UUID) (*domain.Experiment, error) {
	return f.stored, nil
}

func (f *experimentAdminFake) SetStatus(_ context.Context, id uuid.UUID, _ string) error {
	f.stopped = append(f.stopped, id)
	return nil
}

func (f *experimentAdminFake) Results(context.Context, uuid.UUID) ([]domain.ExperimentResult, error) {
	return nil, nil
}

func (f *experimentAdminFake) PooledStats(context.Context, uuid.UUID) (experiment.VariantStats, experiment.VariantStats, error) {
	return f.control, f.treatment, nil
}

type testDeps struct {
	processor  *processorFake
	reads      *readsFake
	circuits   *circuitAdminFake
	policies   *policyAdminFake
	exps       *experimentAdminFake
	limitAllow bool
}

func newTestServer(d testDeps) *Server {
	if d.processor == nil {
		d.processor = &processorFake{}
	}
	if d.reads == nil {
		d.reads = &readsFake{}
	}
	if d.circuits == nil {
		d.circuits = &circuitAdminFake{}
	}
	if d.policies == nil {
		d.policies = &policyAdminFake{}
	}
	if d.exps == nil {
		d.exps = &experimentAdminFake{}
	}
	return NewServer(ServerDeps{
		Payments:      d.processor,
		PaymentReads:  d.reads,
		Decisions:     d.reads,
		Attempts:      d.reads,
		Verifications: verificationReadsFake{},
		Circuits:      d.circuits,
		Policies:      d.policies,
		Experiments:   d.exps,
		Limiter:       limiterFake{allow: d.limitAllow},
		Guardrails:    experiment.DefaultGuardrails(),
		InternalKey:   "test-key",
	})
}

func postJSON(t *testing.T, router http.Handler, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(raw))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error
}

func TestCreatePaymentOK(t *testing.T) {
	processor := &processorFake{resp: domain.CreatePaymentResponse{
		PaymentID:   uuid.New(),
		Status:      domain.StatusSuccess,
		GatewayUsed: "hdfc_mock",
	}}
	router := newTestServer(testDeps{processor: processor, limitAllow: true}).Router()

	rec := postJSON(t, router, "/payments", domain.CreatePaymentRequest{
		AmountMinor: 50000, Currency: "INR", PaymentMethod: domain.MethodUPI,
		MerchantID: "m1", CustomerID: "c1",
	}, map[string]string{idempotencyHeader: "k1"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp domain.CreatePaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hdfc_mock", resp.GatewayUsed)
	assert.Equal(t, "k1", processor.lastMeta.IdempotencyKey)
}

func TestCreatePaymentErrorEnvelope(t *testing.T) {
	processor := &processorFake{err: domain.NewError(domain.CodeRetryExhausted, "all gateway attempts failed within the retry budget")}
	router := newTestServer(testDeps{processor: processor, limitAllow: true}).Router()

	rec := postJSON(t, router, "/payments", domain.CreatePaymentRequest{}, nil)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, domain.CodeRetryExhausted, decodeError(t, rec).Code)
}

func TestCreatePaymentRateLimited(t *testing.T) {
	router := newTestServer(testDeps{limitAllow: false}).Router()

	rec := postJSON(t, router, "/payments", domain.CreatePaymentRequest{}, nil)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, domain.CodeRateLimited, decodeError(t, rec).Code)
}

func TestGetPaymentNotFound(t *testing.T) {
	router := newTestServer(testDeps{limitAllow: true}).Router()

	req := httptest.NewRequest("GET", "/payments/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, domain.CodeNotFound, decodeError(t, rec).Code)
}

func TestGetRoutingDecision(t *testing.T) {
	id := uuid.New()
	reads := &readsFake{decision: &domain.RoutingDecision{
		PaymentID:       id,
		SelectedGateway: "g1",
		Strategy:        domain.StrategyScore,
	}}
	router := newTestServer(testDeps{reads: reads, limitAllow: true}).Router()

	req := httptest.NewRequest("GET", "/payments/"+id.String()+"/routing-decision", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var d domain.RoutingDecision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, "g1", d.SelectedGateway)
}

func TestAdminRequiresInternalKey(t *testing.T) {
	circuits := &circuitAdminFake{}
	router := newTestServer(testDeps{circuits: circuits, limitAllow: true}).Router()

	rec := postJSON(t, router, "/admin/circuit-breaker/force-open/hdfc_mock/UPI", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, circuits.overrides)

	rec = postJSON(t, router, "/admin/circuit-breaker/force-open/hdfc_mock/UPI", nil,
		map[string]string{internalKeyHeader: "test-key"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, circuit.ForceOpen, circuits.overrides["hdfc_mock|UPI"])
}

func TestForceOpenRejectsUnknownMethod(t *testing.T) {
	router := newTestServer(testDeps{limitAllow: true}).Router()

	rec := postJSON(t, router, "/admin/circuit-breaker/force-open/hdfc_mock/WALLET", nil,
		map[string]string{internalKeyHeader: "test-key"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.CodeInvalidRequest, decodeError(t, rec).Code)
}

func TestScoringDebugValidation(t *testing.T) {
	router := newTestServer(testDeps{limitAllow: true}).Router()

	req := httptest.NewRequest("GET", "/scoring/debug?payment_method=WALLET", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScoringDebugRanks(t *testing.T) {
	processor := &processorFake{ranked: []domain.RankedGateway{
		{GatewayID: "g1", Score: 0.9},
		{GatewayID: "g2", Score: 0.5},
	}}
	router := newTestServer(testDeps{processor: processor, limitAllow: true}).Router()

	req := httptest.NewRequest("GET", "/scoring/debug?payment_method=upi&amount_minor=75000", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Ranked []domain.RankedGateway `json:"ranked"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Ranked, 2)
	assert.Equal(t, "g1", body.Ranked[0].GatewayID)
}

func TestCreateExperiment(t *testing.T) {
	exps := &experimentAdminFake{}
	router := newTestServer(testDeps{exps: exps, limitAllow: true}).Router()

	rec := postJSON(t, router, "/admin/experiments", map[string]any{
		"name":              "upi-razorpay-50",
		"control_pct":       50,
		"treatment_gateway": "razorpay_live",
	}, map[string]string{internalKeyHeader: "test-key"})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, exps.created, 1)
	assert.Equal(t, 50, exps.created[0].TreatmentPct)
	assert.Equal(t, domain.ExperimentRunning, exps.created[0].Status)
}

func TestCreateExperimentValidatesControlPct(t *testing.T) {
	router := newTestServer(testDeps{limitAllow: true}).Router()

	rec := postJSON(t, router, "/admin/experiments", map[string]any{
		"name":              "bad",
		"control_pct":       140,
		"treatment_gateway": "g2",
	}, map[string]string{internalKeyHeader: "test-key"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExperimentWinnerReport(t *testing.T) {
	id := uuid.New()
	exps := &experimentAdminFake{
		stored:    &domain.Experiment{ID: id, Status: domain.ExperimentRunning},
		control:   experiment.VariantStats{TotalRequests: 1000, Successes: 800},
		treatment: experiment.VariantStats{TotalRequests: 1000, Successes: 900},
	}
	router := newTestServer(testDeps{exps: exps, limitAllow: true}).Router()

	req := httptest.NewRequest("GET", "/experiments/"+id.String()+"/winner", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Report experiment.WinnerReport `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "treatment", body.Report.Winner)
}

func TestPutRetryPolicy(t *testing.T) {
	policies := &policyAdminFake{}
	router := newTestServer(testDeps{policies: policies, limitAllow: true}).Router()

	raw, _ := json.Marshal(map[string]any{
		"max_attempts":      2,
		"latency_budget_ms": 5000,
		"retry_on_timeout":  true,
		"enabled":           true,
	})
	req := httptest.NewRequest("PUT", "/admin/retry-policy/m42", bytes.NewReader(raw))
	req.Header.Set(internalKeyHeader, "test-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, policies.saved)
	assert.Equal(t, "m42", policies.saved.MerchantID)
	assert.Equal(t, 2, policies.saved.MaxAttempts)
}

func TestReadinessFailsOnDB(t *testing.T) {
	s := newTestServer(testDeps{limitAllow: true})
	s.checkDB = func(context.Context) error { return assert.AnError }
	router := s.Router()

	req := httptest.NewRequest("GET", "/ops/readiness", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

var _ MetricsReader = (*metricsReaderFake)(nil)

type metricsReaderFake struct{ agg *metrics.Aggregate }

func (f metricsReaderFake) Window(context.Context, string, string, string, int) (*metrics.Aggregate, error) {
	return f.agg, nil
}

func (f metricsReaderFake) Slices(context.Context, string, int) ([]metrics.Key, error) {
	return nil, nil
}

func TestGatewayMetricsWindowValidation(t *testing.T) {
	s := newTestServer(testDeps{limitAllow: true})
	s.metrics = metricsReaderFake{}
	router := s.Router()

	req := httptest.NewRequest("GET", "/metrics/gateways/hdfc_mock?window=7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGatewayMetricsSlice(t *testing.T) {
	s := newTestServer(testDeps{limitAllow: true})
	s.metrics = metricsReaderFake{agg: &metrics.Aggregate{SuccessRate: 0.97, TotalRequests: 120}}
	router := s.Router()

	req := httptest.NewRequest("GET", "/metrics/gateways/hdfc_mock?window=15m&payment_method=UPI&issuing_bank=HDFC", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var agg metrics.Aggregate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &agg))
	assert.InDelta(t, 0.97, agg.SuccessRate, 1e-9)
}
