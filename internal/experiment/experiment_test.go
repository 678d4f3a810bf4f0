package experiment

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paymux/gateway/internal/domain"
)

func TestAssignDeterministic(t *testing.T) {
	expID := uuid.MustParse("8f14e45f-ceea-467f-a8fb-9f2a0b3c4d5e")
	v1, b1 := Assign("customer-42", expID, 50)
	v2, b2 := Assign("customer-42", expID, 50)
	assert.Equal(t, v1, v2)
	assert.Equal(t, b1, b2)
	assert.GreaterOrEqual(t, b1, 0)
	assert.Less(t, b1, 100)
}

func TestAssignRespectsControlPct(t *testing.T) {
	expID := uuid.New()
	_, bucket := Assign("c1", expID, 50)

	v, _ := Assign("c1", expID, 0)
	assert.Equal(t, domain.VariantTreatment, v)

	v, _ = Assign("c1", expID, 100)
	assert.Equal(t, domain.VariantControl, v)

	v, _ = Assign("c1", expID, bucket+1)
	assert.Equal(t, domain.VariantControl, v)
}

func TestAssignSpreadsBuckets(t *testing.T) {
	expID := uuid.New()
	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		_, b := Assign(uuid.NewString(), expID, 50)
		seen[b] = true
	}
	// 500 uniform draws over 100 buckets should touch most of them.
	assert.Greater(t, len(seen), 80)
}

func TestMatches(t *testing.T) {
	method := domain.MethodUPI
	minAmt, maxAmt := int64(10000), int64(100000)
	merchant := "m1"
	bucket := "500_2000"

	tests := []struct {
		name   string
		filter domain.ExpFilter
		want   bool
	}{
		{"empty matches all", domain.ExpFilter{}, true},
		{"method match", domain.ExpFilter{PaymentMethod: &method}, true},
		{"amount range", domain.ExpFilter{MinAmountMinor: &minAmt, MaxAmountMinor: &maxAmt}, true},
		{"merchant match", domain.ExpFilter{MerchantID: &merchant}, true},
		{"bucket match", domain.ExpFilter{AmountBucket: &bucket}, true},
		{"all conjunctive", domain.ExpFilter{PaymentMethod: &method, MerchantID: &merchant, AmountBucket: &bucket}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Matches(tc.filter, domain.MethodUPI, 60000, "m1"))
		})
	}

	card := domain.MethodCard
	assert.False(t, Matches(domain.ExpFilter{PaymentMethod: &card}, domain.MethodUPI, 60000, "m1"))
	other := "m2"
	assert.False(t, Matches(domain.ExpFilter{MerchantID: &other}, domain.MethodUPI, 60000, "m1"))
	low := int64(70000)
	assert.False(t, Matches(domain.ExpFilter{MinAmountMinor: &low}, domain.MethodUPI, 60000, "m1"))
	wrongBucket := "gt_10000"
	assert.False(t, Matches(domain.ExpFilter{AmountBucket: &wrongBucket}, domain.MethodUPI, 60000, "m1"))
}

func ranked(ids ...string) []domain.RankedGateway {
	out := make([]domain.RankedGateway, len(ids))
	for i, id := range ids {
		out[i] = domain.RankedGateway{GatewayID: id, Score: 1.0 - float64(i)*0.1}
	}
	return out
}

func TestApplyOverride(t *testing.T) {
	list, ok := ApplyOverride(ranked("g1", "g2", "g3"), "g2")
	require.True(t, ok)
	assert.Equal(t, "g2", list[0].GatewayID)
	assert.Equal(t, "g1", list[1].GatewayID)
	assert.Equal(t, "g3", list[2].GatewayID)

	list, ok = ApplyOverride(ranked("g1", "g2"), "g1")
	assert.True(t, ok)
	assert.Equal(t, "g1", list[0].GatewayID)

	list, ok = ApplyOverride(ranked("g1", "g2"), "missing")
	assert.False(t, ok)
	assert.Equal(t, "g1", list[0].GatewayID)
}

func TestAnalyzeInsufficientSamples(t *testing.T) {
	report := Analyze(uuid.New(),
		VariantStats{TotalRequests: 50, Successes: 40},
		VariantStats{TotalRequests: 200, Successes: 150},
		DefaultGuardrails())
	assert.Equal(t, "none", report.Winner)
	assert.Contains(t, report.Recommendation, "insufficient sample size")
	assert.False(t, report.Significant)
}

func TestAnalyzeTreatmentWins(t *testing.T) {
	report := Analyze(uuid.New(),
		VariantStats{TotalRequests: 1000, Successes: 800},
		VariantStats{TotalRequests: 1000, Successes: 900},
		DefaultGuardrails())
	assert.True(t, report.Significant)
	assert.Equal(t, "treatment", report.Winner)
	assert.Greater(t, report.ZScore, zCritical)
}

func TestAnalyzeControlWins(t *testing.T) {
	report := Analyze(uuid.New(),
		VariantStats{TotalRequests: 1000, Successes: 900},
		VariantStats{TotalRequests: 1000, Successes: 800},
		DefaultGuardrails())
	assert.True(t, report.Significant)
	assert.Equal(t, "control", report.Winner)
	assert.Less(t, report.ZScore, -zCritical)
}

func TestAnalyzeNoDifference(t *testing.T) {
	report := Analyze(uuid.New(),
		VariantStats{TotalRequests: 1000, Successes: 850},
		VariantStats{TotalRequests: 1000, Successes: 855},
		DefaultGuardrails())
	assert.False(t, report.Significant)
	assert.Equal(t, "none", report.Winner)
}

func TestCheckGuardrails(t *testing.T) {
	g := DefaultGuardrails()
	control := VariantStats{TotalRequests: 1000, Successes: 900, P95LatencyMs: 800}

	// Below sample floor: never breach.
	breach, _ := CheckGuardrails(control, VariantStats{TotalRequests: 10, Successes: 1}, g)
	assert.False(t, breach)

	// Success rate drop beyond the limit.
	breach, reason := CheckGuardrails(control, VariantStats{TotalRequests: 500, Successes: 400, P95LatencyMs: 800}, g)
	assert.True(t, breach)
	assert.Contains(t, reason, "success rate")

	// Latency blowup.
	breach, reason = CheckGuardrails(control, VariantStats{TotalRequests: 500, Successes: 450, P95LatencyMs: 1300}, g)
	assert.True(t, breach)
	assert.Contains(t, reason, "p95")

	// Healthy treatment.
	breach, _ = CheckGuardrails(control, VariantStats{TotalRequests: 500, Successes: 445, P95LatencyMs: 900}, g)
	assert.False(t, breach)
}
