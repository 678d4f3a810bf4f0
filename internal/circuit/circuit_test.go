package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paymux/gateway/internal/domain"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func always(v float64) func() float64 { return func() float64 { return v } }

func TestEvaluateClosedAllows(t *testing.T) {
	snap := NewSnapshot("g1", "UPI", t0)
	d := Evaluate(snap, DefaultThresholds(), "", t0, always(0.99))
	assert.Equal(t, DecisionAllow, d.Kind)
	assert.True(t, d.Admitted())
}

func TestEvaluateOpenRejectsDuringCooldown(t *testing.T) {
	snap := NewSnapshot("g1", "UPI", t0)
	cooldown := t0.Add(30 * time.Second)
	snap.State = StateOpen
	snap.CooldownUntil = &cooldown

	d := Evaluate(snap, DefaultThresholds(), "", t0.Add(10*time.Second), always(0))
	assert.Equal(t, DecisionReject, d.Kind)
	assert.Equal(t, "CIRCUIT_OPEN", d.Reason)

	d = Evaluate(snap, DefaultThresholds(), "", t0.Add(30*time.Second), always(0))
	assert.Equal(t, DecisionProbe, d.Kind)
}

func TestEvaluateHalfOpenProbeRatio(t *testing.T) {
	snap := NewSnapshot("g1", "UPI", t0)
	snap.State = StateHalfOpen
	th := DefaultThresholds()

	assert.Equal(t, DecisionProbe, Evaluate(snap, th, "", t0, always(0.05)).Kind)
	d := Evaluate(snap, th, "", t0, always(0.5))
	assert.Equal(t, DecisionReject, d.Kind)
	assert.Equal(t, "HALF_OPEN_THROTTLED", d.Reason)
}

func TestEvaluateOverridesDominate(t *testing.T) {
	snap := NewSnapshot("g1", "UPI", t0)
	d := Evaluate(snap, DefaultThresholds(), ForceOpen, t0, always(0))
	assert.Equal(t, DecisionReject, d.Kind)
	assert.Equal(t, "MANUAL_FORCE_OPEN", d.Reason)

	snap.State = StateOpen
	d = Evaluate(snap, DefaultThresholds(), ForceClosed, t0, always(0))
	assert.Equal(t, DecisionAllow, d.Kind)
}

func TestTransitionOpensOnFailureRate(t *testing.T) {
	snap := NewSnapshot("g1", "UPI", t0)
	next := Transition(snap, DefaultThresholds(), 0.41, 0.0, domain.StatusFailure, false, t0)
	assert.Equal(t, StateOpen, next.State)
	require.NotNil(t, next.CooldownUntil)
	assert.Equal(t, t0.Add(30*time.Second), *next.CooldownUntil)
	assert.Equal(t, 0, next.ProbeTotal)
}

func TestTransitionOpensOnTimeoutRate(t *testing.T) {
	snap := NewSnapshot("g1", "UPI", t0)
	next := Transition(snap, DefaultThresholds(), 0.0, 0.51, domain.StatusTimeout, false, t0)
	assert.Equal(t, StateOpen, next.State)
}

func TestTransitionOpensOnConsecutiveFailures(t *testing.T) {
	snap := NewSnapshot("g1", "UPI", t0)
	th := DefaultThresholds()
	for i := 0; i < th.ConsecutiveFailures-1; i++ {
		snap = Transition(snap, th, 0.1, 0.1, domain.StatusFailure, false, t0)
		require.Equal(t, StateClosed, snap.State, "attempt %d", i)
	}
	snap = Transition(snap, th, 0.1, 0.1, domain.StatusFailure, false, t0)
	assert.Equal(t, StateOpen, snap.State)
}

func TestTransitionSuccessResetsConsecutiveFailures(t *testing.T) {
	snap := NewSnapshot("g1", "UPI", t0)
	th := DefaultThresholds()
	snap = Transition(snap, th, 0.1, 0.1, domain.StatusFailure, false, t0)
	snap = Transition(snap, th, 0.1, 0.1, domain.StatusSuccess, false, t0)
	assert.Equal(t, 0, snap.ConsecutiveFailures)
	assert.Equal(t, 1, snap.SuccessStreak)
}

func TestTransitionOpenMovesToHalfOpenAfterCooldown(t *testing.T) {
	snap := NewSnapshot("g1", "UPI", t0)
	th := DefaultThresholds()
	snap = Transition(snap, th, 0.9, 0.0, domain.StatusFailure, false, t0)
	require.Equal(t, StateOpen, snap.State)

	later := t0.Add(31 * time.Second)
	snap = Transition(snap, th, 0.0, 0.0, domain.StatusSuccess, true, later)
	assert.Equal(t, StateHalfOpen, snap.State)
	assert.Equal(t, 1, snap.ProbeTotal)
	assert.Equal(t, 1, snap.ProbeSuccess)
}

func TestHalfOpenClosesAfterSuccessStreak(t *testing.T) {
	th := DefaultThresholds()
	snap := NewSnapshot("g1", "UPI", t0)
	snap.State = StateHalfOpen
	for i := 0; i < th.HalfOpenSuccessClose; i++ {
		snap = Transition(snap, th, 0.0, 0.0, domain.StatusSuccess, true, t0)
	}
	assert.Equal(t, StateClosed, snap.State)
	assert.Nil(t, snap.CooldownUntil)
}

func TestHalfOpenClosesByProbeSuccessRate(t *testing.T) {
	th := DefaultThresholds()
	th.HalfOpenSuccessClose = 100 // force the rate path
	snap := NewSnapshot("g1", "UPI", t0)
	snap.State = StateHalfOpen

	// 3 successes, 1 failure (3/4 < 0.80), then a success: 4/5 >= 0.80.
	for i := 0; i < 3; i++ {
		snap = Transition(snap, th, 0.0, 0.0, domain.StatusSuccess, true, t0)
	}
	snap = Transition(snap, th, 0.0, 0.0, domain.StatusFailure, true, t0)
	require.Equal(t, StateHalfOpen, snap.State)
	snap = Transition(snap, th, 0.0, 0.0, domain.StatusSuccess, true, t0)
	assert.Equal(t, StateClosed, snap.State)
}

func TestHalfOpenReopensAfterProbeFailureStreak(t *testing.T) {
	th := DefaultThresholds()
	snap := NewSnapshot("g1", "UPI", t0)
	snap.State = StateHalfOpen
	for i := 0; i < th.HalfOpenFailureReopen-1; i++ {
		snap = Transition(snap, th, 0.0, 0.0, domain.StatusFailure, true, t0)
		require.Equal(t, StateHalfOpen, snap.State)
	}
	snap = Transition(snap, th, 0.0, 0.0, domain.StatusFailure, true, t0)
	assert.Equal(t, StateOpen, snap.State)
	require.NotNil(t, snap.CooldownUntil)
	assert.Equal(t, t0.Add(30*time.Second), *snap.CooldownUntil)
}

func TestHalfOpenNonProbeFailureDoesNotCountAsProbe(t *testing.T) {
	snap := NewSnapshot("g1", "UPI", t0)
	snap.State = StateHalfOpen
	snap = Transition(snap, DefaultThresholds(), 0.0, 0.0, domain.StatusFailure, false, t0)
	assert.Equal(t, 0, snap.ProbeTotal)
	assert.Equal(t, 0, snap.ProbeFailureStreak)
	assert.Equal(t, StateHalfOpen, snap.State)
}

func TestPairKeyLowercases(t *testing.T) {
	assert.Equal(t, "circuit:state:hdfc_mock:upi", pairKey(statePrefix, "HDFC_mock", "UPI"))
}
