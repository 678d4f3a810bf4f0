package circuit

import "time"

// DecisionKind is the admission outcome for one candidate attempt.
type DecisionKind string

const (
	DecisionAllow  DecisionKind = "ALLOW"
	DecisionProbe  DecisionKind = "PROBE"
	DecisionReject DecisionKind = "REJECT"
)

// Decision is the breaker's pre-call verdict. Reason is set on rejects
// and recorded as the attempt's fallback reason.
type Decision struct {
	Kind   DecisionKind
	Reason string
}

// Admitted reports whether the candidate may be called at all.
func (d Decision) Admitted() bool { return d.Kind != DecisionReject }

// Evaluate is the pure admission decision. rnd supplies a uniform
// [0,1) draw used only in HalfOpen; overrides dominate everything.
func Evaluate(snap Snapshot, th Thresholds, override string, now time.Time, rnd func() float64) Decision {
	switch override {
	case ForceOpen:
		return Decision{Kind: DecisionReject, Reason: "MANUAL_FORCE_OPEN"}
	case ForceClosed:
		return Decision{Kind: DecisionAllow}
	}

	switch snap.State {
	case StateOpen:
		if snap.CooldownUntil != nil && !now.Before(*snap.CooldownUntil) {
			return Decision{Kind: DecisionProbe}
		}
		return Decision{Kind: DecisionReject, Reason: "CIRCUIT_OPEN"}
	case StateHalfOpen:
		if rnd() <= th.HalfOpenProbeRatio {
			return Decision{Kind: DecisionProbe}
		}
		return Decision{Kind: DecisionReject, Reason: "HALF_OPEN_THROTTLED"}
	}
	return Decision{Kind: DecisionAllow}
}
