package circuit

import (
	"time"

	"github.com/paymux/gateway/internal/domain"
)

// Transition is the pure post-call state update. failureRate2m and
// timeoutRate5m are the freshly aggregated rolling rates including the
// attempt being recorded; wasProbe marks attempts admitted as probes.
func Transition(prev Snapshot, th Thresholds, failureRate2m, timeoutRate5m float64, status domain.PaymentStatus, wasProbe bool, now time.Time) Snapshot {
	next := prev
	next.FailureRate2m = failureRate2m
	next.TimeoutRate5m = timeoutRate5m
	next.UpdatedAt = now

	// An open breaker whose cooldown has elapsed moves to HalfOpen on
	// the first write after the probe was admitted.
	if next.State == StateOpen && next.CooldownUntil != nil && !now.Before(*next.CooldownUntil) {
		next.State = StateHalfOpen
		resetProbes(&next)
	}

	if status == domain.StatusSuccess {
		next.ConsecutiveFailures = 0
		next.SuccessStreak++
	} else {
		next.ConsecutiveFailures++
		next.SuccessStreak = 0
	}
	if wasProbe {
		next.ProbeTotal++
		if status == domain.StatusSuccess {
			next.ProbeSuccess++
			next.ProbeFailureStreak = 0
		} else {
			next.ProbeFailureStreak++
		}
	}

	switch next.State {
	case StateClosed:
		if failureRate2m > th.FailureRate2m ||
			timeoutRate5m > th.TimeoutRate5m ||
			next.ConsecutiveFailures >= th.ConsecutiveFailures {
			open(&next, th, now)
		}
	case StateHalfOpen:
		if next.ProbeFailureStreak >= th.HalfOpenFailureReopen {
			open(&next, th, now)
			break
		}
		closeBySuccess := next.SuccessStreak >= th.HalfOpenSuccessClose
		closeByRate := next.ProbeTotal >= th.HalfOpenMinProbeCount &&
			float64(next.ProbeSuccess)/float64(next.ProbeTotal) >= th.HalfOpenSuccessRateClose
		if closeBySuccess || closeByRate {
			next.State = StateClosed
			next.OpenedAt = nil
			next.CooldownUntil = nil
			resetProbes(&next)
		}
	}
	return next
}

func open(s *Snapshot, th Thresholds, now time.Time) {
	s.State = StateOpen
	openedAt := now
	cooldown := now.Add(time.Duration(th.CooldownSeconds) * time.Second)
	s.OpenedAt = &openedAt
	s.CooldownUntil = &cooldown
	resetProbes(s)
}

func resetProbes(s *Snapshot) {
	s.ProbeTotal = 0
	s.ProbeSuccess = 0
	s.ProbeFailureStreak = 0
	s.SuccessStreak = 0
}
