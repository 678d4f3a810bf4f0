// Package retry holds the pure pieces of the fallback orchestration:
// outcome classification and the attempt/latency budget. The driver
// loop that walks the ranked list lives in the service layer.
package retry

import (
	"time"

	"github.com/paymux/gateway/internal/domain"
)

// Directive tells the orchestrator what to do after one attempt.
type Directive string

const (
	Success             Directive = "SUCCESS"
	Continue            Directive = "CONTINUE"
	FailNow             Directive = "FAIL_NOW"
	PendingVerification Directive = "PENDING_VERIFICATION"
)

// Terminal reports whether the directive ends the retry loop.
func (d Directive) Terminal() bool { return d != Continue }

// Classify maps a normalised attempt outcome to a directive. Unknown
// failure codes carry a zero ErrorClass and fail now; timeouts with
// retry_on_timeout=false go to verification instead of failing.
func Classify(status domain.PaymentStatus, class domain.ErrorClass, retryOnTimeout bool) Directive {
	switch status {
	case domain.StatusSuccess:
		return Success
	case domain.StatusPendingVerification:
		return PendingVerification
	case domain.StatusTimeout:
		if retryOnTimeout {
			return Continue
		}
		return PendingVerification
	}
	switch {
	case class.NonRetryableUserError:
		return FailNow
	case class.Retryable:
		return Continue
	}
	return FailNow
}

// AttemptLimit is the number of attempt slots the policy grants. A
// disabled policy clamps to a single attempt.
func AttemptLimit(p domain.RetryPolicy) int {
	if !p.Enabled {
		return 1
	}
	if p.MaxAttempts < 0 {
		return 0
	}
	return p.MaxAttempts
}

// BudgetExceeded reports whether no further attempt may start.
func BudgetExceeded(start, now time.Time, p domain.RetryPolicy) bool {
	return now.Sub(start) >= time.Duration(p.LatencyBudgetMs)*time.Millisecond
}
