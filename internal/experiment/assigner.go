// Package experiment implements routing A/B tests: deterministic
// variant assignment, request filtering, ranked-list override, and the
// winner/guardrail analysis over hourly rollups.
package experiment

import (
	"crypto/sha256"

	"github.com/google/uuid"

	"github.com/paymux/gateway/internal/domain"
)

// Assign buckets a customer into [0,100) from the SHA-256 of
// customer_id followed by the experiment id, reading the first two
// digest bytes big-endian. Pure: the same pair always lands in the same
// bucket.
func Assign(customerID string, experimentID uuid.UUID, controlPct int) (variant string, bucket int) {
	h := sha256.Sum256([]byte(customerID + experimentID.String()))
	bucket = (int(h[0])<<8 | int(h[1])) % 100
	if bucket < controlPct {
		return domain.VariantControl, bucket
	}
	return domain.VariantTreatment, bucket
}

// Matches evaluates the conjunctive filter against one request context.
func Matches(f domain.ExpFilter, method domain.PaymentMethod, amountMinor int64, merchantID string) bool {
	if f.PaymentMethod != nil && *f.PaymentMethod != method {
		return false
	}
	if f.MinAmountMinor != nil && amountMinor < *f.MinAmountMinor {
		return false
	}
	if f.MaxAmountMinor != nil && amountMinor > *f.MaxAmountMinor {
		return false
	}
	if f.MerchantID != nil && *f.MerchantID != merchantID {
		return false
	}
	if f.AmountBucket != nil && *f.AmountBucket != domain.AmountBucket(amountMinor) {
		return false
	}
	return true
}

// ApplyOverride moves the treatment gateway to the front of the ranked
// list. When the gateway is not a candidate the list is unchanged and
// ok=false.
func ApplyOverride(ranked []domain.RankedGateway, treatmentGateway string) ([]domain.RankedGateway, bool) {
	for i, rg := range ranked {
		if rg.GatewayID != treatmentGateway {
			continue
		}
		if i == 0 {
			return ranked, true
		}
		out := make([]domain.RankedGateway, 0, len(ranked))
		out = append(out, rg)
		out = append(out, ranked[:i]...)
		out = append(out, ranked[i+1:]...)
		return out, true
	}
	return ranked, false
}
