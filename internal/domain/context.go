package domain

import (
	"strings"

	"github.com/google/uuid"
)

// BankUnknown is the issuing bank used when the instrument carries no
// resolvable bank identity.
const BankUnknown = "UNKNOWN"

// PaymentContext is the per-request routing context assembled before
// scoring. It is immutable for the lifetime of the request.
type PaymentContext struct {
	PaymentID     uuid.UUID
	MerchantID    string
	CustomerID    string
	AmountMinor   int64
	Currency      string
	PaymentMethod PaymentMethod
	IssuingBank   string
	ClientIP      string
	UserAgent     string
}

// BuildContext derives the routing context from the request. The issuing
// bank starts as a raw hint: cards yield "BIN:<first 6 digits>" for the
// conductor to resolve against the BIN table, UPI handles yield the
// uppercased suffix after '@', netbanking yields the uppercased bank code.
func BuildContext(paymentID uuid.UUID, req CreatePaymentRequest, clientIP, userAgent string) PaymentContext {
	return PaymentContext{
		PaymentID:     paymentID,
		MerchantID:    req.MerchantID,
		CustomerID:    req.CustomerID,
		AmountMinor:   req.AmountMinor,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
		IssuingBank:   issuingBankHint(req.Instrument),
		ClientIP:      clientIP,
		UserAgent:     userAgent,
	}
}

func issuingBankHint(inst Instrument) string {
	switch inst.Type {
	case "CARD":
		digits := strings.TrimSpace(inst.Number)
		if len(digits) >= 6 {
			return "BIN:" + digits[:6]
		}
	case "UPI":
		if at := strings.LastIndexByte(inst.VPA, '@'); at >= 0 && at < len(inst.VPA)-1 {
			return strings.ToUpper(inst.VPA[at+1:])
		}
	case "NETBANKING":
		if inst.BankCode != "" {
			return strings.ToUpper(inst.BankCode)
		}
	}
	return BankUnknown
}

// AmountBucket maps an amount in minor units to its coarse size class.
// Boundaries are in minor units (paise): 500, 2 000 and 10 000 rupees.
func AmountBucket(amountMinor int64) string {
	switch {
	case amountMinor < 50_000:
		return "lt_500"
	case amountMinor < 200_000:
		return "500_2000"
	case amountMinor < 1_000_000:
		return "2000_10000"
	default:
		return "gt_10000"
	}
}

// Segment is the unit over which the bandit keeps posteriors.
func Segment(method PaymentMethod, amountMinor int64) string {
	return string(method) + ":" + AmountBucket(amountMinor)
}
