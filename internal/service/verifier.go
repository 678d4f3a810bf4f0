package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/paymux/gateway/internal/domain"
	"github.com/paymux/gateway/internal/store"
)

// VerificationQueue lists and settles due verification records.
type VerificationQueue interface {
	Due(ctx context.Context, now time.Time, limit int) ([]store.VerificationRecord, error)
	MarkChecked(ctx context.Context, paymentID uuid.UUID, now time.Time) error
	MarkResolved(ctx context.Context, paymentID uuid.UUID) error
}

// PaymentFinaliser flips a pending payment once its true outcome is
// known.
type PaymentFinaliser interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error
}

// StatusChecker queries the provider for a payment's real outcome.
// conclusive=false means the provider still does not know.
type StatusChecker interface {
	CheckStatus(ctx context.Context, gatewayID string, paymentID uuid.UUID) (status domain.PaymentStatus, conclusive bool, err error)
}

// Verifier periodically reconciles payments parked in
// PENDING_VERIFICATION.
type Verifier struct {
	queue    VerificationQueue
	payments PaymentFinaliser
	checker  StatusChecker
	tick     time.Duration
	batch    int
	now      func() time.Time
	log      *slog.Logger
}

func NewVerifier(queue VerificationQueue, payments PaymentFinaliser, checker StatusChecker, tick time.Duration, batch int, now func() time.Time, log *slog.Logger) *Verifier {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	if tick <= 0 {
		tick = 30 * time.Second
	}
	if batch <= 0 {
		batch = 50
	}
	return &Verifier{queue: queue, payments: payments, checker: checker, tick: tick, batch: batch, now: now, log: log}
}

// Run loops until the context is cancelled.
func (v *Verifier) Run(ctx context.Context) error {
	v.log.Info("verification worker started", "tick", v.tick, "batch", v.batch)
	ticker := time.NewTicker(v.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			v.Sweep(ctx)
		}
	}
}

// Sweep processes one batch of due verifications.
func (v *Verifier) Sweep(ctx context.Context) {
	due, err := v.queue.Due(ctx, v.now(), v.batch)
	if err != nil {
		v.log.Error("verification list failed", "err", err)
		return
	}
	for _, rec := range due {
		v.check(ctx, rec)
	}
}

func (v *Verifier) check(ctx context.Context, rec store.VerificationRecord) {
	status, conclusive, err := v.checker.CheckStatus(ctx, rec.GatewayID, rec.PaymentID)
	if err != nil {
		v.log.Warn("status check failed", "payment_id", rec.PaymentID, "gateway", rec.GatewayID, "err", err)
	}
	if err != nil || !conclusive {
		if err := v.queue.MarkChecked(ctx, rec.PaymentID, v.now()); err != nil {
			v.log.Error("verification reschedule failed", "payment_id", rec.PaymentID, "err", err)
		}
		return
	}

	if err := v.payments.UpdateStatus(ctx, rec.PaymentID, status); err != nil {
		v.log.Error("payment status update failed", "payment_id", rec.PaymentID, "err", err)
		return
	}
	if err := v.queue.MarkResolved(ctx, rec.PaymentID); err != nil {
		v.log.Error("verification resolve failed", "payment_id", rec.PaymentID, "err", err)
	}
	v.log.Info("pending payment reconciled", "payment_id", rec.PaymentID, "status", status)
}
