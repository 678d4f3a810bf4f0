package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/paymux/gateway/internal/domain"
)

// PaymentWriter commits a payment and its outbox event atomically.
type PaymentWriter struct {
	db       *sql.DB
	payments *PaymentRepo
	outbox   *OutboxRepo
}

func NewPaymentWriter(db *sql.DB, payments *PaymentRepo, outbox *OutboxRepo) *PaymentWriter {
	return &PaymentWriter{db: db, payments: payments, outbox: outbox}
}

// Commit writes the payment row and the payment.attempted outbox row in
// one transaction: either both land or neither does.
func (w *PaymentWriter) Commit(ctx context.Context, p domain.Payment, ev domain.PaymentEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode payment event: %w", err)
	}
	return WithTx(ctx, w.db, func(tx *sql.Tx) error {
		if err := w.payments.InsertTx(ctx, tx, p); err != nil {
			return err
		}
		return w.outbox.InsertTx(ctx, tx, p.ID, domain.EventPaymentAttempted, payload, p.CreatedAt)
	})
}
