package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/paymux/gateway/internal/domain"
)

// OutboxRepo owns the transactional outbox table.
type OutboxRepo struct {
	db *sql.DB
}

func NewOutboxRepo(db *sql.DB) *OutboxRepo {
	return &OutboxRepo{db: db}
}

// InsertTx enqueues an event inside the payment transaction. The
// (payment_id, event_type) unique index makes emission
// exactly-once-intent; duplicates are silently dropped.
func (r *OutboxRepo) InsertTx(ctx context.Context, tx *sql.Tx, paymentID uuid.UUID, eventType string, payload []byte, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO outbox_events (payment_id, event_type, payload, status, attempts, next_attempt_at, created_at)
		VALUES ($1, $2, $3, $4, 0, $5, $5)
		ON CONFLICT (payment_id, event_type) DO NOTHING`,
		paymentID, eventType, payload, domain.OutboxPending, now)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// ClaimBatch locks up to limit due pending rows with SKIP LOCKED, marks
// them PROCESSING and returns them. Concurrent relay workers never
// claim the same row.
func (r *OutboxRepo) ClaimBatch(ctx context.Context, limit int, now time.Time) ([]domain.OutboxRecord, error) {
	var claimed []domain.OutboxRecord
	err := WithTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, payment_id, event_type, payload, status, attempts, next_attempt_at, created_at
			FROM outbox_events
			WHERE status = $1 AND next_attempt_at <= $2
			ORDER BY id
			LIMIT $3
			FOR UPDATE SKIP LOCKED`,
			domain.OutboxPending, now, limit)
		if err != nil {
			return fmt.Errorf("claim outbox rows: %w", err)
		}
		defer rows.Close()

		var ids []int64
		for rows.Next() {
			var rec domain.OutboxRecord
			if err := rows.Scan(&rec.ID, &rec.PaymentID, &rec.EventType, &rec.Payload,
				&rec.Status, &rec.Attempts, &rec.NextAttemptAt, &rec.CreatedAt); err != nil {
				return fmt.Errorf("scan outbox row: %w", err)
			}
			claimed = append(claimed, rec)
			ids = append(ids, rec.ID)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx,
				`UPDATE outbox_events SET status = $2 WHERE id = $1`,
				id, domain.OutboxProcessing); err != nil {
				return fmt.Errorf("mark outbox processing: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// MarkPublished finalises a delivered row.
func (r *OutboxRepo) MarkPublished(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET status = $2 WHERE id = $1`,
		id, domain.OutboxPublished)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

// MarkRetry returns a failed row to PENDING with exponential backoff.
func (r *OutboxRepo) MarkRetry(ctx context.Context, id int64, attempts int, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbox_events
		SET status = $2, attempts = $3, next_attempt_at = $4
		WHERE id = $1`,
		id, domain.OutboxPending, attempts+1, now.Add(Backoff(attempts+1)))
	if err != nil {
		return fmt.Errorf("mark outbox retry: %w", err)
	}
	return nil
}

// Backoff is min(300, 2^min(attempts, 8)) seconds.
func Backoff(attempts int) time.Duration {
	exp := attempts
	if exp > 8 {
		exp = 8
	}
	secs := math.Min(300, math.Pow(2, float64(exp)))
	return time.Duration(secs) * time.Second
}
