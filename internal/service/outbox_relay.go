package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/paymux/gateway/internal/domain"
	"github.com/paymux/gateway/internal/metrics"
)

// OutboxSource claims and settles outbox rows.
type OutboxSource interface {
	ClaimBatch(ctx context.Context, limit int, now time.Time) ([]domain.OutboxRecord, error)
	MarkPublished(ctx context.Context, id int64) error
	MarkRetry(ctx context.Context, id int64, attempts int, now time.Time) error
}

// EventSink appends events to the ordered stream.
type EventSink interface {
	Append(ctx context.Context, ev domain.PaymentEvent) error
}

// OutboxRelay drains pending outbox rows into the event stream with
// at-least-once delivery.
type OutboxRelay struct {
	outbox OutboxSource
	sink   EventSink
	tick   time.Duration
	batch  int
	now    func() time.Time
	log    *slog.Logger
}

func NewOutboxRelay(outbox OutboxSource, sink EventSink, tick time.Duration, batch int, now func() time.Time, log *slog.Logger) *OutboxRelay {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	if tick <= 0 {
		tick = 200 * time.Millisecond
	}
	if batch <= 0 {
		batch = 100
	}
	return &OutboxRelay{outbox: outbox, sink: sink, tick: tick, batch: batch, now: now, log: log}
}

// Run loops until the context is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) error {
	r.log.Info("outbox relay started", "tick", r.tick, "batch", r.batch)
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Drain(ctx)
		}
	}
}

// Drain performs one claim-and-publish pass. Exported so tests and the
// request path can force a flush.
func (r *OutboxRelay) Drain(ctx context.Context) {
	claimed, err := r.outbox.ClaimBatch(ctx, r.batch, r.now())
	if err != nil {
		r.log.Error("outbox claim failed", "err", err)
		return
	}
	for _, rec := range claimed {
		r.publish(ctx, rec)
	}
}

func (r *OutboxRelay) publish(ctx context.Context, rec domain.OutboxRecord) {
	var ev domain.PaymentEvent
	if err := json.Unmarshal(rec.Payload, &ev); err != nil {
		// Poison payload: park it as published so it cannot wedge the
		// queue; the row keeps the original payload for inspection.
		r.log.Error("outbox payload undecodable, parking row", "id", rec.ID, "err", err)
		if err := r.outbox.MarkPublished(ctx, rec.ID); err != nil {
			r.log.Error("outbox park failed", "id", rec.ID, "err", err)
		}
		return
	}

	if err := r.sink.Append(ctx, ev); err != nil {
		metrics.OutboxRetried.Inc()
		r.log.Warn("stream append failed, scheduling retry", "id", rec.ID, "attempts", rec.Attempts, "err", err)
		if err := r.outbox.MarkRetry(ctx, rec.ID, rec.Attempts, r.now()); err != nil {
			r.log.Error("outbox retry mark failed", "id", rec.ID, "err", err)
		}
		return
	}
	metrics.OutboxPublished.Inc()
	if err := r.outbox.MarkPublished(ctx, rec.ID); err != nil {
		// The append landed; a failed mark means this row republishes.
		// Consumers deduplicate on (payment_id, event_type).
		r.log.Error("outbox publish mark failed", "id", rec.ID, "err", err)
	}
}
