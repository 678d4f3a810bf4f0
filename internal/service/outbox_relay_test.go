package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paymux/gateway/internal/domain"
)

type outboxFake struct {
	rows      []domain.OutboxRecord
	published []int64
	retried   []int64
}

func (o *outboxFake) ClaimBatch(_ context.Context, limit int, _ time.Time) ([]domain.OutboxRecord, error) {
	if len(o.rows) > limit {
		return o.rows[:limit], nil
	}
	return o.rows, nil
}

func (o *outboxFake) MarkPublished(_ context.Context, id int64) error {
	o.published = append(o.published, id)
	return nil
}

func (o *outboxFake) MarkRetry(_ context.Context, id int64, _ int, _ time.Time) error {
	o.retried = append(o.retried, id)
	return nil
}

type sinkFake struct {
	events []domain.PaymentEvent
	err    error
}

func (s *sinkFake) Append(_ context.Context, ev domain.PaymentEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func outboxRow(id int64, ev domain.PaymentEvent) domain.OutboxRecord {
	payload, _ := json.Marshal(ev)
	return domain.OutboxRecord{
		ID:        id,
		PaymentID: ev.PaymentID,
		EventType: domain.EventPaymentAttempted,
		Payload:   payload,
	}
}

func TestOutboxDrainPublishes(t *testing.T) {
	ev := domain.PaymentEvent{PaymentID: uuid.New(), GatewayID: "g1", Status: domain.StatusSuccess}
	outbox := &outboxFake{rows: []domain.OutboxRecord{outboxRow(1, ev), outboxRow(2, ev)}}
	sink := &sinkFake{}
	relay := NewOutboxRelay(outbox, sink, 0, 0, func() time.Time { return testNow }, nil)

	relay.Drain(context.Background())

	require.Len(t, sink.events, 2)
	assert.Equal(t, ev.PaymentID, sink.events[0].PaymentID)
	assert.Equal(t, []int64{1, 2}, outbox.published)
	assert.Empty(t, outbox.retried)
}

func TestOutboxDrainRetriesOnSinkError(t *testing.T) {
	ev := domain.PaymentEvent{PaymentID: uuid.New()}
	outbox := &outboxFake{rows: []domain.OutboxRecord{outboxRow(7, ev)}}
	sink := &sinkFake{err: assert.AnError}
	relay := NewOutboxRelay(outbox, sink, 0, 0, func() time.Time { return testNow }, nil)

	relay.Drain(context.Background())

	assert.Empty(t, outbox.published)
	assert.Equal(t, []int64{7}, outbox.retried)
}

func TestOutboxDrainParksPoisonPayload(t *testing.T) {
	outbox := &outboxFake{rows: []domain.OutboxRecord{{
		ID:      9,
		Payload: []byte("{not json"),
	}}}
	sink := &sinkFake{}
	relay := NewOutboxRelay(outbox, sink, 0, 0, func() time.Time { return testNow }, nil)

	relay.Drain(context.Background())

	assert.Empty(t, sink.events)
	assert.Equal(t, []int64{9}, outbox.published, "poison rows park instead of wedging the queue")
	assert.Empty(t, outbox.retried)
}

func TestOutboxDrainRespectsBatch(t *testing.T) {
	ev := domain.PaymentEvent{PaymentID: uuid.New()}
	var rows []domain.OutboxRecord
	for i := int64(1); i <= 150; i++ {
		rows = append(rows, outboxRow(i, ev))
	}
	outbox := &outboxFake{rows: rows}
	sink := &sinkFake{}
	relay := NewOutboxRelay(outbox, sink, 0, 0, func() time.Time { return testNow }, nil)

	relay.Drain(context.Background())

	assert.Len(t, sink.events, 100)
}
