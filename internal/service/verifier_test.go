package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paymux/gateway/internal/domain"
	"github.com/paymux/gateway/internal/store"
)

type verificationQueueFake struct {
	due      []store.VerificationRecord
	checked  []uuid.UUID
	resolved []uuid.UUID
}

func (q *verificationQueueFake) Due(_ context.Context, _ time.Time, _ int) ([]store.VerificationRecord, error) {
	return q.due, nil
}

func (q *verificationQueueFake) MarkChecked(_ context.Context, id uuid.UUID, _ time.Time) error {
	q.checked = append(q.checked, id)
	return nil
}

func (q *verificationQueueFake) MarkResolved(_ context.Context, id uuid.UUID) error {
	q.resolved = append(q.resolved, id)
	return nil
}

type finaliserFake struct {
	updates map[uuid.UUID]domain.PaymentStatus
}

func (f *finaliserFake) UpdateStatus(_ context.Context, id uuid.UUID, status domain.PaymentStatus) error {
	if f.updates == nil {
		f.updates = map[uuid.UUID]domain.PaymentStatus{}
	}
	f.updates[id] = status
	return nil
}

type checkerFake struct {
	status     domain.PaymentStatus
	conclusive bool
	err        error
}

func (c checkerFake) CheckStatus(context.Context, string, uuid.UUID) (domain.PaymentStatus, bool, error) {
	return c.status, c.conclusive, c.err
}

func TestVerifierResolvesConclusive(t *testing.T) {
	id := uuid.New()
	queue := &verificationQueueFake{due: []store.VerificationRecord{{PaymentID: id, GatewayID: "g1"}}}
	payments := &finaliserFake{}
	v := NewVerifier(queue, payments, checkerFake{status: domain.StatusSuccess, conclusive: true}, 0, 0, func() time.Time { return testNow }, nil)

	v.Sweep(context.Background())

	require.Contains(t, payments.updates, id)
	assert.Equal(t, domain.StatusSuccess, payments.updates[id])
	assert.Equal(t, []uuid.UUID{id}, queue.resolved)
	assert.Empty(t, queue.checked)
}

func TestVerifierReschedulesInconclusive(t *testing.T) {
	id := uuid.New()
	queue := &verificationQueueFake{due: []store.VerificationRecord{{PaymentID: id, GatewayID: "g1"}}}
	payments := &finaliserFake{}
	v := NewVerifier(queue, payments, checkerFake{conclusive: false}, 0, 0, func() time.Time { return testNow }, nil)

	v.Sweep(context.Background())

	assert.Empty(t, payments.updates)
	assert.Empty(t, queue.resolved)
	assert.Equal(t, []uuid.UUID{id}, queue.checked)
}

func TestVerifierReschedulesOnCheckError(t *testing.T) {
	id := uuid.New()
	queue := &verificationQueueFake{due: []store.VerificationRecord{{PaymentID: id, GatewayID: "g1"}}}
	payments := &finaliserFake{}
	v := NewVerifier(queue, payments, checkerFake{status: domain.StatusFailure, conclusive: true, err: assert.AnError}, 0, 0, func() time.Time { return testNow }, nil)

	v.Sweep(context.Background())

	assert.Empty(t, payments.updates, "an errored check never finalises the payment")
	assert.Equal(t, []uuid.UUID{id}, queue.checked)
}
