package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/paymux/gateway/internal/domain"
	"github.com/paymux/gateway/internal/experiment"
)

type guardFake struct {
	running   []domain.Experiment
	control   experiment.VariantStats
	treatment experiment.VariantStats
	statuses  map[uuid.UUID]string
}

func (g *guardFake) Running(context.Context, time.Time) ([]domain.Experiment, error) {
	return g.running, nil
}

func (g *guardFake) PooledStats(context.Context, uuid.UUID) (experiment.VariantStats, experiment.VariantStats, error) {
	return g.control, g.treatment, nil
}

func (g *guardFake) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	if g.statuses == nil {
		g.statuses = map[uuid.UUID]string{}
	}
	g.statuses[id] = status
	return nil
}

func TestGuardrailPausesBreachingExperiment(t *testing.T) {
	id := uuid.New()
	guard := &guardFake{
		running:   []domain.Experiment{{ID: id, Name: "bad-treatment", Status: domain.ExperimentRunning}},
		control:   experiment.VariantStats{TotalRequests: 1000, Successes: 950},
		treatment: experiment.VariantStats{TotalRequests: 1000, Successes: 800},
	}
	m := NewGuardrailMonitor(guard, experiment.DefaultGuardrails(), time.Minute, func() time.Time { return testNow }, nil)

	m.Sweep(context.Background())

	assert.Equal(t, domain.ExperimentPaused, guard.statuses[id])
}

func TestGuardrailLeavesHealthyExperiment(t *testing.T) {
	id := uuid.New()
	guard := &guardFake{
		running:   []domain.Experiment{{ID: id, Status: domain.ExperimentRunning}},
		control:   experiment.VariantStats{TotalRequests: 1000, Successes: 900},
		treatment: experiment.VariantStats{TotalRequests: 1000, Successes: 910},
	}
	m := NewGuardrailMonitor(guard, experiment.DefaultGuardrails(), time.Minute, func() time.Time { return testNow }, nil)

	m.Sweep(context.Background())

	assert.Empty(t, guard.statuses)
}

func TestGuardrailIgnoresSmallSamples(t *testing.T) {
	id := uuid.New()
	guard := &guardFake{
		running:   []domain.Experiment{{ID: id, Status: domain.ExperimentRunning}},
		control:   experiment.VariantStats{TotalRequests: 50, Successes: 50},
		treatment: experiment.VariantStats{TotalRequests: 20, Successes: 2},
	}
	m := NewGuardrailMonitor(guard, experiment.DefaultGuardrails(), time.Minute, func() time.Time { return testNow }, nil)

	m.Sweep(context.Background())

	assert.Empty(t, guard.statuses)
}
