package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/paymux/gateway/internal/domain"
	"github.com/paymux/gateway/internal/experiment"
)

// ExperimentGuard is the slice of the experiment store the monitor
// needs.
type ExperimentGuard interface {
	Running(ctx context.Context, now time.Time) ([]domain.Experiment, error)
	PooledStats(ctx context.Context, experimentID uuid.UUID) (control, treatment experiment.VariantStats, err error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

// GuardrailMonitor pauses running experiments whose treatment breaches
// a guardrail, so a bad treatment gateway cannot keep absorbing traffic
// until an operator notices.
type GuardrailMonitor struct {
	experiments ExperimentGuard
	guardrails  experiment.Guardrails
	tick        time.Duration
	now         func() time.Time
	log         *slog.Logger
}

func NewGuardrailMonitor(experiments ExperimentGuard, g experiment.Guardrails, tick time.Duration, now func() time.Time, log *slog.Logger) *GuardrailMonitor {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	if tick <= 0 {
		tick = time.Minute
	}
	return &GuardrailMonitor{experiments: experiments, guardrails: g, tick: tick, now: now, log: log}
}

// Run loops until the context is cancelled.
func (m *GuardrailMonitor) Run(ctx context.Context) error {
	m.log.Info("guardrail monitor started", "tick", m.tick)
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep checks every running experiment once.
func (m *GuardrailMonitor) Sweep(ctx context.Context) {
	running, err := m.experiments.Running(ctx, m.now())
	if err != nil {
		m.log.Error("guardrail experiment list failed", "err", err)
		return
	}
	for _, exp := range running {
		control, treatment, err := m.experiments.PooledStats(ctx, exp.ID)
		if err != nil {
			m.log.Warn("guardrail stats load failed", "experiment_id", exp.ID, "err", err)
			continue
		}
		breach, reason := experiment.CheckGuardrails(control, treatment, m.guardrails)
		if !breach {
			continue
		}
		if err := m.experiments.SetStatus(ctx, exp.ID, domain.ExperimentPaused); err != nil {
			m.log.Error("guardrail pause failed", "experiment_id", exp.ID, "err", err)
			continue
		}
		m.log.Warn("experiment paused by guardrail", "experiment_id", exp.ID, "name", exp.Name, "reason", reason)
	}
}
