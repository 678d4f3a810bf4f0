package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/paymux/gateway/internal/domain"
	"github.com/paymux/gateway/internal/experiment"
)

type createExperimentRequest struct {
	Name             string           `json:"name"`
	ControlPct       int              `json:"control_pct"`
	TreatmentGateway string           `json:"treatment_gateway"`
	Filter           domain.ExpFilter `json:"filter"`
	StartsAt         *time.Time       `json:"starts_at,omitempty"`
	EndsAt           *time.Time       `json:"ends_at,omitempty"`
}

func (s *Server) handleCreateExperiment(w http.ResponseWriter, r *http.Request) {
	var req createExperimentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, domain.NewError(domain.CodeInvalidRequest, "invalid experiment body"))
		return
	}
	if req.Name == "" || req.TreatmentGateway == "" {
		s.writeError(w, domain.NewError(domain.CodeInvalidRequest, "name and treatment_gateway are required"))
		return
	}
	if req.ControlPct < 0 || req.ControlPct > 100 {
		s.writeError(w, domain.NewError(domain.CodeInvalidRequest, "control_pct must be within [0,100]"))
		return
	}

	now := s.now()
	startsAt := now
	if req.StartsAt != nil {
		startsAt = *req.StartsAt
	}
	e := domain.Experiment{
		ID:               uuid.New(),
		Name:             req.Name,
		Status:           domain.ExperimentRunning,
		ControlPct:       req.ControlPct,
		TreatmentPct:     100 - req.ControlPct,
		TreatmentGateway: req.TreatmentGateway,
		Filter:           req.Filter,
		StartsAt:         startsAt,
		EndsAt:           req.EndsAt,
		CreatedAt:        now,
	}
	if err := s.experiments.Create(r.Context(), e); err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("experiment created", "experiment_id", e.ID, "name", e.Name, "treatment", e.TreatmentGateway)
	s.writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleListExperiments(w http.ResponseWriter, r *http.Request) {
	exps, err := s.experiments.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"experiments": exps})
}

func experimentID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil, domain.NewError(domain.CodeNotFound, "invalid experiment id")
	}
	return id, nil
}

func (s *Server) handleExperimentResults(w http.ResponseWriter, r *http.Request) {
	id, err := experimentID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	results, err := s.experiments.Results(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"experiment_id": id,
		"results":       results,
	})
}

func (s *Server) handleExperimentWinner(w http.ResponseWriter, r *http.Request) {
	id, err := experimentID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	exp, err := s.experiments.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if exp == nil {
		s.writeError(w, domain.NewError(domain.CodeNotFound, "experiment not found"))
		return
	}
	control, treatment, err := s.experiments.PooledStats(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	report := experiment.Analyze(id, control, treatment, s.guardrails)
	breach, reason := experiment.CheckGuardrails(control, treatment, s.guardrails)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"report":           report,
		"guardrail_breach": breach,
		"guardrail_reason": reason,
	})
}

func (s *Server) handleStopExperiment(w http.ResponseWriter, r *http.Request) {
	id, err := experimentID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	exp, err := s.experiments.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if exp == nil {
		s.writeError(w, domain.NewError(domain.CodeNotFound, "experiment not found"))
		return
	}
	if err := s.experiments.SetStatus(r.Context(), id, domain.ExperimentCompleted); err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("experiment stopped", "experiment_id", id)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"experiment_id": id,
		"status":        domain.ExperimentCompleted,
	})
}
