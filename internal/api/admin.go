package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/paymux/gateway/internal/domain"
)

func (s *Server) handleBanditState(w http.ResponseWriter, r *http.Request) {
	arms, err := s.bandits.AllArms(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"arms": arms})
}

func (s *Server) handleBanditPolicy(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		segment := mux.Vars(r)["segment"]
		if segment == "" {
			s.writeError(w, domain.NewError(domain.CodeInvalidRequest, "segment is required"))
			return
		}
		if err := s.bandits.SetPolicy(r.Context(), segment, enabled); err != nil {
			s.writeError(w, err)
			return
		}
		s.log.Info("bandit policy updated", "segment", segment, "enabled", enabled)
		s.writeJSON(w, http.StatusOK, map[string]any{
			"segment": segment,
			"enabled": enabled,
		})
	}
}

func (s *Server) handleGetRetryPolicy(w http.ResponseWriter, r *http.Request) {
	p, err := s.policies.Get(r.Context(), mux.Vars(r)["merchant"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePutRetryPolicy(w http.ResponseWriter, r *http.Request) {
	merchant := mux.Vars(r)["merchant"]
	var p domain.RetryPolicy
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, domain.NewError(domain.CodeInvalidRequest, "invalid retry policy body"))
		return
	}
	p.MerchantID = merchant
	if p.MaxAttempts < 0 || p.MaxAttempts > 10 {
		s.writeError(w, domain.NewError(domain.CodeInvalidRequest, "max_attempts must be within [0,10]"))
		return
	}
	if p.LatencyBudgetMs < 0 {
		s.writeError(w, domain.NewError(domain.CodeInvalidRequest, "latency_budget_ms must be non-negative"))
		return
	}
	if err := s.policies.Upsert(r.Context(), p); err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("retry policy updated", "merchant", merchant, "max_attempts", p.MaxAttempts)
	s.writeJSON(w, http.StatusOK, p)
}
