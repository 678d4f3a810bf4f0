package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/paymux/gateway/internal/domain"
	"github.com/paymux/gateway/internal/service"
)

const idempotencyHeader = "Idempotency-Key"

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, domain.NewError(domain.CodeInvalidRequest, "invalid request body").
			WithDetail("decode_error", err.Error()))
		return
	}

	resp, err := s.payments.Process(r.Context(), req, service.RequestMeta{
		IdempotencyKey: r.Header.Get(idempotencyHeader),
		ClientIP:       clientIP(r),
		UserAgent:      r.UserAgent(),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func paymentID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil, domain.NewError(domain.CodeNotFound, "invalid payment id")
	}
	return id, nil
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := paymentID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	p, err := s.paymentReads.ByID(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if p == nil {
		s.writeError(w, domain.NewError(domain.CodeNotFound, "payment not found"))
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleRoutingDecision(w http.ResponseWriter, r *http.Request) {
	id, err := paymentID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	d, err := s.decisions.ByPayment(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if d == nil {
		s.writeError(w, domain.NewError(domain.CodeNotFound, "no routing decision recorded for payment"))
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleAttempts(w http.ResponseWriter, r *http.Request) {
	id, err := paymentID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	attempts, err := s.attempts.ListByPayment(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"payment_id": id,
		"attempts":   attempts,
	})
}

func (s *Server) handleVerification(w http.ResponseWriter, r *http.Request) {
	id, err := paymentID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	v, err := s.verifications.ByPayment(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if v == nil {
		s.writeError(w, domain.NewError(domain.CodeNotFound, "payment is not under status verification"))
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}
