package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/paymux/gateway/internal/circuit"
	"github.com/paymux/gateway/internal/domain"
)

func (s *Server) handleCircuitStatus(w http.ResponseWriter, r *http.Request) {
	entries, err := s.circuits.AllStatuses(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"circuits": entries})
}

func circuitPair(r *http.Request) (gateway, method string, err error) {
	vars := mux.Vars(r)
	gateway, method = vars["gateway"], strings.ToUpper(vars["method"])
	if !domain.PaymentMethod(method).Valid() {
		return "", "", domain.NewError(domain.CodeInvalidRequest, "method must be UPI, CARD or NETBANKING")
	}
	return gateway, method, nil
}

func (s *Server) handleForceOpen(w http.ResponseWriter, r *http.Request) {
	s.setOverride(w, r, circuit.ForceOpen)
}

func (s *Server) handleForceClose(w http.ResponseWriter, r *http.Request) {
	s.setOverride(w, r, circuit.ForceClosed)
}

func (s *Server) setOverride(w http.ResponseWriter, r *http.Request, value string) {
	gateway, method, err := circuitPair(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.circuits.SetOverride(r.Context(), gateway, method, value, s.now()); err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("circuit override set", "gateway", gateway, "method", method, "override", value)
	s.writeJSON(w, http.StatusOK, map[string]string{
		"gateway_id":     gateway,
		"payment_method": method,
		"override":       value,
	})
}

func (s *Server) handleClearOverride(w http.ResponseWriter, r *http.Request) {
	gateway, method, err := circuitPair(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.circuits.ClearOverride(r.Context(), gateway, method); err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("circuit override cleared", "gateway", gateway, "method", method)
	s.writeJSON(w, http.StatusOK, map[string]string{
		"gateway_id":     gateway,
		"payment_method": method,
		"override":       "",
	})
}
