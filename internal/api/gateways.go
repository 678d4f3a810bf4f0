package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/paymux/gateway/internal/domain"
	"github.com/paymux/gateway/internal/metrics"
	"github.com/paymux/gateway/internal/store"
)

func (s *Server) handleListGateways(w http.ResponseWriter, r *http.Request) {
	gws, err := s.gateways.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"gateways": gws})
}

func (s *Server) handlePatchGateway(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var patch store.GatewayPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.writeError(w, domain.NewError(domain.CodeInvalidRequest, "invalid patch body"))
		return
	}
	gw, err := s.gateways.Update(r.Context(), id, patch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if gw == nil {
		s.writeError(w, domain.NewError(domain.CodeNotFound, "unknown gateway"))
		return
	}
	s.writeJSON(w, http.StatusOK, gw)
}

func validWindow(w int) bool {
	for _, m := range metrics.WindowMinutes {
		if w == m {
			return true
		}
	}
	return false
}

// handleGatewayMetrics serves one aggregate when method and bank are
// given, or every indexed slice of the window otherwise.
func (s *Server) handleGatewayMetrics(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	q := r.URL.Query()

	window := 5
	if raw := q.Get("window"); raw != "" {
		v, err := strconv.Atoi(strings.TrimSuffix(raw, "m"))
		if err != nil || !validWindow(v) {
			s.writeError(w, domain.NewError(domain.CodeInvalidRequest, "window must be one of 1, 5, 15, 60").
				WithDetail("window", raw))
			return
		}
		window = v
	}

	method, bank := q.Get("payment_method"), q.Get("issuing_bank")
	if method != "" && bank != "" {
		agg, err := s.metrics.Window(r.Context(), name, method, bank, window)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if agg == nil {
			s.writeError(w, domain.NewError(domain.CodeNotFound, "no metrics for the requested slice"))
			return
		}
		s.writeJSON(w, http.StatusOK, agg)
		return
	}

	keys, err := s.metrics.Slices(r.Context(), name, window)
	if err != nil {
		s.writeError(w, err)
		return
	}
	slices := make([]map[string]any, 0, len(keys))
	for _, key := range keys {
		agg, err := s.metrics.Window(r.Context(), key.GatewayID, key.Method, key.Bank, window)
		if err != nil || agg == nil {
			continue
		}
		slices = append(slices, map[string]any{
			"payment_method": key.Method,
			"issuing_bank":   key.Bank,
			"aggregate":      agg,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"gateway_id":     name,
		"window_minutes": window,
		"slices":         slices,
	})
}

// handleScoringDebug ranks the enabled gateways for a hypothetical
// request without touching any state.
func (s *Server) handleScoringDebug(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	method := domain.PaymentMethod(strings.ToUpper(q.Get("payment_method")))
	if !method.Valid() {
		s.writeError(w, domain.NewError(domain.CodeInvalidRequest, "payment_method must be UPI, CARD or NETBANKING"))
		return
	}
	amount := int64(10000)
	if raw := q.Get("amount_minor"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			s.writeError(w, domain.NewError(domain.CodeInvalidAmount, "amount_minor must be a positive integer"))
			return
		}
		amount = v
	}

	ranked, err := s.payments.DebugRank(r.Context(), method, amount, q.Get("issuing_bank"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"payment_method": method,
		"amount_minor":   amount,
		"ranked":         ranked,
	})
}
