package api

import (
	"encoding/json"
	"net/http"

	"github.com/paymux/gateway/internal/domain"
)

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("response encode failed", "err", err)
	}
}

// writeError renders the {"error":{...}} envelope. Internal causes are
// logged but never leak into the body.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	de := domain.AsError(err)
	if de.HTTPStatus() >= 500 {
		s.log.Error("request failed", "code", de.Code, "err", err)
	}
	s.writeJSON(w, de.HTTPStatus(), errorEnvelope{Error: errorBody{
		Code:    de.Code,
		Message: de.Message,
		Details: de.Details,
	}})
}
