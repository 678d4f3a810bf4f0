package api

import (
	"net/http"
)

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadiness verifies both backing stores; either failing makes
// the instance unroutable.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"postgres": "ok", "redis": "ok"}
	healthy := true

	if s.checkDB != nil {
		if err := s.checkDB(r.Context()); err != nil {
			checks["postgres"] = err.Error()
			healthy = false
		}
	}
	if s.checkRedis != nil {
		if err := s.checkRedis(r.Context()); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, map[string]any{
		"ready":  healthy,
		"checks": checks,
	})
}
