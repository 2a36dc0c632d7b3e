package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const healthTimeout = 2 * time.Second

type healthResponse struct {
	Status string            `json:"status"`
	Stores map[string]string `json:"stores"`
}

// HealthHandler pings every configured store. Any failure is a 503.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok", Stores: make(map[string]string, len(s.deps.HealthChecks))}
		status := http.StatusOK
		for name, check := range s.deps.HealthChecks {
			if err := check(ctx); err != nil {
				log.Warn().Err(err).Str("store", name).Msg("health check failed")
				resp.Stores[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Stores[name] = "ok"
		}
		writeJSON(w, status, resp)
	}
}
