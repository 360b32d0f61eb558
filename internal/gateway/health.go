package gateway

import (
	"context"
	"net/http"
	"time"
)

const readyProbeTimeout = 2 * time.Second

// handleHealthz serves GET /healthz. Liveness only: the process is up
// and serving.
func (g *Gateway) handleHealthz() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// handleReadyz serves GET /readyz. Ready means the store answers a
// stats probe; a failing or missing store returns 503.
func (g *Gateway) handleReadyz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.store == nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  "no store loaded",
			})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), readyProbeTimeout)
		defer cancel()

		if _, err := g.store.Stats(ctx); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}

		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
