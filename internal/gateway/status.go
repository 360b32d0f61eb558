package gateway

import (
	"net/http"
	"time"

	"github.com/flemzord/engram/internal/version"
)

// storeStatsJSON is the store section of GET /status.
type storeStatsJSON struct {
	Turns     int64 `json:"turns"`
	Entries   int64 `json:"entries"`
	Knowledge int64 `json:"knowledge"`
}

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Version        string         `json:"version"`
	UptimeSeconds  int64          `json:"uptime_seconds"`
	ActiveSessions int            `json:"active_sessions"`
	Store          storeStatsJSON `json:"store"`
	StartedAt      time.Time      `json:"started_at"`
}

// handleStatus serves GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := g.statsOrZero(r)

		respondJSON(w, http.StatusOK, StatusResponse{
			Version:        version.String(),
			UptimeSeconds:  int64(time.Since(g.startedAt).Seconds()),
			ActiveSessions: g.orch.SessionCount(),
			Store: storeStatsJSON{
				Turns:     stats.Turns,
				Entries:   stats.Entries,
				Knowledge: stats.Knowledge,
			},
			StartedAt: g.startedAt,
		})
	}
}
