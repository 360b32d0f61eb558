package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter constructs the chi mux with all routes wired. When auth
// is configured the API surface requires credentials; liveness,
// readiness, and metrics stay open for probes and scrapes.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(g.metrics.httpMiddleware)

	r.Get("/healthz", g.handleHealthz())
	r.Get("/readyz", g.handleReadyz())
	r.Method(http.MethodGet, "/metrics", g.metrics.Handler())

	mountAPI := func(r chi.Router) {
		r.Get("/status", g.handleStatus())
		r.Get("/ws/chat", g.handleChatWS())
		r.Route("/v1", func(r chi.Router) {
			r.Post("/chat", g.handleChat())
			r.Get("/sessions/{id}/history", g.handleHistory())
			r.Get("/agent/info", g.handleAgentInfo())
			r.Get("/agent/info/{session_id}", g.handleAgentInfo())
			r.Post("/knowledge", g.handleAddKnowledge())
			r.Post("/knowledge/search", g.handleSearchKnowledge())
			r.Get("/tools", g.handleListTools())
			r.Post("/tools/execute", g.handleExecuteTool())
		})
	}

	if g.config.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(g.config.Auth))
			mountAPI(r)
		})
	} else {
		mountAPI(r)
	}

	return r
}

// errorResponse is the JSON body for every non-2xx API response.
type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
