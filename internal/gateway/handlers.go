package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/flemzord/engram/internal/agent"
	"github.com/flemzord/engram/internal/memory"
	"github.com/flemzord/engram/internal/tool"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
	defaultSearchLimit  = 5
	maxSearchLimit      = 20
)

// tracerName is the instrumentation scope for spans from this package.
const tracerName = "github.com/flemzord/engram/internal/gateway"

// chatRequest is the body of POST /v1/chat and of each /ws/chat frame.
// An empty session_id starts a new session; use_tools defaults to true.
type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	UseTools  *bool  `json:"use_tools,omitempty"`
}

// chatResponse mirrors agent.TurnResult on the wire.
type chatResponse struct {
	Response          string    `json:"response"`
	SessionID         string    `json:"session_id"`
	ConversationCount int64     `json:"conversation_count"`
	Timestamp         time.Time `json:"timestamp"`
	UsedTools         bool      `json:"used_tools"`
}

// runTurn drives one turn through the orchestrator and records turn
// metrics. Shared by the HTTP and WebSocket chat paths.
func (g *Gateway) runTurn(r *http.Request, req chatRequest) chatResponse {
	useTools := true
	if req.UseTools != nil {
		useTools = *req.UseTools
	}

	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "gateway.turn")
	defer span.End()

	start := time.Now()
	res := g.orch.HandleTurn(ctx, agent.TurnRequest{
		SessionID: req.SessionID,
		UserInput: req.Message,
		UseTools:  useTools,
	})
	g.metrics.RecordTurn(res.IsError, time.Since(start))

	span.SetAttributes(
		attribute.String("session.id", res.SessionID),
		attribute.Bool("turn.error", res.IsError),
	)
	return chatResponse{
		Response:          res.Response,
		SessionID:         res.SessionID,
		ConversationCount: res.TurnCount,
		Timestamp:         res.Timestamp,
		UsedTools:         res.UsedTools,
	}
}

// handleChat serves POST /v1/chat.
func (g *Gateway) handleChat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		if req.Message == "" {
			respondError(w, http.StatusBadRequest, "message is required")
			return
		}

		respondJSON(w, http.StatusOK, g.runTurn(r, req))
	}
}

// turnJSON is a serializable conversation turn.
type turnJSON struct {
	ID            int64          `json:"id"`
	Timestamp     time.Time      `json:"timestamp"`
	UserInput     string         `json:"user_input"`
	AgentResponse string         `json:"agent_response"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// historyResponse is the body of GET /v1/sessions/{id}/history.
type historyResponse struct {
	SessionID  string     `json:"session_id"`
	Turns      []turnJSON `json:"turns"`
	TotalCount int        `json:"total_count"`
}

// handleHistory serves GET /v1/sessions/{id}/history?limit=N.
// Turns come back most recent first.
func (g *Gateway) handleHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "id")

		limit := defaultHistoryLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > maxHistoryLimit {
				respondError(w, http.StatusBadRequest, "limit must be an integer between 1 and 100")
				return
			}
			limit = n
		}

		turns, err := g.orch.History(r.Context(), sessionID, limit)
		if err != nil {
			g.logger.Error("history read failed", "session_id", sessionID, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to read history")
			return
		}

		out := make([]turnJSON, 0, len(turns))
		for _, t := range turns {
			out = append(out, turnJSON{
				ID:            t.ID,
				Timestamp:     t.Timestamp,
				UserInput:     t.UserInput,
				AgentResponse: t.AgentResponse,
				Metadata:      t.Metadata,
			})
		}

		respondJSON(w, http.StatusOK, historyResponse{
			SessionID:  sessionID,
			Turns:      out,
			TotalCount: len(out),
		})
	}
}

// agentInfoJSON is the body of GET /v1/agent/info[/{session_id}].
type agentInfoJSON struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Model             string   `json:"model"`
	SessionID         string   `json:"session_id,omitempty"`
	ConversationCount int64    `json:"conversation_count"`
	AvailableTools    []string `json:"available_tools"`
}

// handleAgentInfo serves GET /v1/agent/info and its per-session variant.
func (g *Gateway) handleAgentInfo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "session_id")

		info, err := g.orch.Info(r.Context(), sessionID)
		if err != nil {
			g.logger.Error("agent info failed", "session_id", sessionID, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to read agent info")
			return
		}

		respondJSON(w, http.StatusOK, agentInfoJSON{
			Name:              info.Name,
			Description:       info.Description,
			Model:             info.Model,
			SessionID:         info.SessionID,
			ConversationCount: info.TurnCount,
			AvailableTools:    info.AvailableTools,
		})
	}
}

// knowledgeRequest is the body of POST /v1/knowledge. Confidence
// defaults to 1.0 and is clamped to [0,1].
type knowledgeRequest struct {
	Topic      string   `json:"topic"`
	Content    string   `json:"content"`
	Source     string   `json:"source,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// knowledgeAddedResponse is the body of a successful POST /v1/knowledge.
type knowledgeAddedResponse struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// handleAddKnowledge serves POST /v1/knowledge.
func (g *Gateway) handleAddKnowledge() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req knowledgeRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		if req.Topic == "" || req.Content == "" {
			respondError(w, http.StatusBadRequest, "topic and content are required")
			return
		}

		confidence := 1.0
		if req.Confidence != nil {
			confidence = *req.Confidence
		}

		id, err := g.orch.AddKnowledge(r.Context(), req.Topic, req.Content, req.Source, confidence)
		if err != nil {
			g.logger.Error("knowledge write failed", "topic", req.Topic, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to add knowledge")
			return
		}

		respondJSON(w, http.StatusOK, knowledgeAddedResponse{ID: id, Status: "added"})
	}
}

// searchRequest is the body of POST /v1/knowledge/search.
type searchRequest struct {
	Query string `json:"query"`
	Limit *int   `json:"limit,omitempty"`
}

// knowledgeJSON is a serializable knowledge entry.
type knowledgeJSON struct {
	ID         int64     `json:"id"`
	Topic      string    `json:"topic"`
	Content    string    `json:"content"`
	Source     string    `json:"source,omitempty"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// searchResponse is the body of POST /v1/knowledge/search. Results are
// ordered by confidence descending, then recency.
type searchResponse struct {
	Results    []knowledgeJSON `json:"results"`
	TotalFound int             `json:"total_found"`
}

// handleSearchKnowledge serves POST /v1/knowledge/search.
func (g *Gateway) handleSearchKnowledge() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		if req.Query == "" {
			respondError(w, http.StatusBadRequest, "query is required")
			return
		}

		limit := defaultSearchLimit
		if req.Limit != nil {
			if *req.Limit < 1 || *req.Limit > maxSearchLimit {
				respondError(w, http.StatusBadRequest, "limit must be between 1 and 20")
				return
			}
			limit = *req.Limit
		}

		results, err := g.orch.SearchKnowledge(r.Context(), req.Query, limit)
		if err != nil {
			g.logger.Error("knowledge search failed", "query", req.Query, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to search knowledge")
			return
		}

		out := make([]knowledgeJSON, 0, len(results))
		for _, k := range results {
			out = append(out, knowledgeJSON{
				ID:         k.ID,
				Topic:      k.Topic,
				Content:    k.Content,
				Source:     k.Source,
				Confidence: k.Confidence,
				CreatedAt:  k.CreatedAt,
			})
		}

		respondJSON(w, http.StatusOK, searchResponse{Results: out, TotalFound: len(out)})
	}
}

// toolsResponse is the body of GET /v1/tools.
type toolsResponse struct {
	Tools      map[string]string `json:"tools"`
	TotalCount int               `json:"total_count"`
}

// handleListTools serves GET /v1/tools.
func (g *Gateway) handleListTools() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		tools := map[string]string{}
		if g.tools != nil {
			tools = g.tools.Describe()
		}
		respondJSON(w, http.StatusOK, toolsResponse{Tools: tools, TotalCount: len(tools)})
	}
}

// executeToolRequest is the body of POST /v1/tools/execute.
type executeToolRequest struct {
	Tool     string `json:"tool"`
	Argument string `json:"argument,omitempty"`
}

// executeToolResponse is the body of a successful POST /v1/tools/execute.
// Tool failures are part of the output text, the same as in a chat turn.
type executeToolResponse struct {
	Tool   string `json:"tool"`
	Output string `json:"output"`
}

// handleExecuteTool serves POST /v1/tools/execute. Unknown tool names
// return 404.
func (g *Gateway) handleExecuteTool() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req executeToolRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		if req.Tool == "" {
			respondError(w, http.StatusBadRequest, "tool is required")
			return
		}

		output, err := g.orch.ExecuteTool(r.Context(), req.Tool, req.Argument)
		if err != nil {
			if errors.Is(err, tool.ErrUnknownTool) {
				respondError(w, http.StatusNotFound, err.Error())
				return
			}
			g.logger.Error("tool execution failed", "tool", req.Tool, "error", err)
			respondError(w, http.StatusInternalServerError, "tool execution failed")
			return
		}
		g.metrics.RecordToolRun(req.Tool)

		respondJSON(w, http.StatusOK, executeToolResponse{Tool: req.Tool, Output: output})
	}
}

// decodeJSON decodes a request body, capping it at 1 MiB.
func decodeJSON(r *http.Request, out any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(out)
}

// statsOrZero reads store stats, returning zeros when the store is
// missing or failing. Used by surfaces that must not fail on a store
// hiccup.
func (g *Gateway) statsOrZero(r *http.Request) memory.Stats {
	if g.store == nil {
		return memory.Stats{}
	}
	stats, err := g.store.Stats(r.Context())
	if err != nil {
		g.logger.Warn("store stats failed", "error", err)
		return memory.Stats{}
	}
	return stats
}
