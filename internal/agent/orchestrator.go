// Package agent implements the session orchestrator that carries one
// conversation turn end to end: assemble context, call the generation
// backend, dispatch a tool when the reply asks for one, and persist
// the outcome.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	ctxengine "github.com/flemzord/engram/internal/context"
	"github.com/flemzord/engram/internal/memory"
	"github.com/flemzord/engram/internal/provider"
	"github.com/flemzord/engram/internal/tool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// memoryTypeSystem tags memory entries seeded by the agent itself.
const memoryTypeSystem = "system"

// tracerName is the instrumentation scope for spans from this package.
// The spans are no-ops unless the app loads a tracer provider.
const tracerName = "github.com/flemzord/engram/internal/agent"

// Orchestrator coordinates turns across sessions. It owns the
// process-wide session registry and is safe for concurrent use.
type Orchestrator struct {
	store     memory.Store
	assembler *ctxengine.Assembler
	generator provider.Generator
	tools     *tool.Registry
	sessions  *sessionRegistry
	config    Config
	logger    *slog.Logger

	// now is injectable for testing. Defaults to time.Now.
	now func() time.Time
}

// NewOrchestrator wires an orchestrator from its collaborators.
func NewOrchestrator(store memory.Store, assembler *ctxengine.Assembler, generator provider.Generator, tools *tool.Registry, logger *slog.Logger, cfg Config) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:     store,
		assembler: assembler,
		generator: generator,
		tools:     tools,
		sessions:  newSessionRegistry(time.Now),
		config:    cfg.withDefaults(),
		logger:    logger,
		now:       time.Now,
	}
}

// TurnRequest is the input for one conversation turn.
type TurnRequest struct {
	// SessionID identifies the conversation. Empty starts a new
	// session under a generated ID.
	SessionID string

	// UserInput is the raw user message.
	UserInput string

	// UseTools advertises the tool roster to the backend and enables
	// dispatch when the reply carries the tool marker.
	UseTools bool
}

// TurnResult is what the caller gets back. There is no error return:
// failures inside the turn surface as apology text in Response and are
// recorded as error turns.
type TurnResult struct {
	Response  string
	SessionID string
	TurnCount int64
	UsedTools bool
	IsError   bool
	Timestamp time.Time
}

// AgentInfo describes the agent for info surfaces.
type AgentInfo struct {
	Name           string
	Description    string
	SessionID      string
	TurnCount      int64
	AvailableTools []string
	Model          string
}

// HandleTurn runs one conversation turn:
//
//  1. Resolve or create the session and advance its turn counter.
//  2. Assemble the context string. A store failure here degrades to a
//     diagnostic context, it does not abort the turn.
//  3. Call the generation backend.
//  4. When tools are enabled and the reply reads "TOOL: <name>: <argument>",
//     dispatch through the registry and use the tool output as the
//     response.
//  5. Persist the turn with its metadata.
//
// A failure in step 3 or 5 is persisted as an error turn and returned
// as apology text. HandleTurn never propagates an internal error.
func (o *Orchestrator) HandleTurn(ctx context.Context, req TurnRequest) TurnResult {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = NewSessionID()
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "agent.turn",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	sess := o.sessions.getOrCreate(sessionID)
	sess.restoreCount(func() int64 {
		n, err := o.store.CountTurns(ctx, sessionID)
		if err != nil {
			o.logger.Warn("restoring turn count", "session_id", sessionID, "error", err)
			return 0
		}
		return n
	})

	now := o.now()
	count := sess.nextTurn(now)
	span.SetAttributes(attribute.Int64("turn.count", count))

	contextStr := o.buildContext(ctx, sessionID, req.UserInput)

	response, usedTool, err := o.respond(ctx, req, contextStr)
	if err != nil {
		return o.errorTurn(ctx, sessionID, count, now, req.UserInput, contextStr, err)
	}

	meta := map[string]any{
		"conversation_count": count,
		"timestamp":          now.Format(time.RFC3339),
	}
	if usedTool {
		meta["used_tools"] = true
	}
	if _, err := o.store.AppendTurn(ctx, sessionID, req.UserInput, response, contextStr, meta); err != nil {
		return o.errorTurn(ctx, sessionID, count, now, req.UserInput, contextStr, fmt.Errorf("recording turn: %w", err))
	}

	span.SetAttributes(attribute.Bool("turn.used_tools", usedTool))
	return TurnResult{
		Response:  response,
		SessionID: sessionID,
		TurnCount: count,
		UsedTools: usedTool,
		Timestamp: now,
	}
}

// buildContext assembles the context for a turn. Store failures come
// back as a diagnostic string so assembly never blocks generation.
func (o *Orchestrator) buildContext(ctx context.Context, sessionID, query string) string {
	result, err := o.assembler.Build(ctx, ctxengine.BuildRequest{
		SessionID: sessionID,
		Query:     query,
		MaxLength: o.config.ContextMaxLength,
	})
	if err != nil {
		o.logger.Warn("context assembly failed", "session_id", sessionID, "error", err)
		return fmt.Sprintf("Error building context: %v", err)
	}
	return result.Context
}

// respond produces the turn's agent response: the backend reply, or
// the output of the tool the backend asked for.
func (o *Orchestrator) respond(ctx context.Context, req TurnRequest, contextStr string) (response string, usedTool bool, err error) {
	var descs map[string]string
	if req.UseTools {
		descs = o.tools.Describe()
	}

	genCtx, genSpan := otel.Tracer(tracerName).Start(ctx, "agent.generate",
		trace.WithAttributes(attribute.String("gen.model", o.generator.ModelName())))
	reply, err := o.generator.Generate(genCtx, req.UserInput, contextStr, descs)
	genSpan.End()
	if err != nil {
		return "", false, err
	}

	if !req.UseTools {
		return reply, false, nil
	}
	name, argument, ok := parseToolCall(reply)
	if !ok {
		return reply, false, nil
	}

	output, err := o.ExecuteTool(ctx, name, argument)
	if err != nil {
		// Only unknown names reach here; render them as display text.
		return err.Error(), false, nil
	}
	return output, true, nil
}

// errorTurn records a failed turn and produces the apology the caller
// sees. A store failure while recording is logged and swallowed: the
// caller still gets the apology text.
func (o *Orchestrator) errorTurn(ctx context.Context, sessionID string, count int64, now time.Time, userInput, contextStr string, cause error) TurnResult {
	o.logger.Error("turn failed", "session_id", sessionID, "turn", count, "error", cause)
	trace.SpanFromContext(ctx).SetAttributes(attribute.Bool("turn.error", true))

	response := "I apologize, but I encountered an error: " + cause.Error()
	meta := map[string]any{
		"error":              true,
		"error_message":      cause.Error(),
		"conversation_count": count,
	}
	if _, err := o.store.AppendTurn(ctx, sessionID, userInput, response, contextStr, meta); err != nil {
		o.logger.Error("recording error turn", "session_id", sessionID, "error", err)
	}

	return TurnResult{
		Response:  response,
		SessionID: sessionID,
		TurnCount: count,
		IsError:   true,
		Timestamp: now,
	}
}

// ExecuteTool invokes a capability directly, outside any turn. Unknown
// names return a tool.ErrUnknownTool wrap so front ends can tell a bad
// name from a failed run; invocation failures come back as display
// text, the same as tool output anywhere else in the transcript.
func (o *Orchestrator) ExecuteTool(ctx context.Context, name, argument string) (string, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "agent.tool",
		trace.WithAttributes(attribute.String("tool.name", name)))
	defer span.End()

	c, ok := o.tools.Resolve(name)
	if !ok {
		o.logger.Warn("unknown tool requested", "tool", name)
		return "", fmt.Errorf("%w: %s", tool.ErrUnknownTool, name)
	}

	output, err := c.Invoke(ctx, argument)
	if err != nil {
		o.logger.Warn("tool invocation failed", "tool", name, "error", err)
		return fmt.Sprintf("Error executing tool '%s': %v", name, err), nil
	}
	return output, nil
}

// Bootstrap seeds the system memory entries the agent expects to find:
// its own identity and the current tool roster. Both are upserts, so a
// restart refreshes them rather than duplicating.
func (o *Orchestrator) Bootstrap(ctx context.Context) error {
	info, err := json.Marshal(map[string]any{
		"name":        o.config.Name,
		"description": o.config.Description,
		"created_at":  o.now().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("agent: encoding agent_info: %w", err)
	}
	if err := o.store.UpsertEntry(ctx, "agent_info", info, memoryTypeSystem, nil); err != nil {
		return fmt.Errorf("agent: seeding agent_info: %w", err)
	}

	names, err := json.Marshal(o.tools.Names())
	if err != nil {
		return fmt.Errorf("agent: encoding available_tools: %w", err)
	}
	if err := o.store.UpsertEntry(ctx, "available_tools", names, memoryTypeSystem, nil); err != nil {
		return fmt.Errorf("agent: seeding available_tools: %w", err)
	}
	return nil
}

// History returns the most recent turns for a session, newest first.
func (o *Orchestrator) History(ctx context.Context, sessionID string, limit int) ([]memory.Turn, error) {
	turns, err := o.store.RecentTurns(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("agent: reading history: %w", err)
	}
	return turns, nil
}

// AddKnowledge records a fact in the knowledge base. Confidence is
// clamped to [0, 1] here; the store persists whatever it is given.
func (o *Orchestrator) AddKnowledge(ctx context.Context, topic, content, source string, confidence float64) (int64, error) {
	meta := map[string]any{
		"added_by":  "agent",
		"timestamp": o.now().Format(time.RFC3339),
	}
	id, err := o.store.AppendKnowledge(ctx, topic, content, source, clampConfidence(confidence), meta)
	if err != nil {
		return 0, fmt.Errorf("agent: adding knowledge: %w", err)
	}
	return id, nil
}

// SearchKnowledge queries the knowledge base with no confidence floor,
// ranked by confidence then recency.
func (o *Orchestrator) SearchKnowledge(ctx context.Context, query string, limit int) ([]memory.Knowledge, error) {
	results, err := o.store.SearchKnowledge(ctx, query, 0, limit)
	if err != nil {
		return nil, fmt.Errorf("agent: searching knowledge: %w", err)
	}
	return results, nil
}

// Info reports the agent's identity, tool roster, and backend model.
// With a session ID it includes that session's turn count, consulting
// the store when the session is not live in this process.
func (o *Orchestrator) Info(ctx context.Context, sessionID string) (AgentInfo, error) {
	var count int64
	if sess := o.sessions.get(sessionID); sess != nil {
		count = sess.TurnCount()
	} else if sessionID != "" {
		n, err := o.store.CountTurns(ctx, sessionID)
		if err != nil {
			return AgentInfo{}, fmt.Errorf("agent: counting turns: %w", err)
		}
		count = n
	}

	return AgentInfo{
		Name:           o.config.Name,
		Description:    o.config.Description,
		SessionID:      sessionID,
		TurnCount:      count,
		AvailableTools: o.tools.Names(),
		Model:          o.generator.ModelName(),
	}, nil
}

// PruneSessions drops sessions idle longer than maxIdle and reports
// how many were dropped. Persisted history is untouched; a pruned
// session resumes with its counter restored on its next turn.
func (o *Orchestrator) PruneSessions(maxIdle time.Duration) int {
	return o.sessions.prune(maxIdle)
}

// SessionCount returns the number of sessions live in this process.
func (o *Orchestrator) SessionCount() int {
	return o.sessions.count()
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
