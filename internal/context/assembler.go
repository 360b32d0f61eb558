// Package ctxengine assembles the bounded context string handed to the
// generation backend before each turn: recent conversation turns plus a
// few relevant memory entries, hard-capped at a configured length.
package ctxengine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/flemzord/engram/internal/memory"
)

// DefaultMaxLength is the context cap applied when a request does not
// set one.
const DefaultMaxLength = 2000

const (
	truncationMarker = "..."

	// Relevance terms shorter than this are noise ("is", "my", "ok").
	minTermLength = 3

	// maxQueryTerms bounds store round-trips per assembly.
	maxQueryTerms = 8
)

// Source is the slice of the store the assembler reads from.
type Source interface {
	memory.HistoryStore
	memory.EntryStore
}

// Config holds the tuning knobs for context assembly.
type Config struct {
	// TurnWindow is the number of recent turns included. 0 means 5.
	TurnWindow int

	// EntryWindow is the number of memory entries included. 0 means 3.
	EntryWindow int
}

// withDefaults returns a copy of cfg with zero-valued fields replaced.
func (cfg Config) withDefaults() Config {
	if cfg.TurnWindow == 0 {
		cfg.TurnWindow = 5
	}
	if cfg.EntryWindow == 0 {
		cfg.EntryWindow = 3
	}
	return cfg
}

// BuildRequest contains the inputs for one assembly.
type BuildRequest struct {
	// SessionID identifies the conversation.
	SessionID string

	// Query is the relevance signal for memory retrieval, normally the
	// current user input. Empty falls back to the session ID.
	Query string

	// MaxLength caps the assembled string in bytes, including the
	// truncation marker. 0 means DefaultMaxLength.
	MaxLength int
}

// Result is the outcome of one assembly.
type Result struct {
	// Context is the assembled string.
	Context string

	// Turns and Entries count what went into the string.
	Turns   int
	Entries int

	// Truncated reports whether the rendered content exceeded MaxLength.
	Truncated bool
}

// Assembler builds context strings from the session store.
type Assembler struct {
	source Source
	logger *slog.Logger
	config Config
}

// NewAssembler creates an Assembler reading from the given source.
func NewAssembler(source Source, logger *slog.Logger, cfg Config) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		source: source,
		logger: logger,
		config: cfg.withDefaults(),
	}
}

// Build assembles the context for a session. It returns an error only
// when the store fails; callers convert that to a diagnostic context
// string so assembly never blocks generation.
//
// Presentation follows the transcript convention: a "Recent
// conversation:" block of alternating User/Agent lines, oldest turn
// first, then a "Relevant memories:" block of "- key: value" lines.
func (a *Assembler) Build(ctx context.Context, req BuildRequest) (Result, error) {
	maxLength := req.MaxLength
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	turns, err := a.source.RecentTurns(ctx, req.SessionID, a.config.TurnWindow)
	if err != nil {
		return Result{}, fmt.Errorf("ctxengine: recent turns: %w", err)
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		query = req.SessionID
	}
	entries, err := a.relevantEntries(ctx, query, a.config.EntryWindow)
	if err != nil {
		return Result{}, fmt.Errorf("ctxengine: search entries: %w", err)
	}

	var parts []string
	if len(turns) > 0 {
		parts = append(parts, "Recent conversation:")
		// RecentTurns returns most-recent-first; present oldest-first.
		for i := len(turns) - 1; i >= 0; i-- {
			parts = append(parts, "User: "+turns[i].UserInput)
			parts = append(parts, "Agent: "+turns[i].AgentResponse)
		}
	}
	if len(entries) > 0 {
		parts = append(parts, "\nRelevant memories:")
		for _, entry := range entries {
			parts = append(parts, "- "+entry.Key+": "+renderValue(entry.Value))
		}
	}

	rendered := strings.Join(parts, "\n")
	out, truncated := truncate(rendered, maxLength)
	if truncated {
		a.logger.Debug("context truncated",
			"session_id", req.SessionID,
			"rendered_bytes", len(rendered),
			"max_length", maxLength)
	}

	return Result{
		Context:   out,
		Turns:     len(turns),
		Entries:   len(entries),
		Truncated: truncated,
	}, nil
}

// relevantEntries retrieves up to limit entries for the query. The query
// is split into terms and each term searched separately, so an entry is
// relevant when it contains any meaningful word of the user input.
// Results are deduplicated by key, keeping per-term recency order.
func (a *Assembler) relevantEntries(ctx context.Context, query string, limit int) ([]memory.Entry, error) {
	terms := queryTerms(query, maxQueryTerms)
	if len(terms) == 0 {
		return nil, nil
	}

	seen := make(map[string]bool, limit)
	var out []memory.Entry
	for _, term := range terms {
		if len(out) >= limit {
			break
		}
		entries, err := a.source.SearchEntries(ctx, term, "", limit)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if seen[entry.Key] {
				continue
			}
			seen[entry.Key] = true
			out = append(out, entry)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// queryTerms extracts up to max search terms from free text: words of at
// least minTermLength runes, punctuation stripped, original order.
func queryTerms(query string, max int) []string {
	fields := strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-'
	})

	terms := make([]string, 0, len(fields))
	for _, field := range fields {
		if utf8.RuneCountInString(field) < minTermLength {
			continue
		}
		terms = append(terms, field)
		if len(terms) >= max {
			break
		}
	}
	return terms
}

// renderValue formats an entry value for the memories block. JSON string
// values render bare; anything else renders as its raw JSON text.
func renderValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// truncate caps s at max bytes. When content is cut, the marker replaces
// the tail so the result still fits max. The cut never splits a UTF-8
// rune.
func truncate(s string, max int) (string, bool) {
	if len(s) <= max {
		return s, false
	}
	if max <= len(truncationMarker) {
		return truncationMarker[:max], true
	}
	cut := max - len(truncationMarker)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncationMarker, true
}
