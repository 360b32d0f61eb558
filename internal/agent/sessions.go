package agent

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// NewSessionID returns a fresh opaque session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// Session is the in-process state for one conversation: a monotonic
// turn counter and an activity timestamp for idle pruning. Durable
// history lives in the store; a Session object only exists while the
// process runs and is rebuilt from the store on first use after a
// restart.
type Session struct {
	// ID is the opaque session identifier, caller-supplied or generated.
	ID string

	// CreatedAt is when this process first saw the session.
	CreatedAt time.Time

	restore sync.Once

	mu           sync.Mutex
	turnCount    int64
	lastActiveAt time.Time
}

// restoreCount seeds the turn counter from persisted history, exactly
// once per Session object. Concurrent first turns block here until the
// count is known, so none of them observes a stale zero counter.
func (s *Session) restoreCount(count func() int64) {
	s.restore.Do(func() {
		if n := count(); n > 0 {
			s.mu.Lock()
			s.turnCount = n
			s.mu.Unlock()
		}
	})
}

// nextTurn advances the counter and stamps activity.
func (s *Session) nextTurn(now time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turnCount++
	s.lastActiveAt = now
	return s.turnCount
}

// TurnCount returns the number of turns handled for this session,
// including persisted turns from before a restart.
func (s *Session) TurnCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnCount
}

// LastActiveAt returns the time of the most recent turn, or the
// creation time when no turn has run yet.
func (s *Session) LastActiveAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActiveAt
}

// sessionRegistry is the process-wide session_id → Session mapping.
// Lookups are O(1) under a read-write mutex and creation is race-free:
// concurrent first callers for the same ID share one Session object.
// The now function is injectable for deterministic tests.
type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	now func() time.Time
}

func newSessionRegistry(now func() time.Time) *sessionRegistry {
	if now == nil {
		now = time.Now
	}
	return &sessionRegistry{
		sessions: make(map[string]*Session),
		now:      now,
	}
}

// getOrCreate returns the Session for id, creating it when absent.
func (r *sessionRegistry) getOrCreate(id string) *Session {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return sess
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if sess, ok := r.sessions[id]; ok {
		return sess
	}
	now := r.now()
	sess = &Session{
		ID:           id,
		CreatedAt:    now,
		lastActiveAt: now,
	}
	r.sessions[id] = sess
	return sess
}

// get returns the Session for id, or nil.
func (r *sessionRegistry) get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// count returns the number of live sessions.
func (r *sessionRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// prune drops sessions idle longer than maxIdle and reports how many
// were dropped. Persisted turns are untouched; a pruned session is
// recreated, with its counter restored, on its next turn.
func (r *sessionRegistry) prune(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	pruned := 0
	for id, sess := range r.sessions {
		if now.Sub(sess.LastActiveAt()) > maxIdle {
			delete(r.sessions, id)
			pruned++
		}
	}
	return pruned
}
