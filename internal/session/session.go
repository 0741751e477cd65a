// Package session owns the analysis-session lifecycle: creation,
// suggestion attachment, interaction recording, completion or
// abandonment, and bounded history retention. At most one session is
// active at any time.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/runger/recall/internal/content"
	"github.com/runger/recall/internal/ringbuf"
)

// Status is the lifecycle state of a session. Terminal states are never
// left once set.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// Session aggregates one analysis pass: the triggering context, the
// ranked suggestions, and the ordered interaction log.
type Session struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`

	Context     content.BrowsingContext        `json:"context"`
	Suggestions []content.ContextualSuggestion `json:"suggestions,omitempty"`

	// Interactions is append-only, in arrival order.
	Interactions []content.InteractionEvent `json:"interactions,omitempty"`

	Status Status `json:"status"`

	// Diagnostic carries the failure description for fail-closed
	// sessions; the error itself never propagates to the host.
	Diagnostic string `json:"diagnostic,omitempty"`
}

// Config holds the session manager configuration.
type Config struct {
	// HistoryCap bounds retained completed sessions. Default 50.
	HistoryCap int

	// MaxSuggestions caps the per-session suggestion list. Default 5.
	MaxSuggestions int

	// Timeout is the advisory session age limit, enforced lazily: any
	// operation that touches the active slot first expires a stale
	// session. Default 30m.
	Timeout time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns the default session manager configuration.
func DefaultConfig() Config {
	return Config{
		HistoryCap:     50,
		MaxSuggestions: 5,
		Timeout:        30 * time.Minute,
		Logger:         slog.Default(),
	}
}

// applyDefaults fills in zero-valued fields with defaults.
func (c Config) applyDefaults() Config {
	d := DefaultConfig()
	if c.HistoryCap <= 0 {
		c.HistoryCap = d.HistoryCap
	}
	if c.MaxSuggestions <= 0 {
		c.MaxSuggestions = d.MaxSuggestions
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}
	return c
}

// PromptRequestFunc is the side channel used to ask the host UI for a
// dismissal reason when a suggestion was dismissed without one.
type PromptRequestFunc func(suggestionID, itemID string)

// Manager owns the single active-session slot and the completed-session
// history ring. All access is serialized through its mutex because
// interaction recording and new analyses enter from independent host
// callbacks.
type Manager struct {
	mu       sync.Mutex
	active   *Session
	history  *ringbuf.Ring[Session]
	promptFn PromptRequestFunc
	cfg      Config
}

// NewManager creates a session manager. promptFn may be nil to disable
// dismissal-reason prompts.
func NewManager(cfg Config, promptFn PromptRequestFunc) *Manager {
	cfg = cfg.applyDefaults()
	return &Manager{
		history:  ringbuf.New[Session](cfg.HistoryCap),
		promptFn: promptFn,
		cfg:      cfg,
	}
}

// Start installs a new active session. An existing active session is
// completed first so the single-active invariant holds at every point.
// The suggestion list is truncated to the per-session cap.
func (m *Manager) Start(ctx content.BrowsingContext, suggestions []content.ContextualSuggestion, diagnostic string, now time.Time) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.finishLocked(StatusCompleted, now)

	if len(suggestions) > m.cfg.MaxSuggestions {
		suggestions = suggestions[:m.cfg.MaxSuggestions]
	}
	s := &Session{
		ID:          uuid.NewString(),
		StartedAt:   now,
		Context:     ctx,
		Suggestions: append([]content.ContextualSuggestion(nil), suggestions...),
		Status:      StatusActive,
		Diagnostic:  diagnostic,
	}
	m.active = s
	m.cfg.Logger.Debug("session started", "session_id", s.ID, "suggestions", len(s.Suggestions))
	return copySession(*s)
}

// StartCompleted records an analysis that can never become
// interactive. Any prior active session is finished first, then a new
// session carrying the diagnostic is appended to history already in
// the completed state. The active slot stays empty.
func (m *Manager) StartCompleted(ctx content.BrowsingContext, diagnostic string, now time.Time) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.finishLocked(StatusCompleted, now)

	s := Session{
		ID:         uuid.NewString(),
		StartedAt:  now,
		EndedAt:    now,
		Context:    ctx,
		Status:     StatusCompleted,
		Diagnostic: diagnostic,
	}
	m.history.Push(s)
	m.cfg.Logger.Debug("session recorded completed", "session_id", s.ID, "diagnostic", diagnostic)
	return copySession(s)
}

// RecordInteraction appends an interaction to the active session. It is
// a silent no-op when no session is active or the suggestion is unknown:
// late-arriving UI events after navigation must not fail the pipeline.
// The event's context snapshot is filled from the matched suggestion.
// A dismissal without a reason triggers the reason-prompt side channel.
// Returns the completed event, the matched suggestion, and true when
// the event was recorded.
func (m *Manager) RecordInteraction(ev content.InteractionEvent, now time.Time) (content.InteractionEvent, content.ContextualSuggestion, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expireLocked(now)
	if m.active == nil {
		m.cfg.Logger.Debug("interaction ignored: no active session", "suggestion_id", ev.SuggestionID)
		return content.InteractionEvent{}, content.ContextualSuggestion{}, false
	}

	var target *content.ContextualSuggestion
	for i := range m.active.Suggestions {
		if m.active.Suggestions[i].ID == ev.SuggestionID {
			target = &m.active.Suggestions[i]
			break
		}
	}
	if target == nil {
		m.cfg.Logger.Debug("interaction ignored: unknown suggestion",
			"session_id", m.active.ID, "suggestion_id", ev.SuggestionID)
		return content.InteractionEvent{}, content.ContextualSuggestion{}, false
	}

	if ev.At.IsZero() {
		ev.At = now
	}
	ev.ItemID = target.Item.ID
	ev.Score = target.Match.Score
	ev.Urgency = target.Timing.Urgency
	ev.Priority = target.Match.Priority

	m.active.Interactions = append(m.active.Interactions, ev)

	if ev.Action == content.ActionDismissed && ev.DismissalReason == "" && m.promptFn != nil {
		m.promptFn(target.ID, target.Item.ID)
	}
	return ev, *target, true
}

// Complete finishes the active session and appends it to history. It is
// idempotent; with no active session it does nothing.
func (m *Manager) Complete(now time.Time) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finishLocked(StatusCompleted, now)
}

// Discard abandons the active session and appends it to history. This
// is the explicit abandonment trigger for superseded analyses.
func (m *Manager) Discard(now time.Time) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finishLocked(StatusAbandoned, now)
}

// Active returns a copy of the active session, expiring it first if it
// has outlived the configured timeout.
func (m *Manager) Active(now time.Time) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expireLocked(now)
	if m.active == nil {
		return Session{}, false
	}
	return copySession(*m.active), true
}

// History returns the retained finished sessions, oldest first.
func (m *Manager) History() []Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := m.history.Items()
	out := make([]Session, len(items))
	for i, s := range items {
		out[i] = copySession(s)
	}
	return out
}

// ReplaceHistory replaces the retained history, truncated to the cap
// with the most recent sessions kept. Used only by data import.
func (m *Manager) ReplaceHistory(sessions []Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history.Replace(sessions)
}

// ExpireIfStale completes the active session if it has outlived the
// timeout. Returns true if a session was expired.
func (m *Manager) ExpireIfStale(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expireLocked(now)
}

// expireLocked implements the lazy timeout.
func (m *Manager) expireLocked(now time.Time) bool {
	if m.active == nil || now.Sub(m.active.StartedAt) <= m.cfg.Timeout {
		return false
	}
	m.cfg.Logger.Debug("session expired", "session_id", m.active.ID)
	_, ok := m.finishLocked(StatusCompleted, now)
	return ok
}

// finishLocked moves the active session to history in the given
// terminal status and clears the active slot.
func (m *Manager) finishLocked(status Status, now time.Time) (Session, bool) {
	if m.active == nil {
		return Session{}, false
	}
	m.active.Status = status
	m.active.EndedAt = now
	finished := *m.active
	m.history.Push(finished)
	m.active = nil
	m.cfg.Logger.Debug("session finished", "session_id", finished.ID, "status", status)
	return copySession(finished), true
}

// copySession deep-copies the slices so callers cannot mutate
// manager-owned state.
func copySession(s Session) Session {
	s.Suggestions = append([]content.ContextualSuggestion(nil), s.Suggestions...)
	s.Interactions = append([]content.InteractionEvent(nil), s.Interactions...)
	return s
}
