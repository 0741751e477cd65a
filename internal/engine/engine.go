// Package engine is the composition root of the recall system. It wires
// the scorer, ranker, timing engine, preference learner, feedback
// aggregator, and session manager behind a small host-facing API, and
// owns the fail-closed analysis pipeline.
//
// The engine is built for a cooperatively scheduled host: analyses and
// interaction callbacks arrive from independent entry points, so the
// shared state (active-session slot, behavior profile, feedback ring)
// is serialized behind component-level mutexes, and session install is
// serialized at the engine level.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/runger/recall/internal/content"
	"github.com/runger/recall/internal/feedback"
	"github.com/runger/recall/internal/learning"
	"github.com/runger/recall/internal/metrics"
	"github.com/runger/recall/internal/rank"
	"github.com/runger/recall/internal/relevance"
	"github.com/runger/recall/internal/session"
	"github.com/runger/recall/internal/timing"
)

// Options aggregates per-component configuration; zero values take each
// component's documented defaults.
type Options struct {
	Scorer     relevance.Config
	Ranker     rank.Config
	Timing     timing.Config
	Learner    learning.Config
	Feedback   feedback.Config
	Session    session.Config
	Extraction ExtractOptions
	Delivery   DeliveryOptions

	Logger *slog.Logger

	// Clock overrides the time source (tests).
	Clock func() time.Time
}

// Deps carries the host collaborators. Source and Repository are
// required; Scheduler, Events, and PromptFn are optional.
type Deps struct {
	Source     PageContentSource
	Repository ContentRepository
	Scheduler  NotificationScheduler
	Events     EventSource
	PromptFn   session.PromptRequestFunc
}

// AnalysisResult is the outcome of one analysis pass. Errors surface
// through OK and Diagnostic, never as panics or raw errors to the host.
type AnalysisResult struct {
	OK          bool
	SessionID   string
	Suggestions []content.ContextualSuggestion
	Diagnostic  string
}

// InteractionResult is the outcome of recording one interaction.
type InteractionResult struct {
	OK         bool
	Diagnostic string
}

// Engine coordinates the full analysis and feedback loop.
type Engine struct {
	source    PageContentSource
	repo      ContentRepository
	scheduler NotificationScheduler

	scorer     *relevance.Scorer
	ranker     *rank.Ranker
	timing     *timing.Engine
	learner    *learning.Learner
	aggregator *feedback.Aggregator
	sessions   *session.Manager
	counters   metrics.Counters

	opts  Options
	log   *slog.Logger
	clock func() time.Time

	// generation detects superseded in-flight analyses: a result is
	// discarded when a newer analysis started after it. installMu makes
	// the supersede check and the session install atomic, so a stale
	// analysis can never install after a newer one has.
	generation atomic.Int64
	installMu  sync.Mutex
}

// New creates an engine. Invalid configuration (bad scorer weights,
// missing required collaborators) fails fast here.
func New(deps Deps, opts Options) (*Engine, error) {
	if deps.Source == nil {
		return nil, fmt.Errorf("engine: page content source is required")
	}
	if deps.Repository == nil {
		return nil, fmt.Errorf("engine: content repository is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Delivery.Style == "" {
		opts.Delivery.Style = StyleContextual
	}
	if opts.Delivery.MaxConcurrent <= 0 {
		opts.Delivery.MaxConcurrent = 3
	}

	scorer, err := relevance.NewScorer(opts.Scorer)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		source:     deps.Source,
		repo:       deps.Repository,
		scheduler:  deps.Scheduler,
		scorer:     scorer,
		ranker:     rank.NewRanker(scorer, opts.Ranker),
		timing:     timing.NewEngine(opts.Timing),
		learner:    learning.NewLearner(opts.Learner),
		aggregator: feedback.NewAggregator(opts.Feedback),
		sessions:   session.NewManager(opts.Session, deps.PromptFn),
		opts:       opts,
		log:        opts.Logger,
		clock:      opts.Clock,
	}

	if deps.Events != nil {
		deps.Events.OnNavigate(func(ev NavigationEvent) {
			e.log.Debug("navigation event", "url", ev.URL)
			e.Analyze(context.Background())
		})
		deps.Events.OnVisibilityChange(func(visible bool, at time.Time) {
			if !visible {
				e.CompleteSession()
			}
		})
	}

	return e, nil
}

// Analyze runs one full analysis pass: extract the current context,
// score the corpus, adjust by learned preferences, resolve timing, and
// install the resulting session. It fails closed: an extraction error
// yields a completed zero-suggestion session with the error kept as a
// diagnostic, and an unreadable corpus degrades to zero candidates.
// An analysis superseded by a newer one discards its result instead of
// overwriting the active session.
func (e *Engine) Analyze(ctx context.Context) AnalysisResult {
	gen := e.generation.Add(1)
	now := e.clock()
	e.counters.AnalysesRun.Add(1)

	bc, err := e.source.ExtractContext(ctx, e.opts.Extraction)
	if err != nil {
		e.counters.AnalysesFailed.Add(1)
		e.log.Warn("context extraction failed", "error", err)
		// Fail closed: empty zero-confidence context, a session with
		// no suggestions, the error kept as a diagnostic. The session
		// goes straight to history as completed; there is nothing for
		// the user to interact with.
		empty := content.BrowsingContext{CapturedAt: now}
		sess := e.installFailedSession(gen, empty, err.Error(), now)
		if sess == nil {
			return supersededResult()
		}
		return AnalysisResult{OK: false, SessionID: sess.ID, Diagnostic: err.Error()}
	}

	diagnostic := ""
	corpus, err := e.repo.List(ctx, ListFilter{})
	if err != nil {
		// Unreadable corpus degrades to zero candidates; the session
		// still completes normally.
		e.counters.AnalysesFailed.Add(1)
		e.log.Warn("corpus listing failed", "error", err)
		diagnostic = err.Error()
		corpus = nil
	}

	suggestions := e.buildSuggestions(bc, corpus, now)

	sess := e.installSession(gen, bc, suggestions, diagnostic, now)
	if sess == nil {
		return supersededResult()
	}

	for _, sug := range sess.Suggestions {
		e.timing.MarkSuggested(sug.Item.ID, now)
	}
	e.counters.SuggestionsMade.Add(int64(len(sess.Suggestions)))

	if e.scheduler != nil && len(sess.Suggestions) > 0 {
		if err := e.scheduler.Deliver(ctx, sess.Suggestions, e.opts.Delivery); err != nil {
			e.log.Warn("suggestion delivery failed", "error", err, "session_id", sess.ID)
		}
	}

	return AnalysisResult{
		OK:          diagnostic == "",
		SessionID:   sess.ID,
		Suggestions: sess.Suggestions,
		Diagnostic:  diagnostic,
	}
}

// buildSuggestions runs rank, preference adjustment, and timing
// resolution over the corpus.
func (e *Engine) buildSuggestions(bc content.BrowsingContext, corpus []content.StoredItem, now time.Time) []content.ContextualSuggestion {
	ranked := e.ranker.Rank(bc, corpus, now)
	e.counters.ItemsScored.Add(int64(ranked.Scored))
	e.counters.ItemsSkipped.Add(int64(ranked.Skipped))
	if len(ranked.Matches) == 0 {
		return nil
	}

	itemsByID := make(map[string]content.StoredItem, len(corpus))
	for _, it := range corpus {
		itemsByID[it.ID] = it
	}

	adjusted := e.learner.Adjust(ranked.Matches, itemsByID, e.timing.Snapshot(), now.Hour())

	suggestions := make([]content.ContextualSuggestion, 0, len(adjusted))
	for _, m := range adjusted {
		item, ok := itemsByID[m.ItemID]
		if !ok {
			continue
		}
		plan, ok := e.timing.OptimalTiming(item, m, now)
		if !ok {
			e.counters.Suppressed.Add(1)
			continue
		}
		suggestions = append(suggestions, content.ContextualSuggestion{
			ID:     uuid.NewString(),
			Item:   item,
			Match:  m,
			Timing: plan,
		})
	}
	return suggestions
}

// installSession installs the analysis result as the new active
// session, unless a newer analysis has started, in which case the
// result is discarded and nil returned. A superseded active session
// that recorded no interactions is abandoned rather than completed.
func (e *Engine) installSession(gen int64, bc content.BrowsingContext, suggestions []content.ContextualSuggestion, diagnostic string, now time.Time) *session.Session {
	e.installMu.Lock()
	defer e.installMu.Unlock()

	if e.superseded(gen) {
		return nil
	}
	e.discardInteractionless(now)
	sess := e.sessions.Start(bc, suggestions, diagnostic, now)
	return &sess
}

// installFailedSession records a failed analysis: the session is
// appended to history already completed and the active slot stays
// empty.
func (e *Engine) installFailedSession(gen int64, bc content.BrowsingContext, diagnostic string, now time.Time) *session.Session {
	e.installMu.Lock()
	defer e.installMu.Unlock()

	if e.superseded(gen) {
		return nil
	}
	e.discardInteractionless(now)
	sess := e.sessions.StartCompleted(bc, diagnostic, now)
	return &sess
}

func (e *Engine) superseded(gen int64) bool {
	if e.generation.Load() == gen {
		return false
	}
	e.counters.AnalysesSuperseded.Add(1)
	e.log.Debug("analysis superseded, discarding result")
	return true
}

func (e *Engine) discardInteractionless(now time.Time) {
	if active, ok := e.sessions.Active(now); ok && len(active.Interactions) == 0 {
		e.sessions.Discard(now)
	}
}

func supersededResult() AnalysisResult {
	return AnalysisResult{OK: false, Diagnostic: "analysis superseded by a newer one"}
}

// RecordInteraction routes an interaction event into the active session
// and folds it into the behavior profile and feedback analytics. An
// event against no session or an unknown suggestion is acknowledged but
// ignored; late UI callbacks after navigation must not fail.
func (e *Engine) RecordInteraction(ev content.InteractionEvent) InteractionResult {
	now := e.clock()

	if !ev.Action.Valid() {
		return InteractionResult{Diagnostic: fmt.Sprintf("unknown action %q", ev.Action)}
	}

	recorded, sug, ok := e.sessions.RecordInteraction(ev, now)
	if !ok {
		return InteractionResult{OK: true, Diagnostic: "no matching active suggestion; ignored"}
	}

	e.counters.Interactions.Add(1)
	e.timing.UpdateBehavior(recorded.ItemID, recorded.At, recorded.Action.Engaged(),
		sug.Item.Category, recorded.DismissalReason)
	e.aggregator.Record(recorded)
	return InteractionResult{OK: true}
}

// CompleteSession completes the active session. Idempotent.
func (e *Engine) CompleteSession() {
	e.sessions.Complete(e.clock())
}

// DiscardSession abandons the active session without completing it.
func (e *Engine) DiscardSession() {
	e.sessions.Discard(e.clock())
}

// ActiveSession returns a copy of the active session, if any.
func (e *Engine) ActiveSession() (session.Session, bool) {
	return e.sessions.Active(e.clock())
}

// SessionHistory returns the retained finished sessions, oldest first.
func (e *Engine) SessionHistory() []session.Session {
	return e.sessions.History()
}

// Analytics returns the current feedback analytics snapshot.
func (e *Engine) Analytics() feedback.Snapshot {
	return e.aggregator.Snapshot()
}

// BehaviorProfile returns a copy of the behavior profile.
func (e *Engine) BehaviorProfile() timing.Profile {
	return e.timing.Snapshot()
}

// Metrics returns a snapshot of the observability counters.
func (e *Engine) Metrics() map[string]int64 {
	return e.counters.Snapshot()
}
