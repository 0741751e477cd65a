package engine

import (
	"encoding/json"
	"fmt"

	"github.com/runger/recall/internal/content"
	"github.com/runger/recall/internal/feedback"
	"github.com/runger/recall/internal/session"
	"github.com/runger/recall/internal/timing"
)

// StateDocument is the engine's complete mutable state as one plain
// nested record. Date fields serialize as ISO-8601 (RFC 3339) strings.
// Importing truncates each collection to its configured cap.
type StateDocument struct {
	Sessions        []session.Session          `json:"sessions,omitempty"`
	BehaviorProfile timing.Profile             `json:"behavior_profile"`
	FeedbackHistory []content.InteractionEvent `json:"feedback_history,omitempty"`

	// Analytics is derived state, included for consumers that read the
	// document directly; import recomputes it from FeedbackHistory.
	Analytics feedback.Snapshot `json:"analytics"`
}

// Export captures session history, behavior profile, feedback history,
// and the derived analytics snapshot.
func (e *Engine) Export() StateDocument {
	e.counters.Exports.Add(1)
	return StateDocument{
		Sessions:        e.sessions.History(),
		BehaviorProfile: e.timing.Snapshot(),
		FeedbackHistory: e.aggregator.History(),
		Analytics:       e.aggregator.Snapshot(),
	}
}

// Import restores engine state from a document. Collections beyond the
// configured caps are truncated to the most recent entries; analytics
// are recomputed from the imported feedback history, which reproduces
// the exported snapshot exactly because the recompute is pure.
func (e *Engine) Import(doc StateDocument) {
	e.counters.Imports.Add(1)
	e.sessions.ReplaceHistory(doc.Sessions)
	e.timing.Restore(doc.BehaviorProfile)
	e.aggregator.Restore(doc.FeedbackHistory)
}

// ExportJSON serializes the state document.
func (e *Engine) ExportJSON() ([]byte, error) {
	data, err := json.MarshalIndent(e.Export(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export state: %w", err)
	}
	return data, nil
}

// ImportJSON restores state from a serialized document.
func (e *Engine) ImportJSON(data []byte) error {
	var doc StateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("import state: %w", err)
	}
	e.Import(doc)
	return nil
}
