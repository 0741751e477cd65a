// Package metrics provides atomic counters for engine observability.
// Counters are lock-free (sync/atomic) and safe for concurrent use.
package metrics

import "sync/atomic"

// Counters holds the engine's observability counters.
type Counters struct {
	AnalysesRun        atomic.Int64 // analysis passes started
	AnalysesFailed     atomic.Int64 // fail-closed analyses (extraction/storage errors)
	AnalysesSuperseded atomic.Int64 // in-flight analyses discarded by a newer one
	ItemsScored        atomic.Int64 // corpus items scored
	ItemsSkipped       atomic.Int64 // malformed items skipped during scoring
	SuggestionsMade    atomic.Int64 // suggestions installed into sessions
	Suppressed         atomic.Int64 // candidates dropped by the resurfacing throttle
	Interactions       atomic.Int64 // interaction events recorded
	Exports            atomic.Int64 // state exports
	Imports            atomic.Int64 // state imports
}

// Snapshot returns a point-in-time copy of all counters. Per-field
// consistent, not transactional across fields.
func (c *Counters) Snapshot() map[string]int64 {
	return map[string]int64{
		"analyses_run":        c.AnalysesRun.Load(),
		"analyses_failed":     c.AnalysesFailed.Load(),
		"analyses_superseded": c.AnalysesSuperseded.Load(),
		"items_scored":        c.ItemsScored.Load(),
		"items_skipped":       c.ItemsSkipped.Load(),
		"suggestions_made":    c.SuggestionsMade.Load(),
		"suppressed":          c.Suppressed.Load(),
		"interactions":        c.Interactions.Load(),
		"exports":             c.Exports.Load(),
		"imports":             c.Imports.Load(),
	}
}

// Reset zeroes all counters. Useful for test isolation.
func (c *Counters) Reset() {
	c.AnalysesRun.Store(0)
	c.AnalysesFailed.Store(0)
	c.AnalysesSuperseded.Store(0)
	c.ItemsScored.Store(0)
	c.ItemsSkipped.Store(0)
	c.SuggestionsMade.Store(0)
	c.Suppressed.Store(0)
	c.Interactions.Store(0)
	c.Exports.Store(0)
	c.Imports.Store(0)
}
