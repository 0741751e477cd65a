// Package rank applies the relevance scorer across a corpus, filters by
// threshold, orders candidates, and truncates to the suggestion budget.
package rank

import (
	"log/slog"
	"sort"
	"time"

	"github.com/runger/recall/internal/content"
	"github.com/runger/recall/internal/relevance"
)

// Score bands for timing hints and priority tiers.
const (
	BandImmediate = 0.7
	BandDelayed   = 0.5
)

// Default configuration.
const (
	// DefaultMinScore filters out weakly related items.
	DefaultMinScore = 0.3

	// DefaultMaxResults is the per-pass suggestion budget.
	DefaultMaxResults = 5

	// MaxResultsCeiling is the largest allowed budget.
	MaxResultsCeiling = 20

	// DefaultHighImportance is the 0-10 importance rating above which a
	// match is boosted one priority tier.
	DefaultHighImportance = 7

	// DefaultFrequentAccess is the access count above which a match is
	// boosted one priority tier.
	DefaultFrequentAccess = 10
)

// Config configures the ranker.
type Config struct {
	// MinScore excludes matches scoring below it. Default 0.3.
	MinScore float64

	// MaxResults caps the output length. Default 5, ceiling 20.
	MaxResults int

	// RecencyWindow, when non-zero, restricts the corpus to items whose
	// stored timestamp falls within the window before scoring. This is
	// a cost/freshness pre-filter, not a scoring factor.
	RecencyWindow time.Duration

	// HighImportance and FrequentAccess control the priority boost.
	HighImportance int
	FrequentAccess int

	Logger *slog.Logger
}

// DefaultConfig returns the default ranker configuration.
func DefaultConfig() Config {
	return Config{
		MinScore:       DefaultMinScore,
		MaxResults:     DefaultMaxResults,
		HighImportance: DefaultHighImportance,
		FrequentAccess: DefaultFrequentAccess,
		Logger:         slog.Default(),
	}
}

// applyDefaults fills in zero-valued fields with defaults.
func (c Config) applyDefaults() Config {
	d := DefaultConfig()
	if c.MinScore <= 0 {
		c.MinScore = d.MinScore
	}
	if c.MaxResults <= 0 {
		c.MaxResults = d.MaxResults
	}
	if c.MaxResults > MaxResultsCeiling {
		c.MaxResults = MaxResultsCeiling
	}
	if c.HighImportance <= 0 {
		c.HighImportance = d.HighImportance
	}
	if c.FrequentAccess <= 0 {
		c.FrequentAccess = d.FrequentAccess
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}
	return c
}

// Ranker scores and orders corpus items against a browsing context.
type Ranker struct {
	scorer *relevance.Scorer
	cfg    Config
}

// NewRanker creates a ranker around the given scorer.
func NewRanker(scorer *relevance.Scorer, cfg Config) *Ranker {
	return &Ranker{scorer: scorer, cfg: cfg.applyDefaults()}
}

// Result carries the ranked matches plus how many corpus items were
// scored and how many were skipped as unscoreable. Items excluded by
// the recency pre-filter count toward neither.
type Result struct {
	Matches []content.RelevanceMatch
	Scored  int
	Skipped int
}

// Rank scores every corpus item against ctx, drops matches below
// MinScore, orders descending by score with ties broken by corpus
// order, and truncates to MaxResults. Malformed items are skipped, not
// fatal. An empty corpus yields an empty result.
func (r *Ranker) Rank(ctx content.BrowsingContext, corpus []content.StoredItem, now time.Time) Result {
	var res Result
	if len(corpus) == 0 {
		return res
	}

	cutoff := time.Time{}
	if r.cfg.RecencyWindow > 0 {
		cutoff = now.Add(-r.cfg.RecencyWindow)
	}

	matches := make([]content.RelevanceMatch, 0, len(corpus))
	for _, item := range corpus {
		if !cutoff.IsZero() && item.UpdatedAt.Before(cutoff) {
			continue
		}
		scored, err := r.scorer.Score(ctx, item)
		if err != nil {
			r.cfg.Logger.Debug("skipping unscoreable item", "item_id", item.ID, "error", err)
			res.Skipped++
			continue
		}
		res.Scored++
		if scored.Score < r.cfg.MinScore {
			continue
		}
		matches = append(matches, content.RelevanceMatch{
			ItemID:   item.ID,
			Score:    scored.Score,
			Reasons:  scored.Reasons,
			Timing:   TimingForScore(scored.Score),
			Priority: r.priorityFor(scored.Score, item),
		})
	}

	// Stable sort keeps corpus order for equal scores.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > r.cfg.MaxResults {
		matches = matches[:r.cfg.MaxResults]
	}
	res.Matches = matches
	return res
}

// TimingForScore maps a score to its coarse delivery band.
func TimingForScore(score float64) content.TimingHint {
	switch {
	case score > BandImmediate:
		return content.TimingImmediate
	case score > BandDelayed:
		return content.TimingDelayed
	default:
		return content.TimingBackground
	}
}

// priorityFor maps a score to a tier, boosted one tier for
// high-importance or frequently accessed items.
func (r *Ranker) priorityFor(score float64, item content.StoredItem) content.Priority {
	p := content.PriorityLow
	switch {
	case score > BandImmediate:
		p = content.PriorityHigh
	case score > BandDelayed:
		p = content.PriorityMedium
	}
	if item.Importance > r.cfg.HighImportance || item.AccessCount > r.cfg.FrequentAccess {
		p = boost(p)
	}
	return p
}

func boost(p content.Priority) content.Priority {
	switch p {
	case content.PriorityLow:
		return content.PriorityMedium
	case content.PriorityMedium:
		return content.PriorityHigh
	default:
		return content.PriorityHigh
	}
}
