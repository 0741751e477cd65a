// Package learning adjusts ranked candidates using accumulated
// engagement statistics. The adjustment is a pure transform: it may
// re-score and re-order matches but never changes set membership, which
// keeps it composable with the ranker and independently testable.
package learning

import (
	"log/slog"
	"math"
	"sort"

	"github.com/runger/recall/internal/content"
	"github.com/runger/recall/internal/timing"
)

// Config holds the learner tuning parameters.
type Config struct {
	// MaxBoost bounds the score adjustment in either direction. A
	// category the user always engages with multiplies scores by
	// 1+MaxBoost; one the user never engages with by 1-MaxBoost.
	// Default 0.25.
	MaxBoost float64

	// MinSamples is the observation count below which a bucket's
	// statistics are ignored (low-sample freeze). Default 5.
	MinSamples int

	Logger *slog.Logger
}

// DefaultConfig returns the default learner configuration.
func DefaultConfig() Config {
	return Config{
		MaxBoost:   0.25,
		MinSamples: 5,
		Logger:     slog.Default(),
	}
}

// applyDefaults fills in zero-valued fields with defaults.
func (c Config) applyDefaults() Config {
	d := DefaultConfig()
	if c.MaxBoost <= 0 {
		c.MaxBoost = d.MaxBoost
	}
	if c.MinSamples <= 0 {
		c.MinSamples = d.MinSamples
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}
	return c
}

// Learner applies preference-based score adjustment. It is stateless;
// the statistics come from the timing engine's behavior profile.
type Learner struct {
	cfg Config
}

// NewLearner creates a learner. Zero-valued config fields are replaced
// with defaults.
func NewLearner(cfg Config) *Learner {
	return &Learner{cfg: cfg.applyDefaults()}
}

// Adjust re-scores matches using category affinity and the engagement
// rate observed for the current hour, then re-sorts descending. Every
// match in one pass shares the same hour multiplier.
// Scores stay clamped to [0, 1]; the input slice is not modified and
// output membership equals input membership.
func (l *Learner) Adjust(matches []content.RelevanceMatch, items map[string]content.StoredItem, profile timing.Profile, hour int) []content.RelevanceMatch {
	if len(matches) == 0 {
		return nil
	}

	out := make([]content.RelevanceMatch, len(matches))
	copy(out, matches)

	hourMult := l.bucketMultiplier(profile.Hourly[hour%24])

	for i := range out {
		mult := hourMult
		if item, ok := items[out[i].ItemID]; ok {
			mult *= l.bucketMultiplier(profile.Categories[item.Category])
		}
		if mult != 1 {
			out[i].Score = round2(clamp01(out[i].Score * mult))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// bucketMultiplier maps an engagement rate onto [1-MaxBoost, 1+MaxBoost].
// Buckets below the sample floor contribute a neutral 1.
func (l *Learner) bucketMultiplier(stats timing.EngagementStats) float64 {
	if stats.Total < l.cfg.MinSamples {
		return 1
	}
	// Rate 0.5 is neutral; above boosts, below penalizes.
	return 1 + l.cfg.MaxBoost*(2*stats.Rate()-1)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(v, 1))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
