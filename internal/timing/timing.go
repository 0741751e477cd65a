// Package timing resolves when a matched item should be resurfaced. It
// combines the match's coarse timing band with the user's historical
// engagement patterns and enforces a minimum per-item resurfacing
// interval as a hard suppression.
package timing

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/runger/recall/internal/content"
)

// Confidence shape: below MinSamples history the confidence is flat at
// ConfidenceFloor, then rises linearly and saturates at ConfidenceCeil
// once SaturationSamples observations exist.
const (
	MinSamples        = 5
	SaturationSamples = 50
	ConfidenceFloor   = 0.3
	ConfidenceCeil    = 0.9
)

// Config holds the timing engine tuning parameters.
type Config struct {
	// MinInterval is the per-item resurfacing throttle. An item
	// suggested or engaged with inside this window is suppressed, not
	// penalized. Default 24h.
	MinInterval time.Duration

	// ImmediateDelay is the fixed offset for immediate-band matches.
	// Default 30s.
	ImmediateDelay time.Duration

	// DelayedFallback is used for delayed-band matches when no
	// engagement history identifies a better hour. Default 2h.
	DelayedFallback time.Duration

	// BackgroundDelay is the offset for background-band matches.
	// Default 6h.
	BackgroundDelay time.Duration

	// MaxHorizon bounds scheduling; a delivery resolved beyond it is
	// never fired. Default 24h.
	MaxHorizon time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() Config {
	return Config{
		MinInterval:     24 * time.Hour,
		ImmediateDelay:  30 * time.Second,
		DelayedFallback: 2 * time.Hour,
		BackgroundDelay: 6 * time.Hour,
		MaxHorizon:      24 * time.Hour,
		Logger:          slog.Default(),
	}
}

// applyDefaults fills in zero-valued fields with defaults.
func (c Config) applyDefaults() Config {
	d := DefaultConfig()
	if c.MinInterval <= 0 {
		c.MinInterval = d.MinInterval
	}
	if c.ImmediateDelay <= 0 {
		c.ImmediateDelay = d.ImmediateDelay
	}
	if c.DelayedFallback <= 0 {
		c.DelayedFallback = d.DelayedFallback
	}
	if c.BackgroundDelay <= 0 {
		c.BackgroundDelay = d.BackgroundDelay
	}
	if c.MaxHorizon <= 0 {
		c.MaxHorizon = d.MaxHorizon
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}
	return c
}

// EngagementStats counts engaged vs total observations for one bucket.
type EngagementStats struct {
	Engaged int `json:"engaged"`
	Total   int `json:"total"`
}

// Rate returns the engagement rate, or 0 with no observations.
func (s EngagementStats) Rate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Engaged) / float64(s.Total)
}

// Profile is the user behavior profile: per-hour and per-weekday
// engagement, per-category affinity, and per-item throttle state. It is
// mutated incrementally by recorded interactions and reset only by an
// explicit data import.
type Profile struct {
	Hourly     [24]EngagementStats                      `json:"hourly"`
	Daily      [7]EngagementStats                       `json:"daily"`
	Categories map[content.PageCategory]EngagementStats `json:"categories,omitempty"`

	// LastSuggested and LastEngaged drive the min-interval throttle.
	LastSuggested map[string]time.Time `json:"last_suggested,omitempty"`
	LastEngaged   map[string]time.Time `json:"last_engaged,omitempty"`
}

// NewProfile returns an empty profile with initialized maps.
func NewProfile() Profile {
	return Profile{
		Categories:    make(map[content.PageCategory]EngagementStats),
		LastSuggested: make(map[string]time.Time),
		LastEngaged:   make(map[string]time.Time),
	}
}

// normalize ensures maps exist after JSON decoding.
func (p *Profile) normalize() {
	if p.Categories == nil {
		p.Categories = make(map[content.PageCategory]EngagementStats)
	}
	if p.LastSuggested == nil {
		p.LastSuggested = make(map[string]time.Time)
	}
	if p.LastEngaged == nil {
		p.LastEngaged = make(map[string]time.Time)
	}
}

// Engine owns the behavior profile and resolves delivery times. All
// profile access is serialized through its mutex; interaction recording
// and analyses enter from independent host callbacks.
type Engine struct {
	mu      sync.Mutex
	profile Profile
	cfg     Config
}

// NewEngine creates a timing engine with an empty behavior profile.
// Zero-valued config fields are replaced with defaults.
func NewEngine(cfg Config) *Engine {
	return &Engine{profile: NewProfile(), cfg: cfg.applyDefaults()}
}

// OptimalTiming resolves the delivery plan for a match. The second
// return value is false when the item is suppressed by the minimum
// resurfacing interval or the resolved instant falls beyond MaxHorizon;
// suppressed candidates are dropped, never rescheduled.
func (e *Engine) OptimalTiming(item content.StoredItem, m content.RelevanceMatch, now time.Time) (content.ResurfacingTiming, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if last, ok := e.profile.LastSuggested[item.ID]; ok && now.Sub(last) < e.cfg.MinInterval {
		e.cfg.Logger.Debug("suppressed: recently suggested", "item_id", item.ID)
		return content.ResurfacingTiming{}, false
	}
	if last, ok := e.profile.LastEngaged[item.ID]; ok && now.Sub(last) < e.cfg.MinInterval {
		e.cfg.Logger.Debug("suppressed: recently engaged", "item_id", item.ID)
		return content.ResurfacingTiming{}, false
	}

	var (
		at     time.Time
		reason string
	)
	switch m.Timing {
	case content.TimingImmediate:
		at = now.Add(e.cfg.ImmediateDelay)
		reason = "high relevance to the current page"
	case content.TimingDelayed:
		if best, ok := e.bestHourLocked(now); ok {
			at = best
			reason = fmt.Sprintf("scheduled for your usual engagement hour (%02d:00)", best.Hour())
		} else {
			at = now.Add(e.cfg.DelayedFallback)
			reason = "moderate relevance, scheduled for later today"
		}
	default:
		at = now.Add(e.cfg.BackgroundDelay)
		reason = "background review of related material"
	}

	if at.Sub(now) > e.cfg.MaxHorizon {
		e.cfg.Logger.Debug("suppressed: beyond scheduling horizon", "item_id", item.ID)
		return content.ResurfacingTiming{}, false
	}

	return content.ResurfacingTiming{
		SuggestedAt: at,
		Confidence:  e.confidenceLocked(at.Hour(), item.Category),
		Reason:      reason,
		Urgency:     m.Priority,
	}, true
}

// bestHourLocked finds the highest-engagement hour within the next 24h.
// Hours without history are skipped; with no history at all, the
// fallback offset applies.
func (e *Engine) bestHourLocked(now time.Time) (time.Time, bool) {
	var (
		best     time.Time
		bestRate = -1.0
		found    bool
	)
	for offset := 1; offset <= 24; offset++ {
		candidate := now.Truncate(time.Hour).Add(time.Duration(offset) * time.Hour)
		stats := e.profile.Hourly[candidate.Hour()]
		if stats.Total == 0 {
			continue
		}
		if rate := stats.Rate(); rate > bestRate {
			bestRate = rate
			best = candidate
			found = true
		}
	}
	return best, found
}

// confidenceLocked derives confidence from the depth of history behind
// the chosen hour and category.
func (e *Engine) confidenceLocked(hour int, cat content.PageCategory) float64 {
	samples := e.profile.Hourly[hour].Total + e.profile.Categories[cat].Total
	if samples < MinSamples {
		return ConfidenceFloor
	}
	frac := float64(samples) / float64(SaturationSamples)
	if frac > 1 {
		frac = 1
	}
	return ConfidenceFloor + (ConfidenceCeil-ConfidenceFloor)*frac
}

// MarkSuggested records that an item was scheduled, starting its
// min-interval window.
func (e *Engine) MarkSuggested(itemID string, at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profile.LastSuggested[itemID] = at
}

// UpdateBehavior is the sole mutator of the engagement statistics. It is
// called once per recorded interaction and performs a pure incremental
// update; sparse data degrades accuracy, never errors.
func (e *Engine) UpdateBehavior(itemID string, at time.Time, engaged bool, cat content.PageCategory, reason content.DismissalReason) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bump := func(s *EngagementStats) {
		s.Total++
		if engaged {
			s.Engaged++
		}
	}
	bump(&e.profile.Hourly[at.Hour()])
	bump(&e.profile.Daily[int(at.Weekday())])
	if cat != "" {
		stats := e.profile.Categories[cat]
		bump(&stats)
		e.profile.Categories[cat] = stats
	}
	if engaged && itemID != "" {
		e.profile.LastEngaged[itemID] = at
	}
	if reason != "" {
		e.cfg.Logger.Debug("dismissal recorded", "item_id", itemID, "reason", reason)
	}
}

// Snapshot returns a deep copy of the behavior profile.
func (e *Engine) Snapshot() Profile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyProfile(e.profile)
}

// Restore replaces the behavior profile, used only by data import.
func (e *Engine) Restore(p Profile) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p.normalize()
	e.profile = copyProfile(p)
}

func copyProfile(p Profile) Profile {
	out := p
	out.Categories = make(map[content.PageCategory]EngagementStats, len(p.Categories))
	for k, v := range p.Categories {
		out.Categories[k] = v
	}
	out.LastSuggested = make(map[string]time.Time, len(p.LastSuggested))
	for k, v := range p.LastSuggested {
		out.LastSuggested[k] = v
	}
	out.LastEngaged = make(map[string]time.Time, len(p.LastEngaged))
	for k, v := range p.LastEngaged {
		out.LastEngaged[k] = v
	}
	return out
}
