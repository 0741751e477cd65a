// Package feedback ingests interaction events and maintains running
// analytics over a bounded history: action distribution, ratings,
// contextual effectiveness breakdowns, and a trend classification. The
// snapshot is always a pure function of the retained history.
package feedback

import (
	"log/slog"
	"time"

	"github.com/runger/recall/internal/content"
	"github.com/runger/recall/internal/ringbuf"
)

// DefaultCapacity is the retained feedback history cap.
const DefaultCapacity = 1000

// Trend classification values.
const (
	TrendImproving    = "improving"
	TrendDeclining    = "declining"
	TrendStable       = "stable"
	TrendInsufficient = "insufficient_data"
)

// Config holds the aggregator configuration.
type Config struct {
	// Capacity bounds the retained history. Default 1000.
	Capacity int

	// TrendWindow is the recent window compared against all-time
	// engagement. Default 7 days.
	TrendWindow time.Duration

	// TrendDeadZone is the engagement-rate difference (in absolute
	// rate, i.e. percentage points / 100) inside which the trend is
	// classified stable. Default 0.05.
	TrendDeadZone float64

	// MinTrendSamples is the event count below which the trend is
	// insufficient_data. Default 10.
	MinTrendSamples int

	Logger *slog.Logger
}

// DefaultConfig returns the default aggregator configuration.
func DefaultConfig() Config {
	return Config{
		Capacity:        DefaultCapacity,
		TrendWindow:     7 * 24 * time.Hour,
		TrendDeadZone:   0.05,
		MinTrendSamples: 10,
		Logger:          slog.Default(),
	}
}

// applyDefaults fills in zero-valued fields with defaults.
func (c Config) applyDefaults() Config {
	d := DefaultConfig()
	if c.Capacity <= 0 {
		c.Capacity = d.Capacity
	}
	if c.TrendWindow <= 0 {
		c.TrendWindow = d.TrendWindow
	}
	if c.TrendDeadZone <= 0 {
		c.TrendDeadZone = d.TrendDeadZone
	}
	if c.MinTrendSamples <= 0 {
		c.MinTrendSamples = d.MinTrendSamples
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}
	return c
}

// Effectiveness is an engagement breakdown bucket.
type Effectiveness struct {
	Engaged int     `json:"engaged"`
	Total   int     `json:"total"`
	Rate    float64 `json:"rate"`
}

// Snapshot is the derived analytics view. It is recomputed from the
// full retained history on every recorded event and never hand-edited.
type Snapshot struct {
	TotalEvents int `json:"total_events"`

	// Actions is the action distribution.
	Actions map[content.InteractionAction]int `json:"actions,omitempty"`

	// DismissalReasons is the dismissal-reason histogram.
	DismissalReasons map[content.DismissalReason]int `json:"dismissal_reasons,omitempty"`

	// AverageRating is the mean of explicit ratings; events without a
	// rating are excluded rather than counted as zero.
	AverageRating float64 `json:"average_rating"`
	RatedCount    int     `json:"rated_count"`

	// EngagementRate is engaged events / total events.
	EngagementRate float64 `json:"engagement_rate"`

	// AverageEngagementMs is the mean engagement duration over events
	// that carry one.
	AverageEngagementMs float64 `json:"average_engagement_ms"`
	EngagementSamples   int     `json:"engagement_samples"`

	// Contextual effectiveness breakdowns.
	ByHour     [24]Effectiveness        `json:"by_hour"`
	ByDay      [7]Effectiveness         `json:"by_day"`
	ByDevice   map[string]Effectiveness `json:"by_device,omitempty"`
	ByPosition map[int]Effectiveness    `json:"by_position,omitempty"`

	// Trend compares the recent window's engagement rate against the
	// all-time rate with a dead zone around stable.
	Trend string `json:"trend"`
}

// Aggregator retains a capped feedback history and its derived
// analytics snapshot.
type Aggregator struct {
	ring     *ringbuf.Ring[content.InteractionEvent]
	snapshot Snapshot
	cfg      Config
}

// NewAggregator creates an aggregator with an empty history. Zero-valued
// config fields are replaced with defaults.
func NewAggregator(cfg Config) *Aggregator {
	cfg = cfg.applyDefaults()
	a := &Aggregator{
		ring: ringbuf.New[content.InteractionEvent](cfg.Capacity),
		cfg:  cfg,
	}
	a.snapshot = Recompute(nil, cfg)
	return a
}

// Record validates and appends an event, then recomputes the snapshot
// from the full retained history. Invalid actions are dropped with a
// debug log rather than an error; late UI events must not fail the
// pipeline.
func (a *Aggregator) Record(ev content.InteractionEvent) {
	if !ev.Action.Valid() {
		a.cfg.Logger.Debug("dropping feedback with unknown action", "action", ev.Action)
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	a.ring.Push(ev)
	a.snapshot = Recompute(a.ring.Items(), a.cfg)
}

// Snapshot returns the current analytics snapshot.
func (a *Aggregator) Snapshot() Snapshot { return a.snapshot }

// History returns the retained events, oldest first.
func (a *Aggregator) History() []content.InteractionEvent {
	return a.ring.Items()
}

// Restore replaces the history (truncated to capacity, most recent
// kept) and recomputes. Used only by data import.
func (a *Aggregator) Restore(events []content.InteractionEvent) {
	a.ring.Replace(events)
	a.snapshot = Recompute(a.ring.Items(), a.cfg)
}

// Recompute folds the retained history into a Snapshot. It is a pure
// function of its inputs: the trend window is anchored on the newest
// event's timestamp, so identical histories always yield identical
// snapshots. Optional fields (ratings, durations) are excluded from
// averages when absent.
func Recompute(history []content.InteractionEvent, cfg Config) Snapshot {
	cfg = cfg.applyDefaults()

	snap := Snapshot{
		Actions:          make(map[content.InteractionAction]int),
		DismissalReasons: make(map[content.DismissalReason]int),
		ByDevice:         make(map[string]Effectiveness),
		ByPosition:       make(map[int]Effectiveness),
		Trend:            TrendInsufficient,
	}
	if len(history) == 0 {
		return snap
	}

	var (
		engaged       int
		ratingSum     int
		engagementSum int64
		newest        time.Time
	)

	for _, ev := range history {
		snap.TotalEvents++
		snap.Actions[ev.Action]++
		if ev.Action == content.ActionDismissed && ev.DismissalReason != "" {
			snap.DismissalReasons[ev.DismissalReason]++
		}
		if ev.Rating != nil {
			ratingSum += *ev.Rating
			snap.RatedCount++
		}
		if ev.EngagementMs != nil {
			engagementSum += *ev.EngagementMs
			snap.EngagementSamples++
		}
		isEngaged := ev.Action.Engaged()
		if isEngaged {
			engaged++
		}
		bumpBucket(&snap.ByHour[ev.At.Hour()], isEngaged)
		bumpBucket(&snap.ByDay[int(ev.At.Weekday())], isEngaged)
		if ev.DeviceType != "" {
			b := snap.ByDevice[ev.DeviceType]
			bumpBucket(&b, isEngaged)
			snap.ByDevice[ev.DeviceType] = b
		}
		if ev.Position > 0 {
			b := snap.ByPosition[ev.Position]
			bumpBucket(&b, isEngaged)
			snap.ByPosition[ev.Position] = b
		}
		if ev.At.After(newest) {
			newest = ev.At
		}
	}

	snap.EngagementRate = float64(engaged) / float64(snap.TotalEvents)
	if snap.RatedCount > 0 {
		snap.AverageRating = float64(ratingSum) / float64(snap.RatedCount)
	}
	if snap.EngagementSamples > 0 {
		snap.AverageEngagementMs = float64(engagementSum) / float64(snap.EngagementSamples)
	}
	finalizeRates(snap.ByHour[:])
	finalizeRates(snap.ByDay[:])
	for k, b := range snap.ByDevice {
		b.Rate = rate(b)
		snap.ByDevice[k] = b
	}
	for k, b := range snap.ByPosition {
		b.Rate = rate(b)
		snap.ByPosition[k] = b
	}

	snap.Trend = classifyTrend(history, newest, snap.EngagementRate, cfg)
	return snap
}

// classifyTrend compares recent-window engagement to the all-time rate.
func classifyTrend(history []content.InteractionEvent, newest time.Time, allTimeRate float64, cfg Config) string {
	if len(history) < cfg.MinTrendSamples {
		return TrendInsufficient
	}
	windowStart := newest.Add(-cfg.TrendWindow)
	recentTotal, recentEngaged := 0, 0
	for _, ev := range history {
		if ev.At.Before(windowStart) {
			continue
		}
		recentTotal++
		if ev.Action.Engaged() {
			recentEngaged++
		}
	}
	if recentTotal == 0 {
		return TrendInsufficient
	}
	delta := float64(recentEngaged)/float64(recentTotal) - allTimeRate
	switch {
	case delta > cfg.TrendDeadZone:
		return TrendImproving
	case delta < -cfg.TrendDeadZone:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func bumpBucket(b *Effectiveness, engaged bool) {
	b.Total++
	if engaged {
		b.Engaged++
	}
}

func finalizeRates(buckets []Effectiveness) {
	for i := range buckets {
		buckets[i].Rate = rate(buckets[i])
	}
}

func rate(b Effectiveness) float64 {
	if b.Total == 0 {
		return 0
	}
	return float64(b.Engaged) / float64(b.Total)
}
