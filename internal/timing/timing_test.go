package timing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/recall/internal/content"
)

var testNow = time.Date(2026, 3, 10, 14, 5, 0, 0, time.UTC)

func immediateMatch(itemID string) content.RelevanceMatch {
	return content.RelevanceMatch{
		ItemID:   itemID,
		Score:    0.85,
		Timing:   content.TimingImmediate,
		Priority: content.PriorityHigh,
	}
}

func TestImmediateBandUsesFixedDelay(t *testing.T) {
	e := NewEngine(Config{})
	item := content.StoredItem{ID: "item-1", Category: content.CategoryArticle}

	timing, ok := e.OptimalTiming(item, immediateMatch("item-1"), testNow)
	require.True(t, ok)
	assert.Equal(t, testNow.Add(30*time.Second), timing.SuggestedAt)
	assert.Equal(t, content.PriorityHigh, timing.Urgency)
	assert.NotEmpty(t, timing.Reason)
}

func TestDelayedBandFallsBackWithoutHistory(t *testing.T) {
	e := NewEngine(Config{})
	item := content.StoredItem{ID: "item-1"}
	m := content.RelevanceMatch{ItemID: "item-1", Score: 0.6, Timing: content.TimingDelayed}

	timing, ok := e.OptimalTiming(item, m, testNow)
	require.True(t, ok)
	assert.Equal(t, testNow.Add(2*time.Hour), timing.SuggestedAt)
}

func TestDelayedBandPrefersBestEngagementHour(t *testing.T) {
	e := NewEngine(Config{})
	item := content.StoredItem{ID: "item-1"}
	m := content.RelevanceMatch{ItemID: "item-1", Score: 0.6, Timing: content.TimingDelayed}

	// Build history: 20:00 engages far better than 16:00.
	for i := 0; i < 10; i++ {
		e.UpdateBehavior("x", time.Date(2026, 3, 9, 20, 0, 0, 0, time.UTC), true, "", "")
		e.UpdateBehavior("x", time.Date(2026, 3, 9, 16, 0, 0, 0, time.UTC), i%5 == 0, "", "")
	}

	timing, ok := e.OptimalTiming(item, m, testNow)
	require.True(t, ok)
	assert.Equal(t, 20, timing.SuggestedAt.Hour())
	assert.True(t, timing.SuggestedAt.After(testNow))
	assert.Contains(t, timing.Reason, "20:00")
}

func TestBackgroundBandUsesBackgroundDelay(t *testing.T) {
	e := NewEngine(Config{})
	item := content.StoredItem{ID: "item-1"}
	m := content.RelevanceMatch{ItemID: "item-1", Score: 0.4, Timing: content.TimingBackground}

	timing, ok := e.OptimalTiming(item, m, testNow)
	require.True(t, ok)
	assert.Equal(t, testNow.Add(6*time.Hour), timing.SuggestedAt)
}

func TestMinIntervalSuppressesRecentlySuggested(t *testing.T) {
	e := NewEngine(Config{})
	item := content.StoredItem{ID: "item-1"}

	e.MarkSuggested("item-1", testNow.Add(-1*time.Hour))

	_, ok := e.OptimalTiming(item, immediateMatch("item-1"), testNow)
	assert.False(t, ok, "suggested one hour ago, inside the 24h window")

	// Suppression is a hard drop: repeated attempts stay suppressed.
	for i := 0; i < 3; i++ {
		_, ok := e.OptimalTiming(item, immediateMatch("item-1"), testNow.Add(time.Duration(i)*time.Minute))
		assert.False(t, ok)
	}

	_, ok = e.OptimalTiming(item, immediateMatch("item-1"), testNow.Add(25*time.Hour))
	assert.True(t, ok, "window elapsed")
}

func TestMinIntervalSuppressesRecentlyEngaged(t *testing.T) {
	e := NewEngine(Config{})
	item := content.StoredItem{ID: "item-1", Category: content.CategoryArticle}

	e.UpdateBehavior("item-1", testNow.Add(-2*time.Hour), true, content.CategoryArticle, "")

	_, ok := e.OptimalTiming(item, immediateMatch("item-1"), testNow)
	assert.False(t, ok)

	other, ok := e.OptimalTiming(content.StoredItem{ID: "item-2"}, immediateMatch("item-2"), testNow)
	require.True(t, ok, "throttle is per item")
	assert.False(t, other.SuggestedAt.IsZero())
}

func TestHorizonSuppressesFarScheduling(t *testing.T) {
	e := NewEngine(Config{BackgroundDelay: 48 * time.Hour})
	item := content.StoredItem{ID: "item-1"}
	m := content.RelevanceMatch{ItemID: "item-1", Timing: content.TimingBackground}

	_, ok := e.OptimalTiming(item, m, testNow)
	assert.False(t, ok)
}

func TestConfidenceGrowsWithHistory(t *testing.T) {
	e := NewEngine(Config{})
	item := content.StoredItem{ID: "item-1", Category: content.CategoryArticle}

	timing, ok := e.OptimalTiming(item, immediateMatch("item-1"), testNow)
	require.True(t, ok)
	assert.Equal(t, ConfidenceFloor, timing.Confidence, "no history")

	// Saturate the delivery hour's bucket.
	at := testNow.Add(30 * time.Second)
	for i := 0; i < SaturationSamples; i++ {
		e.UpdateBehavior("other", at, true, content.CategoryArticle, "")
	}

	timing, ok = e.OptimalTiming(item, immediateMatch("item-1"), testNow)
	require.True(t, ok)
	assert.InDelta(t, ConfidenceCeil, timing.Confidence, 1e-9)
}

func TestUpdateBehaviorBucketsByHourDayCategory(t *testing.T) {
	e := NewEngine(Config{})
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) // a Tuesday

	e.UpdateBehavior("item-1", at, true, content.CategoryVideo, "")
	e.UpdateBehavior("item-2", at, false, content.CategoryVideo, content.DismissManual)

	p := e.Snapshot()
	assert.Equal(t, EngagementStats{Engaged: 1, Total: 2}, p.Hourly[9])
	assert.Equal(t, EngagementStats{Engaged: 1, Total: 2}, p.Daily[int(time.Tuesday)])
	assert.Equal(t, EngagementStats{Engaged: 1, Total: 2}, p.Categories[content.CategoryVideo])
	assert.Contains(t, p.LastEngaged, "item-1")
	assert.NotContains(t, p.LastEngaged, "item-2", "only engagement updates the throttle")
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	e := NewEngine(Config{})
	e.UpdateBehavior("item-1", testNow, true, content.CategoryArticle, "")

	p := e.Snapshot()
	p.Categories[content.CategoryArticle] = EngagementStats{Engaged: 99, Total: 99}
	p.LastEngaged["item-2"] = testNow

	fresh := e.Snapshot()
	assert.Equal(t, EngagementStats{Engaged: 1, Total: 1}, fresh.Categories[content.CategoryArticle])
	assert.NotContains(t, fresh.LastEngaged, "item-2")
}

func TestRestoreReplacesProfile(t *testing.T) {
	e := NewEngine(Config{})
	e.UpdateBehavior("old", testNow, true, content.CategoryArticle, "")

	p := NewProfile()
	p.Hourly[8] = EngagementStats{Engaged: 3, Total: 4}
	e.Restore(p)

	got := e.Snapshot()
	assert.Equal(t, EngagementStats{Engaged: 3, Total: 4}, got.Hourly[8])
	assert.Empty(t, got.Categories)
	assert.NotContains(t, got.LastEngaged, "old")
}

func TestRestoreNormalizesNilMaps(t *testing.T) {
	e := NewEngine(Config{})
	e.Restore(Profile{})

	// Mutators must not panic on a restored zero-value profile.
	e.MarkSuggested("item-1", testNow)
	e.UpdateBehavior("item-1", testNow, true, content.CategoryArticle, "")
}
