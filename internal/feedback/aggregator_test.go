package feedback

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/recall/internal/content"
)

var base = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

func event(action content.InteractionAction, at time.Time) content.InteractionEvent {
	return content.InteractionEvent{
		SuggestionID: "sug-1",
		ItemID:       "item-1",
		Action:       action,
		At:           at,
	}
}

func TestEmptyAggregator(t *testing.T) {
	a := NewAggregator(Config{})
	snap := a.Snapshot()
	assert.Zero(t, snap.TotalEvents)
	assert.Equal(t, TrendInsufficient, snap.Trend)
}

func TestRecordDropsInvalidAction(t *testing.T) {
	a := NewAggregator(Config{})
	a.Record(content.InteractionEvent{Action: "teleported", At: base})
	assert.Zero(t, a.Snapshot().TotalEvents)
	assert.Empty(t, a.History())
}

func TestRecordCountsActionsAndEngagement(t *testing.T) {
	a := NewAggregator(Config{})
	a.Record(event(content.ActionClicked, base))
	a.Record(event(content.ActionViewed, base.Add(time.Minute)))
	a.Record(event(content.ActionDismissed, base.Add(2*time.Minute)))
	a.Record(event(content.ActionSaved, base.Add(3*time.Minute)))

	snap := a.Snapshot()
	assert.Equal(t, 4, snap.TotalEvents)
	assert.Equal(t, 1, snap.Actions[content.ActionClicked])
	assert.Equal(t, 1, snap.Actions[content.ActionViewed])
	assert.InDelta(t, 0.5, snap.EngagementRate, 1e-9, "clicked and saved engage, viewed and dismissed do not")
}

func TestDismissalReasonHistogram(t *testing.T) {
	a := NewAggregator(Config{})

	ev := event(content.ActionDismissed, base)
	ev.DismissalReason = content.DismissManual
	a.Record(ev)
	a.Record(event(content.ActionDismissed, base.Add(time.Minute))) // no reason yet

	snap := a.Snapshot()
	assert.Equal(t, 1, snap.DismissalReasons[content.DismissManual])
	assert.Equal(t, 2, snap.Actions[content.ActionDismissed])
}

func TestOptionalFieldsExcludedFromAverages(t *testing.T) {
	a := NewAggregator(Config{})

	rated := event(content.ActionClicked, base)
	five := 5
	rated.Rating = &five
	ms := int64(30000)
	rated.EngagementMs = &ms
	a.Record(rated)

	a.Record(event(content.ActionViewed, base.Add(time.Minute)))

	snap := a.Snapshot()
	assert.Equal(t, 1, snap.RatedCount)
	assert.Equal(t, 5.0, snap.AverageRating, "unrated events are excluded, not counted as zero")
	assert.Equal(t, 1, snap.EngagementSamples)
	assert.Equal(t, 30000.0, snap.AverageEngagementMs)
}

func TestHistoryCapKeepsMostRecent(t *testing.T) {
	a := NewAggregator(Config{})

	for i := 0; i < DefaultCapacity+1; i++ {
		ev := event(content.ActionViewed, base.Add(time.Duration(i)*time.Second))
		ev.SuggestionID = fmt.Sprintf("sug-%d", i)
		a.Record(ev)
	}

	history := a.History()
	require.Len(t, history, DefaultCapacity)
	assert.Equal(t, "sug-1", history[0].SuggestionID, "oldest event evicted")
	assert.Equal(t, fmt.Sprintf("sug-%d", DefaultCapacity), history[len(history)-1].SuggestionID)
	assert.Equal(t, DefaultCapacity, a.Snapshot().TotalEvents)
}

func TestRecomputeIsPure(t *testing.T) {
	var history []content.InteractionEvent
	for i := 0; i < 25; i++ {
		action := content.ActionViewed
		if i%3 == 0 {
			action = content.ActionClicked
		}
		history = append(history, event(action, base.Add(time.Duration(i)*time.Hour)))
	}

	first := Recompute(history, Config{})
	second := Recompute(history, Config{})
	assert.Equal(t, first, second, "identical histories yield identical snapshots")
}

func TestTrendImproving(t *testing.T) {
	var history []content.InteractionEvent
	// Old window: no engagement. Recent window: all engagement.
	for i := 0; i < 10; i++ {
		history = append(history, event(content.ActionViewed, base.Add(time.Duration(i)*time.Hour)))
	}
	for i := 0; i < 10; i++ {
		history = append(history, event(content.ActionClicked, base.Add(30*24*time.Hour).Add(time.Duration(i)*time.Hour)))
	}

	snap := Recompute(history, Config{})
	assert.Equal(t, TrendImproving, snap.Trend)
}

func TestTrendDeclining(t *testing.T) {
	var history []content.InteractionEvent
	for i := 0; i < 10; i++ {
		history = append(history, event(content.ActionClicked, base.Add(time.Duration(i)*time.Hour)))
	}
	for i := 0; i < 10; i++ {
		history = append(history, event(content.ActionViewed, base.Add(30*24*time.Hour).Add(time.Duration(i)*time.Hour)))
	}

	snap := Recompute(history, Config{})
	assert.Equal(t, TrendDeclining, snap.Trend)
}

func TestTrendDeadZoneIsStable(t *testing.T) {
	var history []content.InteractionEvent
	// All-time and recent rates both 0.5; delta 0 sits inside the dead zone.
	for i := 0; i < 20; i++ {
		action := content.ActionViewed
		if i%2 == 0 {
			action = content.ActionClicked
		}
		history = append(history, event(action, base.Add(time.Duration(i)*time.Hour)))
	}

	snap := Recompute(history, Config{})
	assert.Equal(t, TrendStable, snap.Trend)
}

func TestTrendInsufficientSamples(t *testing.T) {
	var history []content.InteractionEvent
	for i := 0; i < 5; i++ {
		history = append(history, event(content.ActionClicked, base.Add(time.Duration(i)*time.Hour)))
	}

	snap := Recompute(history, Config{})
	assert.Equal(t, TrendInsufficient, snap.Trend)
}

func TestContextualBreakdowns(t *testing.T) {
	a := NewAggregator(Config{})

	ev := event(content.ActionClicked, base) // 14:00 Tuesday
	ev.DeviceType = "desktop"
	ev.Position = 1
	a.Record(ev)

	ev2 := event(content.ActionViewed, base)
	ev2.DeviceType = "desktop"
	ev2.Position = 2
	a.Record(ev2)

	snap := a.Snapshot()
	assert.Equal(t, Effectiveness{Engaged: 1, Total: 2, Rate: 0.5}, snap.ByHour[14])
	assert.Equal(t, Effectiveness{Engaged: 1, Total: 2, Rate: 0.5}, snap.ByDay[int(time.Tuesday)])
	assert.Equal(t, Effectiveness{Engaged: 1, Total: 2, Rate: 0.5}, snap.ByDevice["desktop"])
	assert.Equal(t, Effectiveness{Engaged: 1, Total: 1, Rate: 1.0}, snap.ByPosition[1])
	assert.Equal(t, Effectiveness{Engaged: 0, Total: 1, Rate: 0}, snap.ByPosition[2])
}

func TestRestoreTruncatesToCapacity(t *testing.T) {
	a := NewAggregator(Config{Capacity: 5})

	var events []content.InteractionEvent
	for i := 0; i < 8; i++ {
		ev := event(content.ActionViewed, base.Add(time.Duration(i)*time.Second))
		ev.SuggestionID = fmt.Sprintf("sug-%d", i)
		events = append(events, ev)
	}
	a.Restore(events)

	history := a.History()
	require.Len(t, history, 5)
	assert.Equal(t, "sug-3", history[0].SuggestionID, "most recent kept")
	assert.Equal(t, 5, a.Snapshot().TotalEvents)
}
