package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/recall/internal/content"
	"github.com/runger/recall/internal/session"
)

var testNow = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

type fakeSource struct {
	bc  content.BrowsingContext
	err error
}

func (s *fakeSource) ExtractContext(context.Context, ExtractOptions) (content.BrowsingContext, error) {
	if s.err != nil {
		return content.BrowsingContext{}, s.err
	}
	return s.bc, nil
}

type fakeRepo struct {
	items   []content.StoredItem
	listErr error
}

func (r *fakeRepo) List(context.Context, ListFilter) ([]content.StoredItem, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.items, nil
}

func (r *fakeRepo) Read(_ context.Context, id string) (content.StoredItem, error) {
	for _, it := range r.items {
		if it.ID == id {
			return it, nil
		}
	}
	return content.StoredItem{}, content.ErrNotFound
}

func (r *fakeRepo) Create(_ context.Context, item content.StoredItem) (string, error) {
	r.items = append(r.items, item)
	return item.ID, nil
}

type fakeScheduler struct {
	delivered [][]content.ContextualSuggestion
	err       error
}

func (s *fakeScheduler) Deliver(_ context.Context, sugs []content.ContextualSuggestion, _ DeliveryOptions) error {
	s.delivered = append(s.delivered, sugs)
	return s.err
}

type fakeEvents struct {
	navigate   func(NavigationEvent)
	visibility func(bool, time.Time)
}

func (e *fakeEvents) OnNavigate(fn func(NavigationEvent))         { e.navigate = fn }
func (e *fakeEvents) OnVisibilityChange(fn func(bool, time.Time)) { e.visibility = fn }

func docsContext() content.BrowsingContext {
	return content.BrowsingContext{
		URL:        "https://docs.example.com/api/auth",
		Category:   content.CategoryDocumentation,
		Keywords:   []string{"api", "auth"},
		Concepts:   []string{"authentication"},
		CapturedAt: testNow,
		Confidence: 0.9,
	}
}

func docsItem(id string) content.StoredItem {
	return content.StoredItem{
		ID:        id,
		URL:       "https://docs.example.com/api/" + id,
		Title:     "Saved " + id,
		Category:  content.CategoryDocumentation,
		Tags:      []string{"api", "auth"},
		Concepts:  []string{"authentication"},
		UpdatedAt: testNow,
	}
}

func newTestEngine(t *testing.T, deps Deps) *Engine {
	t.Helper()
	if deps.Source == nil {
		deps.Source = &fakeSource{bc: docsContext()}
	}
	if deps.Repository == nil {
		deps.Repository = &fakeRepo{items: []content.StoredItem{docsItem("item-1")}}
	}
	e, err := New(deps, Options{Clock: func() time.Time { return testNow }})
	require.NoError(t, err)
	return e
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Deps{Repository: &fakeRepo{}}, Options{})
	assert.ErrorContains(t, err, "page content source")

	_, err = New(Deps{Source: &fakeSource{}}, Options{})
	assert.ErrorContains(t, err, "content repository")
}

func TestAnalyzeProducesSuggestions(t *testing.T) {
	sched := &fakeScheduler{}
	e := newTestEngine(t, Deps{Scheduler: sched})

	res := e.Analyze(context.Background())
	require.True(t, res.OK)
	require.Len(t, res.Suggestions, 1)
	assert.Equal(t, "item-1", res.Suggestions[0].Item.ID)
	assert.NotEmpty(t, res.Suggestions[0].ID)
	assert.False(t, res.Suggestions[0].Timing.SuggestedAt.IsZero())

	active, ok := e.ActiveSession()
	require.True(t, ok)
	assert.Equal(t, res.SessionID, active.ID)
	assert.Equal(t, session.StatusActive, active.Status)

	require.Len(t, sched.delivered, 1)
	assert.Len(t, sched.delivered[0], 1)
}

func TestAnalyzeExtractionFailureFailsClosed(t *testing.T) {
	e := newTestEngine(t, Deps{
		Source: &fakeSource{err: &content.ExtractionError{Reason: "page not ready"}},
	})

	res := e.Analyze(context.Background())
	assert.False(t, res.OK)
	assert.Empty(t, res.Suggestions)
	assert.Contains(t, res.Diagnostic, "page not ready")
	assert.NotEmpty(t, res.SessionID, "failure still yields a traceable session")

	_, ok := e.ActiveSession()
	assert.False(t, ok, "a failed analysis never becomes interactive")

	history := e.SessionHistory()
	require.Len(t, history, 1)
	assert.Equal(t, res.SessionID, history[0].ID)
	assert.Equal(t, session.StatusCompleted, history[0].Status)
	assert.Empty(t, history[0].Suggestions)
	assert.Contains(t, history[0].Diagnostic, "page not ready")
	assert.Zero(t, history[0].Context.Confidence)

	assert.Equal(t, int64(1), e.Metrics()["analyses_failed"])
}

func TestAnalyzeExtractionFailurePreservesInteractiveSession(t *testing.T) {
	src := &fakeSource{bc: docsContext()}
	e := newTestEngine(t, Deps{Source: src})

	first := e.Analyze(context.Background())
	require.Len(t, first.Suggestions, 1)
	out := e.RecordInteraction(content.InteractionEvent{
		SuggestionID: first.Suggestions[0].ID,
		Action:       content.ActionClicked,
	})
	require.True(t, out.OK)

	src.err = &content.ExtractionError{Reason: "page not ready"}
	e.Analyze(context.Background())

	history := e.SessionHistory()
	require.Len(t, history, 2)
	assert.Equal(t, session.StatusCompleted, history[0].Status)
	require.Len(t, history[0].Interactions, 1)
	assert.Equal(t, session.StatusCompleted, history[1].Status)
	assert.Contains(t, history[1].Diagnostic, "page not ready")
}

func TestAnalyzeParallelCallsStaySerialized(t *testing.T) {
	e := newTestEngine(t, Deps{})

	const callers = 8
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			e.Analyze(context.Background())
		}()
	}
	wg.Wait()

	active := 0
	if _, ok := e.ActiveSession(); ok {
		active = 1
	}
	installed := int64(len(e.SessionHistory()) + active)
	superseded := e.Metrics()["analyses_superseded"]
	assert.Equal(t, int64(callers), installed+superseded,
		"every analysis either installs a session or is discarded as superseded")
}

func TestAnalyzeStorageFailureDegradesToZeroCandidates(t *testing.T) {
	e := newTestEngine(t, Deps{
		Repository: &fakeRepo{listErr: &content.StorageError{Op: "list", Err: errors.New("disk gone")}},
	})

	res := e.Analyze(context.Background())
	assert.False(t, res.OK)
	assert.Empty(t, res.Suggestions)
	assert.Contains(t, res.Diagnostic, "disk gone")
	assert.NotEmpty(t, res.SessionID)
}

func TestAnalyzeThrottlesRepeatedSuggestions(t *testing.T) {
	e := newTestEngine(t, Deps{})

	first := e.Analyze(context.Background())
	require.Len(t, first.Suggestions, 1)

	second := e.Analyze(context.Background())
	assert.True(t, second.OK)
	assert.Empty(t, second.Suggestions, "item suggested moments ago is inside the resurfacing interval")
	assert.Equal(t, int64(1), e.Metrics()["suppressed"])
}

func TestAnalyzeReplacesInteractionlessSession(t *testing.T) {
	e := newTestEngine(t, Deps{})

	e.Analyze(context.Background())
	e.Analyze(context.Background())

	history := e.SessionHistory()
	require.Len(t, history, 1)
	assert.Equal(t, session.StatusAbandoned, history[0].Status,
		"superseded session with no interactions is abandoned")
}

func TestAnalyzeCompletesSessionWithInteractions(t *testing.T) {
	e := newTestEngine(t, Deps{})

	first := e.Analyze(context.Background())
	require.Len(t, first.Suggestions, 1)

	res := e.RecordInteraction(content.InteractionEvent{
		SuggestionID: first.Suggestions[0].ID,
		Action:       content.ActionClicked,
	})
	require.True(t, res.OK)

	e.Analyze(context.Background())

	history := e.SessionHistory()
	require.Len(t, history, 1)
	assert.Equal(t, session.StatusCompleted, history[0].Status)
	require.Len(t, history[0].Interactions, 1)
}

func TestRecordInteractionRejectsUnknownAction(t *testing.T) {
	e := newTestEngine(t, Deps{})
	res := e.RecordInteraction(content.InteractionEvent{SuggestionID: "x", Action: "teleported"})
	assert.False(t, res.OK)
	assert.Contains(t, res.Diagnostic, "unknown action")
}

func TestRecordInteractionLateEventIsIgnored(t *testing.T) {
	e := newTestEngine(t, Deps{})

	res := e.RecordInteraction(content.InteractionEvent{
		SuggestionID: "long-gone",
		Action:       content.ActionClicked,
	})
	assert.True(t, res.OK, "late UI events are acknowledged, not failed")
	assert.NotEmpty(t, res.Diagnostic)
	assert.Zero(t, e.Metrics()["interactions"])
}

func TestRecordInteractionUpdatesBehaviorAndAnalytics(t *testing.T) {
	e := newTestEngine(t, Deps{})

	res := e.Analyze(context.Background())
	require.Len(t, res.Suggestions, 1)

	out := e.RecordInteraction(content.InteractionEvent{
		SuggestionID: res.Suggestions[0].ID,
		Action:       content.ActionClicked,
	})
	require.True(t, out.OK)

	profile := e.BehaviorProfile()
	assert.Equal(t, 1, profile.Hourly[testNow.Hour()].Total)
	assert.Equal(t, 1, profile.Hourly[testNow.Hour()].Engaged)
	assert.Equal(t, 1, profile.Categories[content.CategoryDocumentation].Total)

	snap := e.Analytics()
	assert.Equal(t, 1, snap.TotalEvents)
	assert.Equal(t, 1.0, snap.EngagementRate)
}

func TestDismissalPromptSideChannel(t *testing.T) {
	var prompted string
	e := newTestEngine(t, Deps{
		PromptFn: func(suggestionID, itemID string) { prompted = suggestionID },
	})

	res := e.Analyze(context.Background())
	require.Len(t, res.Suggestions, 1)

	e.RecordInteraction(content.InteractionEvent{
		SuggestionID: res.Suggestions[0].ID,
		Action:       content.ActionDismissed,
	})
	assert.Equal(t, res.Suggestions[0].ID, prompted)
}

func TestSchedulerFailureDoesNotFailAnalysis(t *testing.T) {
	sched := &fakeScheduler{err: errors.New("toast service down")}
	e := newTestEngine(t, Deps{Scheduler: sched})

	res := e.Analyze(context.Background())
	assert.True(t, res.OK)
	assert.Len(t, res.Suggestions, 1)
}

func TestEventSourceDrivesLifecycle(t *testing.T) {
	events := &fakeEvents{}
	e := newTestEngine(t, Deps{Events: events})
	require.NotNil(t, events.navigate)
	require.NotNil(t, events.visibility)

	events.navigate(NavigationEvent{URL: "https://docs.example.com/api/auth", At: testNow})
	_, ok := e.ActiveSession()
	assert.True(t, ok)

	events.visibility(false, testNow.Add(time.Minute))
	_, ok = e.ActiveSession()
	assert.False(t, ok)
	require.Len(t, e.SessionHistory(), 1)
}
