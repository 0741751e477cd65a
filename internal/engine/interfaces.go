package engine

import (
	"context"
	"time"

	"github.com/runger/recall/internal/content"
)

// ExtractOptions controls page-context extraction.
type ExtractOptions struct {
	// MinContentLength is the minimum main-text length for a usable
	// context; below it the source fails with an ExtractionError.
	MinContentLength int

	// IncludeConcepts asks the source to run concept extraction.
	IncludeConcepts bool
}

// PageContentSource builds a BrowsingContext from the current page. It
// is a host collaborator; the engine only consumes its output shape.
type PageContentSource interface {
	ExtractContext(ctx context.Context, opts ExtractOptions) (content.BrowsingContext, error)
}

// ListFilter narrows a corpus listing.
type ListFilter struct {
	Category content.PageCategory
	Limit    int
}

// ContentRepository stores and retrieves captured items. All operations
// may fail with a StorageError; deletion is a repository concern, never
// performed by the engine.
type ContentRepository interface {
	List(ctx context.Context, f ListFilter) ([]content.StoredItem, error)
	Read(ctx context.Context, id string) (content.StoredItem, error)
	Create(ctx context.Context, item content.StoredItem) (string, error)
}

// DisplayStyle selects how the host renders a suggestion.
type DisplayStyle string

const (
	StyleMinimal    DisplayStyle = "minimal"
	StyleDetailed   DisplayStyle = "detailed"
	StyleContextual DisplayStyle = "contextual"
)

// DeliveryOptions accompany suggestions handed to the scheduler.
type DeliveryOptions struct {
	Style         DisplayStyle
	MaxConcurrent int
}

// NotificationScheduler renders and times out suggestions on the host
// side. Interaction events flow back through Engine.RecordInteraction.
type NotificationScheduler interface {
	Deliver(ctx context.Context, suggestions []content.ContextualSuggestion, opts DeliveryOptions) error
}

// NavigationEvent signals that the user navigated to a new page.
type NavigationEvent struct {
	URL string
	At  time.Time
}

// EventSource delivers host lifecycle events the engine subscribes to.
// How the host produces them (DOM listeners, polling timers) is outside
// the engine's concern.
type EventSource interface {
	OnNavigate(func(NavigationEvent))
	OnVisibilityChange(func(visible bool, at time.Time))
}
