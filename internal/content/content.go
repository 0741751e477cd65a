// Package content defines the core data model for the recall engine:
// browsing contexts captured from the current page, stored items from the
// user's saved corpus, and the match/suggestion/interaction records that
// flow between the scoring, timing, and session components.
package content

import "time"

// PageCategory classifies a page into a closed set of content types.
// Tags, keywords, and concepts stay free-form strings.
type PageCategory string

const (
	CategoryArticle       PageCategory = "article"
	CategoryDocumentation PageCategory = "documentation"
	CategorySocial        PageCategory = "social"
	CategoryVideo         PageCategory = "video"
	CategoryOther         PageCategory = "other"
)

// Valid returns true if c is a recognized page category.
func (c PageCategory) Valid() bool {
	switch c {
	case CategoryArticle, CategoryDocumentation, CategorySocial, CategoryVideo, CategoryOther:
		return true
	}
	return false
}

// BrowsingContext is a snapshot of the page currently being viewed.
// It is created once per navigation event and is immutable afterwards;
// the session that triggered the capture owns it exclusively.
type BrowsingContext struct {
	// URL is the full page URL at capture time.
	URL string `json:"url"`

	// Title is the page title.
	Title string `json:"title"`

	// Content is the normalized main-text content with navigation and
	// ad chrome already stripped by the extraction collaborator.
	Content string `json:"content"`

	// ReadingTimeMin is the estimated reading time in minutes.
	ReadingTimeMin int `json:"reading_time_min"`

	// Language is the detected content language (BCP 47 tag, may be empty).
	Language string `json:"language,omitempty"`

	// WordCount, ImageCount, and LinkCount are structural page metrics.
	WordCount  int `json:"word_count"`
	ImageCount int `json:"image_count"`
	LinkCount  int `json:"link_count"`

	// Keywords is the extracted keyword set (free-form, lowercased by
	// the extractor but not guaranteed).
	Keywords []string `json:"keywords,omitempty"`

	// Concepts is the extracted concept set.
	Concepts []string `json:"concepts,omitempty"`

	// Category is the inferred page category.
	Category PageCategory `json:"category"`

	// CapturedAt is the capture timestamp.
	CapturedAt time.Time `json:"captured_at"`

	// Confidence is the extraction confidence in [0, 1]. A failed
	// extraction yields an empty context with Confidence 0.
	Confidence float64 `json:"confidence"`
}

// StoredItem is a previously captured piece of content from the corpus.
// The engine mutates it only through access tracking and re-analysis;
// deletion is a repository concern.
type StoredItem struct {
	// ID is the stable item identifier.
	ID string `json:"id"`

	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`

	// Category is the stored category from capture-time analysis.
	Category PageCategory `json:"category"`

	// Tags is the free-form tag set.
	Tags []string `json:"tags,omitempty"`

	// Concepts is the concept set from capture-time analysis.
	Concepts []string `json:"concepts,omitempty"`

	// Importance is a 0-10 rating assigned at capture.
	Importance int `json:"importance"`

	// AccessCount is the number of times the item has been opened.
	AccessCount int `json:"access_count"`

	// LastAccessed is the last open time (zero if never opened).
	LastAccessed time.Time `json:"last_accessed,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// SizeBytes is the stored content size.
	SizeBytes int64 `json:"size_bytes"`
}

// TimingHint is the coarse delivery band derived from a relevance score.
type TimingHint string

const (
	TimingImmediate  TimingHint = "immediate"
	TimingDelayed    TimingHint = "delayed"
	TimingBackground TimingHint = "background"
)

// Priority is the coarse priority tier of a match. The same tiers are
// used for delivery urgency.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// RelevanceMatch is the result of scoring one stored item against one
// browsing context. Matches are recomputed per analysis pass and never
// persisted directly.
type RelevanceMatch struct {
	// ItemID identifies the scored item.
	ItemID string `json:"item_id"`

	// Score is the combined relevance score in [0, 1].
	Score float64 `json:"score"`

	// Reasons are human-readable match explanations, advisory only.
	Reasons []string `json:"reasons,omitempty"`

	// Timing is the coarse delivery band derived from the score.
	Timing TimingHint `json:"timing"`

	// Priority is the tier derived from the score, boosted for
	// high-importance or frequently-accessed items.
	Priority Priority `json:"priority"`
}

// ResurfacingTiming is a resolved delivery plan for one suggestion.
type ResurfacingTiming struct {
	// SuggestedAt is the absolute delivery instant.
	SuggestedAt time.Time `json:"suggested_at"`

	// Confidence reflects how much behavioral history backs the choice.
	Confidence float64 `json:"confidence"`

	// Reason is a natural-language explanation of the chosen time.
	Reason string `json:"reason"`

	// Urgency is the delivery urgency tier.
	Urgency Priority `json:"urgency"`
}

// ContextualSuggestion joins a match with its source item and resolved
// timing. It is owned by exactly one analysis session.
type ContextualSuggestion struct {
	// ID is the suggestion identifier, unique within the engine.
	ID string `json:"id"`

	Item   StoredItem        `json:"item"`
	Match  RelevanceMatch    `json:"match"`
	Timing ResurfacingTiming `json:"timing"`
}

// InteractionAction is a user action against a delivered suggestion.
type InteractionAction string

const (
	ActionViewed    InteractionAction = "viewed"
	ActionClicked   InteractionAction = "clicked"
	ActionDismissed InteractionAction = "dismissed"
	ActionSaved     InteractionAction = "saved"
	ActionShared    InteractionAction = "shared"
	ActionIgnored   InteractionAction = "ignored"
	ActionHovered   InteractionAction = "hovered"
	ActionExpired   InteractionAction = "expired"
)

// Valid returns true if a is a recognized interaction action.
func (a InteractionAction) Valid() bool {
	switch a {
	case ActionViewed, ActionClicked, ActionDismissed, ActionSaved,
		ActionShared, ActionIgnored, ActionHovered, ActionExpired:
		return true
	}
	return false
}

// Engaged reports whether the action counts as positive engagement for
// behavior learning and analytics.
func (a InteractionAction) Engaged() bool {
	switch a {
	case ActionClicked, ActionSaved, ActionShared:
		return true
	}
	return false
}

// DismissalReason explains why a suggestion was dismissed.
type DismissalReason string

const (
	DismissManual      DismissalReason = "manual"
	DismissTimeout     DismissalReason = "timeout"
	DismissNewPage     DismissalReason = "new_page"
	DismissUserRequest DismissalReason = "user_request"
)

// Valid returns true if r is a recognized dismissal reason.
func (r DismissalReason) Valid() bool {
	switch r {
	case DismissManual, DismissTimeout, DismissNewPage, DismissUserRequest:
		return true
	}
	return false
}

// InteractionEvent records one user action against one suggestion,
// together with a snapshot of the context at interaction time.
// Events are append-only and never mutated.
type InteractionEvent struct {
	// SuggestionID and ItemID identify the target suggestion.
	SuggestionID string `json:"suggestion_id"`
	ItemID       string `json:"item_id"`

	// Action is the performed action.
	Action InteractionAction `json:"action"`

	// At is the interaction timestamp.
	At time.Time `json:"at"`

	// PageURL is the URL being viewed when the interaction happened.
	PageURL string `json:"page_url,omitempty"`

	// TimeOnPageSec is how long the user had been on the page.
	TimeOnPageSec int `json:"time_on_page_sec,omitempty"`

	// Score, Urgency, and Priority snapshot the suggestion at
	// interaction time.
	Score    float64  `json:"score"`
	Urgency  Priority `json:"urgency,omitempty"`
	Priority Priority `json:"priority,omitempty"`

	// DismissalReason is set for dismissed suggestions (may be empty;
	// an empty reason triggers a reason-prompt request).
	DismissalReason DismissalReason `json:"dismissal_reason,omitempty"`

	// EngagementMs is the optional engagement duration.
	EngagementMs *int64 `json:"engagement_ms,omitempty"`

	// Rating is an optional explicit 1-5 rating.
	Rating *int `json:"rating,omitempty"`

	// DeviceType and Position feed contextual effectiveness breakdowns.
	// Position is the 1-based rank of the suggestion when shown.
	DeviceType string `json:"device_type,omitempty"`
	Position   int    `json:"position,omitempty"`
}
