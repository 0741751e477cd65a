package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/recall/internal/content"
)

var feedbackFlags struct {
	suggestionID string
	action       string
	reason       string
	rating       int
	engagementMs int64
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record an interaction with a delivered suggestion",
	Long: `Record what happened to a suggestion from the current analysis
session. The interaction feeds the behavior profile and effectiveness
analytics that future analyses learn from.

Examples:
  recall feedback --suggestion 4f6c... --action clicked --rating 5
  recall feedback --suggestion 4f6c... --action dismissed --reason manual`,
	RunE: runFeedback,
}

func init() {
	feedbackCmd.Flags().StringVar(&feedbackFlags.suggestionID, "suggestion", "", "suggestion id (required)")
	feedbackCmd.Flags().StringVar(&feedbackFlags.action, "action", "", "action: viewed|clicked|dismissed|saved|shared|ignored|hovered|expired (required)")
	feedbackCmd.Flags().StringVar(&feedbackFlags.reason, "reason", "", "dismissal reason: manual|timeout|new_page|user_request")
	feedbackCmd.Flags().IntVar(&feedbackFlags.rating, "rating", 0, "explicit rating 1-5")
	feedbackCmd.Flags().Int64Var(&feedbackFlags.engagementMs, "engagement-ms", 0, "engagement duration in milliseconds")
	feedbackCmd.MarkFlagRequired("suggestion")
	feedbackCmd.MarkFlagRequired("action")
	rootCmd.AddCommand(feedbackCmd)
}

func runFeedback(cmd *cobra.Command, args []string) error {
	action := content.InteractionAction(feedbackFlags.action)
	if !action.Valid() {
		return fmt.Errorf("unknown action %q", feedbackFlags.action)
	}
	if feedbackFlags.reason != "" && !content.DismissalReason(feedbackFlags.reason).Valid() {
		return fmt.Errorf("unknown dismissal reason %q", feedbackFlags.reason)
	}
	if feedbackFlags.rating != 0 && (feedbackFlags.rating < 1 || feedbackFlags.rating > 5) {
		return fmt.Errorf("rating must be 1-5, got %d", feedbackFlags.rating)
	}

	ev := content.InteractionEvent{
		SuggestionID:    feedbackFlags.suggestionID,
		Action:          action,
		At:              time.Now(),
		DismissalReason: content.DismissalReason(feedbackFlags.reason),
	}
	if feedbackFlags.rating != 0 {
		ev.Rating = &feedbackFlags.rating
	}
	if feedbackFlags.engagementMs > 0 {
		ev.EngagementMs = &feedbackFlags.engagementMs
	}

	ctx := cmd.Context()
	rt, err := openRuntime(ctx, nil)
	if err != nil {
		return err
	}
	defer rt.close()

	// Resolve the item before recording; an engaged interaction also
	// counts as an access on the stored item.
	var itemID string
	if active, ok := rt.engine.ActiveSession(); ok {
		for _, sug := range active.Suggestions {
			if sug.ID == ev.SuggestionID {
				itemID = sug.Item.ID
				break
			}
		}
	}

	res := rt.engine.RecordInteraction(ev)
	if !res.OK {
		fmt.Printf("interaction not recorded: %s\n", res.Diagnostic)
		return nil
	}
	if action.Engaged() && itemID != "" {
		if err := rt.store.Touch(ctx, itemID, ev.At); err != nil {
			fmt.Printf("warning: could not record item access: %v\n", err)
		}
	}
	if err := rt.saveState(ctx); err != nil {
		return err
	}
	fmt.Println("Recorded.")
	return nil
}
