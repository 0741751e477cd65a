package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/recall/internal/content"
	"github.com/runger/recall/internal/engine"
)

var analyzeFlags struct {
	url         string
	title       string
	contentFile string
	category    string
	keywords    []string
	concepts    []string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score the saved corpus against a page and suggest resurfacings",
	Long: `Run one analysis pass: the given page context is scored against every
saved item, matches are ranked and adjusted by learned preferences, and
each surviving match gets a resolved delivery time.

Page text is read from --content-file, or from stdin when the flag is
omitted and stdin is not a terminal.

Examples:
  recall analyze --url https://docs.example.com/auth --title "Auth guide" --keywords api,auth
  cat page.txt | recall analyze --url https://example.com/post`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFlags.url, "url", "", "page URL (required)")
	analyzeCmd.Flags().StringVar(&analyzeFlags.title, "title", "", "page title")
	analyzeCmd.Flags().StringVar(&analyzeFlags.contentFile, "content-file", "", "file with the page main text")
	analyzeCmd.Flags().StringVar(&analyzeFlags.category, "category", "other", "page category (article|documentation|social|video|other)")
	analyzeCmd.Flags().StringSliceVar(&analyzeFlags.keywords, "keywords", nil, "page keywords")
	analyzeCmd.Flags().StringSliceVar(&analyzeFlags.concepts, "concepts", nil, "page concepts")
	analyzeCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cat := content.PageCategory(analyzeFlags.category)
	if !cat.Valid() {
		return fmt.Errorf("unknown category %q", analyzeFlags.category)
	}

	text, err := readPageText(analyzeFlags.contentFile)
	if err != nil {
		return err
	}

	src := &flagSource{
		bc: content.BrowsingContext{
			URL:        analyzeFlags.url,
			Title:      analyzeFlags.title,
			Content:    text,
			Category:   cat,
			Keywords:   analyzeFlags.keywords,
			Concepts:   analyzeFlags.concepts,
			WordCount:  len(strings.Fields(text)),
			CapturedAt: time.Now(),
			Confidence: 1.0,
		},
	}
	src.bc.ReadingTimeMin = src.bc.WordCount / 200

	ctx := cmd.Context()
	rt, err := openRuntime(ctx, src)
	if err != nil {
		return err
	}
	defer rt.close()

	res := rt.engine.Analyze(ctx)
	if !res.OK {
		fmt.Printf("analysis failed: %s\n", res.Diagnostic)
	}

	if len(res.Suggestions) == 0 {
		fmt.Println("No relevant saved content for this page.")
	} else {
		fmt.Printf("Session %s: %d suggestion(s)\n\n", res.SessionID, len(res.Suggestions))
		for i, sug := range res.Suggestions {
			printSuggestion(i+1, sug)
		}
	}

	return rt.saveState(ctx)
}

func printSuggestion(rank int, sug content.ContextualSuggestion) {
	fmt.Printf("%d. %s (score %.2f, %s priority)\n", rank, sug.Item.Title, sug.Match.Score, sug.Match.Priority)
	fmt.Printf("   %s\n", sug.Item.URL)
	if len(sug.Match.Reasons) > 0 {
		fmt.Printf("   why: %s\n", strings.Join(sug.Match.Reasons, "; "))
	}
	fmt.Printf("   when: %s (%s, confidence %.2f)\n",
		sug.Timing.SuggestedAt.Format(time.RFC3339), sug.Timing.Reason, sug.Timing.Confidence)
	fmt.Println()
}

func readPageText(path string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read content file: %w", err)
		}
		return string(data), nil
	}
	info, err := os.Stdin.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice != 0 {
		return "", nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

// flagSource serves the context assembled from command line flags.
type flagSource struct {
	bc content.BrowsingContext
}

func (s *flagSource) ExtractContext(_ context.Context, opts engine.ExtractOptions) (content.BrowsingContext, error) {
	if opts.MinContentLength > 0 && len(s.bc.Content) < opts.MinContentLength {
		return content.BrowsingContext{}, &content.ExtractionError{
			Reason: fmt.Sprintf("page text below %d characters", opts.MinContentLength),
		}
	}
	return s.bc, nil
}
