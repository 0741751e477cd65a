package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/runger/recall/internal/config"
	"github.com/runger/recall/internal/content"
	"github.com/runger/recall/internal/store"
)

var addFlags struct {
	url         string
	title       string
	contentFile string
	category    string
	tags        []string
	concepts    []string
	importance  int
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Save a page into the corpus",
	Long: `Save a page so later analyses can resurface it.

Examples:
  recall add --url https://docs.example.com/auth --title "Auth guide" --tags api,auth --importance 8`,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addFlags.url, "url", "", "page URL (required)")
	addCmd.Flags().StringVar(&addFlags.title, "title", "", "page title (required)")
	addCmd.Flags().StringVar(&addFlags.contentFile, "content-file", "", "file with the page main text")
	addCmd.Flags().StringVar(&addFlags.category, "category", "other", "page category")
	addCmd.Flags().StringSliceVar(&addFlags.tags, "tags", nil, "free-form tags")
	addCmd.Flags().StringSliceVar(&addFlags.concepts, "concepts", nil, "extracted concepts")
	addCmd.Flags().IntVar(&addFlags.importance, "importance", 5, "importance rating 0-10")
	addCmd.MarkFlagRequired("url")
	addCmd.MarkFlagRequired("title")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	cat := content.PageCategory(addFlags.category)
	if !cat.Valid() {
		return fmt.Errorf("unknown category %q", addFlags.category)
	}
	if addFlags.importance < 0 || addFlags.importance > 10 {
		return fmt.Errorf("importance must be 0-10, got %d", addFlags.importance)
	}

	var text string
	if addFlags.contentFile != "" {
		data, err := os.ReadFile(addFlags.contentFile)
		if err != nil {
			return fmt.Errorf("failed to read content file: %w", err)
		}
		text = string(data)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	now := time.Now()
	id, err := st.Create(cmd.Context(), content.StoredItem{
		ID:         uuid.NewString(),
		URL:        addFlags.url,
		Title:      addFlags.title,
		Content:    text,
		Category:   cat,
		Tags:       addFlags.tags,
		Concepts:   addFlags.concepts,
		Importance: addFlags.importance,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Saved %q as %s\n", addFlags.title, id)
	return nil
}

// openStore opens just the sqlite store, for commands that do not need
// a full engine.
func openStore() (*store.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return store.Open(cfg.Storage.Path)
}
