package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/recall/internal/content"
	"github.com/runger/recall/internal/engine"
)

var listFlags struct {
	category string
	limit    int
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved items",
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listFlags.category, "category", "", "filter by category")
	listCmd.Flags().IntVar(&listFlags.limit, "limit", 20, "maximum items to show")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	var cat content.PageCategory
	if listFlags.category != "" {
		cat = content.PageCategory(listFlags.category)
		if !cat.Valid() {
			return fmt.Errorf("unknown category %q", listFlags.category)
		}
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	items, err := st.List(cmd.Context(), engine.ListFilter{Category: cat, Limit: listFlags.limit})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("No saved items.")
		return nil
	}

	for _, item := range items {
		fmt.Printf("%s  %-13s  %s\n", item.ID, item.Category, item.Title)
		fmt.Printf("%s  importance %d, accessed %d time(s), saved %s\n",
			strings.Repeat(" ", 36), item.Importance, item.AccessCount,
			item.CreatedAt.Format(time.DateOnly))
	}
	return nil
}
