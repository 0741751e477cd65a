package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export engine state as a JSON document",
	Long: `Export all mutable engine state (session history, behavior profile,
feedback history, analytics) as one JSON document. With no file
argument the document is written to stdout.

Examples:
  recall export backup.json
  recall export > backup.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import engine state from a JSON document",
	Long: `Replace all mutable engine state with the contents of a previously
exported document. Analytics are recomputed from the imported feedback
history. The saved corpus itself is not touched.

Examples:
  recall import backup.json`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := openRuntime(ctx, nil)
	if err != nil {
		return err
	}
	defer rt.close()

	doc, err := rt.engine.ExportJSON()
	if err != nil {
		return fmt.Errorf("failed to export state: %w", err)
	}

	if len(args) == 0 {
		fmt.Println(string(doc))
		return nil
	}
	if err := os.WriteFile(args[0], doc, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	fmt.Printf("Exported engine state to %s\n", args[0])
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}

	ctx := cmd.Context()
	rt, err := openRuntime(ctx, nil)
	if err != nil {
		return err
	}
	defer rt.close()

	if err := rt.engine.ImportJSON(data); err != nil {
		return fmt.Errorf("failed to import state: %w", err)
	}
	if err := rt.saveState(ctx); err != nil {
		return err
	}
	fmt.Printf("Imported engine state from %s\n", args[0])
	return nil
}
