package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/formula-canvas/internal/catalog"
	"github.com/ziadkadry99/formula-canvas/internal/progress"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and extend the ingredient catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <pattern>...",
	Short: "Import ingredients from YAML files",
	Long: `Imports ingredient definitions from YAML files matched by the given
glob patterns (doublestar syntax, e.g. 'catalogs/**/*.yaml'). Existing ids are
updated. Invalid entries are skipped and reported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()
		ws, err := openWorkspace(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer ws.Close()

		im := &catalog.Importer{
			Store:    ws.catalog,
			Index:    ws.index,
			Audit:    ws.audit,
			Reporter: progress.NewReporter("Importing catalog"),
		}
		res, err := im.Import(ctx, args)
		if err != nil {
			return fmt.Errorf("importing catalog: %w", err)
		}

		fmt.Fprintf(os.Stderr, "Imported %d ingredients from %d files (%d skipped)\n", res.Imported, res.Files, res.Skipped)
		for _, e := range res.Errors {
			fmt.Fprintf(os.Stderr, "  %s\n", e)
		}
		if res.Files == 0 {
			return fmt.Errorf("no files matched %s", strings.Join(args, " "))
		}
		return nil
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ws, err := openWorkspace(context.Background(), cfg, false)
		if err != nil {
			return err
		}
		defer ws.Close()

		for _, ing := range ws.catalog.All() {
			fmt.Printf("%-8s %-24s %-5s %s\n", ing.ID, ing.Name, ing.Note, strings.Join(ing.Families, ", "))
		}
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogImportCmd, catalogListCmd)
	rootCmd.AddCommand(catalogCmd)
}
