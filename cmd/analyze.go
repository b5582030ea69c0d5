package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/formula-canvas/internal/analysis"
	"github.com/ziadkadry99/formula-canvas/internal/audit"
	"github.com/ziadkadry99/formula-canvas/internal/formula"
)

var analyzeSave bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <formula-id>",
	Short: "Run a scent analysis of a formula",
	Long:  `Sends the formula's ingredients and concentrations to the configured LLM and prints the predicted scent profile, interactions, longevity and projection.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := formula.WithActor(context.Background(), audit.ActorUser, "cli")
		ws, err := openWorkspace(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer ws.Close()
		if ws.analyzer == nil {
			return fmt.Errorf("no analysis provider available")
		}

		f, err := ws.formulas.Get(ctx, args[0])
		if err != nil {
			return err
		}
		items, err := ws.formulas.Items(ctx, f.ID)
		if err != nil {
			return err
		}
		req := make([]analysis.Ingredient, 0, len(items))
		for _, it := range items {
			name := it.Name
			if name == "" {
				name = it.Ref
			}
			req = append(req, analysis.Ingredient{Name: name, Concentration: percentOf(it.Amount, f.TargetTotal)})
		}

		rec, err := ws.analyzer.Analyze(ctx, f.ID, req)
		if err != nil {
			return err
		}
		if analyzeSave {
			if err := ws.analyses.Save(ctx, rec); err != nil {
				return fmt.Errorf("saving analysis: %w", err)
			}
		}

		printAnalysis(f, rec)
		if verbose {
			fmt.Fprintf(os.Stderr, "\n%s/%s: %d input, %d output tokens, ~$%.4f\n",
				rec.Provider, rec.Model, rec.InputTokens, rec.OutputTokens, rec.CostUSD)
		}
		return nil
	},
}

func percentOf(amount, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return amount / total * 100
}

func printAnalysis(f *formula.Formula, rec *analysis.Record) {
	r := rec.Result
	fmt.Printf("%s\n%s\n\n", f.Name, strings.Repeat("=", len(f.Name)))
	fmt.Printf("%s\n\n", r.FinalScentProfile)
	fmt.Printf("Longevity:  %s\n", r.Longevity)
	fmt.Printf("Projection: %s\n", r.Projection)
	if len(r.Interactions) > 0 {
		fmt.Println("\nInteractions:")
		for _, in := range r.Interactions {
			fmt.Printf("  - %s: %s\n", strings.Join(in.Ingredients, " + "), in.Effect)
		}
	}
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", true, "Store the result with the formula")
	rootCmd.AddCommand(analyzeCmd)
}
