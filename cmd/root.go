package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/formula-canvas/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "formulacanvas",
	Short: "Visual node editor for perfume formulas",
	Long: `Formula Canvas lays a perfume formula out as a graph of ingredient
nodes, keeps the picture and the formula in sync, groups materials into
accords with regulatory telemetry, and asks an LLM for a scent analysis.
It serves the editor over HTTP and WebSocket, and to AI agents via MCP.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
