package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/formula-canvas/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize formulacanvas configuration with an interactive wizard",
	Long:  `Runs an interactive wizard that picks the analysis provider, data directory and port, and writes .formulacanvas.yml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
