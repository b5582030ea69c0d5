package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/formula-canvas/internal/audit"
)

var (
	auditFormula   string
	auditLimit     int
	auditOlderThan time.Duration
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect and prune the write history",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent writes, newest first",
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

		filter := audit.QueryFilter{Limit: auditLimit}
		if auditFormula != "" {
			filter.Scope = audit.ScopeFormula
			filter.ScopeID = auditFormula
		}
		entries, err := ws.audit.Query(ctx, filter)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%s  %-6s %-10s %-18s %s\n",
				e.Timestamp.Format(time.DateTime), e.ActorType, e.ActorID, e.Action, e.Summary)
		}
		return nil
	},
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete entries older than --older-than",
	RunE: func(cmd *cobra.Command, args []string) error {
		if auditOlderThan <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}
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

		n, err := ws.audit.DeleteBefore(ctx, time.Now().Add(-auditOlderThan))
		if err != nil {
			return fmt.Errorf("pruning audit trail: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Deleted %d audit entries\n", n)
		return nil
	},
}

func init() {
	auditListCmd.Flags().StringVar(&auditFormula, "formula", "", "only show writes to this formula")
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 50, "maximum number of entries")
	auditPruneCmd.Flags().DurationVar(&auditOlderThan, "older-than", 90*24*time.Hour, "age of the oldest entry to keep")
	auditCmd.AddCommand(auditListCmd, auditPruneCmd)
	rootCmd.AddCommand(auditCmd)
}
