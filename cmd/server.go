package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/formula-canvas/internal/editor"
	"github.com/ziadkadry99/formula-canvas/internal/formula"
	"github.com/ziadkadry99/formula-canvas/internal/server"
)

var (
	serverPort   int
	serverSample bool
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the formula editor server",
	Long:  `Starts the HTTP API and the WebSocket pointer stream that host live editor sessions, one per open formula.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = serverPort
		}

		ws, err := openWorkspace(context.Background(), cfg, true)
		if err != nil {
			return err
		}
		defer ws.Close()

		if serverSample {
			created, err := ws.formulas.Seed(context.Background())
			if err != nil {
				return fmt.Errorf("seeding sample formula: %w", err)
			}
			if created {
				fmt.Fprintf(os.Stderr, "Created sample formula %s\n", formula.SampleID)
			}
		}

		mgr := editor.NewManager(ws.editorDeps(), editorOptions(cfg))
		srv := server.New(server.Config{
			Port:     cfg.Port,
			AllowAll: cfg.AllowAllOrigins,
		}, server.Deps{
			DB:       ws.db,
			Formulas: ws.formulas,
			Catalog:  ws.catalog,
			Index:    ws.index,
			Audit:    ws.audit,
			Analyzer: ws.analyzer,
			Analyses: ws.analyses,
			Editor:   mgr,
		})

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(os.Stderr, "formulacanvas server v%s starting on port %d\n", Version, cfg.Port)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", ws.db.Path())
		fmt.Fprintf(os.Stderr, "  Catalog: %d ingredients\n", ws.index.Len())
		if ws.analyzer == nil {
			fmt.Fprintf(os.Stderr, "  Analysis: disabled\n")
		} else {
			fmt.Fprintf(os.Stderr, "  Analysis: %s/%s\n", cfg.Provider, cfg.Model)
		}

		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Port to listen on (overrides config)")
	serverCmd.Flags().BoolVar(&serverSample, "sample", false, "Create the sample formula if it does not exist")
	rootCmd.AddCommand(serverCmd)
}
