package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/formula-canvas/internal/editor"
	mcpserver "github.com/ziadkadry99/formula-canvas/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing tools to read formulas, edit their canvases and request scent analyses.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ws, err := openWorkspace(context.Background(), cfg, true)
		if err != nil {
			return err
		}
		defer ws.Close()

		mgr := editor.NewManager(ws.editorDeps(), editorOptions(cfg))
		defer mgr.Close()

		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "formulacanvas MCP server started on stdio (db=%s, ingredients=%d)\n", ws.db.Path(), ws.index.Len())

		srv := mcpserver.NewServer(ws.formulas, ws.catalog, mgr)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
