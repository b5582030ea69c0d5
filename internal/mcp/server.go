package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/formula-canvas/internal/catalog"
	"github.com/ziadkadry99/formula-canvas/internal/editor"
	"github.com/ziadkadry99/formula-canvas/internal/formula"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that lets agents read and edit formula canvases.
type Server struct {
	formulas *formula.Store
	catalog  *catalog.Store
	editor   *editor.Manager
	mcp      *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(formulas *formula.Store, cat *catalog.Store, mgr *editor.Manager) *Server {
	s := &Server{
		formulas: formulas,
		catalog:  cat,
		editor:   mgr,
	}

	s.mcp = server.NewMCPServer(
		"formulacanvas",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()
	s.registerEditTools()

	return s
}

// registerTools adds the read-only tools.
func (s *Server) registerTools() {
	s.mcp.AddTool(listFormulasTool, s.handleListFormulas)
	s.mcp.AddTool(searchIngredientsTool, s.handleSearchIngredients)
	s.mcp.AddTool(getCanvasTool, s.handleGetCanvas)
}

// registerEditTools adds the tools that change a formula or its canvas.
func (s *Server) registerEditTools() {
	s.mcp.AddTool(addIngredientTool, s.handleAddIngredient)
	s.mcp.AddTool(setAmountTool, s.handleSetAmount)
	s.mcp.AddTool(connectNodesTool, s.handleConnectNodes)
	s.mcp.AddTool(groupNodesTool, s.handleGroupNodes)
	s.mcp.AddTool(suggestBridgeTool, s.handleSuggestBridge)
	s.mcp.AddTool(analyzeFormulaTool, s.handleAnalyzeFormula)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
