package mcp

import "github.com/mark3labs/mcp-go/mcp"

// listFormulasTool defines the list_formulas MCP tool.
var listFormulasTool = mcp.NewTool("list_formulas",
	mcp.WithDescription("List the formulas in the workspace with their ids, names and target totals."),
)

// searchIngredientsTool defines the search_ingredients MCP tool.
var searchIngredientsTool = mcp.NewTool("search_ingredients",
	mcp.WithDescription("Search the ingredient catalog by name or olfactory family. Returns ids usable with add_ingredient."),
	mcp.WithString("query",
		mcp.Description("Case-insensitive substring of the ingredient name (empty lists everything)"),
	),
	mcp.WithString("family",
		mcp.Description("Only ingredients in this olfactory family"),
		mcp.Enum("Citrus", "Fruity", "Green", "Aquatic", "Floral", "Spicy", "Aromatic", "Woody", "Earthy", "Amber", "Musky", "Animalic"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 20)"),
	),
)

// getCanvasTool defines the get_canvas MCP tool.
var getCanvasTool = mcp.NewTool("get_canvas",
	mcp.WithDescription("Describe a formula's canvas: nodes with amounts and percentages, connections, groups with their compliance telemetry, and the latest scent analysis."),
	mcp.WithString("formula_id",
		mcp.Required(),
		mcp.Description("Formula id"),
	),
)
