package mcp

import "github.com/mark3labs/mcp-go/mcp"

// addIngredientTool adds a catalog ingredient to a formula.
var addIngredientTool = mcp.NewTool("add_ingredient",
	mcp.WithDescription("Add a catalog ingredient to a formula. With x and y the node is dropped at that screen position; otherwise it is placed at the next free slot."),
	mcp.WithString("formula_id", mcp.Required(), mcp.Description("Formula id")),
	mcp.WithString("ingredient_id", mcp.Required(), mcp.Description("Catalog ingredient id, e.g. ing-1")),
	mcp.WithNumber("x", mcp.Description("Screen x of the drop point")),
	mcp.WithNumber("y", mcp.Description("Screen y of the drop point")),
)

// setAmountTool changes a line item's amount.
var setAmountTool = mcp.NewTool("set_amount",
	mcp.WithDescription("Set the amount of an ingredient already in the formula."),
	mcp.WithString("formula_id", mcp.Required(), mcp.Description("Formula id")),
	mcp.WithString("ingredient_id", mcp.Required(), mcp.Description("Catalog ingredient id")),
	mcp.WithNumber("amount", mcp.Required(), mcp.Description("New amount, in the formula's units (non-negative)")),
)

// connectNodesTool draws a connection between two canvas nodes.
var connectNodesTool = mcp.NewTool("connect_nodes",
	mcp.WithDescription("Connect two canvas nodes. Connecting the same ordered pair twice is rejected."),
	mcp.WithString("formula_id", mcp.Required(), mcp.Description("Formula id")),
	mcp.WithString("source", mcp.Required(), mcp.Description("Source node id (see get_canvas)")),
	mcp.WithString("target", mcp.Required(), mcp.Description("Target node id")),
	mcp.WithString("kind",
		mcp.Description("Connection kind (default blend)"),
		mcp.Enum("blend", "boost", "suppress"),
	),
	mcp.WithNumber("strength", mcp.Description("Strength in [0, 1] (default from configuration)")),
)

// groupNodesTool groups canvas nodes into an accord.
var groupNodesTool = mcp.NewTool("group_nodes",
	mcp.WithDescription("Group canvas nodes into a labelled accord and report its telemetry."),
	mcp.WithString("formula_id", mcp.Required(), mcp.Description("Formula id")),
	mcp.WithString("nodes", mcp.Required(), mcp.Description("Comma-separated node ids")),
	mcp.WithString("label", mcp.Description("Accord label")),
)

// suggestBridgeTool suggests an ingredient between two nodes.
var suggestBridgeTool = mcp.NewTool("suggest_bridge",
	mcp.WithDescription("Pick the catalog ingredient whose olfactory profile sits closest to the midpoint of two ingredient nodes, add it to the formula and connect both nodes to it."),
	mcp.WithString("formula_id", mcp.Required(), mcp.Description("Formula id")),
	mcp.WithString("node_a", mcp.Required(), mcp.Description("First ingredient node id")),
	mcp.WithString("node_b", mcp.Required(), mcp.Description("Second ingredient node id")),
)

// analyzeFormulaTool runs a scent analysis and waits for the answer.
var analyzeFormulaTool = mcp.NewTool("analyze_formula",
	mcp.WithDescription("Run a scent analysis of the formula's ingredients and return the predicted profile, interactions, longevity and projection."),
	mcp.WithString("formula_id", mcp.Required(), mcp.Description("Formula id")),
)
