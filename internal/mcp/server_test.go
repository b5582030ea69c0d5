package mcp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/formula-canvas/internal/analysis"
	"github.com/ziadkadry99/formula-canvas/internal/audit"
	"github.com/ziadkadry99/formula-canvas/internal/canvas"
	"github.com/ziadkadry99/formula-canvas/internal/catalog"
	"github.com/ziadkadry99/formula-canvas/internal/db"
	"github.com/ziadkadry99/formula-canvas/internal/editor"
	"github.com/ziadkadry99/formula-canvas/internal/formula"
	"github.com/ziadkadry99/formula-canvas/internal/llm"
)

// mockProvider implements llm.Provider with a canned analysis.
type mockProvider struct{}

func (mockProvider) Name() string { return "mock" }

func (mockProvider) Complete(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: `{
		"final_scent_profile": "A transparent woody amber.",
		"ingredient_interactions": [{"ingredients": ["Iso E Super", "Ambroxan"], "effect": "radiant dry wood"}],
		"longevity_estimate": "Long (7+ hours)",
		"projection_estimate": "Moderate"
	}`}, nil
}

type fixture struct {
	srv      *Server
	formulas *formula.Store
	audit    *audit.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cat := catalog.NewStore(database)
	if _, err := cat.Seed(ctx); err != nil {
		t.Fatalf("catalog seed: %v", err)
	}
	if err := cat.Load(ctx); err != nil {
		t.Fatalf("catalog load: %v", err)
	}
	index, err := catalog.NewSimilarityIndex(ctx, cat.All())
	if err != nil {
		t.Fatalf("NewSimilarityIndex: %v", err)
	}
	formulas := formula.NewStore(database)
	if _, err := formulas.Seed(ctx); err != nil {
		t.Fatalf("formula seed: %v", err)
	}

	mgr := editor.NewManager(editor.Deps{
		Formulas: formulas,
		Catalog:  cat,
		Index:    index,
		Analyzer: analysis.NewService(mockProvider{}, "mock", time.Second),
		Analyses: analysis.NewStore(database),
	}, editor.DefaultOptions())
	t.Cleanup(mgr.Close)

	return &fixture{
		srv:      NewServer(formulas, cat, mgr),
		formulas: formulas,
		audit:    audit.NewStore(database),
	}
}

func call(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sb strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String(), result.IsError
}

func (f *fixture) nodeFor(t *testing.T, ref string) canvas.NodeID {
	t.Helper()
	s, err := f.srv.editor.Session(context.Background(), formula.SampleID)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	for _, n := range s.State().Nodes {
		if n.Ingredient != nil && n.Ingredient.Ref == ref {
			return n.ID
		}
	}
	t.Fatalf("no node for %s", ref)
	return ""
}

func TestToolDefinitions(t *testing.T) {
	tools := []mcp.Tool{
		listFormulasTool, searchIngredientsTool, getCanvasTool,
		addIngredientTool, setAmountTool, connectNodesTool,
		groupNodesTool, suggestBridgeTool, analyzeFormulaTool,
	}
	seen := make(map[string]bool)
	for _, tool := range tools {
		if tool.Name == "" || tool.Description == "" {
			t.Errorf("tool %q needs a name and a description", tool.Name)
		}
		if seen[tool.Name] {
			t.Errorf("duplicate tool name %q", tool.Name)
		}
		seen[tool.Name] = true
	}
}

func TestNewServer(t *testing.T) {
	f := newFixture(t)
	if f.srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
}

func TestListFormulas(t *testing.T) {
	f := newFixture(t)
	text, isErr := call(t, f.srv.handleListFormulas, nil)
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	if !strings.Contains(text, formula.SampleID) {
		t.Errorf("expected the sample formula, got:\n%s", text)
	}
}

func TestSearchIngredients(t *testing.T) {
	f := newFixture(t)

	t.Run("by name", func(t *testing.T) {
		text, _ := call(t, f.srv.handleSearchIngredients, map[string]any{"query": "rose"})
		if !strings.Contains(text, "Rose Absolute") {
			t.Errorf("expected Rose Absolute, got:\n%s", text)
		}
	})

	t.Run("by family", func(t *testing.T) {
		text, _ := call(t, f.srv.handleSearchIngredients, map[string]any{"family": "Aquatic"})
		if !strings.Contains(text, "Calone 1951") || strings.Contains(text, "Iso E Super") {
			t.Errorf("unexpected aquatic results:\n%s", text)
		}
	})

	t.Run("no match", func(t *testing.T) {
		text, isErr := call(t, f.srv.handleSearchIngredients, map[string]any{"query": "unobtainium"})
		if isErr || !strings.Contains(text, "No matching") {
			t.Errorf("got %q (error %v)", text, isErr)
		}
	})
}

func TestGetCanvas(t *testing.T) {
	f := newFixture(t)

	text, isErr := call(t, f.srv.handleGetCanvas, map[string]any{"formula_id": formula.SampleID})
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	for _, want := range []string{"Nodes (4)", "Iso E Super", "Ambroxan"} {
		if !strings.Contains(text, want) {
			t.Errorf("canvas description lacks %q:\n%s", want, text)
		}
	}

	text, isErr = call(t, f.srv.handleGetCanvas, map[string]any{"formula_id": "missing"})
	if !isErr || !strings.Contains(text, "list_formulas") {
		t.Errorf("missing formula: got %q (error %v)", text, isErr)
	}

	_, isErr = call(t, f.srv.handleGetCanvas, map[string]any{})
	if !isErr {
		t.Error("expected error for missing formula_id")
	}
}

func TestAddIngredient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("dropped at a point", func(t *testing.T) {
		text, isErr := call(t, f.srv.handleAddIngredient, map[string]any{
			"formula_id": formula.SampleID, "ingredient_id": "ing-5", "x": 300.0, "y": 200.0,
		})
		if isErr {
			t.Fatalf("tool error: %s", text)
		}
		f.nodeFor(t, "ing-5")
	})

	t.Run("placed at the next slot", func(t *testing.T) {
		text, isErr := call(t, f.srv.handleAddIngredient, map[string]any{
			"formula_id": formula.SampleID, "ingredient_id": "ing-6",
		})
		if isErr {
			t.Fatalf("tool error: %s", text)
		}
		items, err := f.formulas.Items(ctx, formula.SampleID)
		if err != nil {
			t.Fatalf("Items: %v", err)
		}
		found := false
		for _, it := range items {
			found = found || it.Ref == "ing-6"
		}
		if !found {
			t.Error("ing-6 not written to the formula")
		}
	})

	t.Run("unknown ingredient", func(t *testing.T) {
		_, isErr := call(t, f.srv.handleAddIngredient, map[string]any{
			"formula_id": formula.SampleID, "ingredient_id": "ing-999",
		})
		if !isErr {
			t.Error("expected error for unknown ingredient")
		}
	})

	entries, err := f.audit.Query(ctx, audit.QueryFilter{ActorID: agentID})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) == 0 {
		t.Error("expected writes attributed to the mcp agent")
	}
}

func TestSetAmount(t *testing.T) {
	f := newFixture(t)

	text, isErr := call(t, f.srv.handleSetAmount, map[string]any{
		"formula_id": formula.SampleID, "ingredient_id": "ing-1", "amount": 15.0,
	})
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	items, _ := f.formulas.Items(context.Background(), formula.SampleID)
	for _, it := range items {
		if it.Ref == "ing-1" && it.Amount != 15 {
			t.Errorf("amount = %v, want 15", it.Amount)
		}
	}

	_, isErr = call(t, f.srv.handleSetAmount, map[string]any{
		"formula_id": formula.SampleID, "ingredient_id": "ing-1", "amount": -1.0,
	})
	if !isErr {
		t.Error("expected error for negative amount")
	}
}

func TestConnectAndGroup(t *testing.T) {
	f := newFixture(t)
	a, b := f.nodeFor(t, "ing-1"), f.nodeFor(t, "ing-4")

	args := map[string]any{"formula_id": formula.SampleID, "source": string(a), "target": string(b), "kind": "boost"}
	text, isErr := call(t, f.srv.handleConnectNodes, args)
	if isErr || !strings.Contains(text, "boost") {
		t.Fatalf("connect: %q (error %v)", text, isErr)
	}
	if _, isErr := call(t, f.srv.handleConnectNodes, args); !isErr {
		t.Error("duplicate connection should be rejected")
	}

	text, isErr = call(t, f.srv.handleGroupNodes, map[string]any{
		"formula_id": formula.SampleID, "nodes": string(a) + ", " + string(b), "label": "Woody amber",
	})
	if isErr || !strings.Contains(text, "2 members") {
		t.Fatalf("group: %q (error %v)", text, isErr)
	}

	text, _ = call(t, f.srv.handleGetCanvas, map[string]any{"formula_id": formula.SampleID})
	if !strings.Contains(text, "Connections (1)") || !strings.Contains(text, `"Woody amber"`) {
		t.Errorf("canvas does not show the edits:\n%s", text)
	}
}

func TestSuggestBridge(t *testing.T) {
	f := newFixture(t)
	a, b := f.nodeFor(t, "ing-1"), f.nodeFor(t, "ing-2")

	text, isErr := call(t, f.srv.handleSuggestBridge, map[string]any{
		"formula_id": formula.SampleID, "node_a": string(a), "node_b": string(b),
	})
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	items, _ := f.formulas.Items(context.Background(), formula.SampleID)
	if len(items) != 5 {
		t.Errorf("expected the bridge ingredient in the formula, got %d items", len(items))
	}
}

func TestAnalyzeFormula(t *testing.T) {
	f := newFixture(t)

	text, isErr := call(t, f.srv.handleAnalyzeFormula, map[string]any{"formula_id": formula.SampleID})
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	for _, want := range []string{"transparent woody amber", "Long (7+ hours)", "Iso E Super + Ambroxan"} {
		if !strings.Contains(text, want) {
			t.Errorf("analysis lacks %q:\n%s", want, text)
		}
	}
}

func TestNodeIDs(t *testing.T) {
	got := nodeIDs(" a, b ,,c ")
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("nodeIDs = %v", got)
	}
}
