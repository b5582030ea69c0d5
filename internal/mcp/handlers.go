package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/formula-canvas/internal/analysis"
	"github.com/ziadkadry99/formula-canvas/internal/canvas"
	"github.com/ziadkadry99/formula-canvas/internal/catalog"
	"github.com/ziadkadry99/formula-canvas/internal/editor"
	"github.com/ziadkadry99/formula-canvas/internal/formula"
)

// handleListFormulas lists every formula.
func (s *Server) handleListFormulas(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	formulas, err := s.formulas.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing formulas failed: %v", err)), nil
	}
	if len(formulas) == 0 {
		return mcp.NewToolResultText("No formulas yet. Create one through the HTTP API or run `formulacanvas server --sample`."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d formula(s):\n", len(formulas))
	for _, f := range formulas {
		fmt.Fprintf(&sb, "- %s: %s (target total %g)\n", f.ID, f.Name, f.TargetTotal)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleSearchIngredients filters the catalog by name and family.
func (s *Server) handleSearchIngredients(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := strings.ToLower(request.GetString("query", ""))
	family := request.GetString("family", "")
	limit := request.GetInt("limit", 20)
	if limit <= 0 {
		limit = 20
	}

	var found []catalog.Ingredient
	for _, ing := range s.catalog.All() {
		if query != "" && !strings.Contains(strings.ToLower(ing.Name), query) {
			continue
		}
		if family != "" && !hasFamily(ing, family) {
			continue
		}
		found = append(found, ing)
		if len(found) >= limit {
			break
		}
	}
	if len(found) == 0 {
		return mcp.NewToolResultText("No matching ingredients."), nil
	}
	return mcp.NewToolResultText(formatIngredients(found)), nil
}

func hasFamily(ing catalog.Ingredient, family string) bool {
	for _, f := range ing.Families {
		if strings.EqualFold(f, family) {
			return true
		}
	}
	return false
}

// handleGetCanvas describes the canvas of one formula.
func (s *Server) handleGetCanvas(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, res := s.session(ctx, request)
	if res != nil {
		return res, nil
	}
	return mcp.NewToolResultText(describeCanvas(sess.State())), nil
}

// session opens the editor session named by the formula_id argument, or
// returns the tool error to answer with.
func (s *Server) session(ctx context.Context, request mcp.CallToolRequest) (*editor.Session, *mcp.CallToolResult) {
	id, err := request.RequireString("formula_id")
	if err != nil {
		return nil, mcp.NewToolResultError("missing required parameter: formula_id")
	}
	sess, err := s.editor.Session(ctx, id)
	if errors.Is(err, formula.ErrNotFound) {
		return nil, mcp.NewToolResultError(fmt.Sprintf("No formula with id %q. Use list_formulas to see the available ids.", id))
	}
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("opening formula failed: %v", err))
	}
	return sess, nil
}

func formatIngredients(ings []catalog.Ingredient) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d ingredient(s):\n", len(ings))
	for _, ing := range ings {
		fmt.Fprintf(&sb, "- %s: %s", ing.ID, ing.Name)
		if ing.Note != "" {
			fmt.Fprintf(&sb, " [%s]", ing.Note)
		}
		if len(ing.Families) > 0 {
			fmt.Fprintf(&sb, " families: %s", strings.Join(ing.Families, ", "))
		}
		if ing.IFRALimit > 0 {
			fmt.Fprintf(&sb, " limit: %g%%", ing.IFRALimit)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// describeCanvas renders a session state as text for agents.
func describeCanvas(st editor.State) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Formula %s\n", st.FormulaID)

	fmt.Fprintf(&sb, "\nNodes (%d):\n", len(st.Nodes))
	for _, n := range st.Nodes {
		fmt.Fprintf(&sb, "- %s at (%.0f, %.0f): ", n.ID, n.Position.X, n.Position.Y)
		switch {
		case n.Ingredient != nil:
			fmt.Fprintf(&sb, "%s (%s) amount %g, %.1f%%", n.Ingredient.Name, n.Ingredient.Ref, n.Ingredient.Amount, n.Ingredient.Percent)
		case n.Accord != nil:
			fmt.Fprintf(&sb, "accord %q of %d, %.1f%%", n.Accord.Label, len(n.Accord.Members), n.Accord.TotalPercent)
		case n.Output != nil:
			fmt.Fprintf(&sb, "output %q", n.Output.Label)
		}
		if n.HiddenBy != "" {
			fmt.Fprintf(&sb, " (inside %s)", n.HiddenBy)
		}
		sb.WriteString("\n")
	}

	if len(st.Connections) > 0 {
		fmt.Fprintf(&sb, "\nConnections (%d):\n", len(st.Connections))
		for _, c := range st.Connections {
			fmt.Fprintf(&sb, "- %s: %s -> %s %s %.2f\n", c.ID, c.Source, c.Target, c.Kind, c.Strength)
		}
	}

	if len(st.Groups) > 0 {
		fmt.Fprintf(&sb, "\nGroups (%d):\n", len(st.Groups))
		for _, g := range st.Groups {
			verdict := "compliant"
			if !g.Compliance.Pass {
				verdict = "exceeds limits"
			}
			fmt.Fprintf(&sb, "- %s %q: %d members, %.1f%% of formula, %s\n", g.GroupID, g.Label, len(g.Members), g.TotalPercent, verdict)
			for _, sh := range g.Compliance.Violations {
				fmt.Fprintf(&sb, "    %s is %.1f%% of the group (limit %g%%)\n", sh.Name, sh.Percent, sh.Limit)
			}
		}
	}

	if st.Analysis.Result != nil {
		sb.WriteString("\nLatest analysis:\n")
		sb.WriteString(formatAnalysis(st.Analysis.Result.Result))
	}
	if st.Error != "" {
		fmt.Fprintf(&sb, "\nError: %s\n", st.Error)
	}
	return sb.String()
}

func formatAnalysis(r analysis.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Profile: %s\n", r.FinalScentProfile)
	fmt.Fprintf(&sb, "Longevity: %s\n", r.Longevity)
	fmt.Fprintf(&sb, "Projection: %s\n", r.Projection)
	for _, in := range r.Interactions {
		fmt.Fprintf(&sb, "- %s: %s\n", strings.Join(in.Ingredients, " + "), in.Effect)
	}
	return sb.String()
}

func nodeIDs(csv string) []canvas.NodeID {
	var ids []canvas.NodeID
	for _, p := range strings.Split(csv, ",") {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, canvas.NodeID(p))
		}
	}
	return ids
}
