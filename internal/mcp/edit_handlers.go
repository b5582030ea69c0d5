package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/formula-canvas/internal/audit"
	"github.com/ziadkadry99/formula-canvas/internal/canvas"
	"github.com/ziadkadry99/formula-canvas/internal/editor"
	"github.com/ziadkadry99/formula-canvas/internal/formula"
	"github.com/ziadkadry99/formula-canvas/internal/geometry"
)

const agentID = "mcp"

// asAgent attributes canonical writes to the MCP agent in the audit trail.
func asAgent(ctx context.Context) context.Context {
	return formula.WithActor(ctx, audit.ActorAgent, agentID)
}

// handleAddIngredient adds a catalog ingredient to a formula.
func (s *Server) handleAddIngredient(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := request.RequireString("ingredient_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: ingredient_id"), nil
	}
	ing, ok := s.catalog.Lookup(ref)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("No ingredient with id %q. Use search_ingredients to find ids.", ref)), nil
	}
	sess, res := s.session(ctx, request)
	if res != nil {
		return res, nil
	}
	ctx = asAgent(ctx)

	args := request.GetArguments()
	_, hasX := args["x"]
	_, hasY := args["y"]
	if hasX && hasY {
		payload, _ := json.Marshal(editor.DropPayload{ID: ing.ID, Name: ing.Name})
		at := geometry.Pt(request.GetFloat("x", 0), request.GetFloat("y", 0))
		id, _ := sess.Drop(ctx, payload, at)
		return mcp.NewToolResultText(fmt.Sprintf("%s is node %s.", ing.Name, id)), nil
	}

	if err := s.formulas.AddLineItem(ctx, sess.ID(), ing.ID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("adding ingredient failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Added %s to the formula; it is placed at the next free slot.", ing.Name)), nil
}

// handleSetAmount writes a line item's amount to the formula.
func (s *Server) handleSetAmount(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("formula_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: formula_id"), nil
	}
	ref, err := request.RequireString("ingredient_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: ingredient_id"), nil
	}
	amount, err := request.RequireFloat("amount")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: amount"), nil
	}

	switch err := s.formulas.SetAmount(asAgent(ctx), id, ref, amount); {
	case errors.Is(err, formula.ErrNotFound), errors.Is(err, formula.ErrItemNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("%s is not in formula %s.", ref, id)), nil
	case errors.Is(err, formula.ErrInvalidAmount):
		return mcp.NewToolResultError("amount must be non-negative"), nil
	case err != nil:
		return mcp.NewToolResultError(fmt.Sprintf("setting amount failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Set %s to %g.", ref, amount)), nil
}

// handleConnectNodes links two nodes.
func (s *Server) handleConnectNodes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, res := s.session(ctx, request)
	if res != nil {
		return res, nil
	}
	source, err := request.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: source"), nil
	}
	target, err := request.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: target"), nil
	}
	kind := canvas.ConnectionKind(request.GetString("kind", string(canvas.Blend)))
	strength := request.GetFloat("strength", sess.DefaultStrength())

	c, ok := sess.Connect(canvas.NodeID(source), canvas.NodeID(target), kind, strength)
	if !ok {
		return mcp.NewToolResultError("Connection rejected: an endpoint is unknown, it would be a self loop, or the pair is already connected."), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Connected %s -> %s as %s (%s, %.2f).", c.Source, c.Target, c.ID, c.Kind, c.Strength)), nil
}

// handleGroupNodes groups nodes into an accord.
func (s *Server) handleGroupNodes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, res := s.session(ctx, request)
	if res != nil {
		return res, nil
	}
	csv, err := request.RequireString("nodes")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: nodes"), nil
	}

	sess.Select(nodeIDs(csv))
	g, ok := sess.CreateGroupFromSelection(request.GetString("label", ""))
	if !ok {
		return mcp.NewToolResultError("No group created: none of the nodes exist on the canvas."), nil
	}
	for _, t := range sess.State().Groups {
		if t.GroupID == g.ID {
			return mcp.NewToolResultText(fmt.Sprintf("Created group %s %q.\n%s", g.ID, g.Label, describeGroupCompliance(t.Compliance.Pass, len(t.Members), t.TotalPercent))), nil
		}
	}
	return mcp.NewToolResultText(fmt.Sprintf("Created group %s %q.", g.ID, g.Label)), nil
}

func describeGroupCompliance(pass bool, members int, percent float64) string {
	verdict := "all members within their limits"
	if !pass {
		verdict = "at least one member exceeds its limit"
	}
	return fmt.Sprintf("%d members, %.1f%% of the formula, %s.", members, percent, verdict)
}

// handleSuggestBridge adds the ingredient closest to two nodes' midpoint.
func (s *Server) handleSuggestBridge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, res := s.session(ctx, request)
	if res != nil {
		return res, nil
	}
	a, err := request.RequireString("node_a")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: node_a"), nil
	}
	b, err := request.RequireString("node_b")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: node_b"), nil
	}

	sess.Select([]canvas.NodeID{canvas.NodeID(a), canvas.NodeID(b)})
	n, err := sess.Bridge(asAgent(ctx))
	switch {
	case errors.Is(err, editor.ErrUnavailable):
		return mcp.NewToolResultError("The similarity index is not available."), nil
	case errors.Is(err, editor.ErrNeedTwoNodes):
		return mcp.NewToolResultError("Both nodes must be ingredient nodes on the canvas."), nil
	case errors.Is(err, editor.ErrNoCandidate):
		return mcp.NewToolResultText("No catalog ingredient is left to bridge these two."), nil
	case err != nil:
		return mcp.NewToolResultError(fmt.Sprintf("bridge failed: %v", err)), nil
	}
	p := n.Payload.(canvas.IngredientPayload)
	return mcp.NewToolResultText(fmt.Sprintf("Added %s (%s) as node %s, connected from %s and %s.", p.Name, p.Ref, n.ID, a, b)), nil
}

// handleAnalyzeFormula starts an analysis and waits until it resolves.
func (s *Server) handleAnalyzeFormula(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, res := s.session(ctx, request)
	if res != nil {
		return res, nil
	}

	changes, stop := sess.Watch()
	defer stop()
	st := sess.Analyze()
	for st.InFlight {
		select {
		case _, ok := <-changes:
			if !ok {
				return mcp.NewToolResultError("the formula was closed during the analysis"), nil
			}
			st = sess.State().Analysis
		case <-ctx.Done():
			return mcp.NewToolResultError("analysis cancelled"), nil
		}
	}

	if st.Error != "" {
		return mcp.NewToolResultError(st.Error), nil
	}
	if st.Result == nil {
		return mcp.NewToolResultError("no analysis result"), nil
	}
	return mcp.NewToolResultText(formatAnalysis(st.Result.Result)), nil
}
