package inspector

import (
	"math"
	"testing"

	"github.com/ziadkadry99/formula-canvas/internal/canvas"
	"github.com/ziadkadry99/formula-canvas/internal/catalog"
	"github.com/ziadkadry99/formula-canvas/internal/geometry"
)

var lookup = catalog.MapLookup{
	"ing-1": {ID: "ing-1", Name: "Iso E Super", IFRALimit: 20, Families: []string{"Woody", "Amber"}},
	"ing-3": {ID: "ing-3", Name: "Bergamot Oil Reggio", IFRALimit: 0.4, Families: []string{"Citrus"}},
}

func build(t *testing.T) (*canvas.Graph, canvas.Node, canvas.Node) {
	t.Helper()
	g := canvas.NewGraph()
	a, _ := g.AddNode(canvas.IngredientPayload{Ref: "ing-1", Name: "Iso E Super", Amount: 12, Percent: 12}, geometry.Pt(0, 0))
	b, _ := g.AddNode(canvas.IngredientPayload{Ref: "ing-3", Name: "Bergamot Oil Reggio", Amount: 2.8, Percent: 2.8}, geometry.Pt(300, 0))
	g.AddConnection(a.ID, b.ID, canvas.Boost, 0.4)
	return g, a, b
}

func TestProjectEmpty(t *testing.T) {
	g, _, _ := build(t)
	var sel canvas.Selection
	if v := Project(sel, g, lookup, 40); v.Kind != Empty {
		t.Errorf("kind = %s", v.Kind)
	}
	sel.SelectOnly("deleted")
	if v := Project(sel, g, lookup, 40); v.Kind != Empty {
		t.Errorf("stale selection should project to empty, got %s", v.Kind)
	}
}

func TestProjectSingleIngredient(t *testing.T) {
	g, a, _ := build(t)
	var sel canvas.Selection
	sel.SelectOnly(a.ID)

	v := Project(sel, g, lookup, 40)
	if v.Kind != Single || v.Node == nil {
		t.Fatalf("view = %+v", v)
	}
	d := v.Node.Ingredient
	if d == nil || d.Catalog == nil || d.Catalog.IFRALimit != 20 {
		t.Errorf("ingredient detail = %+v", d)
	}
	if v.Node.Outgoing != 1 || v.Node.Incoming != 0 {
		t.Errorf("degree = in %d out %d", v.Node.Incoming, v.Node.Outgoing)
	}
}

func TestProjectMulti(t *testing.T) {
	g, a, b := build(t)
	var sel canvas.Selection
	sel.Add(a.ID)
	sel.Add(b.ID)

	v := Project(sel, g, lookup, 40)
	if v.Kind != Multi || len(v.Nodes) != 2 {
		t.Fatalf("view = %+v", v)
	}
	if v.Totals.Count != 2 || math.Abs(v.Totals.Amount-14.8) > 1e-9 {
		t.Errorf("totals = %+v", v.Totals)
	}
}

func TestProjectGroup(t *testing.T) {
	g, a, b := build(t)
	gr, _ := g.CreateGroup([]canvas.NodeID{a.ID, b.ID}, "Top")
	var sel canvas.Selection
	sel.SelectGroup(gr.ID)

	v := Project(sel, g, lookup, 40)
	if v.Kind != Group || v.Group == nil {
		t.Fatalf("view = %+v", v)
	}
	if v.Group.Label != "Top" || v.Group.Bounds == nil {
		t.Errorf("telemetry = %+v", v.Group)
	}
	// Bergamot is ~18.9% of the group against a 0.4% limit.
	if v.Group.Compliance.Pass {
		t.Error("group should fail compliance")
	}
}

func TestProjectCollapsedAccord(t *testing.T) {
	g, a, b := build(t)
	gr, _ := g.CreateGroup([]canvas.NodeID{a.ID, b.ID}, "Top")
	host, _ := g.CollapseGroup(gr.ID)
	var sel canvas.Selection
	sel.SelectOnly(host.ID)

	v := Project(sel, g, lookup, 40)
	if v.Kind != Single || v.Node.Accord == nil {
		t.Fatalf("view = %+v", v)
	}
	if len(v.Node.Accord.Members) != 2 || v.Node.Label != "Top" {
		t.Errorf("accord detail = %+v", v.Node.Accord)
	}
}
