// Package inspector projects the current selection onto the read-only view
// model consumed by the property panel.
package inspector

import (
	"github.com/ziadkadry99/formula-canvas/internal/accord"
	"github.com/ziadkadry99/formula-canvas/internal/canvas"
	"github.com/ziadkadry99/formula-canvas/internal/catalog"
	"github.com/ziadkadry99/formula-canvas/internal/geometry"
)

// Kind discriminates the view model.
type Kind string

const (
	Empty  Kind = "empty"
	Single Kind = "single"
	Multi  Kind = "multi"
	Group  Kind = "group"
)

// View is the inspector's view model. Exactly the fields matching Kind are
// set.
type View struct {
	Kind   Kind              `json:"kind"`
	Node   *NodeView         `json:"node,omitempty"`
	Nodes  []NodeView        `json:"nodes,omitempty"`
	Totals *Totals           `json:"totals,omitempty"`
	Group  *accord.Telemetry `json:"group,omitempty"`
}

// NodeView describes one node.
type NodeView struct {
	ID         canvas.NodeID     `json:"id"`
	Kind       canvas.NodeKind   `json:"kind"`
	Label      string            `json:"label"`
	Position   geometry.Point    `json:"position"`
	Incoming   int               `json:"incoming"`
	Outgoing   int               `json:"outgoing"`
	Ingredient *IngredientDetail `json:"ingredient,omitempty"`
	Accord     *AccordDetail     `json:"accord,omitempty"`
}

// IngredientDetail is the line item plus whatever the catalog knows.
type IngredientDetail struct {
	Ref     string              `json:"ref"`
	Amount  float64             `json:"amount"`
	Percent float64             `json:"percent"`
	Catalog *catalog.Ingredient `json:"catalog,omitempty"`
}

// AccordDetail summarizes a collapsed accord.
type AccordDetail struct {
	Members      []accord.Member `json:"members"`
	TotalAmount  float64         `json:"total_amount"`
	TotalPercent float64         `json:"total_percent"`
	Profile      accord.Profile  `json:"profile"`
}

// Totals sums a multi-selection.
type Totals struct {
	Count   int     `json:"count"`
	Amount  float64 `json:"amount"`
	Percent float64 `json:"percent"`
}

// Project derives the view for sel. Ids that no longer exist are ignored;
// a selection with nothing left projects to Empty.
func Project(sel canvas.Selection, g *canvas.Graph, lookup catalog.Lookup, padding float64) View {
	if id, ok := sel.Group(); ok {
		gr, found := g.Group(id)
		if !found {
			return View{Kind: Empty}
		}
		t := accord.Compute(g, gr, lookup, padding)
		return View{Kind: Group, Group: &t}
	}

	var nodes []NodeView
	for _, id := range sel.Nodes() {
		if n, ok := g.Node(id); ok {
			nodes = append(nodes, describe(g, n, lookup))
		}
	}
	switch len(nodes) {
	case 0:
		return View{Kind: Empty}
	case 1:
		return View{Kind: Single, Node: &nodes[0]}
	}

	totals := &Totals{Count: len(nodes)}
	for _, n := range nodes {
		switch {
		case n.Ingredient != nil:
			totals.Amount += n.Ingredient.Amount
			totals.Percent += n.Ingredient.Percent
		case n.Accord != nil:
			totals.Amount += n.Accord.TotalAmount
			totals.Percent += n.Accord.TotalPercent
		}
	}
	return View{Kind: Multi, Nodes: nodes, Totals: totals}
}

func describe(g *canvas.Graph, n canvas.Node, lookup catalog.Lookup) NodeView {
	v := NodeView{ID: n.ID, Kind: n.Kind(), Label: n.Label(), Position: n.Position}
	for _, c := range g.Connections() {
		if c.Target == n.ID {
			v.Incoming++
		}
		if c.Source == n.ID {
			v.Outgoing++
		}
	}

	switch p := n.Payload.(type) {
	case canvas.IngredientPayload:
		d := &IngredientDetail{Ref: p.Ref, Amount: p.Amount, Percent: p.Percent}
		if lookup != nil {
			if ing, ok := lookup.Lookup(p.Ref); ok {
				d.Catalog = &ing
			}
		}
		v.Ingredient = d
	case canvas.AccordPayload:
		ms := accord.Members(g, p.Members, lookup)
		v.Accord = &AccordDetail{
			Members:      ms,
			TotalAmount:  p.TotalAmount,
			TotalPercent: p.TotalPercent,
			Profile:      accord.WeightedProfile(ms),
		}
	case canvas.OutputPayload:
	}
	return v
}
