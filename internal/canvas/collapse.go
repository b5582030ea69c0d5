package canvas

import "github.com/ziadkadry99/formula-canvas/internal/geometry"

// CollapseGroup folds a group's visible members into a single accord node
// placed at their centroid. Members keep their positions and get HiddenBy set
// to the new node, so they still count as representations of their line
// items. The group itself is removed; ExpandAccord recreates it.
//
// A group whose members are all hidden already (or that has no members) is
// left as is.
func (g *Graph) CollapseGroup(id GroupID) (Node, bool) {
	gr := g.group(id)
	if gr == nil {
		return Node{}, false
	}

	var members []*Node
	for _, m := range gr.Members {
		if n, ok := g.index[m]; ok && !n.Hidden() {
			members = append(members, n)
		}
	}
	if len(members) == 0 {
		return Node{}, false
	}

	var sum geometry.Point
	for _, m := range members {
		sum = sum.Add(m.Position)
	}
	centroid := sum.Scale(1 / float64(len(members)))

	acc := AccordPayload{
		Label:  gr.Label,
		Color:  gr.Color,
		Origin: centroid,
	}
	host := &Node{ID: newNodeID(), Position: centroid}
	for _, m := range members {
		acc.Members = append(acc.Members, m.ID)
		m.HiddenBy = host.ID
	}
	host.Payload = acc
	g.refreshAccord(host)
	g.insert(host)
	g.DeleteGroup(id)
	return *host.clone(), true
}

// ExpandAccord dissolves an accord node: its members become visible again,
// shifted by however far the accord was moved since collapse, and the group
// is recreated with the accord's label and colour. Connections attached to
// the accord node itself are dropped with it.
func (g *Graph) ExpandAccord(id NodeID) (Group, bool) {
	host, ok := g.index[id]
	if !ok {
		return Group{}, false
	}
	acc, ok := host.Payload.(AccordPayload)
	if !ok {
		return Group{}, false
	}

	members := append([]NodeID(nil), acc.Members...)
	g.release(acc, host.Position.Sub(acc.Origin))
	// Members are no longer hidden, so deleting the host does not release them
	// a second time.
	acc.Members = nil
	host.Payload = acc
	g.DeleteNode(id)

	gr, ok := g.CreateGroup(members, acc.Label)
	if !ok {
		return Group{}, false
	}
	if acc.Color != "" {
		g.SetGroupColor(gr.ID, acc.Color)
		gr.Color = acc.Color
	}
	return gr, true
}
