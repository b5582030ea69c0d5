package canvas

import "github.com/ziadkadry99/formula-canvas/internal/geometry"

// HitNode returns the topmost visible node whose extent contains p (canvas
// space). Nodes listed in exclude are skipped.
func (g *Graph) HitNode(p geometry.Point, exclude ...NodeID) (Node, bool) {
	for i := len(g.nodes) - 1; i >= 0; i-- {
		n := g.nodes[i]
		if n.Hidden() || contains(exclude, n.ID) {
			continue
		}
		if n.Bounds().Contains(p) {
			return *n.clone(), true
		}
	}
	return Node{}, false
}

// HitPort returns the topmost visible node whose output port is within
// PortRadius of p. The output sink has no output port.
func (g *Graph) HitPort(p geometry.Point) (Node, bool) {
	for i := len(g.nodes) - 1; i >= 0; i-- {
		n := g.nodes[i]
		if n.Hidden() || n.Kind() == KindOutput {
			continue
		}
		if n.OutputPort().DistanceTo(p) <= PortRadius {
			return *n.clone(), true
		}
	}
	return Node{}, false
}

func contains(ids []NodeID, id NodeID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
