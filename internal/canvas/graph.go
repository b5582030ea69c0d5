package canvas

import (
	"sort"

	"github.com/google/uuid"

	"github.com/ziadkadry99/formula-canvas/internal/geometry"
)

// Graph is the local, authoritative copy of the visual graph for one editing
// session. It is not safe for concurrent use; the owning session serializes
// access.
//
// Node order is z-order: later nodes are drawn on top and win hit tests.
type Graph struct {
	nodes       []*Node
	index       map[NodeID]*Node
	connections []*Connection
	groups      []*Group
	retired     map[NodeID]struct{}
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		index:   make(map[NodeID]*Node),
		retired: make(map[NodeID]struct{}),
	}
}

func newNodeID() NodeID             { return NodeID(uuid.New().String()) }
func newConnectionID() ConnectionID { return ConnectionID(uuid.New().String()) }
func newGroupID() GroupID           { return GroupID(uuid.New().String()) }

// Len returns the number of nodes, hidden ones included.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id NodeID) (Node, bool) {
	n, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return *n.clone(), true
}

// Has reports whether a node with the given id exists.
func (g *Graph) Has(id NodeID) bool {
	_, ok := g.index[id]
	return ok
}

// Nodes returns copies of all nodes in z-order, hidden ones included.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, *n.clone())
	}
	return out
}

// VisibleNodes returns copies of the nodes not folded inside an accord.
func (g *Graph) VisibleNodes() []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		if !n.Hidden() {
			out = append(out, *n.clone())
		}
	}
	return out
}

// IngredientNodes returns every ingredient node, hidden ones included, in
// creation order.
func (g *Graph) IngredientNodes() []Node {
	var out []Node
	for _, n := range g.nodes {
		if n.Kind() == KindIngredient {
			out = append(out, *n.clone())
		}
	}
	return out
}

// IngredientNodeFor returns the oldest ingredient node referencing ref.
func (g *Graph) IngredientNodeFor(ref string) (Node, bool) {
	for _, n := range g.nodes {
		if p, ok := n.Payload.(IngredientPayload); ok && p.Ref == ref {
			return *n.clone(), true
		}
	}
	return Node{}, false
}

// Connections returns copies of all connections in creation order.
func (g *Graph) Connections() []Connection {
	out := make([]Connection, 0, len(g.connections))
	for _, c := range g.connections {
		out = append(out, *c)
	}
	return out
}

// Connection returns the connection with the given id.
func (g *Graph) Connection(id ConnectionID) (Connection, bool) {
	for _, c := range g.connections {
		if c.ID == id {
			return *c, true
		}
	}
	return Connection{}, false
}

// Groups returns copies of all groups in creation order.
func (g *Graph) Groups() []Group {
	out := make([]Group, 0, len(g.groups))
	for _, gr := range g.groups {
		out = append(out, *gr.clone())
	}
	return out
}

// Group returns the group with the given id.
func (g *Graph) Group(id GroupID) (Group, bool) {
	if gr := g.group(id); gr != nil {
		return *gr.clone(), true
	}
	return Group{}, false
}

func (g *Graph) group(id GroupID) *Group {
	for _, gr := range g.groups {
		if gr.ID == id {
			return gr
		}
	}
	return nil
}

// AddNode places a new node carrying payload at pos and returns it.
// A nil payload or non-finite position is rejected.
func (g *Graph) AddNode(payload Payload, pos geometry.Point) (Node, bool) {
	if payload == nil || !pos.IsFinite() {
		return Node{}, false
	}
	if _, ok := payload.(AccordPayload); ok {
		// Accord nodes only come from CollapseGroup so that members and
		// HiddenBy stay consistent.
		return Node{}, false
	}
	n := &Node{ID: newNodeID(), Position: pos, Payload: payload}
	g.insert(n)
	return *n.clone(), true
}

// insertNode adds a node with a preassigned id, as read from a snapshot.
func (g *Graph) insertNode(n Node) bool {
	if n.ID == "" || n.Payload == nil || !n.Position.IsFinite() {
		return false
	}
	if _, dup := g.index[n.ID]; dup {
		return false
	}
	if _, gone := g.retired[n.ID]; gone {
		return false
	}
	g.insert(n.clone())
	return true
}

func (g *Graph) insert(n *Node) {
	g.nodes = append(g.nodes, n)
	g.index[n.ID] = n
}

// MoveNode sets the position of a node.
func (g *Graph) MoveNode(id NodeID, pos geometry.Point) bool {
	n, ok := g.index[id]
	if !ok || !pos.IsFinite() {
		return false
	}
	n.Position = pos
	return true
}

// MoveNodesBy translates every listed visible node by delta and returns how
// many moved. Unknown and duplicate ids are skipped.
func (g *Graph) MoveNodesBy(ids []NodeID, delta geometry.Point) int {
	if !delta.IsFinite() {
		return 0
	}
	seen := make(map[NodeID]bool, len(ids))
	moved := 0
	for _, id := range ids {
		n, ok := g.index[id]
		if !ok || seen[id] || n.Hidden() {
			continue
		}
		seen[id] = true
		n.Position = n.Position.Add(delta)
		moved++
	}
	return moved
}

// DeleteNode removes a node and everything that references it: connections
// with it as an endpoint, its group memberships and its membership in any
// accord. Deleting an accord node releases its folded members in place.
// An accord left with no members is deleted as well.
func (g *Graph) DeleteNode(id NodeID) bool {
	n, ok := g.index[id]
	if !ok {
		return false
	}

	if acc, isAccord := n.Payload.(AccordPayload); isAccord {
		g.release(acc, n.Position.Sub(acc.Origin))
	}

	g.removeNode(id)
	g.dropConnectionsOf(id)
	for _, gr := range g.groups {
		gr.Members = removeID(gr.Members, id)
	}

	if n.HiddenBy != "" {
		if host, ok := g.index[n.HiddenBy]; ok {
			acc := host.Payload.(AccordPayload)
			acc.Members = removeID(acc.Members, id)
			host.Payload = acc
			if len(acc.Members) == 0 {
				g.DeleteNode(host.ID)
			} else {
				g.refreshAccord(host)
			}
		}
	}
	return true
}

func (g *Graph) removeNode(id NodeID) {
	delete(g.index, id)
	g.retired[id] = struct{}{}
	for i, n := range g.nodes {
		if n.ID == id {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			return
		}
	}
}

func (g *Graph) dropConnectionsOf(id NodeID) {
	kept := g.connections[:0]
	for _, c := range g.connections {
		if c.Source != id && c.Target != id {
			kept = append(kept, c)
		}
	}
	g.connections = kept
}

// release unhides the members of an accord, offsetting them by delta.
func (g *Graph) release(acc AccordPayload, delta geometry.Point) {
	if !delta.IsFinite() {
		delta = geometry.Point{}
	}
	for _, m := range acc.Members {
		if mn, ok := g.index[m]; ok {
			mn.HiddenBy = ""
			mn.Position = mn.Position.Add(delta)
		}
	}
}

// AddConnection links source to target. Self loops, dangling endpoints,
// unknown kinds and an existing (source, target) pair are rejected; in the
// duplicate case the existing connection is returned with ok=false.
func (g *Graph) AddConnection(source, target NodeID, kind ConnectionKind, strength float64) (Connection, bool) {
	if source == target || !kind.Valid() {
		return Connection{}, false
	}
	if !g.Has(source) || !g.Has(target) {
		return Connection{}, false
	}
	for _, c := range g.connections {
		if c.Source == source && c.Target == target {
			return *c, false
		}
	}
	c := &Connection{
		ID:       newConnectionID(),
		Source:   source,
		Target:   target,
		Kind:     kind,
		Strength: ClampStrength(strength),
	}
	g.connections = append(g.connections, c)
	return *c, true
}

// DeleteConnection removes a connection by id.
func (g *Graph) DeleteConnection(id ConnectionID) bool {
	for i, c := range g.connections {
		if c.ID == id {
			g.connections = append(g.connections[:i], g.connections[i+1:]...)
			return true
		}
	}
	return false
}

// SetConnection changes the kind and strength of a connection.
func (g *Graph) SetConnection(id ConnectionID, kind ConnectionKind, strength float64) bool {
	if !kind.Valid() {
		return false
	}
	for _, c := range g.connections {
		if c.ID == id {
			c.Kind = kind
			c.Strength = ClampStrength(strength)
			return true
		}
	}
	return false
}

// CreateGroup makes a group of the given nodes. Ids that do not exist are
// dropped; if none remain the call is a no-op.
func (g *Graph) CreateGroup(members []NodeID, label string) (Group, bool) {
	var ids []NodeID
	for _, id := range members {
		if g.Has(id) {
			ids = append(ids, id)
		}
	}
	ids = normalizeSet(ids)
	if len(ids) == 0 {
		return Group{}, false
	}
	if label == "" {
		label = DefaultGroupLabel
	}
	gr := &Group{ID: newGroupID(), Label: label, Members: ids, Color: DefaultGroupColor}
	g.groups = append(g.groups, gr)
	return *gr.clone(), true
}

// DeleteGroup removes a group. Member nodes are untouched.
func (g *Graph) DeleteGroup(id GroupID) bool {
	for i, gr := range g.groups {
		if gr.ID == id {
			g.groups = append(g.groups[:i], g.groups[i+1:]...)
			return true
		}
	}
	return false
}

// RenameGroup sets a group's label. Empty labels are rejected.
func (g *Graph) RenameGroup(id GroupID, label string) bool {
	gr := g.group(id)
	if gr == nil || label == "" {
		return false
	}
	gr.Label = label
	return true
}

// SetGroupColor sets a group's presentation colour.
func (g *Graph) SetGroupColor(id GroupID, color string) bool {
	gr := g.group(id)
	if gr == nil || color == "" {
		return false
	}
	gr.Color = color
	return true
}

// UpdateIngredient refreshes the derived fields of an ingredient node. The
// position is never touched. An empty name keeps the current one.
func (g *Graph) UpdateIngredient(id NodeID, name string, amount, percent float64) bool {
	n, ok := g.index[id]
	if !ok {
		return false
	}
	p, ok := n.Payload.(IngredientPayload)
	if !ok {
		return false
	}
	if name != "" {
		p.Name = name
	}
	p.Amount = amount
	p.Percent = percent
	n.Payload = p
	if n.HiddenBy != "" {
		if host, ok := g.index[n.HiddenBy]; ok {
			g.refreshAccord(host)
		}
	}
	return true
}

// refreshAccord recomputes an accord's totals from its members.
func (g *Graph) refreshAccord(host *Node) {
	acc, ok := host.Payload.(AccordPayload)
	if !ok {
		return
	}
	acc.TotalAmount, acc.TotalPercent = 0, 0
	for _, m := range acc.Members {
		mn, ok := g.index[m]
		if !ok {
			continue
		}
		switch p := mn.Payload.(type) {
		case IngredientPayload:
			acc.TotalAmount += p.Amount
			acc.TotalPercent += p.Percent
		case AccordPayload:
			acc.TotalAmount += p.TotalAmount
			acc.TotalPercent += p.TotalPercent
		case OutputPayload:
		}
	}
	host.Payload = acc
}

func removeID(ids []NodeID, id NodeID) []NodeID {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

func normalizeSet(ids []NodeID) []NodeID {
	if len(ids) == 0 {
		return nil
	}
	sorted := append([]NodeID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	out := sorted[:1]
	for _, id := range sorted[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}
