package canvas

// SelectionKind discriminates what is selected.
type SelectionKind string

const (
	SelectNone   SelectionKind = "none"
	SelectSingle SelectionKind = "single"
	SelectMulti  SelectionKind = "multi"
	SelectGroup  SelectionKind = "group"
)

// Selection is either a set of nodes or exactly one group, never both.
type Selection struct {
	nodes []NodeID
	group GroupID
}

// Kind reports the shape of the selection.
func (s Selection) Kind() SelectionKind {
	switch {
	case s.group != "":
		return SelectGroup
	case len(s.nodes) == 1:
		return SelectSingle
	case len(s.nodes) > 1:
		return SelectMulti
	}
	return SelectNone
}

// Nodes returns the selected node ids in selection order.
func (s Selection) Nodes() []NodeID { return append([]NodeID(nil), s.nodes...) }

// Group returns the selected group, if any.
func (s Selection) Group() (GroupID, bool) { return s.group, s.group != "" }

// Contains reports whether a node is selected.
func (s Selection) Contains(id NodeID) bool { return contains(s.nodes, id) }

// SelectOnly replaces the selection with a single node.
func (s *Selection) SelectOnly(id NodeID) {
	s.group = ""
	s.nodes = []NodeID{id}
}

// Add adds a node to the selection, clearing any group selection.
func (s *Selection) Add(id NodeID) {
	s.group = ""
	if !s.Contains(id) {
		s.nodes = append(s.nodes, id)
	}
}

// Toggle flips a node's membership in the selection.
func (s *Selection) Toggle(id NodeID) {
	s.group = ""
	if s.Contains(id) {
		s.nodes = removeID(append([]NodeID(nil), s.nodes...), id)
		return
	}
	s.nodes = append(s.nodes, id)
}

// SelectGroup selects one group and deselects every node.
func (s *Selection) SelectGroup(id GroupID) {
	s.nodes = nil
	s.group = id
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.nodes = nil
	s.group = ""
}

// Prune forgets selected ids that no longer exist (or are hidden) in g.
func (s *Selection) Prune(g *Graph) {
	if s.group != "" {
		if _, ok := g.Group(s.group); !ok {
			s.group = ""
		}
	}
	var kept []NodeID
	for _, id := range s.nodes {
		if n, ok := g.Node(id); ok && !n.Hidden() {
			kept = append(kept, id)
		}
	}
	s.nodes = kept
}
