package canvas

// PruneReport counts what Prune removed.
type PruneReport struct {
	DanglingConnections  int `json:"dangling_connections"`
	DuplicateConnections int `json:"duplicate_connections"`
	SelfLoops            int `json:"self_loops"`
	DanglingMembers      int `json:"dangling_members"`
	OrphanedHidden       int `json:"orphaned_hidden"`
}

// Changed reports whether anything was removed.
func (r PruneReport) Changed() bool {
	return r.DanglingConnections+r.DuplicateConnections+r.SelfLoops+r.DanglingMembers+r.OrphanedHidden > 0
}

// Prune repairs referential inconsistencies that arrive from outside the
// mutators, typically a persisted layout that refers to nodes which no longer
// exist. It drops connections with a missing endpoint, self loops and
// repeated (source, target) pairs (the oldest wins), group and accord members
// that no longer exist, and unhides nodes whose accord is gone.
func (g *Graph) Prune() PruneReport {
	var r PruneReport

	type pair struct{ s, t NodeID }
	seen := make(map[pair]bool, len(g.connections))
	kept := g.connections[:0]
	for _, c := range g.connections {
		switch {
		case !g.Has(c.Source) || !g.Has(c.Target):
			r.DanglingConnections++
		case c.Source == c.Target:
			r.SelfLoops++
		case seen[pair{c.Source, c.Target}]:
			r.DuplicateConnections++
		default:
			seen[pair{c.Source, c.Target}] = true
			c.Strength = ClampStrength(c.Strength)
			if !c.Kind.Valid() {
				c.Kind = Blend
			}
			kept = append(kept, c)
		}
	}
	g.connections = kept

	for _, gr := range g.groups {
		before := len(gr.Members)
		gr.Members = g.existing(gr.Members)
		r.DanglingMembers += before - len(gr.Members)
	}

	for _, n := range g.nodes {
		if acc, ok := n.Payload.(AccordPayload); ok {
			before := len(acc.Members)
			var members []NodeID
			for _, m := range g.existing(acc.Members) {
				if mn := g.index[m]; mn.HiddenBy == n.ID {
					members = append(members, m)
				}
			}
			acc.Members = members
			n.Payload = acc
			r.DanglingMembers += before - len(acc.Members)
		}
	}
	for _, n := range g.nodes {
		if n.HiddenBy == "" {
			continue
		}
		host, ok := g.index[n.HiddenBy]
		if !ok {
			n.HiddenBy = ""
			r.OrphanedHidden++
			continue
		}
		if acc, isAccord := host.Payload.(AccordPayload); !isAccord || !contains(acc.Members, n.ID) {
			n.HiddenBy = ""
			r.OrphanedHidden++
		}
	}
	for _, n := range g.nodes {
		if n.Kind() == KindAccord {
			g.refreshAccord(n)
		}
	}
	return r
}

func (g *Graph) existing(ids []NodeID) []NodeID {
	out := ids[:0]
	for _, id := range ids {
		if g.Has(id) {
			out = append(out, id)
		}
	}
	return out
}
