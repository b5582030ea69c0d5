// Package accord derives the telemetry shown on an accord group: its drawn
// boundary, the concentration-weighted olfactory profile of its members and
// the share-of-group compliance check. Everything here is a pure function of
// the current graph; nothing is cached.
package accord

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/ziadkadry99/formula-canvas/internal/canvas"
	"github.com/ziadkadry99/formula-canvas/internal/catalog"
	"github.com/ziadkadry99/formula-canvas/internal/geometry"
)

// HeaderOffset is the extra room above a group's boundary for its label.
const HeaderOffset = 20

// DefaultPadding is the margin between member extents and the boundary.
const DefaultPadding = 40

// Member is one group member as seen by the aggregator.
type Member struct {
	ID            canvas.NodeID   `json:"id"`
	Kind          canvas.NodeKind `json:"kind"`
	Ref           string          `json:"ref,omitempty"`
	Name          string          `json:"name"`
	Amount        float64         `json:"amount"`
	Concentration float64         `json:"concentration"`
	Limit         float64         `json:"limit,omitempty"`
	// profile is on the catalog.Families axis, summing to 100.
	profile []float64
}

// Vector returns a copy of the member's profile on the catalog.Families axis,
// not weighted by concentration.
func (m Member) Vector() []float64 { return append([]float64(nil), m.profile...) }

// Members resolves ids against g, skipping ids that no longer exist. Hidden
// members inside a collapsed accord participate through their own payload.
func Members(g *canvas.Graph, ids []canvas.NodeID, lookup catalog.Lookup) []Member {
	return members(g, ids, lookup, 0)
}

// maxDepth bounds recursion through nested accords.
const maxDepth = 8

func members(g *canvas.Graph, ids []canvas.NodeID, lookup catalog.Lookup, depth int) []Member {
	var out []Member
	for _, id := range ids {
		n, ok := g.Node(id)
		if !ok {
			continue
		}
		m := Member{ID: n.ID, Kind: n.Kind(), Name: n.Label(), Concentration: n.Concentration()}
		switch p := n.Payload.(type) {
		case canvas.IngredientPayload:
			m.Ref = p.Ref
			m.Amount = p.Amount
			m.profile = unknownProfile()
			if lookup != nil {
				if ing, found := lookup.Lookup(p.Ref); found {
					m.profile = ing.ProfileVector()
					if ing.HasLimit() {
						m.Limit = ing.IFRALimit
					}
					if m.Name == "" {
						m.Name = ing.Name
					}
				}
			}
		case canvas.AccordPayload:
			m.Amount = p.TotalAmount
			if depth < maxDepth {
				m.profile = weighted(members(g, p.Members, lookup, depth+1))
			}
			if m.profile == nil {
				m.profile = unknownProfile()
			}
		case canvas.OutputPayload:
			m.profile = make([]float64, len(catalog.Families))
		}
		out = append(out, m)
	}
	return out
}

func unknownProfile() []float64 {
	v := make([]float64, len(catalog.Families))
	v[len(v)-1] = 100
	return v
}

// Bounds returns the boundary drawn around the visible members of a group:
// the union of their extents grown by padding, with HeaderOffset extra on
// top. A member folded into an accord is represented by the accord node.
// ok is false when no member survives.
func Bounds(g *canvas.Graph, ids []canvas.NodeID, padding float64) (geometry.Rect, bool) {
	var (
		box   geometry.Rect
		found bool
		seen  = map[canvas.NodeID]bool{}
	)
	for _, id := range ids {
		n, ok := g.Node(id)
		if !ok {
			continue
		}
		for n.Hidden() {
			host, ok := g.Node(n.HiddenBy)
			if !ok {
				break
			}
			n = host
		}
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		if !found {
			box, found = n.Bounds(), true
			continue
		}
		box = box.Union(n.Bounds())
	}
	if !found {
		return geometry.Rect{}, false
	}
	box = box.Expand(padding)
	box.Y -= HeaderOffset
	box.H += HeaderOffset
	return box, true
}

// Profile is a concentration-weighted olfactory profile.
type Profile struct {
	Families map[string]float64 `json:"families"`
	Summary  string             `json:"summary"`
}

// WeightedProfile sums each member's profile scaled by its concentration and
// normalizes by the total concentration. Members without catalog data count
// as Unknown.
func WeightedProfile(ms []Member) Profile {
	v := weighted(ms)
	p := Profile{Families: map[string]float64{}}
	for k, w := range v {
		if w > 0 {
			p.Families[catalog.Families[k]] = w
		}
	}
	p.Summary = summarize(v, 2)
	return p
}

func weighted(ms []Member) []float64 {
	sum := make([]float64, len(catalog.Families))
	total := 0.0
	for _, m := range ms {
		if m.profile == nil || m.Concentration <= 0 {
			continue
		}
		floats.AddScaled(sum, m.Concentration, m.profile)
		total += m.Concentration
	}
	if total == 0 {
		return sum
	}
	floats.Scale(1/total, sum)
	return sum
}

// summarize formats the top n families as "Citrus (80%), Green (20%)".
func summarize(v []float64, n int) string {
	idx := make([]int, len(v))
	for k := range idx {
		idx[k] = k
	}
	sort.SliceStable(idx, func(a, b int) bool { return v[idx[a]] > v[idx[b]] })

	var parts []string
	for _, k := range idx {
		if len(parts) == n || v[k] <= 0 {
			break
		}
		parts = append(parts, fmt.Sprintf("%s (%d%%)", catalog.Families[k], int(math.Round(v[k]))))
	}
	return strings.Join(parts, ", ")
}

// Share is one member's share of the group's total concentration.
type Share struct {
	ID      canvas.NodeID `json:"id"`
	Name    string        `json:"name"`
	Percent float64       `json:"percent"`
	Limit   float64       `json:"limit,omitempty"`
	Exceeds bool          `json:"exceeds"`
}

// ComplianceResult is the outcome of the share-of-group check.
type ComplianceResult struct {
	Pass       bool    `json:"pass"`
	Shares     []Share `json:"shares"`
	Violations []Share `json:"violations,omitempty"`
}

// Compliance computes every member's share of the group total and fails if
// any share exceeds that member's regulatory limit. The comparison is
// against the group total, not the whole formula. Members without a limit
// never fail.
func Compliance(ms []Member) ComplianceResult {
	total := 0.0
	for _, m := range ms {
		if m.Concentration > 0 {
			total += m.Concentration
		}
	}
	r := ComplianceResult{Pass: true}
	for _, m := range ms {
		s := Share{ID: m.ID, Name: m.Name, Limit: m.Limit}
		if total > 0 && m.Concentration > 0 {
			s.Percent = m.Concentration / total * 100
		}
		if m.Limit > 0 && s.Percent > m.Limit {
			s.Exceeds = true
			r.Pass = false
			r.Violations = append(r.Violations, s)
		}
		r.Shares = append(r.Shares, s)
	}
	return r
}

// Telemetry bundles everything drawn on a group.
type Telemetry struct {
	GroupID      canvas.GroupID   `json:"group_id"`
	Label        string           `json:"label"`
	Color        string           `json:"color,omitempty"`
	Bounds       *geometry.Rect   `json:"bounds,omitempty"`
	Members      []Member         `json:"members"`
	TotalAmount  float64          `json:"total_amount"`
	TotalPercent float64          `json:"total_percent"`
	Profile      Profile          `json:"profile"`
	Compliance   ComplianceResult `json:"compliance"`
}

// Compute derives the telemetry of one group.
func Compute(g *canvas.Graph, gr canvas.Group, lookup catalog.Lookup, padding float64) Telemetry {
	ms := Members(g, gr.Members, lookup)
	t := Telemetry{
		GroupID:    gr.ID,
		Label:      gr.Label,
		Color:      gr.Color,
		Members:    ms,
		Profile:    WeightedProfile(ms),
		Compliance: Compliance(ms),
	}
	if box, ok := Bounds(g, gr.Members, padding); ok {
		t.Bounds = &box
	}
	for _, m := range ms {
		t.TotalAmount += m.Amount
		t.TotalPercent += m.Concentration
	}
	return t
}

// ComputeAll derives telemetry for every group in g, in group order.
func ComputeAll(g *canvas.Graph, lookup catalog.Lookup, padding float64) []Telemetry {
	groups := g.Groups()
	out := make([]Telemetry, 0, len(groups))
	for _, gr := range groups {
		out = append(out, Compute(g, gr, lookup, padding))
	}
	return out
}
