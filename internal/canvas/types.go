// Package canvas is the in-memory store of the visual formula graph: nodes,
// typed connections and accord groups. Every mutator is total; a rejected
// operation is a no-op reported through its boolean result, never a partial
// change.
package canvas

import (
	"math"

	"github.com/ziadkadry99/formula-canvas/internal/geometry"
)

// NodeID identifies a node for its whole lifetime. IDs are never reused.
type NodeID string

// ConnectionID identifies a connection.
type ConnectionID string

// GroupID identifies an accord group.
type GroupID string

// NodeKind is the closed set of node variants.
type NodeKind string

const (
	KindIngredient NodeKind = "ingredient"
	KindAccord     NodeKind = "accord"
	KindOutput     NodeKind = "output"
)

// Valid reports whether k is one of the known kinds.
func (k NodeKind) Valid() bool {
	switch k {
	case KindIngredient, KindAccord, KindOutput:
		return true
	}
	return false
}

// Payload is the kind-specific data carried by a node. The set of
// implementations is closed: IngredientPayload, AccordPayload, OutputPayload.
type Payload interface {
	Kind() NodeKind
	isPayload()
}

// IngredientPayload references one canonical formula line item.
type IngredientPayload struct {
	Ref     string  `json:"ref"`
	Name    string  `json:"name"`
	Amount  float64 `json:"amount"`
	Percent float64 `json:"percent"` // percent of the formula's target total
}

// AccordPayload is a collapsed group folded into a single macro node.
type AccordPayload struct {
	Label        string         `json:"label"`
	Color        string         `json:"color,omitempty"`
	Members      []NodeID       `json:"members"`
	Origin       geometry.Point `json:"origin"` // member centroid at collapse time
	TotalAmount  float64        `json:"total_amount"`
	TotalPercent float64        `json:"total_percent"`
}

// OutputPayload marks the formula's output sink.
type OutputPayload struct {
	Label string `json:"label,omitempty"`
}

func (IngredientPayload) Kind() NodeKind { return KindIngredient }
func (AccordPayload) Kind() NodeKind     { return KindAccord }
func (OutputPayload) Kind() NodeKind     { return KindOutput }

func (IngredientPayload) isPayload() {}
func (AccordPayload) isPayload()     {}
func (OutputPayload) isPayload()     {}

// Node is a positioned, typed unit on the canvas.
type Node struct {
	ID       NodeID
	Position geometry.Point
	Payload  Payload
	// HiddenBy is set while the node is folded inside a collapsed accord node.
	// Hidden nodes still represent their line item but are not hit-testable.
	HiddenBy NodeID
}

// Kind returns the variant of the node's payload.
func (n Node) Kind() NodeKind {
	if n.Payload == nil {
		return ""
	}
	return n.Payload.Kind()
}

// Hidden reports whether the node is folded inside an accord.
func (n Node) Hidden() bool { return n.HiddenBy != "" }

// Label returns a display name for the node.
func (n Node) Label() string {
	switch p := n.Payload.(type) {
	case IngredientPayload:
		return p.Name
	case AccordPayload:
		return p.Label
	case OutputPayload:
		if p.Label != "" {
			return p.Label
		}
		return "Output"
	}
	return ""
}

// Concentration is the node's contribution used by group telemetry: an
// ingredient's percent of target total, an accord's summed percent, zero for
// the output sink.
func (n Node) Concentration() float64 {
	switch p := n.Payload.(type) {
	case IngredientPayload:
		return p.Percent
	case AccordPayload:
		return p.TotalPercent
	case OutputPayload:
		return 0
	}
	return 0
}

// Bounds returns the node's extent in canvas space.
func (n Node) Bounds() geometry.Rect {
	return geometry.RectAt(n.Position, DimensionsOf(n.Kind()))
}

// OutputPort returns the centre of the node's output port.
func (n Node) OutputPort() geometry.Point {
	s := DimensionsOf(n.Kind())
	return geometry.Pt(n.Position.X+s.W, n.Position.Y+s.H/2)
}

// InputPort returns the centre of the node's input port.
func (n Node) InputPort() geometry.Point {
	s := DimensionsOf(n.Kind())
	return geometry.Pt(n.Position.X, n.Position.Y+s.H/2)
}

func (n Node) clone() *Node {
	c := n
	if p, ok := n.Payload.(AccordPayload); ok {
		p.Members = append([]NodeID(nil), p.Members...)
		c.Payload = p
	}
	return &c
}

// ConnectionKind is the closed set of connection types.
type ConnectionKind string

const (
	Blend    ConnectionKind = "blend"
	Boost    ConnectionKind = "boost"
	Suppress ConnectionKind = "suppress"
)

// Valid reports whether k is one of the known connection kinds.
func (k ConnectionKind) Valid() bool {
	switch k {
	case Blend, Boost, Suppress:
		return true
	}
	return false
}

// Connection is a directed, typed, weighted edge.
type Connection struct {
	ID       ConnectionID   `json:"id"`
	Source   NodeID         `json:"source"`
	Target   NodeID         `json:"target"`
	Kind     ConnectionKind `json:"kind"`
	Strength float64        `json:"strength"`
}

// ClampStrength limits s to [0,1]; NaN becomes 0.
func ClampStrength(s float64) float64 {
	if math.IsNaN(s) {
		return 0
	}
	return math.Max(0, math.Min(1, s))
}

// Group is a named subset of nodes. Members is a set kept sorted; its
// bounding region is always derived from member positions, never stored.
type Group struct {
	ID      GroupID  `json:"id"`
	Label   string   `json:"label"`
	Members []NodeID `json:"members"`
	Color   string   `json:"color,omitempty"`
}

// Has reports whether id is a member of g.
func (g Group) Has(id NodeID) bool {
	for _, m := range g.Members {
		if m == id {
			return true
		}
	}
	return false
}

func (g Group) clone() *Group {
	c := g
	c.Members = append([]NodeID(nil), g.Members...)
	return &c
}

// DefaultGroupLabel and DefaultGroupColor are used when a group is created
// without explicit presentation hints.
const (
	DefaultGroupLabel = "New Accord Group"
	DefaultGroupColor = "amber"
)

// Node extents per kind, in canvas units.
var dimensions = map[NodeKind]geometry.Size{
	KindIngredient: {W: 200, H: 80},
	KindAccord:     {W: 240, H: 120},
	KindOutput:     {W: 180, H: 64},
}

// PortRadius is the hit radius of a node's output port.
const PortRadius = 10.0

// DimensionsOf returns the extent of a node of the given kind. Unknown kinds
// use the ingredient size.
func DimensionsOf(k NodeKind) geometry.Size {
	if s, ok := dimensions[k]; ok {
		return s
	}
	return dimensions[KindIngredient]
}
