package canvas

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"

	"github.com/ziadkadry99/formula-canvas/internal/geometry"
)

// Snapshot is the serialized layout handed to the canonical store: node
// positions and payloads, connections and groups.
type Snapshot struct {
	Nodes       []SnapshotNode `json:"nodes"`
	Connections []Connection   `json:"connections"`
	Groups      []Group        `json:"groups"`
}

// SnapshotNode is the wire shape of a node. Exactly one payload field is set,
// matching Kind.
type SnapshotNode struct {
	ID         NodeID             `json:"id"`
	Kind       NodeKind           `json:"kind"`
	Position   geometry.Point     `json:"position"`
	HiddenBy   NodeID             `json:"hidden_by,omitempty"`
	Ingredient *IngredientPayload `json:"ingredient,omitempty"`
	Accord     *AccordPayload     `json:"accord,omitempty"`
	Output     *OutputPayload     `json:"output,omitempty"`
}

// Snapshot serializes the whole graph.
func (g *Graph) Snapshot() Snapshot {
	s := Snapshot{
		Nodes:       make([]SnapshotNode, 0, len(g.nodes)),
		Connections: g.Connections(),
		Groups:      g.Groups(),
	}
	for _, n := range g.nodes {
		s.Nodes = append(s.Nodes, encodeNode(*n.clone()))
	}
	return s
}

func encodeNode(n Node) SnapshotNode {
	sn := SnapshotNode{ID: n.ID, Kind: n.Kind(), Position: n.Position, HiddenBy: n.HiddenBy}
	switch p := n.Payload.(type) {
	case IngredientPayload:
		sn.Ingredient = &p
	case AccordPayload:
		sn.Accord = &p
	case OutputPayload:
		sn.Output = &p
	}
	return sn
}

func decodeNode(sn SnapshotNode) (Node, error) {
	n := Node{ID: sn.ID, Position: sn.Position, HiddenBy: sn.HiddenBy}
	switch sn.Kind {
	case KindIngredient:
		if sn.Ingredient == nil || sn.Ingredient.Ref == "" {
			return Node{}, fmt.Errorf("ingredient node %s has no line item reference", sn.ID)
		}
		n.Payload = *sn.Ingredient
	case KindAccord:
		if sn.Accord == nil {
			return Node{}, fmt.Errorf("accord node %s has no payload", sn.ID)
		}
		acc := *sn.Accord
		acc.Members = append([]NodeID(nil), acc.Members...)
		n.Payload = acc
	case KindOutput:
		if sn.Output != nil {
			n.Payload = *sn.Output
		} else {
			n.Payload = OutputPayload{}
		}
	default:
		return Node{}, fmt.Errorf("node %s has unknown kind %q", sn.ID, sn.Kind)
	}
	return n, nil
}

// Digest returns a stable content hash of the snapshot. Two snapshots with
// the same digest describe the same layout.
func (s Snapshot) Digest() string {
	data, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Empty reports whether the snapshot holds nothing.
func (s Snapshot) Empty() bool {
	return len(s.Nodes) == 0 && len(s.Connections) == 0 && len(s.Groups) == 0
}

// ParseSnapshot decodes a JSON layout. An empty input yields an empty
// snapshot.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decoding layout snapshot: %w", err)
	}
	return s, nil
}

// LoadSnapshot rebuilds a graph from a persisted layout. Malformed nodes are
// logged and skipped, then Prune repairs whatever referred to them.
func LoadSnapshot(s Snapshot) (*Graph, PruneReport) {
	g := NewGraph()
	for _, sn := range s.Nodes {
		n, err := decodeNode(sn)
		if err != nil {
			log.Printf("canvas: skipping node: %v", err)
			continue
		}
		if !g.insertNode(n) {
			log.Printf("canvas: skipping node %s: duplicate id or invalid position", sn.ID)
		}
	}
	for _, c := range s.Connections {
		c := c
		if c.ID == "" {
			c.ID = newConnectionID()
		}
		g.connections = append(g.connections, &c)
	}
	for _, gr := range s.Groups {
		gr := gr
		if gr.ID == "" {
			gr.ID = newGroupID()
		}
		gr.Members = normalizeSet(gr.Members)
		g.groups = append(g.groups, &gr)
	}
	return g, g.Prune()
}
