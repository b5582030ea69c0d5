package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"
	"gonum.org/v1/gonum/floats"

	"github.com/ziadkadry99/formula-canvas/internal/accord"
	"github.com/ziadkadry99/formula-canvas/internal/analysis"
	"github.com/ziadkadry99/formula-canvas/internal/canvas"
	"github.com/ziadkadry99/formula-canvas/internal/geometry"
	"github.com/ziadkadry99/formula-canvas/internal/gesture"
)

var validate = validator.New()

var (
	// ErrNeedTwoNodes is returned by Bridge unless exactly two nodes are
	// selected.
	ErrNeedTwoNodes = errors.New("editor: select exactly two nodes to bridge")
	// ErrNoCandidate is returned by Bridge when the catalog has nothing to
	// suggest.
	ErrNoCandidate = errors.New("editor: no bridge ingredient found")
	// ErrUnavailable is returned when a feature's collaborator is not
	// configured.
	ErrUnavailable = errors.New("editor: feature unavailable")
)

// PointerKind names a pointer event.
type PointerKind string

const (
	PointerDown   PointerKind = "down"
	PointerMove   PointerKind = "move"
	PointerUp     PointerKind = "up"
	PointerCancel PointerKind = "cancel"
)

// HandlePointer feeds one pointer event to the gesture controller.
func (s *Session) HandlePointer(kind PointerKind, ev gesture.Event) gesture.Outcome {
	s.mu.Lock()
	var out gesture.Outcome
	switch kind {
	case PointerDown:
		out = s.gestures.PointerDown(ev)
	case PointerMove:
		out = s.gestures.PointerMove(ev)
	case PointerUp:
		out = s.gestures.PointerUp(ev)
	case PointerCancel:
		out = s.gestures.PointerCancel(ev)
	default:
		log.Printf("editor: %s: ignoring pointer event %q", s.id, kind)
		out = gesture.Outcome{Ignored: true, Mode: s.gestures.Mode()}
	}
	s.mu.Unlock()
	if !out.Ignored {
		s.notify()
	}
	return out
}

// DropPayload is the palette item carried by a drag from the palette.
type DropPayload struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

// Drop places the dropped palette item at a pointer-space point, centring
// the new node on it, and adds the line item to the canonical formula. A
// malformed payload is logged and ignored. Dropping an ingredient that is
// already on the canvas selects the existing node.
func (s *Session) Drop(ctx context.Context, payload []byte, at geometry.Point) (canvas.NodeID, bool) {
	var item DropPayload
	if err := json.Unmarshal(payload, &item); err != nil {
		log.Printf("editor: %s: ignoring drop: %v", s.id, err)
		return "", false
	}
	if err := validate.Struct(item); err != nil {
		log.Printf("editor: %s: ignoring drop: %v", s.id, err)
		return "", false
	}
	if !at.IsFinite() {
		log.Printf("editor: %s: ignoring drop at non-finite point", s.id)
		return "", false
	}

	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()
	s.lastErr = ""

	if n, ok := s.graph.IngredientNodeFor(item.ID); ok {
		s.sel.SelectOnly(n.ID)
		return n.ID, true
	}

	name := item.Name
	if s.deps.Catalog != nil {
		if ing, ok := s.deps.Catalog.Lookup(item.ID); ok && name == "" {
			name = ing.Name
		}
	}
	if name == "" {
		name = item.ID
	}

	size := canvas.DimensionsOf(canvas.KindIngredient)
	pos := s.view.ToCanvasSpace(at).Sub(geometry.Pt(size.W/2, size.H/2))
	n, ok := s.graph.AddNode(canvas.IngredientPayload{Ref: item.ID, Name: name}, pos)
	if !ok {
		return "", false
	}
	s.engine.MarkAdded(item.ID)
	s.sel.SelectOnly(n.ID)
	s.commit()
	s.addLineItem(ctx, item.ID)
	return n.ID, true
}

func (s *Session) addLineItem(ctx context.Context, ref string) {
	if err := s.deps.Formulas.AddLineItem(ctx, s.id, ref); err != nil {
		s.writeFailed("add "+ref, err)
		return
	}
	s.requestReconcile(ctx)
}

func (s *Session) writeFailed(what string, err error) {
	log.Printf("editor: %s: %s: %v", s.id, what, err)
	s.lastErr = fmt.Sprintf("Could not save change (%s): %v", what, err)
}

// DeleteNode removes a node with its connections and memberships. Deleting
// an ingredient removes its line item from the canonical formula.
func (s *Session) DeleteNode(ctx context.Context, id canvas.NodeID) bool {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()
	s.lastErr = ""

	n, ok := s.graph.Node(id)
	if !ok || !s.graph.DeleteNode(id) {
		return false
	}
	s.sel.Prune(s.graph)
	s.commit()

	if p, ok := n.Payload.(canvas.IngredientPayload); ok {
		s.engine.MarkRemoved(p.Ref)
		if err := s.deps.Formulas.RemoveLineItem(ctx, s.id, p.Ref); err != nil {
			s.writeFailed("remove "+p.Ref, err)
			return true
		}
		s.requestReconcile(ctx)
	}
	return true
}

// DefaultStrength is the strength new connections get unless told otherwise.
func (s *Session) DefaultStrength() float64 { return s.opts.DefaultStrength }

// Connect links two nodes. Duplicates, self loops and unknown endpoints are
// rejected.
func (s *Session) Connect(source, target canvas.NodeID, kind canvas.ConnectionKind, strength float64) (canvas.Connection, bool) {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()
	if kind == "" {
		kind = canvas.Blend
	}
	c, ok := s.graph.AddConnection(source, target, kind, strength)
	if ok {
		s.commit()
	}
	return c, ok
}

// UpdateConnection changes a connection's kind and strength.
func (s *Session) UpdateConnection(id canvas.ConnectionID, kind canvas.ConnectionKind, strength float64) bool {
	return s.mutate(func() bool { return s.graph.SetConnection(id, kind, strength) })
}

// DeleteConnection removes a connection.
func (s *Session) DeleteConnection(id canvas.ConnectionID) bool {
	return s.mutate(func() bool { return s.graph.DeleteConnection(id) })
}

// mutate applies a local structural change and commits it if it applied.
func (s *Session) mutate(fn func() bool) bool {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()
	if !fn() {
		return false
	}
	s.commit()
	return true
}

// SetAmount writes the amount of an ingredient node's line item.
func (s *Session) SetAmount(ctx context.Context, id canvas.NodeID, amount float64) error {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()

	n, ok := s.graph.Node(id)
	if !ok {
		return fmt.Errorf("editor: node %s not found", id)
	}
	p, ok := n.Payload.(canvas.IngredientPayload)
	if !ok {
		return fmt.Errorf("editor: node %s is not an ingredient", id)
	}
	if err := s.deps.Formulas.SetAmount(ctx, s.id, p.Ref, amount); err != nil {
		return err
	}
	s.lastErr = ""
	s.requestReconcile(ctx)
	return nil
}

// Select replaces the selection with the given nodes.
func (s *Session) Select(ids []canvas.NodeID) {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()
	s.sel.Clear()
	for _, id := range ids {
		if s.graph.Has(id) {
			s.sel.Add(id)
		}
	}
}

// SelectGroup selects a group.
func (s *Session) SelectGroup(id canvas.GroupID) bool {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()
	if _, ok := s.graph.Group(id); !ok {
		return false
	}
	s.sel.SelectGroup(id)
	return true
}

// CreateGroupFromSelection groups the selected nodes and selects the new
// group.
func (s *Session) CreateGroupFromSelection(label string) (canvas.Group, bool) {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()
	gr, ok := s.graph.CreateGroup(s.sel.Nodes(), label)
	if !ok {
		return canvas.Group{}, false
	}
	s.sel.SelectGroup(gr.ID)
	s.commit()
	return gr, true
}

// DeleteGroup removes a group, leaving its members in place.
func (s *Session) DeleteGroup(id canvas.GroupID) bool {
	return s.mutate(func() bool {
		if !s.graph.DeleteGroup(id) {
			return false
		}
		s.sel.Prune(s.graph)
		return true
	})
}

// RenameGroup relabels a group.
func (s *Session) RenameGroup(id canvas.GroupID, label string) bool {
	return s.mutate(func() bool { return s.graph.RenameGroup(id, label) })
}

// SetGroupColor recolours a group.
func (s *Session) SetGroupColor(id canvas.GroupID, color string) bool {
	return s.mutate(func() bool { return s.graph.SetGroupColor(id, color) })
}

// CollapseGroup folds a group into an accord node and selects it.
func (s *Session) CollapseGroup(id canvas.GroupID) (canvas.Node, bool) {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()
	n, ok := s.graph.CollapseGroup(id)
	if !ok {
		return canvas.Node{}, false
	}
	s.sel.SelectOnly(n.ID)
	s.commit()
	return n, true
}

// ExpandAccord unfolds an accord node back into its group and selects it.
func (s *Session) ExpandAccord(id canvas.NodeID) (canvas.Group, bool) {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()
	gr, ok := s.graph.ExpandAccord(id)
	if !ok {
		return canvas.Group{}, false
	}
	s.sel.SelectGroup(gr.ID)
	s.commit()
	return gr, true
}

// AddOutput places an output sink. A nil position uses the next cascading
// default position.
func (s *Session) AddOutput(label string, at *geometry.Point) (canvas.Node, bool) {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()
	var pos geometry.Point
	if at != nil {
		pos = *at
	} else {
		pos = s.engine.NextPosition()
	}
	n, ok := s.graph.AddNode(canvas.OutputPayload{Label: label}, pos)
	if ok {
		s.commit()
	}
	return n, ok
}

// Zoom multiplies the zoom by factor around a pointer-space anchor.
func (s *Session) Zoom(factor float64, anchor geometry.Point) geometry.Viewport {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()
	s.view.ZoomAt(factor, anchor)
	return s.view
}

// ZoomStep moves the zoom one toolbar step in or out.
func (s *Session) ZoomStep(in bool) geometry.Viewport {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()
	if in {
		s.view.ZoomBy(geometry.ZoomStep)
	} else {
		s.view.ZoomBy(-geometry.ZoomStep)
	}
	return s.view
}

// bridgeOffset is how far below the midpoint of the two bridged nodes the
// suggestion is placed.
const bridgeOffset = 100

// Bridge suggests the catalog ingredient whose olfactory profile is closest
// to the mean of the two selected nodes, places it between and below them,
// links both to it and adds it to the formula.
func (s *Session) Bridge(ctx context.Context) (canvas.Node, error) {
	if s.deps.Index == nil {
		return canvas.Node{}, ErrUnavailable
	}

	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()

	ids := s.sel.Nodes()
	if len(ids) != 2 {
		return canvas.Node{}, ErrNeedTwoNodes
	}
	ms := accord.Members(s.graph, ids, s.deps.Catalog)
	if len(ms) != 2 {
		return canvas.Node{}, ErrNeedTwoNodes
	}
	mean := ms[0].Vector()
	floats.Add(mean, ms[1].Vector())
	floats.Scale(0.5, mean)

	var exclude []string
	for _, n := range s.graph.IngredientNodes() {
		exclude = append(exclude, n.Payload.(canvas.IngredientPayload).Ref)
	}
	matches, err := s.deps.Index.Nearest(ctx, mean, 1, exclude...)
	if err != nil {
		return canvas.Node{}, fmt.Errorf("finding bridge ingredient: %w", err)
	}
	if len(matches) == 0 {
		return canvas.Node{}, ErrNoCandidate
	}
	pick := matches[0].Ingredient

	a, _ := s.graph.Node(ids[0])
	b, _ := s.graph.Node(ids[1])
	mid := a.Position.Add(b.Position).Scale(0.5).Add(geometry.Pt(0, bridgeOffset))
	n, ok := s.graph.AddNode(canvas.IngredientPayload{Ref: pick.ID, Name: pick.Name}, mid)
	if !ok {
		return canvas.Node{}, ErrNoCandidate
	}
	s.graph.AddConnection(a.ID, n.ID, canvas.Blend, s.opts.DefaultStrength)
	s.graph.AddConnection(b.ID, n.ID, canvas.Blend, s.opts.DefaultStrength)
	s.engine.MarkAdded(pick.ID)
	s.sel.SelectOnly(n.ID)
	s.lastErr = ""
	s.commit()
	s.addLineItem(ctx, pick.ID)
	n, _ = s.graph.Node(n.ID)
	return n, nil
}

// Analyze starts a scent analysis of every ingredient on the canvas, hidden
// accord members included, and returns at once. When it resolves the result
// replaces the displayed one unless a newer request was made meanwhile.
func (s *Session) Analyze() analysis.Status {
	s.mu.Lock()
	var req []analysis.Ingredient
	for _, n := range s.graph.IngredientNodes() {
		p := n.Payload.(canvas.IngredientPayload)
		req = append(req, analysis.Ingredient{Name: p.Name, Concentration: p.Percent})
	}
	s.mu.Unlock()

	seq := s.tracker.Begin()
	if s.deps.Analyzer == nil {
		s.tracker.Resolve(seq, nil, ErrUnavailable)
		s.notify()
		return s.tracker.Status()
	}

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		rec, err := s.deps.Analyzer.Analyze(context.Background(), s.id, req)
		if err == nil && s.deps.Analyses != nil {
			if serr := s.deps.Analyses.Save(context.Background(), rec); serr != nil {
				log.Printf("editor: %s: saving analysis: %v", s.id, serr)
			}
		}
		if err != nil {
			log.Printf("editor: %s: analysis: %v", s.id, err)
		}
		s.tracker.Resolve(seq, rec, err)
		s.notify()
	}()
	s.notify()
	return s.tracker.Status()
}
