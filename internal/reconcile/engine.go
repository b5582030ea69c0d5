// Package reconcile keeps the local visual graph consistent with the
// canonical formula record. Sync is two-phase: Reconcile is the inbound pass
// (canonical to local) and never writes anything back; Committer is the
// outbound pass and runs only on discrete user actions.
package reconcile

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/formula-canvas/internal/canvas"
	"github.com/ziadkadry99/formula-canvas/internal/geometry"
	"github.com/ziadkadry99/formula-canvas/internal/metrics"
)

// LineItem is one canonical formula entry.
type LineItem struct {
	Ref    string  `json:"ref"`
	Name   string  `json:"name,omitempty"`
	Amount float64 `json:"amount"`
}

// Canonical is the canonical record as read from the formula store.
type Canonical struct {
	Items       []LineItem `json:"items"`
	TargetTotal float64    `json:"target_total"`
}

// Source reads the current canonical record.
type Source interface {
	Canonical(ctx context.Context) (Canonical, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (Canonical, error)

// Canonical implements Source.
func (f SourceFunc) Canonical(ctx context.Context) (Canonical, error) { return f(ctx) }

// Percent converts an amount into percent of the target total. A
// non-positive target yields zero.
func Percent(amount, targetTotal float64) float64 {
	if targetTotal <= 0 {
		return 0
	}
	return amount / targetTotal * 100
}

// Options controls where synthesized nodes are placed.
type Options struct {
	Origin geometry.Point
	Step   float64
	Wrap   int
}

// DefaultOptions matches the editor's default cascade.
func DefaultOptions() Options {
	return Options{Origin: geometry.Pt(80, 80), Step: 30, Wrap: 10}
}

// Report summarizes one reconciliation pass.
type Report struct {
	Refreshed    int             `json:"refreshed"`
	Added        []canvas.NodeID `json:"added,omitempty"`
	Removed      []canvas.NodeID `json:"removed,omitempty"`
	Deduplicated int             `json:"deduplicated"`
}

// Changed reports whether the pass changed the graph structurally.
func (r Report) Changed() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0 || r.Deduplicated > 0
}

// Engine runs reconciliation passes for one editing session. It remembers
// how many nodes it has placed (so cascaded positions never collide within
// a session), which refs have local edits the canonical record has not
// caught up with yet, and whether a pass was deferred by an active gesture.
//
// Engine is not safe for concurrent use.
type Engine struct {
	opts    Options
	placed  int
	pending bool

	// Refs added locally whose canonical add has not been observed.
	pendingAdds map[string]struct{}
	// Refs removed locally whose canonical removal has not been observed.
	pendingRemovals map[string]struct{}
}

// NewEngine creates an Engine. Zero-valued options fall back to defaults.
func NewEngine(opts Options) *Engine {
	def := DefaultOptions()
	if opts.Step <= 0 {
		opts.Step = def.Step
	}
	if opts.Wrap <= 0 {
		opts.Wrap = def.Wrap
	}
	if !opts.Origin.IsFinite() {
		opts.Origin = def.Origin
	}
	return &Engine{
		opts:            opts,
		pendingAdds:     make(map[string]struct{}),
		pendingRemovals: make(map[string]struct{}),
	}
}

// NextPosition returns the next cascading default position and advances the
// counter. Each run of Wrap positions steps diagonally from the origin; the
// next run starts one node width plus one step further right, so no two
// positions in a session coincide.
func (e *Engine) NextPosition() geometry.Point {
	k := float64(e.placed % e.opts.Wrap)
	cycle := float64(e.placed / e.opts.Wrap)
	e.placed++
	shift := cycle * (canvas.DimensionsOf(canvas.KindIngredient).W + e.opts.Step)
	return e.opts.Origin.Add(geometry.Pt(shift+k*e.opts.Step, k*e.opts.Step))
}

// MarkAdded records a ref the editor added locally. Reconcile will not remove
// its node until the canonical record has been seen to contain it.
func (e *Engine) MarkAdded(ref string) {
	delete(e.pendingRemovals, ref)
	e.pendingAdds[ref] = struct{}{}
}

// MarkRemoved records a ref the editor removed locally. Reconcile will not
// resurrect it while the canonical record still lists it.
func (e *Engine) MarkRemoved(ref string) {
	delete(e.pendingAdds, ref)
	e.pendingRemovals[ref] = struct{}{}
}

// Unsynced returns how many local edits the canonical record has not
// reflected yet.
func (e *Engine) Unsynced() int { return len(e.pendingAdds) + len(e.pendingRemovals) }

// Reconcile brings the ingredient nodes of g into 1:1 correspondence with
// the canonical items:
//
//  1. existing nodes get their derived fields refreshed; positions are kept
//  2. items without a node get one at the next cascading position
//  3. nodes whose item disappeared are deleted, cascading
//
// Connections and groups change only through that cascade. Nodes hidden in
// a collapsed accord count as representations. Reconcile never writes to the
// canonical store.
func (e *Engine) Reconcile(g *canvas.Graph, c Canonical) Report {
	var r Report

	items := make(map[string]LineItem, len(c.Items))
	var order []string
	for _, it := range c.Items {
		if it.Ref == "" {
			continue
		}
		if _, dup := items[it.Ref]; !dup {
			order = append(order, it.Ref)
		}
		items[it.Ref] = it
	}

	// Local edits the canonical record now reflects are settled.
	for ref := range e.pendingAdds {
		if _, ok := items[ref]; ok {
			delete(e.pendingAdds, ref)
		}
	}
	for ref := range e.pendingRemovals {
		if _, ok := items[ref]; !ok {
			delete(e.pendingRemovals, ref)
		}
	}

	// Older nodes win: IngredientNodes is in creation order.
	represented := make(map[string]canvas.NodeID)
	for _, n := range g.IngredientNodes() {
		p := n.Payload.(canvas.IngredientPayload)
		if _, seen := represented[p.Ref]; seen {
			if g.DeleteNode(n.ID) {
				r.Deduplicated++
				r.Removed = append(r.Removed, n.ID)
			}
			continue
		}
		represented[p.Ref] = n.ID

		it, ok := items[p.Ref]
		switch {
		case ok:
			g.UpdateIngredient(n.ID, it.Name, it.Amount, Percent(it.Amount, c.TargetTotal))
			r.Refreshed++
		case e.isPendingAdd(p.Ref):
			// Keep the optimistic node until the store catches up.
		default:
			if g.DeleteNode(n.ID) {
				r.Removed = append(r.Removed, n.ID)
			}
		}
	}

	for _, ref := range order {
		if _, ok := represented[ref]; ok {
			continue
		}
		if _, removed := e.pendingRemovals[ref]; removed {
			continue
		}
		it := items[ref]
		name := it.Name
		if name == "" {
			name = ref
		}
		n, ok := g.AddNode(canvas.IngredientPayload{
			Ref:     ref,
			Name:    name,
			Amount:  it.Amount,
			Percent: Percent(it.Amount, c.TargetTotal),
		}, e.NextPosition())
		if ok {
			r.Added = append(r.Added, n.ID)
		}
	}

	e.pending = false
	return r
}

func (e *Engine) isPendingAdd(ref string) bool {
	_, ok := e.pendingAdds[ref]
	return ok
}

// Request runs a pass against src unless a gesture is active, in which case
// the pass is deferred until Resume. The bool result reports whether a pass
// ran.
func (e *Engine) Request(ctx context.Context, g *canvas.Graph, src Source, gestureActive bool) (Report, bool, error) {
	if gestureActive {
		e.pending = true
		metrics.Reconciliations.WithLabelValues("deferred").Inc()
		return Report{}, false, nil
	}
	return e.run(ctx, g, src)
}

// Pending reports whether a deferred pass is waiting.
func (e *Engine) Pending() bool { return e.pending }

// Resume runs a deferred pass, if there is one.
func (e *Engine) Resume(ctx context.Context, g *canvas.Graph, src Source) (Report, bool, error) {
	if !e.pending {
		return Report{}, false, nil
	}
	return e.run(ctx, g, src)
}

func (e *Engine) run(ctx context.Context, g *canvas.Graph, src Source) (Report, bool, error) {
	c, err := src.Canonical(ctx)
	if err != nil {
		// Keep the request pending so the next opportunity retries the read.
		e.pending = true
		return Report{}, false, fmt.Errorf("reading canonical formula: %w", err)
	}
	r := e.Reconcile(g, c)
	metrics.Reconciliations.WithLabelValues("applied").Inc()
	return r, true, nil
}
