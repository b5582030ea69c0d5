package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ziadkadry99/formula-canvas/internal/canvas"
	"github.com/ziadkadry99/formula-canvas/internal/geometry"
)

func canonical(target float64, items ...LineItem) Canonical {
	return Canonical{Items: items, TargetTotal: target}
}

// assertConverged checks the 1:1 correspondence between ingredient nodes and
// canonical items.
func assertConverged(t *testing.T, g *canvas.Graph, c Canonical) {
	t.Helper()
	refs := map[string]int{}
	for _, n := range g.IngredientNodes() {
		refs[n.Payload.(canvas.IngredientPayload).Ref]++
	}
	if len(refs) != len(c.Items) {
		t.Errorf("have %d distinct refs, want %d", len(refs), len(c.Items))
	}
	for _, it := range c.Items {
		if refs[it.Ref] != 1 {
			t.Errorf("ref %s represented %d times", it.Ref, refs[it.Ref])
		}
	}
}

func TestReconcileConverges(t *testing.T) {
	g := canvas.NewGraph()
	e := NewEngine(DefaultOptions())
	c := canonical(100,
		LineItem{Ref: "ing-1", Name: "Iso E Super", Amount: 12},
		LineItem{Ref: "ing-2", Name: "Hedione HC", Amount: 4.5},
	)

	r := e.Reconcile(g, c)
	if len(r.Added) != 2 {
		t.Errorf("added = %d, want 2", len(r.Added))
	}
	assertConverged(t, g, c)

	// A second pass is a fixed point.
	r = e.Reconcile(g, c)
	if r.Changed() {
		t.Errorf("second pass changed the graph: %+v", r)
	}
	assertConverged(t, g, c)
}

func TestReconcileRefreshesWithoutMoving(t *testing.T) {
	g := canvas.NewGraph()
	n, _ := g.AddNode(canvas.IngredientPayload{Ref: "ing-1", Name: "Iso"}, geometry.Pt(500, 400))
	e := NewEngine(DefaultOptions())

	e.Reconcile(g, canonical(200, LineItem{Ref: "ing-1", Amount: 50}))

	got, _ := g.Node(n.ID)
	p := got.Payload.(canvas.IngredientPayload)
	if p.Amount != 50 || p.Percent != 25 {
		t.Errorf("payload = %+v, want amount 50 percent 25", p)
	}
	if got.Position != geometry.Pt(500, 400) {
		t.Errorf("position changed to %+v", got.Position)
	}
}

func TestReconcileRemovesVanishedItemsWithCascade(t *testing.T) {
	g := canvas.NewGraph()
	e := NewEngine(DefaultOptions())
	e.Reconcile(g, canonical(100, LineItem{Ref: "a"}, LineItem{Ref: "b"}))
	a, _ := g.IngredientNodeFor("a")
	b, _ := g.IngredientNodeFor("b")
	g.AddConnection(a.ID, b.ID, canvas.Blend, 0.5)
	gr, _ := g.CreateGroup([]canvas.NodeID{a.ID, b.ID}, "pair")

	r := e.Reconcile(g, canonical(100, LineItem{Ref: "a"}))
	if len(r.Removed) != 1 || r.Removed[0] != b.ID {
		t.Errorf("removed = %v", r.Removed)
	}
	if len(g.Connections()) != 0 {
		t.Error("connection to removed node should cascade")
	}
	got, _ := g.Group(gr.ID)
	if got.Has(b.ID) {
		t.Error("group should lose the removed member")
	}
}

func TestReconcileCascadesDistinctPositions(t *testing.T) {
	g := canvas.NewGraph()
	e := NewEngine(DefaultOptions())
	e.Reconcile(g, canonical(100, LineItem{Ref: "a"}, LineItem{Ref: "b"}, LineItem{Ref: "c"}))
	e.Reconcile(g, canonical(100, LineItem{Ref: "a"}, LineItem{Ref: "b"}, LineItem{Ref: "c"}, LineItem{Ref: "d"}))

	seen := map[geometry.Point]bool{}
	for _, n := range g.Nodes() {
		if seen[n.Position] {
			t.Errorf("two nodes at %+v", n.Position)
		}
		seen[n.Position] = true
	}
	d, _ := g.IngredientNodeFor("d")
	if d.Position != geometry.Pt(170, 170) {
		t.Errorf("fourth node at %+v, want (170,170)", d.Position)
	}
}

func TestReconcileHiddenMembersCountAsRepresented(t *testing.T) {
	g := canvas.NewGraph()
	e := NewEngine(DefaultOptions())
	c := canonical(100, LineItem{Ref: "a", Amount: 5}, LineItem{Ref: "b", Amount: 5})
	e.Reconcile(g, c)
	a, _ := g.IngredientNodeFor("a")
	b, _ := g.IngredientNodeFor("b")
	gr, _ := g.CreateGroup([]canvas.NodeID{a.ID, b.ID}, "pair")
	g.CollapseGroup(gr.ID)

	r := e.Reconcile(g, c)
	if r.Changed() {
		t.Errorf("collapsed members were re-materialized: %+v", r)
	}
	assertConverged(t, g, c)
}

func TestReconcileDeduplicatesKeepingOldest(t *testing.T) {
	g := canvas.NewGraph()
	first, _ := g.AddNode(canvas.IngredientPayload{Ref: "a"}, geometry.Pt(0, 0))
	g.AddNode(canvas.IngredientPayload{Ref: "a"}, geometry.Pt(300, 0))
	e := NewEngine(DefaultOptions())

	c := canonical(100, LineItem{Ref: "a"})
	r := e.Reconcile(g, c)
	if r.Deduplicated != 1 {
		t.Errorf("deduplicated = %d", r.Deduplicated)
	}
	if !g.Has(first.ID) {
		t.Error("the oldest node should survive")
	}
	assertConverged(t, g, c)
}

func TestReconcileKeepsPendingLocalEdits(t *testing.T) {
	g := canvas.NewGraph()
	e := NewEngine(DefaultOptions())

	// Dropped locally; the canonical add has not landed yet.
	n, _ := g.AddNode(canvas.IngredientPayload{Ref: "new"}, geometry.Pt(10, 10))
	e.MarkAdded("new")
	e.Reconcile(g, canonical(100))
	if !g.Has(n.ID) {
		t.Fatal("optimistic node removed before the store caught up")
	}

	// Once observed, the ref is settled and follows the canonical record.
	e.Reconcile(g, canonical(100, LineItem{Ref: "new"}))
	if e.Unsynced() != 0 {
		t.Errorf("unsynced = %d", e.Unsynced())
	}
	e.Reconcile(g, canonical(100))
	if g.Has(n.ID) {
		t.Error("settled node should follow canonical removal")
	}

	// Deleted locally; the canonical removal has not landed yet.
	e.MarkRemoved("gone")
	r := e.Reconcile(g, canonical(100, LineItem{Ref: "gone"}))
	if len(r.Added) != 0 {
		t.Error("locally removed item should not be resurrected")
	}
}

func TestPercentZeroTarget(t *testing.T) {
	if Percent(10, 0) != 0 || Percent(10, -5) != 0 {
		t.Error("non-positive target should give 0")
	}
	if Percent(12, 100) != 12 {
		t.Errorf("Percent(12,100) = %f", Percent(12, 100))
	}
}

func TestRequestDeferredDuringGesture(t *testing.T) {
	g := canvas.NewGraph()
	e := NewEngine(DefaultOptions())
	calls := 0
	src := SourceFunc(func(context.Context) (Canonical, error) {
		calls++
		return canonical(100, LineItem{Ref: "a"}), nil
	})
	ctx := context.Background()

	if _, ran, _ := e.Request(ctx, g, src, true); ran {
		t.Fatal("pass should be deferred while a gesture is active")
	}
	if calls != 0 || g.Len() != 0 {
		t.Error("deferred pass must not touch the graph")
	}
	if !e.Pending() {
		t.Fatal("expected a pending pass")
	}
	if _, ran, err := e.Resume(ctx, g, src); !ran || err != nil {
		t.Fatalf("resume: ran=%v err=%v", ran, err)
	}
	if e.Pending() || g.Len() != 1 {
		t.Errorf("pending=%v len=%d", e.Pending(), g.Len())
	}
	if _, ran, _ := e.Resume(ctx, g, src); ran {
		t.Error("nothing pending, resume should not run")
	}
}

func TestRequestSourceFailureStaysPending(t *testing.T) {
	g := canvas.NewGraph()
	e := NewEngine(DefaultOptions())
	src := SourceFunc(func(context.Context) (Canonical, error) {
		return Canonical{}, errors.New("store offline")
	})
	if _, _, err := e.Request(context.Background(), g, src, false); err == nil {
		t.Fatal("expected error")
	}
	if !e.Pending() {
		t.Error("failed read should leave the pass pending")
	}
}

func TestSynthesizedPositionsNeverRepeat(t *testing.T) {
	g := canvas.NewGraph()
	opts := DefaultOptions()
	e := NewEngine(opts)

	var items []LineItem
	for i := 0; i < 2*opts.Wrap+5; i++ {
		items = append(items, LineItem{Ref: fmt.Sprintf("r%d", i), Name: "x", Amount: 1})
	}
	e.Reconcile(g, canonical(100, items...))

	seen := map[geometry.Point]string{}
	for _, n := range g.IngredientNodes() {
		ref := n.Payload.(canvas.IngredientPayload).Ref
		if other, dup := seen[n.Position]; dup {
			t.Errorf("%s and %s share position %+v", other, ref, n.Position)
		}
		seen[n.Position] = ref
	}
	if len(seen) != len(items) {
		t.Errorf("distinct positions = %d, want %d", len(seen), len(items))
	}
}

func TestCascadeStartsNewColumnAfterWrap(t *testing.T) {
	e := NewEngine(Options{Origin: geometry.Pt(80, 80), Step: 30, Wrap: 2})
	got := []geometry.Point{e.NextPosition(), e.NextPosition(), e.NextPosition()}
	want := []geometry.Point{geometry.Pt(80, 80), geometry.Pt(110, 110), geometry.Pt(310, 80)}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
