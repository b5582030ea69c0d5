package gesture

import (
	"testing"

	"github.com/ziadkadry99/formula-canvas/internal/canvas"
	"github.com/ziadkadry99/formula-canvas/internal/geometry"
)

type hookRecorder struct {
	commits int
	ended   int
}

func (h *hookRecorder) Commit()        { h.commits++ }
func (h *hookRecorder) GestureEnded() { h.ended++ }

type fixture struct {
	g     *canvas.Graph
	view  geometry.Viewport
	sel   canvas.Selection
	hooks *hookRecorder
	c     *Controller
	a, b  canvas.Node
}

// newFixture builds two ingredient nodes: A at (0,0) and B at (400,0).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{g: canvas.NewGraph(), view: geometry.NewViewport(0.5, 2), hooks: &hookRecorder{}}
	f.a, _ = f.g.AddNode(canvas.IngredientPayload{Ref: "a"}, geometry.Pt(0, 0))
	f.b, _ = f.g.AddNode(canvas.IngredientPayload{Ref: "b"}, geometry.Pt(400, 0))
	f.c = New(f.g, &f.view, &f.sel, f.hooks, 0.5)
	return f
}

func ev(id int, x, y float64) Event { return Event{PointerID: id, X: x, Y: y} }

func TestPanOnEmptyCanvas(t *testing.T) {
	f := newFixture(t)
	f.sel.SelectOnly(f.a.ID)

	if out := f.c.PointerDown(ev(1, 1000, 1000)); out.Mode != Pan {
		t.Fatalf("mode = %s, want pan", out.Mode)
	}
	if f.sel.Kind() != canvas.SelectNone {
		t.Error("pressing empty canvas should clear the selection")
	}
	f.c.PointerMove(ev(1, 1030, 990))
	if f.view.Pan != geometry.Pt(30, -10) {
		t.Errorf("pan = %+v", f.view.Pan)
	}
	out := f.c.PointerUp(ev(1, 1030, 990))
	if out.Committed || f.hooks.commits != 0 {
		t.Error("pan must not commit")
	}
	if f.hooks.ended != 1 || f.c.Active() {
		t.Error("gesture should end")
	}
}

func TestNodeDragMovesByCanvasDelta(t *testing.T) {
	f := newFixture(t)
	f.view.ZoomAt(2, geometry.Pt(0, 0))

	// A occupies screen (0,0)-(400,160) at zoom 2.
	f.c.PointerDown(ev(1, 100, 100))
	if f.c.Mode() != NodeDrag {
		t.Fatalf("mode = %s", f.c.Mode())
	}
	f.c.PointerMove(ev(1, 140, 120))
	out := f.c.PointerUp(ev(1, 140, 120))

	got, _ := f.g.Node(f.a.ID)
	if got.Position != geometry.Pt(20, 10) {
		t.Errorf("position = %+v, want (20,10)", got.Position)
	}
	if !out.Committed || f.hooks.commits != 1 {
		t.Error("a drag that moved should commit")
	}
}

func TestNodeDragWithoutMovementDoesNotCommit(t *testing.T) {
	f := newFixture(t)
	f.c.PointerDown(ev(1, 50, 40))
	out := f.c.PointerUp(ev(1, 50, 40))
	if out.Committed || f.hooks.commits != 0 {
		t.Error("a click should not commit")
	}
	if !f.sel.Contains(f.a.ID) || f.sel.Kind() != canvas.SelectSingle {
		t.Error("click should select the node")
	}
}

func TestDragMovesWholeSelection(t *testing.T) {
	f := newFixture(t)
	f.sel.SelectOnly(f.a.ID)
	f.sel.Add(f.b.ID)

	f.c.PointerDown(ev(1, 50, 40))
	f.c.PointerMove(ev(1, 60, 45))
	f.c.PointerUp(ev(1, 60, 45))

	a, _ := f.g.Node(f.a.ID)
	b, _ := f.g.Node(f.b.ID)
	if a.Position != geometry.Pt(10, 5) || b.Position != geometry.Pt(410, 5) {
		t.Errorf("positions %+v %+v", a.Position, b.Position)
	}
}

func TestShiftClickTogglesSelection(t *testing.T) {
	f := newFixture(t)
	f.sel.SelectOnly(f.a.ID)

	f.c.PointerDown(Event{PointerID: 1, X: 450, Y: 40, Shift: true})
	f.c.PointerUp(Event{PointerID: 1, X: 450, Y: 40})
	if f.sel.Kind() != canvas.SelectMulti {
		t.Errorf("shift-click should add, kind = %s", f.sel.Kind())
	}
	f.c.PointerDown(Event{PointerID: 1, X: 450, Y: 40, Shift: true})
	f.c.PointerUp(Event{PointerID: 1, X: 450, Y: 40})
	if f.sel.Contains(f.b.ID) {
		t.Error("second shift-click should remove")
	}
}

func TestShiftClickDeselectDoesNotDrag(t *testing.T) {
	f := newFixture(t)
	f.sel.SelectOnly(f.a.ID)
	f.sel.Add(f.b.ID)
	start := f.b.Position

	if out := f.c.PointerDown(Event{PointerID: 1, X: 450, Y: 40, Shift: true}); out.Mode != Idle {
		t.Fatalf("mode = %s, want idle", out.Mode)
	}
	f.c.PointerMove(ev(1, 500, 90))
	out := f.c.PointerUp(ev(1, 500, 90))

	if f.sel.Contains(f.b.ID) || !f.sel.Contains(f.a.ID) {
		t.Errorf("selection = %v, want only a", f.sel.Nodes())
	}
	if n, _ := f.g.Node(f.b.ID); n.Position != start {
		t.Errorf("deselected node moved to %+v", n.Position)
	}
	if out.Committed || f.hooks.commits != 0 {
		t.Errorf("commits = %d, outcome %+v", f.hooks.commits, out)
	}
}

func TestConnectDragCreatesConnection(t *testing.T) {
	f := newFixture(t)

	// A's output port is at (200,40).
	if out := f.c.PointerDown(ev(1, 200, 40)); out.Mode != ConnectDrag {
		t.Fatalf("mode = %s, want connect_drag", out.Mode)
	}
	f.c.PointerMove(ev(1, 300, 40))
	if p, ok := f.c.Preview(); !ok || p.Endpoint != geometry.Pt(300, 40) || p.Source != f.a.ID {
		t.Errorf("preview = %+v ok=%v", p, ok)
	}
	out := f.c.PointerUp(ev(1, 450, 40))

	if out.Connection == nil || out.Connection.Target != f.b.ID {
		t.Fatalf("outcome = %+v", out)
	}
	if out.Connection.Kind != canvas.Blend || out.Connection.Strength != 0.5 {
		t.Errorf("connection = %+v", out.Connection)
	}
	if f.hooks.commits != 1 {
		t.Errorf("commits = %d", f.hooks.commits)
	}

	// A second identical drag is de-duplicated and commits nothing.
	f.c.PointerDown(ev(1, 200, 40))
	out = f.c.PointerUp(ev(1, 450, 40))
	if !out.Abandoned || len(f.g.Connections()) != 1 || f.hooks.commits != 1 {
		t.Errorf("duplicate drag: %+v, %d connections", out, len(f.g.Connections()))
	}
}

func TestConnectDragReleasedOverEmptyCanvas(t *testing.T) {
	f := newFixture(t)
	before := f.g.Snapshot().Digest()

	f.c.PointerDown(ev(1, 200, 40))
	f.c.PointerMove(ev(1, 300, 600))
	out := f.c.PointerUp(ev(1, 300, 600))

	if !out.Abandoned || out.Connection != nil {
		t.Errorf("outcome = %+v", out)
	}
	if len(f.g.Connections()) != 0 {
		t.Error("no connection should be created")
	}
	if f.g.Snapshot().Digest() != before {
		t.Error("graph should be unchanged")
	}
	if f.hooks.commits != 0 {
		t.Error("abandoned connect must not commit")
	}
}

func TestConnectDragReleasedOverSourceIsAbandoned(t *testing.T) {
	f := newFixture(t)
	f.c.PointerDown(ev(1, 200, 40))
	out := f.c.PointerUp(ev(1, 100, 40))
	if !out.Abandoned || len(f.g.Connections()) != 0 {
		t.Error("self connection must not be created")
	}
}

func TestGestureExclusivity(t *testing.T) {
	f := newFixture(t)

	f.c.PointerDown(ev(1, 1000, 1000)) // pan
	out := f.c.PointerDown(ev(2, 50, 40))
	if !out.Ignored || f.c.Mode() != Pan {
		t.Fatalf("second pointer-down during pan must be ignored, mode = %s", f.c.Mode())
	}
	// Same pointer pressing again (e.g. a duplicated event) is ignored too.
	if out := f.c.PointerDown(ev(1, 50, 40)); !out.Ignored {
		t.Error("pointer-down while active must be ignored")
	}
	// Moves from the other pointer do nothing.
	f.c.PointerMove(ev(2, 80, 80))
	if f.view.Pan != (geometry.Point{}) {
		t.Errorf("foreign pointer moved the view: %+v", f.view.Pan)
	}
	if out := f.c.PointerUp(ev(2, 80, 80)); !out.Ignored || !f.c.Active() {
		t.Error("foreign pointer-up must not end the gesture")
	}
	a, _ := f.g.Node(f.a.ID)
	if a.Position != f.a.Position {
		t.Error("node moved during a pan")
	}
	f.c.PointerUp(ev(1, 1000, 1000))
	if f.c.Active() {
		t.Error("owning pointer-up should end the gesture")
	}
}

func TestIdleEventsAreIgnored(t *testing.T) {
	f := newFixture(t)
	if out := f.c.PointerMove(ev(1, 5, 5)); !out.Ignored {
		t.Error("move in idle should be ignored")
	}
	if out := f.c.PointerUp(ev(1, 5, 5)); !out.Ignored {
		t.Error("up in idle should be ignored")
	}
	if f.hooks.ended != 0 {
		t.Error("no gesture ended")
	}
}

func TestCancelCommitsMovedDragAndAbandonsConnect(t *testing.T) {
	f := newFixture(t)
	f.c.PointerDown(ev(1, 50, 40))
	f.c.PointerMove(ev(1, 70, 40))
	if out := f.c.PointerCancel(ev(1, 0, 0)); !out.Committed {
		t.Error("cancelled drag that moved should commit its positions")
	}

	f.c.PointerDown(ev(1, 220, 40)) // A's port, now at (220,40)
	if f.c.Mode() != ConnectDrag {
		t.Fatalf("mode = %s", f.c.Mode())
	}
	if out := f.c.PointerCancel(ev(1, 450, 40)); !out.Abandoned {
		t.Error("cancelled connect should be abandoned")
	}
	if len(f.g.Connections()) != 0 {
		t.Error("cancel must not connect")
	}
}
