// Package gesture turns a single pointer-event stream into exactly one of
// pan, node-drag or connect-drag at a time.
//
// The current mode and the id of the pointer that started it form an
// explicit guard: a pointer-down is only honoured from Idle, and move/up
// events from any other pointer are ignored until the gesture ends.
package gesture

import (
	"github.com/ziadkadry99/formula-canvas/internal/canvas"
	"github.com/ziadkadry99/formula-canvas/internal/geometry"
	"github.com/ziadkadry99/formula-canvas/internal/metrics"
)

// Mode is the active gesture.
type Mode string

const (
	Idle        Mode = "idle"
	Pan         Mode = "pan"
	NodeDrag    Mode = "node_drag"
	ConnectDrag Mode = "connect_drag"
)

// Event is one pointer sample in screen (pointer) space.
type Event struct {
	PointerID int     `json:"pointer_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Shift     bool    `json:"shift,omitempty"`
}

// Point returns the event position.
func (e Event) Point() geometry.Point { return geometry.Pt(e.X, e.Y) }

// Hooks lets the owner react to gesture boundaries.
type Hooks interface {
	// Commit is called when a gesture made a structural or positional change
	// that must be persisted.
	Commit()
	// GestureEnded is called on every return to Idle, after Commit.
	GestureEnded()
}

// Outcome describes what an event did.
type Outcome struct {
	Ignored    bool               `json:"ignored,omitempty"`
	Mode       Mode               `json:"mode"`
	Ended      Mode               `json:"ended,omitempty"`
	Committed  bool               `json:"committed,omitempty"`
	Connection *canvas.Connection `json:"connection,omitempty"`
	Abandoned  bool               `json:"abandoned,omitempty"`
}

// Preview is the temporary edge drawn during a connect-drag.
type Preview struct {
	Source   canvas.NodeID  `json:"source"`
	From     geometry.Point `json:"from"`
	Endpoint geometry.Point `json:"endpoint"`
}

// Controller is the gesture state machine for one session. It mutates the
// graph, viewport and selection it was built with and is not safe for
// concurrent use.
type Controller struct {
	graph *canvas.Graph
	view  *geometry.Viewport
	sel   *canvas.Selection
	hooks Hooks

	defaultStrength float64

	mode     Mode
	pointer  int
	last     geometry.Point
	moved    bool
	dragIDs  []canvas.NodeID
	source   canvas.NodeID
	endpoint geometry.Point
}

// New creates a Controller in Idle. hooks may be nil.
func New(g *canvas.Graph, view *geometry.Viewport, sel *canvas.Selection, hooks Hooks, defaultStrength float64) *Controller {
	return &Controller{
		graph:           g,
		view:            view,
		sel:             sel,
		hooks:           hooks,
		defaultStrength: canvas.ClampStrength(defaultStrength),
		mode:            Idle,
	}
}

// Rebind points the controller at a new graph, as after a reload. Any
// active gesture is dropped without committing.
func (c *Controller) Rebind(g *canvas.Graph) {
	c.graph = g
	c.reset()
}

// Mode returns the active gesture.
func (c *Controller) Mode() Mode { return c.mode }

// Active reports whether a gesture is in progress. The synchronization
// engine treats this as its suppression flag.
func (c *Controller) Active() bool { return c.mode != Idle }

// Preview returns the in-progress connection, if a connect-drag is active.
func (c *Controller) Preview() (Preview, bool) {
	if c.mode != ConnectDrag {
		return Preview{}, false
	}
	src, ok := c.graph.Node(c.source)
	if !ok {
		return Preview{}, false
	}
	return Preview{Source: c.source, From: src.OutputPort(), Endpoint: c.endpoint}, true
}

// PointerDown starts a gesture. It is ignored unless the controller is Idle,
// so a second pointer (or a stray down during a pan) can never start an
// overlapping gesture.
func (c *Controller) PointerDown(ev Event) Outcome {
	if c.mode != Idle || !ev.Point().IsFinite() {
		return Outcome{Ignored: true, Mode: c.mode}
	}
	p := c.view.ToCanvasSpace(ev.Point())

	// Ports sit on node edges, so they are tested before bodies.
	if !c.hitPort(p) && !c.hitBody(p, ev.Shift) {
		c.sel.Clear()
		c.mode = Pan
	}
	c.pointer = ev.PointerID
	c.last = ev.Point()
	c.moved = false
	return Outcome{Mode: c.mode}
}

func (c *Controller) hitPort(p geometry.Point) bool {
	n, ok := c.graph.HitPort(p)
	if !ok {
		return false
	}
	c.mode = ConnectDrag
	c.source = n.ID
	c.endpoint = p
	return true
}

func (c *Controller) hitBody(p geometry.Point, shift bool) bool {
	n, ok := c.graph.HitNode(p)
	if !ok {
		return false
	}
	switch {
	case shift:
		c.sel.Toggle(n.ID)
	case !c.sel.Contains(n.ID):
		c.sel.SelectOnly(n.ID)
	}
	// A shift-click that deselects the node is only a click.
	if !c.sel.Contains(n.ID) {
		return true
	}
	c.dragIDs = c.sel.Nodes()
	c.mode = NodeDrag
	return true
}

// PointerMove advances the active gesture. Events from a pointer other than
// the one that started the gesture are ignored.
func (c *Controller) PointerMove(ev Event) Outcome {
	if c.mode == Idle || ev.PointerID != c.pointer || !ev.Point().IsFinite() {
		return Outcome{Ignored: true, Mode: c.mode}
	}
	delta := ev.Point().Sub(c.last)
	c.last = ev.Point()

	switch c.mode {
	case Pan:
		c.view.PanBy(delta)
	case NodeDrag:
		d := c.view.ScreenDeltaToCanvas(delta)
		if d != (geometry.Point{}) && c.graph.MoveNodesBy(c.dragIDs, d) > 0 {
			c.moved = true
		}
	case ConnectDrag:
		c.endpoint = c.view.ToCanvasSpace(ev.Point())
	}
	return Outcome{Mode: c.mode}
}

// PointerUp ends the active gesture. A node-drag that moved commits; a
// connect-drag released over a node other than its source creates a Blend
// connection and commits; a connect-drag released anywhere else is
// abandoned with no structural change.
func (c *Controller) PointerUp(ev Event) Outcome {
	if c.mode == Idle || ev.PointerID != c.pointer {
		return Outcome{Ignored: true, Mode: c.mode}
	}
	out := Outcome{Ended: c.mode}

	switch c.mode {
	case NodeDrag:
		out.Committed = c.moved
	case ConnectDrag:
		p := c.endpoint
		if ev.Point().IsFinite() {
			p = c.view.ToCanvasSpace(ev.Point())
		}
		target, ok := c.graph.HitNode(p, c.source)
		if !ok {
			out.Abandoned = true
			break
		}
		conn, created := c.graph.AddConnection(c.source, target.ID, canvas.Blend, c.defaultStrength)
		if !created {
			out.Abandoned = true
			break
		}
		out.Connection = &conn
		out.Committed = true
	case Pan:
	}
	return c.finish(out)
}

// PointerCancel ends the active gesture as if the pointer left the canvas.
// Moves already applied by a node-drag are committed; a connect-drag is
// abandoned.
func (c *Controller) PointerCancel(ev Event) Outcome {
	if c.mode == Idle || ev.PointerID != c.pointer {
		return Outcome{Ignored: true, Mode: c.mode}
	}
	out := Outcome{Ended: c.mode}
	switch c.mode {
	case NodeDrag:
		out.Committed = c.moved
	case ConnectDrag:
		out.Abandoned = true
	case Pan:
	}
	return c.finish(out)
}

func (c *Controller) finish(out Outcome) Outcome {
	metrics.Gestures.WithLabelValues(string(c.mode)).Inc()
	c.reset()
	out.Mode = Idle
	if c.hooks != nil {
		if out.Committed {
			c.hooks.Commit()
		}
		c.hooks.GestureEnded()
	}
	return out
}

func (c *Controller) reset() {
	c.mode = Idle
	c.pointer = 0
	c.moved = false
	c.dragIDs = nil
	c.source = ""
	c.endpoint = geometry.Point{}
}
