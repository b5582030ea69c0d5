package geometry

import "math"

const (
	// DefaultMinZoom and DefaultMaxZoom bound the zoom factor (50%..200%).
	DefaultMinZoom = 0.5
	DefaultMaxZoom = 2.0

	// ZoomStep is the increment used by the zoom in/out buttons.
	ZoomStep = 0.1
)

// Viewport is the pan/zoom transform between pointer space and canvas space:
//
//	screen = canvas*Zoom + Pan
//
// It has no side effects beyond its own fields.
type Viewport struct {
	Zoom    float64 `json:"zoom"`
	Pan     Point   `json:"pan"`
	MinZoom float64 `json:"min_zoom"`
	MaxZoom float64 `json:"max_zoom"`
}

// NewViewport returns an identity transform clamped to [minZoom, maxZoom].
// Invalid bounds fall back to the defaults.
func NewViewport(minZoom, maxZoom float64) Viewport {
	if minZoom <= 0 || maxZoom < minZoom || math.IsInf(maxZoom, 0) {
		minZoom, maxZoom = DefaultMinZoom, DefaultMaxZoom
	}
	v := Viewport{Zoom: 1, MinZoom: minZoom, MaxZoom: maxZoom}
	v.Zoom = v.clamp(1)
	return v
}

// ToCanvasSpace applies the inverse transform to a pointer-space point.
func (v Viewport) ToCanvasSpace(p Point) Point {
	z := v.zoom()
	return Point{X: (p.X - v.Pan.X) / z, Y: (p.Y - v.Pan.Y) / z}
}

// ToScreenSpace applies the forward transform to a canvas-space point.
func (v Viewport) ToScreenSpace(p Point) Point {
	z := v.zoom()
	return Point{X: p.X*z + v.Pan.X, Y: p.Y*z + v.Pan.Y}
}

// ScreenDeltaToCanvas converts a pointer-space displacement into a
// canvas-space displacement. Pan does not affect deltas.
func (v Viewport) ScreenDeltaToCanvas(d Point) Point {
	return d.Scale(1 / v.zoom())
}

// PanBy shifts the transform by a pointer-space delta.
func (v *Viewport) PanBy(delta Point) {
	if !delta.IsFinite() {
		return
	}
	v.Pan = v.Pan.Add(delta)
}

// ZoomAt multiplies the zoom by factor, clamped to the viewport bounds, keeping
// the canvas point under anchor (pointer space) fixed on screen. Non-positive or
// non-finite factors are ignored.
func (v *Viewport) ZoomAt(factor float64, anchor Point) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) || !anchor.IsFinite() {
		return
	}
	v.setZoom(v.zoom()*factor, anchor)
}

// ZoomBy adds step to the zoom (the toolbar +/- buttons), anchored at the
// pointer-space origin.
func (v *Viewport) ZoomBy(step float64) {
	if math.IsNaN(step) || math.IsInf(step, 0) {
		return
	}
	v.setZoom(v.zoom()+step, Point{})
}

func (v *Viewport) setZoom(z float64, anchor Point) {
	before := v.ToCanvasSpace(anchor)
	v.Zoom = v.clamp(z)
	// Re-solve Pan so that `before` still maps to `anchor`.
	v.Pan = Point{X: anchor.X - before.X*v.Zoom, Y: anchor.Y - before.Y*v.Zoom}
}

func (v Viewport) clamp(z float64) float64 {
	lo, hi := v.MinZoom, v.MaxZoom
	if lo <= 0 {
		lo = DefaultMinZoom
	}
	if hi < lo {
		hi = DefaultMaxZoom
	}
	return math.Max(lo, math.Min(hi, z))
}

// zoom guards against a zero-value Viewport.
func (v Viewport) zoom() float64 {
	if v.Zoom <= 0 {
		return 1
	}
	return v.Zoom
}
