package geometry

import (
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestToCanvasSpaceIdentity(t *testing.T) {
	v := NewViewport(0.5, 2)
	got := v.ToCanvasSpace(Pt(120, 80))
	if got != Pt(120, 80) {
		t.Errorf("identity transform: got %+v", got)
	}
}

func TestToCanvasSpaceRoundTrip(t *testing.T) {
	v := NewViewport(0.5, 2)
	v.PanBy(Pt(40, -25))
	v.ZoomAt(1.5, Pt(300, 200))

	for _, p := range []Point{{0, 0}, {120, 80}, {-50, 999}} {
		back := v.ToCanvasSpace(v.ToScreenSpace(p))
		if !approx(back.X, p.X) || !approx(back.Y, p.Y) {
			t.Errorf("round trip %+v -> %+v", p, back)
		}
	}
}

func TestZoomClamped(t *testing.T) {
	tests := []struct {
		name   string
		factor float64
		want   float64
	}{
		{"within range", 1.5, 1.5},
		{"above max", 10, 2},
		{"below min", 0.01, 0.5},
		{"zero ignored", 0, 1},
		{"negative ignored", -2, 1},
		{"nan ignored", math.NaN(), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewViewport(0.5, 2)
			v.ZoomAt(tt.factor, Pt(0, 0))
			if !approx(v.Zoom, tt.want) {
				t.Errorf("zoom = %f, want %f", v.Zoom, tt.want)
			}
		})
	}
}

func TestZoomKeepsAnchorFixed(t *testing.T) {
	v := NewViewport(0.5, 2)
	v.PanBy(Pt(10, 10))
	anchor := Pt(250, 140)
	before := v.ToCanvasSpace(anchor)

	v.ZoomAt(1.8, anchor)
	after := v.ToCanvasSpace(anchor)

	if !approx(before.X, after.X) || !approx(before.Y, after.Y) {
		t.Errorf("anchor drifted: %+v -> %+v", before, after)
	}
}

func TestZoomByStep(t *testing.T) {
	v := NewViewport(0.5, 2)
	for i := 0; i < 20; i++ {
		v.ZoomBy(-ZoomStep)
	}
	if !approx(v.Zoom, 0.5) {
		t.Errorf("zoom after many steps out = %f, want 0.5", v.Zoom)
	}
	v.ZoomBy(ZoomStep)
	if !approx(v.Zoom, 0.6) {
		t.Errorf("zoom = %f, want 0.6", v.Zoom)
	}
}

func TestScreenDeltaToCanvas(t *testing.T) {
	v := NewViewport(0.5, 2)
	v.ZoomAt(2, Pt(0, 0))
	v.PanBy(Pt(500, 500))
	d := v.ScreenDeltaToCanvas(Pt(10, -4))
	if !approx(d.X, 5) || !approx(d.Y, -2) {
		t.Errorf("delta = %+v, want (5,-2)", d)
	}
}

func TestInvalidBoundsFallBack(t *testing.T) {
	v := NewViewport(3, 1)
	if v.MinZoom != DefaultMinZoom || v.MaxZoom != DefaultMaxZoom {
		t.Errorf("bounds = [%f,%f], want defaults", v.MinZoom, v.MaxZoom)
	}
}

func TestRectContainsAndUnion(t *testing.T) {
	r := RectAt(Pt(10, 10), Size{W: 200, H: 80})
	if !r.Contains(Pt(10, 10)) || !r.Contains(Pt(210, 90)) {
		t.Error("edges should be inclusive")
	}
	if r.Contains(Pt(211, 50)) {
		t.Error("point right of rect should not be contained")
	}

	u := r.Union(RectAt(Pt(300, -20), Size{W: 10, H: 10}))
	if u.X != 10 || u.Y != -20 || u.MaxX() != 310 || u.MaxY() != 90 {
		t.Errorf("union = %+v", u)
	}
}
