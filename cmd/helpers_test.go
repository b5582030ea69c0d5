package cmd

import (
	"testing"

	"github.com/ziadkadry99/formula-canvas/internal/config"
)

func TestEditorOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Canvas.MaxZoom = 3
	cfg.Canvas.CascadeOriginX = 10
	cfg.Canvas.CascadeWrap = 4

	opts := editorOptions(cfg)
	if opts.MaxZoom != 3 || opts.MinZoom != 0.5 {
		t.Errorf("zoom = %v..%v", opts.MinZoom, opts.MaxZoom)
	}
	if opts.Cascade.Origin.X != 10 || opts.Cascade.Origin.Y != 80 || opts.Cascade.Wrap != 4 {
		t.Errorf("cascade = %+v", opts.Cascade)
	}
	if opts.CommitTimeout <= 0 {
		t.Error("commit timeout should keep its default")
	}
}

func TestPercentOf(t *testing.T) {
	tests := []struct {
		amount, total, want float64
	}{
		{12, 100, 12},
		{5, 50, 10},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := percentOf(tt.amount, tt.total); got != tt.want {
			t.Errorf("percentOf(%v, %v) = %v, want %v", tt.amount, tt.total, got, tt.want)
		}
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"server": false, "serve": false, "init": false, "catalog": false, "analyze": false, "audit": false, "version": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}
