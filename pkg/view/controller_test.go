package view

import (
	"testing"

	"github.com/matzehuels/grandgraph/pkg/graph"
)

func originGraph() *graph.Graph {
	return &graph.Graph{Nodes: []graph.Node{{ID: "focal", Radius: 20}}}
}

func TestHitTest(t *testing.T) {
	g := originGraph()
	tests := []struct {
		name   string
		x, y   float64
		wantOK bool
	}{
		{"center", 0, 0, true},
		{"inside", 12, 12, true},
		{"on rim", 20, 0, true},
		{"just outside", 20.01, 0, false},
		{"diagonal outside", 15, 15, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HitTest(g, tt.x, tt.y)
			if (got == 0) != tt.wantOK {
				t.Errorf("HitTest(%v,%v) = %d, wantHit %v", tt.x, tt.y, got, tt.wantOK)
			}
		})
	}
}

func TestHitTestMinRadiusAndOrder(t *testing.T) {
	g := &graph.Graph{Nodes: []graph.Node{
		{ID: "a", Radius: 2},
		{ID: "b", X: 3, Radius: 2},
	}}
	if got := HitTest(g, 7.5, 0); got != 1 {
		t.Errorf("min radius: got %d, want 1", got)
	}
	if got := HitTest(g, 1.5, 0); got != 1 {
		t.Errorf("topmost should win, got %d", got)
	}
	if got := HitTest(g, 50, 50); got != NoHover {
		t.Errorf("miss = %d, want NoHover", got)
	}
	if got := HitTest(nil, 0, 0); got != NoHover {
		t.Errorf("nil graph = %d", got)
	}
}

func TestControllerPanAndHover(t *testing.T) {
	g := originGraph()
	c := NewController()

	c.PointerMove(g, 5, 5)
	if s := c.State(); s.Hover != 0 || s.Mode != Idle {
		t.Fatalf("state = %+v, want hovering node 0", s)
	}
	if o := c.Overlay(g); !o.Hovering || o.HoverID != "focal" {
		t.Errorf("overlay = %+v", o)
	}

	c.PointerDown(5, 5)
	c.PointerMove(g, 105, 55)
	s := c.State()
	if s.Mode != Panning {
		t.Fatalf("mode = %v, want panning", s.Mode)
	}
	if s.Transform.TX != 100 || s.Transform.TY != 50 {
		t.Errorf("translate = (%v,%v), want (100,50)", s.Transform.TX, s.Transform.TY)
	}
	if s.Hover != 0 {
		t.Errorf("hover changed while panning: %d", s.Hover)
	}

	c.PointerUp()
	c.PointerMove(g, 500, 500)
	if s := c.State(); s.Mode != Idle || s.Hover != NoHover {
		t.Errorf("state = %+v, want idle with no hover", s)
	}
	if o := c.Overlay(g); o.Hovering {
		t.Errorf("overlay still hovering: %+v", o)
	}
}

func TestControllerWheel(t *testing.T) {
	c := NewController()
	for range 100 {
		c.Wheel(10, 10, -500)
	}
	if got := c.State().Transform.Scale; got != MaxScale {
		t.Errorf("scale = %v, want %v", got, MaxScale)
	}
}

func TestControllerSync(t *testing.T) {
	g := &graph.Graph{Nodes: []graph.Node{{X: -100, Y: -100}, {X: 100, Y: 100}}}
	c := NewController()

	if c.Sync(g) {
		t.Error("fit without a viewport")
	}
	c.Resize(720, 720)
	if !c.Sync(g) {
		t.Fatal("expected fit after resize")
	}
	if got := c.State().Transform.Scale; got != MaxFitScale {
		t.Errorf("scale = %v, want %v", got, MaxFitScale)
	}
	if c.Sync(g) {
		t.Error("refit with unchanged graph and viewport")
	}

	c.Wheel(0, 0, 200)
	next := &graph.Graph{Nodes: g.Nodes}
	if !c.Sync(next) {
		t.Error("new graph should refit")
	}
	if got := c.State().Transform.Scale; got != MaxFitScale {
		t.Errorf("scale after refit = %v, want %v", got, MaxFitScale)
	}
}

func TestControllerSyncClearsHoverOnNewGraph(t *testing.T) {
	g := &graph.Graph{Nodes: []graph.Node{{X: -100, Y: -100, Radius: 10}, {X: 100, Y: 100, Radius: 10}}}
	c := NewController()
	c.Resize(720, 720)
	c.Sync(g)

	sx, sy := c.State().Transform.ToScreen(100, 100)
	c.PointerMove(g, sx, sy)
	if got := c.State().Hover; got != 1 {
		t.Fatalf("hover = %d, want 1", got)
	}

	c.Resize(800, 720)
	c.Sync(g)
	if got := c.State().Hover; got != 1 {
		t.Errorf("resize dropped hover: %d", got)
	}

	// Same size, different nodes: index 1 would name an unrelated node.
	other := &graph.Graph{Nodes: []graph.Node{{ID: "x"}, {ID: "y", X: 50}, {ID: "z", X: -50}}}
	c.Sync(other)
	if got := c.State().Hover; got != NoHover {
		t.Errorf("hover = %d after graph swap, want NoHover", got)
	}
	if o := c.Overlay(other); o.Hovering {
		t.Errorf("overlay = %+v after graph swap", o)
	}
}

func TestScreenRadius(t *testing.T) {
	n := &graph.Node{Radius: 16}
	if got := ScreenRadius(n, 1, false); got != 16 {
		t.Errorf("got %v", got)
	}
	if got := ScreenRadius(n, 1, true); got != 16*HoverBoost {
		t.Errorf("hovered = %v", got)
	}
	if got := ScreenRadius(n, 0.25, false); got != MinHitRadius {
		t.Errorf("small = %v, want %v", got, MinHitRadius)
	}
}
