package view

import "github.com/matzehuels/grandgraph/pkg/graph"

// Mode is the pointer interaction mode.
type Mode int

const (
	Idle Mode = iota
	Panning
)

func (m Mode) String() string {
	if m == Panning {
		return "panning"
	}
	return "idle"
}

// NoHover is the hover index when no node is under the pointer.
const NoHover = -1

const (
	// MinHitRadius is the smallest hit radius in world units.
	MinHitRadius = 8.0
	// HoverBoost enlarges the hovered node's disc.
	HoverBoost = 1.2
)

// State is the plain data the frame function reads.
type State struct {
	Transform Transform
	Mode      Mode
	Hover     int
}

// Overlay is the view state exposed to overlay UI outside the renderer.
type Overlay struct {
	HoverID   string    `json:"hover_id,omitempty"`
	Hovering  bool      `json:"hovering"`
	Transform Transform `json:"transform"`
}

// Controller turns pointer and wheel events into State updates.
type Controller struct {
	state      State
	lastX      float64
	lastY      float64
	width      float64
	height     float64
	fitted     *graph.Graph
	fittedSize [2]float64
}

// NewController returns a controller at the identity transform.
func NewController() *Controller {
	return &Controller{state: State{Transform: Identity(), Hover: NoHover}}
}

// State returns a copy of the current state.
func (c *Controller) State() State { return c.state }

// SetTransform replaces the transform, clamping its scale.
func (c *Controller) SetTransform(t Transform) {
	t.Scale = ClampScale(t.Scale)
	c.state.Transform = t
}

// Resize records the viewport size. The next Sync refits.
func (c *Controller) Resize(w, h float64) {
	c.width, c.height = w, h
}

// Sync fits the view when g differs from the last fitted graph or the
// viewport changed since. It reports whether a fit happened. Call it from
// the frame function, never from fetch completion.
func (c *Controller) Sync(g *graph.Graph) bool {
	size := [2]float64{c.width, c.height}
	if g == c.fitted && size == c.fittedSize {
		return false
	}
	if g != c.fitted {
		c.state.Hover = NoHover
	}
	c.fitted, c.fittedSize = g, size
	b, ok := g.Bounds()
	if !ok || c.width <= 0 || c.height <= 0 {
		return false
	}
	c.state.Transform = Fit(b, c.width, c.height)
	return true
}

// PointerDown starts panning.
func (c *Controller) PointerDown(x, y float64) {
	c.state.Mode = Panning
	c.lastX, c.lastY = x, y
}

// PointerMove pans while Panning, otherwise updates hover against g.
func (c *Controller) PointerMove(g *graph.Graph, x, y float64) {
	if c.state.Mode == Panning {
		c.state.Transform = c.state.Transform.Pan(x-c.lastX, y-c.lastY)
		c.lastX, c.lastY = x, y
		return
	}
	wx, wy := c.state.Transform.ToWorld(x, y)
	c.state.Hover = HitTest(g, wx, wy)
}

// PointerUp ends panning.
func (c *Controller) PointerUp() {
	c.state.Mode = Idle
}

// Wheel zooms around the cursor.
func (c *Controller) Wheel(x, y, deltaY float64) {
	c.state.Transform = c.state.Transform.ZoomAt(x, y, deltaY)
}

// Overlay snapshots the hover id and transform for g.
func (c *Controller) Overlay(g *graph.Graph) Overlay {
	o := Overlay{Transform: c.state.Transform}
	if h := c.state.Hover; h != NoHover && h < g.Len() {
		o.Hovering = true
		o.HoverID = g.Nodes[h].ID
	}
	return o
}

// HitTest returns the topmost node within its hit radius of the world point,
// or NoHover.
func HitTest(g *graph.Graph, wx, wy float64) int {
	for i := g.Len() - 1; i >= 0; i-- {
		n := &g.Nodes[i]
		dx, dy := wx-n.X, wy-n.Y
		rr := max(MinHitRadius, n.Radius)
		if dx*dx+dy*dy <= rr*rr {
			return i
		}
	}
	return NoHover
}

// ScreenRadius returns the on-screen disc radius for a node.
func ScreenRadius(n *graph.Node, scale float64, hovered bool) float64 {
	boost := 1.0
	if hovered {
		boost = HoverBoost
	}
	return max(MinHitRadius, n.Radius*scale*boost)
}
