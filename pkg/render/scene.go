package render

import (
	"context"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/grandgraph/pkg/errors"
	"github.com/matzehuels/grandgraph/pkg/graph"
	"github.com/matzehuels/grandgraph/pkg/particles"
	"github.com/matzehuels/grandgraph/pkg/view"
)

// Scene renders one visualization session. The graph may be replaced from
// any goroutine; everything else belongs to the goroutine driving frames.
type Scene struct {
	ID string

	graph  atomic.Pointer[graph.Graph]
	ctrl   *view.Controller
	field  *particles.Field
	style  Style
	logger *log.Logger
}

// SceneOption configures a Scene.
type SceneOption func(*Scene)

// WithStyle replaces DefaultStyle.
func WithStyle(s Style) SceneOption { return func(sc *Scene) { sc.style = s } }

// WithLogger sets the logger for degraded-mode warnings.
func WithLogger(l *log.Logger) SceneOption { return func(sc *Scene) { sc.logger = l } }

// WithParticles attaches an unmounted particle field. It is mounted on the
// first Resize.
func WithParticles(f *particles.Field) SceneOption { return func(sc *Scene) { sc.field = f } }

// NewScene returns an empty scene.
func NewScene(opts ...SceneOption) *Scene {
	s := &Scene{
		ID:     uuid.NewString(),
		ctrl:   view.NewController(),
		style:  DefaultStyle(),
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetGraph swaps in g. The next frame draws it and refits the view.
func (s *Scene) SetGraph(g *graph.Graph) { s.graph.Store(g) }

// Graph returns the current graph, possibly nil.
func (s *Scene) Graph() *graph.Graph { return s.graph.Load() }

// Controller returns the view controller input handlers should drive.
func (s *Scene) Controller() *view.Controller { return s.ctrl }

// Overlay returns the hover id and transform for overlay UI.
func (s *Scene) Overlay() view.Overlay { return s.ctrl.Overlay(s.graph.Load()) }

// HasParticles reports whether a particle field is still attached.
func (s *Scene) HasParticles() bool { return s.field != nil }

// Resize records the viewport and resizes the particle surface. A field
// that cannot mount is closed and detached.
func (s *Scene) Resize(w, h, dpr float64) {
	s.ctrl.Resize(w, h)
	if s.field == nil {
		return
	}
	if err := s.field.Mount(w, h, dpr); err != nil {
		s.dropParticles(err)
	}
}

func (s *Scene) dropParticles(err error) {
	s.logger.Warn("particle field disabled", "scene", s.ID, "err", err)
	_ = s.field.Close()
	s.field = nil
}

// Frame draws one frame at t seconds: background, particles, then the graph.
func (s *Scene) Frame(ctx context.Context, c Canvas, t float64) error {
	if err := checkCanvas(c); err != nil {
		return err
	}
	c.Fill(s.style.Background)
	if s.field != nil && s.field.Len() == 0 {
		w, h := c.Size()
		s.Resize(w, h, pixelRatio(c))
	}
	if s.field != nil {
		img, err := s.field.Frame(ctx, t)
		switch {
		case err == nil:
			c.Image(img)
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			s.dropParticles(err)
		}
	}
	return s.Draw(c)
}

// Draw paints the graph layers onto c without clearing it.
func (s *Scene) Draw(c Canvas) error {
	if err := checkCanvas(c); err != nil {
		return err
	}
	w, h := c.Size()
	g := s.graph.Load()
	s.ctrl.Resize(w, h)
	s.ctrl.Sync(g)
	st := s.ctrl.State()
	tr := st.Transform

	ox, oy := tr.ToScreen(0, 0)
	for _, r := range s.style.Rings {
		c.Ring(ox, oy, r*tr.Scale, s.style.RingColor, s.style.RingWidth)
	}
	if g == nil {
		return nil
	}

	n := len(g.Nodes)
	for _, e := range g.Edges {
		if e.A < 0 || e.B < 0 || e.A >= n || e.B >= n {
			continue
		}
		ax, ay := tr.ToScreen(g.Nodes[e.A].X, g.Nodes[e.A].Y)
		bx, by := tr.ToScreen(g.Nodes[e.B].X, g.Nodes[e.B].Y)
		cx, cy := bendToward(ax, ay, bx, by, w/2, h/2)
		col, width := s.style.EdgeStroke(e)
		c.Curve(ax, ay, cx, cy, bx, by, col, width)
	}

	for i := range g.Nodes {
		node := &g.Nodes[i]
		x, y := tr.ToScreen(node.X, node.Y)
		hovered := i == st.Hover
		r := view.ScreenRadius(node, tr.Scale, hovered)
		c.Disc(x, y, r, s.style.NodeColor(i), s.style.NodeStroke, s.style.StrokeWidth)
		if hovered {
			s.drawLabel(c, x, y, r, node.DisplayLabel())
		}
	}
	return nil
}

// bendToward returns the control point halfway between the segment midpoint
// and (px, py).
func bendToward(ax, ay, bx, by, px, py float64) (cx, cy float64) {
	mx, my := (ax+bx)/2, (ay+by)/2
	return (px + mx) / 2, (py + my) / 2
}

func (s *Scene) drawLabel(c Canvas, x, y, r float64, label string) {
	if label == "" {
		return
	}
	st := s.style
	w := MeasureLabel(label) + 2*st.LabelPad
	top := y - r - st.LabelOffset - st.LabelHeight
	c.Box(x-w/2, top, w, st.LabelHeight, st.LabelRadius, st.LabelFill, st.LabelStroke)
	c.Text(x-w/2+st.LabelPad, y-r-st.LabelOffset-4, label, st.LabelText)
}

// Close releases the particle field.
func (s *Scene) Close() error {
	if s.field == nil {
		return nil
	}
	err := s.field.Close()
	s.field = nil
	return err
}

// pixelRatio returns the canvas device pixel ratio, 1 if it has none.
func pixelRatio(c Canvas) float64 {
	if d, ok := c.(interface{ DevicePixelRatio() float64 }); ok {
		return d.DevicePixelRatio()
	}
	return 1
}

func checkCanvas(c Canvas) error {
	if c == nil {
		return errors.New(errors.ErrCodeRenderPrecondition, "no canvas")
	}
	if w, h := c.Size(); !(w > 0 && h > 0) {
		return errors.New(errors.ErrCodeRenderPrecondition, "canvas has no area (%gx%g)", w, h)
	}
	return nil
}
