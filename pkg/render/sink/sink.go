package sink

import (
	"bytes"
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/grandgraph/pkg/graph"
	"github.com/matzehuels/grandgraph/pkg/particles"
	"github.com/matzehuels/grandgraph/pkg/render"
)

// Default frame size in CSS pixels.
const (
	DefaultWidth  = 1200
	DefaultHeight = 800
)

// Option configures a rendered frame.
type Option func(*frame)

type frame struct {
	width, height int
	dpr           float64
	time          float64
	particles     *particles.Options
	style         *render.Style
	logger        *log.Logger
}

// WithSize sets the frame size in CSS pixels.
func WithSize(w, h int) Option {
	return func(f *frame) { f.width, f.height = w, h }
}

// WithDPR sets the device pixel ratio of PNG output (default 1).
func WithDPR(dpr float64) Option { return func(f *frame) { f.dpr = dpr } }

// WithTime sets the particle animation time in seconds.
func WithTime(t float64) Option { return func(f *frame) { f.time = t } }

// WithParticles composites a particle field generated from opts.
func WithParticles(opts particles.Options) Option {
	return func(f *frame) { f.particles = &opts }
}

// WithStyle overrides the default style.
func WithStyle(s render.Style) Option { return func(f *frame) { f.style = &s } }

// WithLogger sets the logger used for degraded-mode warnings.
func WithLogger(l *log.Logger) Option { return func(f *frame) { f.logger = l } }

func newFrame(opts []Option) frame {
	f := frame{width: DefaultWidth, height: DefaultHeight, dpr: 1}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

func (f frame) scene(g *graph.Graph) *render.Scene {
	var sopts []render.SceneOption
	if f.style != nil {
		sopts = append(sopts, render.WithStyle(*f.style))
	}
	if f.logger != nil {
		sopts = append(sopts, render.WithLogger(f.logger))
	}
	if f.particles != nil {
		sopts = append(sopts, render.WithParticles(particles.New(*f.particles)))
	}
	s := render.NewScene(sopts...)
	s.SetGraph(g)
	s.Resize(float64(f.width), float64(f.height), f.dpr)
	return s
}

// RenderPNG renders g as a PNG image of WithSize × WithDPR pixels.
func RenderPNG(ctx context.Context, g *graph.Graph, opts ...Option) ([]byte, error) {
	f := newFrame(opts)
	s := f.scene(g)
	defer s.Close()

	c := render.NewRasterCanvas(float64(f.width), float64(f.height), f.dpr)
	if err := s.Frame(ctx, c, f.time); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := c.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderSVG renders g as an SVG document. Particles are embedded as a PNG
// image beneath the vector layers.
func RenderSVG(ctx context.Context, g *graph.Graph, opts ...Option) ([]byte, error) {
	f := newFrame(opts)
	f.dpr = 1
	s := f.scene(g)
	defer s.Close()

	var buf bytes.Buffer
	c := render.NewSVGCanvas(&buf, f.width, f.height)
	if err := s.Frame(ctx, c, f.time); err != nil {
		return nil, err
	}
	c.End()
	return buf.Bytes(), nil
}
