package particles

import (
	"context"
	"image"
	"math"
	"sync"

	"github.com/matzehuels/grandgraph/pkg/errors"
)

// Options configures a Field. Zero Count, Zoom, PointPx and Alpha take the
// defaults; Phase and Tilt are used as given, so start from DefaultOptions.
type Options struct {
	Count   int     // particles, at least MinCount
	Seed    uint64  // generation seed
	Blend   Blend   // Additive unless set
	Phase   float64 // see Uniforms; negative means default
	Zoom    float64
	Tilt    float64 // degrees
	PointPx float64
	Alpha   float64
}

// DefaultOptions mirrors DefaultUniforms.
func DefaultOptions() Options {
	u := DefaultUniforms(0, 0)
	return Options{
		Count:   DefaultCount,
		Phase:   u.Phase,
		Zoom:    u.Zoom,
		Tilt:    u.Tilt,
		PointPx: u.PointPx,
		Alpha:   u.Alpha,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Count <= 0 {
		o.Count = d.Count
	}
	if o.Phase < 0 {
		o.Phase = d.Phase
	}
	if o.Zoom <= 0 {
		o.Zoom = d.Zoom
	}
	if o.PointPx <= 0 {
		o.PointPx = d.PointPx
	}
	if o.Alpha <= 0 {
		o.Alpha = d.Alpha
	}
	return o
}

// Field hosts the particle pipeline on the CPU. Mount generates the cloud,
// Resize tracks the display, Frame draws one frame and Close releases
// everything. A Field is safe for concurrent use; frames are serialized.
type Field struct {
	mu        sync.Mutex
	opts      Options
	particles []Particle
	raster    *Raster
	w, h      float64 // CSS pixels
	dpr       float64
	closed    bool
}

// New returns an unmounted field.
func New(opts Options) *Field {
	return &Field{opts: opts.withDefaults()}
}

// Mount generates the particle cloud and sizes the surface. The cloud is
// generated only on the first Mount.
func (f *Field) Mount(w, h, dpr float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New(errors.ErrCodeRenderPrecondition, "particle field is closed")
	}
	if err := f.resize(w, h, dpr); err != nil {
		return err
	}
	if f.particles == nil {
		f.particles = Generate(f.opts.Count, f.opts.Seed)
	}
	return nil
}

// Resize recomputes the backing resolution. The cloud is untouched.
func (f *Field) Resize(w, h, dpr float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New(errors.ErrCodeRenderPrecondition, "particle field is closed")
	}
	return f.resize(w, h, dpr)
}

func (f *Field) resize(w, h, dpr float64) error {
	if !(w > 0 && h > 0) || math.IsInf(w, 0) || math.IsInf(h, 0) {
		return errors.New(errors.ErrCodeRenderPrecondition, "particle surface has no area (%gx%g)", w, h)
	}
	if !(dpr > 0) {
		dpr = 1
	}
	bw, bh := Backing(w, dpr), Backing(h, dpr)
	if f.raster == nil || f.raster.W != bw || f.raster.H != bh {
		f.raster = NewRaster(bw, bh)
	}
	f.w, f.h, f.dpr = w, h, dpr
	return nil
}

// Backing returns the device-pixel size of a CSS length.
func Backing(css, dpr float64) int {
	return max(1, int(math.Floor(css*dpr)))
}

// Size returns the backing resolution.
func (f *Field) Size() (w, h int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.raster == nil {
		return 0, 0
	}
	return f.raster.W, f.raster.H
}

// Len returns the number of particles, zero before Mount.
func (f *Field) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.particles)
}

// Uniforms returns the uniforms for time t seconds after mount.
func (f *Field) Uniforms(t float64) Uniforms {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uniforms(t)
}

func (f *Field) uniforms(t float64) Uniforms {
	return Uniforms{
		Time:    t,
		Phase:   f.opts.Phase,
		Zoom:    f.opts.Zoom,
		Tilt:    f.opts.Tilt,
		ViewW:   f.w,
		ViewH:   f.h,
		PointPx: f.opts.PointPx,
		Alpha:   f.opts.Alpha,
		Color:   DefaultColor,
	}
}

// Pipeline describes the field for a GPU host.
func (f *Field) Pipeline(t float64) Pipeline {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Describe(f.opts.Count, f.uniforms(t), f.opts.Blend)
}

// Frame draws the field at time t and returns a transparent image of the
// backing size.
func (f *Field) Frame(ctx context.Context, t float64) (*image.RGBA, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case f.closed:
		return nil, errors.New(errors.ErrCodeRenderPrecondition, "particle field is closed")
	case f.particles == nil || f.raster == nil:
		return nil, errors.New(errors.ErrCodeRenderPrecondition, "particle field is not mounted")
	}
	f.raster.Clear()
	if err := f.raster.Draw(ctx, f.particles, f.uniforms(t), f.opts.Blend); err != nil {
		return nil, err
	}
	return f.raster.RGBA(), nil
}

// Close releases the cloud and the surface. It is safe to call more than once.
func (f *Field) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.particles = nil
	f.raster = nil
	return nil
}
