package particles

import (
	"context"
	"fmt"
	"image"
	"math"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Blend selects how overlapping fragments combine.
type Blend int

const (
	// Additive sums premultiplied color, so dense regions glow.
	Additive Blend = iota
	// Alpha composites each fragment over the previous ones.
	Alpha
)

func (b Blend) String() string {
	switch b {
	case Additive:
		return "additive"
	case Alpha:
		return "alpha"
	}
	return fmt.Sprintf("Blend(%d)", int(b))
}

// ParseBlend parses "additive" or "alpha".
func ParseBlend(s string) (Blend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "additive", "add":
		return Additive, nil
	case "alpha", "over":
		return Alpha, nil
	}
	return Additive, fmt.Errorf("unknown blend mode %q", s)
}

// Func returns the GL blend factors for the mode.
func (b Blend) Func() BlendFunc {
	if b == Alpha {
		return BlendFunc{SrcRGB: "src alpha", DstRGB: "one minus src alpha", SrcAlpha: "one", DstAlpha: "one minus src alpha"}
	}
	return BlendFunc{SrcRGB: "src alpha", DstRGB: "one", SrcAlpha: "one", DstAlpha: "one"}
}

// rows per band handed to one worker
const bandRows = 32

// chunk of particles projected by one worker
const projectChunk = 8192

// sprite is a projected point in backing pixels.
type sprite struct {
	x, y  float64 // center
	size  float64
	alpha float64
}

// Raster is a premultiplied float RGBA surface the field draws into.
type Raster struct {
	W, H int
	pix  []float32
}

// NewRaster allocates a w×h surface.
func NewRaster(w, h int) *Raster {
	w, h = max(1, w), max(1, h)
	return &Raster{W: w, H: h, pix: make([]float32, 4*w*h)}
}

// Clear resets every pixel to transparent black.
func (r *Raster) Clear() { clear(r.pix) }

// At returns the premultiplied color of pixel (x, y).
func (r *Raster) At(x, y int) (cr, cg, cb, ca float32) {
	i := 4 * (y*r.W + x)
	return r.pix[i], r.pix[i+1], r.pix[i+2], r.pix[i+3]
}

// Draw rasterizes ps with uniforms u. Projection runs in parallel chunks and
// fragment shading in parallel row bands, so each pixel is written by one
// goroutine in particle order.
func (r *Raster) Draw(ctx context.Context, ps []Particle, u Uniforms, mode Blend) error {
	stage := NewVertexStage(u)
	sprites := make([]sprite, len(ps))
	keep := make([]bool, len(ps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for lo := 0; lo < len(ps); lo += projectChunk {
		hi := min(lo+projectChunk, len(ps))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				sprites[i], keep[i] = r.project(stage.Run(ps[i]))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	visible := sprites[:0]
	for i, s := range sprites {
		if keep[i] {
			visible = append(visible, s)
		}
	}

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for y0 := 0; y0 < r.H; y0 += bandRows {
		y1 := min(y0+bandRows, r.H)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for _, s := range visible {
				r.shade(s, y0, y1, u.Color, mode)
			}
			return nil
		})
	}
	return g.Wait()
}

// project maps clip space to backing pixels with Y pointing down and culls
// sprites that cannot touch the surface.
func (r *Raster) project(v Vertex) (sprite, bool) {
	if v.Alpha <= 0 || math.IsNaN(v.X) || math.IsNaN(v.Y) {
		return sprite{}, false
	}
	s := sprite{
		x:     (v.X*0.5 + 0.5) * float64(r.W),
		y:     (0.5 - v.Y*0.5) * float64(r.H),
		size:  math.Max(1, v.Size),
		alpha: v.Alpha,
	}
	h := s.size / 2
	if s.x+h < 0 || s.y+h < 0 || s.x-h > float64(r.W) || s.y-h > float64(r.H) {
		return sprite{}, false
	}
	return s, true
}

// shade runs the fragment stage for the pixels of s inside rows [y0, y1).
func (r *Raster) shade(s sprite, y0, y1 int, c [3]float64, mode Blend) {
	h := s.size / 2
	top := max(y0, int(math.Ceil(s.y-h-0.5)))
	bot := min(y1, int(math.Ceil(s.y+h-0.5)))
	if top >= bot {
		return
	}
	left := max(0, int(math.Ceil(s.x-h-0.5)))
	right := min(r.W, int(math.Ceil(s.x+h-0.5)))
	for py := top; py < bot; py++ {
		cy := (float64(py) + 0.5 - (s.y - h)) / s.size
		for px := left; px < right; px++ {
			cx := (float64(px) + 0.5 - (s.x - h)) / s.size
			a, ok := Fragment(cx, cy, s.alpha)
			if !ok {
				continue
			}
			r.blend(4*(py*r.W+px), c, float32(a), mode)
		}
	}
}

func (r *Raster) blend(i int, c [3]float64, a float32, mode Blend) {
	p := r.pix[i : i+4 : i+4]
	if mode == Alpha {
		k := 1 - a
		p[0] = float32(c[0])*a + p[0]*k
		p[1] = float32(c[1])*a + p[1]*k
		p[2] = float32(c[2])*a + p[2]*k
		p[3] = a + p[3]*k
		return
	}
	p[0] += float32(c[0]) * a
	p[1] += float32(c[1]) * a
	p[2] += float32(c[2]) * a
	p[3] += a
}

// RGBA converts the surface to an 8-bit premultiplied image, saturating
// channels above 1.
func (r *Raster) RGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.W, r.H))
	for i := 0; i < len(r.pix); i += 4 {
		img.Pix[i] = to8(r.pix[i])
		img.Pix[i+1] = to8(r.pix[i+1])
		img.Pix[i+2] = to8(r.pix[i+2])
		img.Pix[i+3] = to8(r.pix[i+3])
	}
	return img
}

func to8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
