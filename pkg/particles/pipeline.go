package particles

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Uniforms are the per-frame inputs shared by every particle.
type Uniforms struct {
	Time    float64    `json:"time"`     // seconds since mount
	Phase   float64    `json:"phase"`    // 0 keeps depth, 1 flattens to the XY plane
	Zoom    float64    `json:"zoom"`     // projection scale in CSS pixels
	Tilt    float64    `json:"tilt"`     // rotation about X, degrees
	ViewW   float64    `json:"view_w"`   // viewport width, CSS pixels
	ViewH   float64    `json:"view_h"`   // viewport height, CSS pixels
	PointPx float64    `json:"point_px"` // base point size, device pixels
	Alpha   float64    `json:"alpha"`    // global brightness
	Color   [3]float64 `json:"color"`
}

// DefaultColor is the field tint (a muted violet).
var DefaultColor = [3]float64{0.70, 0.62, 0.94}

// DefaultUniforms returns the uniforms for a w×h viewport at time zero.
func DefaultUniforms(w, h float64) Uniforms {
	return Uniforms{
		Phase:   1,
		Zoom:    400,
		Tilt:    90,
		ViewW:   w,
		ViewH:   h,
		PointPx: 2.5,
		Alpha:   0.15,
		Color:   DefaultColor,
	}
}

// Vertex is the vertex-stage output for one particle.
type Vertex struct {
	X, Y  float64 // clip space, [-1, 1] is on screen
	Size  float64 // point diameter in device pixels
	Alpha float64
}

// VertexStage evaluates the vertex program for a fixed set of uniforms.
// Build one per frame; Run is safe for concurrent use.
type VertexStage struct {
	u    Uniforms
	spin *r3.Mat // rotation about Y by time
	tilt *r3.Mat // rotation about X by Tilt
	half r3.Vec  // half viewport, for the clip divide
}

// NewVertexStage precomputes the frame's rotation matrices.
func NewVertexStage(u Uniforms) *VertexStage {
	cy, sy := math.Cos(u.Time*0.08), math.Sin(u.Time*0.08)
	rad := u.Tilt * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)
	return &VertexStage{
		u: u,
		spin: r3.NewMat([]float64{
			cy, 0, -sy,
			0, 1, 0,
			sy, 0, cy,
		}),
		tilt: r3.NewMat([]float64{
			1, 0, 0,
			0, c, s,
			0, -s, c,
		}),
		half: r3.Vec{X: 0.5 * u.ViewW, Y: 0.5 * u.ViewH},
	}
}

// Run transforms one particle.
func (s *VertexStage) Run(p Particle) Vertex {
	seed := p.Seed
	j := 0.006 * math.Sin(s.u.Time*1.2+seed*6.28)
	wobble := normalize(r3.Vec{X: math.Sin(seed * 4.1), Y: math.Cos(seed * 3.7), Z: math.Sin(seed * 2.3)})
	pos := r3.Add(p.Pos, r3.Scale(j, wobble))
	pos.Z *= 1 - s.u.Phase

	pr := s.tilt.MulVec(s.spin.MulVec(pos))
	f := 1 / (1 + pr.Z*0.6)

	var v Vertex
	if s.half.X > 0 {
		v.X = pr.X * s.u.Zoom * f / s.half.X
	}
	if s.half.Y > 0 {
		v.Y = pr.Y * s.u.Zoom * f / s.half.Y
	}
	v.Size = s.u.PointPx * (0.8 + 0.4*hash11(seed*7.3)) * f
	v.Alpha = s.u.Alpha * smoothstep(1.2, 0, r3.Norm(pos)) * (0.3 + 0.7*hash11(seed*9.1))
	return v
}

// Fragment evaluates the fragment program at point coordinate (px, py) in
// [0, 1]² for a vertex alpha. ok is false where the fragment is discarded.
func Fragment(px, py, alpha float64) (a float64, ok bool) {
	x, y := px*2-1, py*2-1
	d := x*x + y*y
	if d > 1 {
		return 0, false
	}
	return alpha * math.Exp(-2.5*d), true
}

func hash11(p float64) float64 {
	p = fract(p * 0.1031)
	p *= p + 33.33
	p *= p + p
	return fract(p)
}

func fract(x float64) float64 { return x - math.Floor(x) }

func smoothstep(e0, e1, x float64) float64 {
	t := (x - e0) / (e1 - e0)
	t = math.Min(1, math.Max(0, t))
	return t * t * (3 - 2*t)
}
