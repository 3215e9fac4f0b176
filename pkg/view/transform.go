package view

import (
	"math"

	"github.com/matzehuels/grandgraph/pkg/graph"
)

const (
	MinScale = 0.25
	MaxScale = 3.0

	// WheelSensitivity scales wheel deltaY into a relative zoom step.
	WheelSensitivity = 0.0015

	// FitMargin pads the node bounding box when fitting, in world units.
	FitMargin = 80.0
	// MaxFitScale caps the scale chosen by Fit.
	MaxFitScale = 1.3
)

// Transform maps world coordinates to screen coordinates.
type Transform struct {
	TX    float64 `json:"tx"`
	TY    float64 `json:"ty"`
	Scale float64 `json:"scale"`
}

// Identity returns the unit transform.
func Identity() Transform { return Transform{Scale: 1} }

// ClampScale limits s to [MinScale, MaxScale].
func ClampScale(s float64) float64 {
	if math.IsNaN(s) {
		return 1
	}
	return max(MinScale, min(MaxScale, s))
}

// ToScreen maps a world point to the screen.
func (t Transform) ToScreen(wx, wy float64) (sx, sy float64) {
	return wx*t.Scale + t.TX, wy*t.Scale + t.TY
}

// ToWorld maps a screen point back to world units.
func (t Transform) ToWorld(sx, sy float64) (wx, wy float64) {
	return (sx - t.TX) / t.Scale, (sy - t.TY) / t.Scale
}

// ZoomAt applies a wheel step at screen point (px,py). The world point under
// the cursor before the zoom maps back to (px,py) afterwards.
func (t Transform) ZoomAt(px, py, deltaY float64) Transform {
	wx, wy := t.ToWorld(px, py)
	next := Transform{Scale: ClampScale(t.Scale * (1 - deltaY*WheelSensitivity))}
	next.TX = px - wx*next.Scale
	next.TY = py - wy*next.Scale
	return next
}

// Pan shifts the transform by a screen-space delta.
func (t Transform) Pan(dx, dy float64) Transform {
	t.TX += dx
	t.TY += dy
	return t
}

// Fit returns the transform that centers b, padded by FitMargin, in a w×h
// viewport without exceeding MaxFitScale.
func Fit(b graph.Bounds, w, h float64) Transform {
	b.MinX -= FitMargin
	b.MinY -= FitMargin
	b.MaxX += FitMargin
	b.MaxY += FitMargin

	s := min(MaxFitScale, w/b.Width(), h/b.Height())
	s = ClampScale(s)
	cx, cy := b.Center()
	return Transform{TX: w/2 - cx*s, TY: h/2 - cy*s, Scale: s}
}
