package render

import (
	"image/color"
	"math"

	"github.com/matzehuels/grandgraph/pkg/graph"
)

// Style holds the colors and metrics of a frame.
type Style struct {
	Background color.NRGBA

	Rings     []float64 // world radii of the background rings
	RingColor color.NRGBA
	RingWidth float64

	StrongEdge  color.NRGBA // edges touching the focal node
	StrongWidth float64
	WeakEdge    color.NRGBA
	WeakWidth   float64

	FocalFill   color.NRGBA
	NodeFill    color.NRGBA
	NodeStroke  color.NRGBA
	StrokeWidth float64

	LabelFill   color.NRGBA
	LabelStroke color.NRGBA
	LabelText   color.NRGBA
	LabelPad    float64
	LabelHeight float64
	LabelRadius float64
	LabelOffset float64 // gap between the disc and the label box
}

// rgba builds a color from 8-bit channels and a [0, 1] alpha.
func rgba(r, g, b uint8, a float64) color.NRGBA {
	return color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(a * 255))}
}

// DefaultStyle returns the dark theme.
func DefaultStyle() Style {
	return Style{
		Background: rgba(5, 7, 12, 0.75),

		Rings:     []float64{140, 260, 420},
		RingColor: rgba(255, 255, 255, 0.06),
		RingWidth: 1,

		StrongEdge:  rgba(255, 165, 0, 0.35),
		StrongWidth: 2,
		WeakEdge:    rgba(255, 255, 255, 0.08),
		WeakWidth:   1,

		FocalFill:   rgba(80, 200, 255, 0.95),
		NodeFill:    rgba(255, 165, 0, 0.95),
		NodeStroke:  rgba(255, 200, 0, 1),
		StrokeWidth: 1.5,

		LabelFill:   rgba(10, 10, 14, 0.9),
		LabelStroke: rgba(255, 255, 255, 0.18),
		LabelText:   rgba(255, 255, 255, 1),
		LabelPad:    6,
		LabelHeight: 18,
		LabelRadius: 8,
		LabelOffset: 8,
	}
}

// maxWeight is the weight at which stroke emphasis saturates.
const maxWeight = 12

// EdgeStroke returns the stroke for e. Spokes from the focal node are
// strong; weights above 1 widen the stroke by up to half.
func (s Style) EdgeStroke(e graph.Edge) (c color.NRGBA, width float64) {
	c, width = s.WeakEdge, s.WeakWidth
	if e.Touches(0) {
		c, width = s.StrongEdge, s.StrongWidth
	}
	if e.Weight > 1 {
		w := float64(min(e.Weight, maxWeight))
		width *= 1 + 0.5*(w-1)/(maxWeight-1)
	}
	return c, width
}

// NodeColor returns the fill for node i.
func (s Style) NodeColor(i int) color.NRGBA {
	if i == 0 {
		return s.FocalFill
	}
	return s.NodeFill
}
