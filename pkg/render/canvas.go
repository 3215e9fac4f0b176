package render

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// Canvas is a drawing surface in CSS pixels with the origin top-left.
type Canvas interface {
	// Size returns the surface size.
	Size() (w, h float64)
	// Fill covers the whole surface with c, replacing what was there.
	Fill(c color.Color)
	// Image composites img over the surface, stretched to cover it.
	Image(img image.Image)
	// Ring strokes a circle outline.
	Ring(x, y, r float64, c color.Color, width float64)
	// Disc fills a circle and strokes its outline.
	Disc(x, y, r float64, fill, stroke color.Color, width float64)
	// Curve strokes a quadratic curve from (x0, y0) to (x1, y1).
	Curve(x0, y0, cx, cy, x1, y1 float64, c color.Color, width float64)
	// Box fills and strokes a rounded rectangle.
	Box(x, y, w, h, radius float64, fill, stroke color.Color)
	// Text draws s with its baseline starting at (x, y).
	Text(x, y float64, s string, c color.Color)
}

// LabelFace is the face used to draw and measure hover labels.
var LabelFace font.Face = basicfont.Face7x13

// MeasureLabel returns the advance width of s in LabelFace.
func MeasureLabel(s string) float64 {
	return float64(font.MeasureString(LabelFace, s).Ceil())
}
