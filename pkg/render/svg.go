package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"
)

// SVGCanvas writes drawing calls as SVG elements. Call End once drawing is
// done.
type SVGCanvas struct {
	s    *svg.SVG
	w, h float64
}

// NewSVGCanvas starts an SVG document of w×h pixels on out.
func NewSVGCanvas(out io.Writer, w, h int) *SVGCanvas {
	s := svg.New(out)
	s.Start(w, h)
	return &SVGCanvas{s: s, w: float64(w), h: float64(h)}
}

// End closes the document.
func (c *SVGCanvas) End() { c.s.End() }

func (c *SVGCanvas) Size() (w, h float64) { return c.w, c.h }

func (c *SVGCanvas) Fill(col color.Color) {
	c.s.Rect(0, 0, int(c.w), int(c.h), "fill:"+paint(col))
}

// Image embeds img as a PNG data URI.
func (c *SVGCanvas) Image(img image.Image) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return
	}
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	c.s.Image(0, 0, int(c.w), int(c.h), uri, `preserveAspectRatio="none"`)
}

func (c *SVGCanvas) Ring(x, y, r float64, col color.Color, width float64) {
	c.s.Path(circlePath(x, y, r), fmt.Sprintf("fill:none;stroke:%s;stroke-width:%g", paint(col), width))
}

func (c *SVGCanvas) Disc(x, y, r float64, fill, stroke color.Color, width float64) {
	c.s.Path(circlePath(x, y, r), fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%g", paint(fill), paint(stroke), width))
}

func (c *SVGCanvas) Curve(x0, y0, cx, cy, x1, y1 float64, col color.Color, width float64) {
	d := fmt.Sprintf("M%.2f %.2f Q%.2f %.2f %.2f %.2f", x0, y0, cx, cy, x1, y1)
	c.s.Path(d, fmt.Sprintf("fill:none;stroke:%s;stroke-width:%g", paint(col), width))
}

func (c *SVGCanvas) Box(x, y, w, h, radius float64, fill, stroke color.Color) {
	r := int(math.Round(min(radius, w/2, h/2)))
	c.s.Roundrect(int(math.Round(x)), int(math.Round(y)), int(math.Round(w)), int(math.Round(h)), r, r,
		fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", paint(fill), paint(stroke)))
}

func (c *SVGCanvas) Text(x, y float64, s string, col color.Color) {
	c.s.Text(int(math.Round(x)), int(math.Round(y)), s,
		fmt.Sprintf("fill:%s;font-size:12px;font-family:ui-sans-serif,system-ui,sans-serif", paint(col)))
}

// circlePath draws a full circle as two arcs so the center keeps sub-pixel
// precision.
func circlePath(x, y, r float64) string {
	return fmt.Sprintf("M%.2f %.2f a%.2f %.2f 0 1 0 %.2f 0 a%.2f %.2f 0 1 0 %.2f 0",
		x-r, y, r, r, 2*r, r, r, -2*r)
}

// paint formats a color as CSS rgba().
func paint(col color.Color) string {
	n := color.NRGBAModel.Convert(col).(color.NRGBA)
	return fmt.Sprintf("rgba(%d,%d,%d,%.3g)", n.R, n.G, n.B, float64(n.A)/255)
}
