package render

import (
	"image"
	"image/color"
	"io"
	"math"

	"git.sr.ht/~sbinet/gg"
)

// RasterCanvas paints into an RGBA image at a device pixel ratio.
type RasterCanvas struct {
	dc   *gg.Context
	w, h float64
	dpr  float64
}

// NewRasterCanvas returns a canvas of w×h CSS pixels backed by
// floor(w*dpr)×floor(h*dpr) device pixels.
func NewRasterCanvas(w, h, dpr float64) *RasterCanvas {
	if !(dpr > 0) {
		dpr = 1
	}
	bw := max(1, int(math.Floor(w*dpr)))
	bh := max(1, int(math.Floor(h*dpr)))
	dc := gg.NewContext(bw, bh)
	dc.Scale(dpr, dpr)
	dc.SetFontFace(LabelFace)
	return &RasterCanvas{dc: dc, w: w, h: h, dpr: dpr}
}

func (c *RasterCanvas) Size() (w, h float64) { return c.w, c.h }

// DevicePixelRatio returns the backing scale.
func (c *RasterCanvas) DevicePixelRatio() float64 { return c.dpr }

func (c *RasterCanvas) Fill(col color.Color) {
	c.dc.SetColor(col)
	c.dc.Clear()
}

func (c *RasterCanvas) Image(img image.Image) {
	b := img.Bounds()
	if b.Empty() {
		return
	}
	c.dc.Push()
	defer c.dc.Pop()
	c.dc.Identity()
	sx := float64(c.dc.Width()) / float64(b.Dx())
	sy := float64(c.dc.Height()) / float64(b.Dy())
	if sx != 1 || sy != 1 {
		c.dc.Scale(sx, sy)
	}
	c.dc.DrawImage(img, -b.Min.X, -b.Min.Y)
}

func (c *RasterCanvas) Ring(x, y, r float64, col color.Color, width float64) {
	c.dc.NewSubPath()
	c.dc.DrawCircle(x, y, r)
	c.dc.SetColor(col)
	c.dc.SetLineWidth(width)
	c.dc.Stroke()
}

func (c *RasterCanvas) Disc(x, y, r float64, fill, stroke color.Color, width float64) {
	c.dc.NewSubPath()
	c.dc.DrawCircle(x, y, r)
	c.dc.SetColor(fill)
	c.dc.FillPreserve()
	c.dc.SetColor(stroke)
	c.dc.SetLineWidth(width)
	c.dc.Stroke()
}

func (c *RasterCanvas) Curve(x0, y0, cx, cy, x1, y1 float64, col color.Color, width float64) {
	c.dc.NewSubPath()
	c.dc.MoveTo(x0, y0)
	c.dc.QuadraticTo(cx, cy, x1, y1)
	c.dc.SetColor(col)
	c.dc.SetLineWidth(width)
	c.dc.Stroke()
}

func (c *RasterCanvas) Box(x, y, w, h, radius float64, fill, stroke color.Color) {
	c.dc.DrawRoundedRectangle(x, y, w, h, min(radius, w/2, h/2))
	c.dc.SetColor(fill)
	c.dc.FillPreserve()
	c.dc.SetColor(stroke)
	c.dc.SetLineWidth(1)
	c.dc.Stroke()
}

func (c *RasterCanvas) Text(x, y float64, s string, col color.Color) {
	c.dc.SetColor(col)
	c.dc.DrawString(s, x, y)
}

// RGBA returns the backing image.
func (c *RasterCanvas) RGBA() *image.RGBA {
	return c.dc.Image().(*image.RGBA)
}

// EncodePNG writes the backing image as PNG.
func (c *RasterCanvas) EncodePNG(w io.Writer) error {
	return c.dc.EncodePNG(w)
}
