package tui

import (
	"image"
	"image/color"
	"strconv"
	"strings"
)

// halfBlock paints the top pixel as foreground and the bottom pixel as
// background, so one terminal cell shows two vertically stacked pixels.
const halfBlock = "▀"

// HalfBlocks encodes img as rows of truecolor half-block cells. Each text
// row covers two pixel rows; an odd last row is paired with black.
func HalfBlocks(img *image.RGBA) []string {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	rows := make([]string, 0, (b.Dy()+1)/2)
	var sb strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		sb.Reset()
		var lastTop, lastBot color.RGBA
		first := true
		for x := b.Min.X; x < b.Max.X; x++ {
			top := img.RGBAAt(x, y)
			bot := color.RGBA{A: 255}
			if y+1 < b.Max.Y {
				bot = img.RGBAAt(x, y+1)
			}
			if first || top != lastTop {
				writeSGR(&sb, 38, top)
			}
			if first || bot != lastBot {
				writeSGR(&sb, 48, bot)
			}
			sb.WriteString(halfBlock)
			lastTop, lastBot, first = top, bot, false
		}
		sb.WriteString("\x1b[0m")
		rows = append(rows, sb.String())
	}
	return rows
}

// writeSGR emits a 24-bit color escape; layer 38 is foreground, 48
// background. The canvas is opaque so alpha is ignored.
func writeSGR(sb *strings.Builder, layer int, c color.RGBA) {
	sb.WriteString("\x1b[")
	sb.WriteString(strconv.Itoa(layer))
	sb.WriteString(";2;")
	sb.WriteString(strconv.Itoa(int(c.R)))
	sb.WriteByte(';')
	sb.WriteString(strconv.Itoa(int(c.G)))
	sb.WriteByte(';')
	sb.WriteString(strconv.Itoa(int(c.B)))
	sb.WriteByte('m')
}
