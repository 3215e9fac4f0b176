package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/grandgraph/pkg/graph"
)

// Options configures node-link export.
type Options struct {
	// Detailed adds the node title and group to labels.
	Detailed bool
	// Free drops the pinned positions and lets neato place nodes.
	Free bool
}

// ToDOT converts an ego graph to Graphviz DOT. Node positions are pinned in
// points (Y flipped, since Graphviz grows upward) unless opts.Free is set.
// The focal node is filled blue, neighbors orange, like the interactive view.
func ToDOT(g *graph.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  inputscale=72;\n")
	buf.WriteString("  overlap=false;\n")
	buf.WriteString("  bgcolor=\"#05070c\";\n")
	buf.WriteString("  node [shape=circle, style=filled, fillcolor=\"#ffa500\", color=\"#ffc800\", fontcolor=white, fontsize=10, fixedsize=true];\n")
	buf.WriteString("  edge [color=\"#ffffff33\"];\n")
	buf.WriteString("\n")

	if g != nil {
		for i, n := range g.Nodes {
			attrs := fmtAttrs(i, n, opts)
			fmt.Fprintf(&buf, "  %q [%s];\n", nodeName(i, n), strings.Join(attrs, ", "))
		}
		buf.WriteString("\n")
		for _, e := range g.Edges {
			if e.A < 0 || e.B < 0 || e.A >= len(g.Nodes) || e.B >= len(g.Nodes) {
				continue
			}
			fmt.Fprintf(&buf, "  %q -- %q%s;\n", nodeName(e.A, g.Nodes[e.A]), nodeName(e.B, g.Nodes[e.B]), fmtEdge(e))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// nodeName keeps DOT names unique even when IDs repeat.
func nodeName(i int, n graph.Node) string {
	if n.ID == "" {
		return "n" + strconv.Itoa(i)
	}
	return n.ID + "#" + strconv.Itoa(i)
}

func fmtLabel(n graph.Node, detailed bool) string {
	label := n.DisplayLabel()
	if !detailed {
		return label
	}
	parts := []string{label}
	if n.Title != "" {
		parts = append(parts, n.Title)
	}
	parts = append(parts, fmt.Sprintf("group: %d", n.Group))
	return strings.Join(parts, "\n")
}

func fmtAttrs(i int, n graph.Node, opts Options) []string {
	// Diameter in inches.
	d := 2 * n.Radius / 72
	attrs := []string{
		fmt.Sprintf("label=%q", fmtLabel(n, opts.Detailed)),
		fmt.Sprintf("width=%s", strconv.FormatFloat(d, 'f', 3, 64)),
	}
	if !opts.Free {
		attrs = append(attrs, fmt.Sprintf("pos=\"%.2f,%.2f!\"", n.X, -n.Y))
	}
	if i == 0 {
		attrs = append(attrs, "fillcolor=\"#50c8ff\"")
	}
	return attrs
}

func fmtEdge(e graph.Edge) string {
	if e.Touches(0) {
		w := 2.0
		if e.Weight > 1 {
			w += float64(min(e.Weight, 12)-1) / 11
		}
		return fmt.Sprintf(" [color=\"#ffa50059\", penwidth=%.2f]", w)
	}
	return ""
}

// RenderSVG lays out and renders DOT source to SVG with neato.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	data, err := render(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(data), nil
}

// RenderPNG lays out and renders DOT source to PNG with neato.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.PNG)
}

func render(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized root element with one sized
// in pixels so the SVG scales like the other sinks.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
