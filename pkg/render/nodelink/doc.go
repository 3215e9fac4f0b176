// Package nodelink exports ego graphs as Graphviz node-link diagrams.
//
// [ToDOT] writes an undirected DOT graph with every node pinned at its
// layout position (pos="x,y!" in points), so neato reproduces the concentric
// layout instead of computing its own. [RenderSVG] and [RenderPNG] run the
// in-process Graphviz build from [github.com/goccy/go-graphviz]; no external
// binaries are needed.
//
//	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// Set [Options].Free to drop the pins and let neato lay the graph out.
package nodelink
