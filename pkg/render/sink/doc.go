// Package sink renders a single frame of an ego graph to PNG or SVG.
//
// Both renderers build a throwaway [render.Scene], fit the view to the
// graph, optionally composite a particle field beneath it and encode the
// result:
//
//	png, err := sink.RenderPNG(ctx, g, sink.WithSize(1200, 800), sink.WithParticles(opts))
//	svg, err := sink.RenderSVG(ctx, g, sink.WithTime(2.5))
//
// A nil graph renders the empty background.
package sink
