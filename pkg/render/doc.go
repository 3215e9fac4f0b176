// Package render draws ego graphs.
//
// # Overview
//
// A [Scene] is the per-frame render function for one visualization session.
// It holds the current graph behind an atomic pointer, so a fetch can swap in
// a new graph at any time and the next frame reads a complete snapshot. Pan,
// zoom and hover live in the scene's [view.Controller]; input handlers update
// it, and [Scene.Frame] reads it at draw time.
//
// Each frame paints, in order:
//
//   - the page background
//   - the particle field, if one is attached (see [particles.Field])
//   - faint background rings around the world origin
//   - edges as quadratic curves bent toward the viewport center
//   - node discs, the focal node in a distinct color
//   - a label box above the hovered node
//
// # Canvases
//
// Drawing goes through the [Canvas] interface. [RasterCanvas] paints with gg
// into an RGBA image and [SVGCanvas] writes SVG elements with svgo. The
// [sink] subpackage wraps both into one-shot PNG and SVG renderers, and
// [nodelink] exports graphs to Graphviz.
//
// # Failure
//
// Drawing without a canvas or onto a surface with no area returns a
// RENDER_PRECONDITION error. A particle field that fails to mount or draw is
// detached and logged; the graph keeps rendering without it.
//
// [sink]: github.com/matzehuels/grandgraph/pkg/render/sink
// [nodelink]: github.com/matzehuels/grandgraph/pkg/render/nodelink
package render
