// Package layout places ego-graph nodes on concentric rings.
//
// Two layouts are provided:
//
//   - [Concentric]: the live layout. The focal node sits at the origin and
//     the neighbors are spread over at most three rings. Ring membership and
//     angular spacing depend only on the neighbor count; only the small
//     per-axis jitter varies between runs.
//   - [Demo]: a synthetic graph with a fixed center and three rings of
//     configurable population, used when no live data is available.
//
// Concentric works in normalized units and [Scale] converts to world units
// (one normalized unit is [WorldScale] world units), so the default rings
// land at 120, 300 and 480.
//
// Edge weights produced by [DecorativeWeight] only vary stroke thickness.
// They are not a graph property.
package layout
