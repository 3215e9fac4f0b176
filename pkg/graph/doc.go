// Package graph defines the render-side node/edge records shared by the
// layout engine, the data source and the renderers.
//
// A [Graph] is replaced wholesale on every new query; nothing in this module
// mutates a published Graph in place. Node 0 is always the focal (ego) node.
//
// # Sources
//
// Graphs are built from three places:
//
//   - [FromTile]: a decoded NodeBuffer (see package tile), optionally with labels
//   - [ParseJSONTile]: the JSON tile document served by the query and cache endpoints
//   - the layout package, for the synthetic demo graph
//
// The JSON tile document looks like:
//
//	{
//	  "meta":   {"nodes": [{"id": "p1", "name": "Ada", "title": "CTO"}]},
//	  "coords": {"nodes": [[0, 0], [120, 4]], "edges": [[0, 1, 3]]}
//	}
//
// Group and Flags travel with each node for wire compatibility; nothing in
// this module interprets them.
package graph
