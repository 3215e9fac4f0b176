package graph

import (
	"math"
	"strconv"
)

// Display radii in world units.
const (
	FocalRadius    = 16
	NeighborRadius = 7
)

// Graph is an immutable snapshot of nodes and edges.
type Graph struct {
	Nodes []Node `json:"nodes" bson:"nodes"`
	Edges []Edge `json:"edges" bson:"edges"`
}

// Node is a positioned node in world units.
type Node struct {
	ID     string  `json:"id" bson:"id"`
	X      float64 `json:"x" bson:"x"`
	Y      float64 `json:"y" bson:"y"`
	Radius float64 `json:"r" bson:"r"`
	Label  string  `json:"label,omitempty" bson:"label,omitempty"`
	Title  string  `json:"title,omitempty" bson:"title,omitempty"`
	Group  uint16  `json:"group" bson:"group"`
	Flags  uint8   `json:"flags,omitempty" bson:"flags,omitempty"`
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n *Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// Edge connects node indices A and B. Weight only affects stroke emphasis.
type Edge struct {
	A      int `json:"a" bson:"a"`
	B      int `json:"b" bson:"b"`
	Weight int `json:"w,omitempty" bson:"w,omitempty"`
}

// Touches reports whether the edge has i as an endpoint.
func (e Edge) Touches(i int) bool { return e.A == i || e.B == i }

// Len returns the number of nodes.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.Nodes)
}

// Bounds is an axis-aligned box in world units.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// Width returns MaxX-MinX.
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns MaxY-MinY.
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// Center returns the midpoint of the box.
func (b Bounds) Center() (x, y float64) {
	return (b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2
}

// Bounds returns the box around all node positions. ok is false for an
// empty graph.
func (g *Graph) Bounds() (b Bounds, ok bool) {
	if g.Len() == 0 {
		return Bounds{}, false
	}
	b = Bounds{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, n := range g.Nodes {
		b.MinX = math.Min(b.MinX, n.X)
		b.MinY = math.Min(b.MinY, n.Y)
		b.MaxX = math.Max(b.MaxX, n.X)
		b.MaxY = math.Max(b.MaxY, n.Y)
	}
	return b, true
}

// Valid reports whether every edge references an existing node.
func (g *Graph) Valid() bool {
	n := g.Len()
	for _, e := range g.Edges {
		if e.A < 0 || e.B < 0 || e.A >= n || e.B >= n {
			return false
		}
	}
	return true
}

// Star returns edges from node 0 to every other node, each with weight 1.
func Star(count int) []Edge {
	if count <= 1 {
		return nil
	}
	edges := make([]Edge, 0, count-1)
	for i := 1; i < count; i++ {
		edges = append(edges, Edge{A: 0, B: i, Weight: 1})
	}
	return edges
}

func radiusFor(i int) float64 {
	if i == 0 {
		return FocalRadius
	}
	return NeighborRadius
}

func indexID(i int) string { return strconv.Itoa(i) }
