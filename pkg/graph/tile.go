package graph

import (
	"fmt"
	"math"

	"github.com/matzehuels/grandgraph/pkg/tile"
)

// FromTile converts a decoded NodeBuffer into a Graph. labels[i], when
// present, becomes node i's label. A tile without an edge section gets the
// star edges of [Star].
func FromTile(t *tile.Tile, labels []string) *Graph {
	n := t.Count()
	g := &Graph{Nodes: make([]Node, n)}
	for i, p := range t.Positions {
		node := Node{
			ID:     indexID(i),
			X:      float64(p.X),
			Y:      float64(p.Y),
			Radius: radiusFor(i),
			Group:  t.Groups[i],
			Flags:  t.Flags[i],
		}
		if i < len(labels) {
			node.Label = labels[i]
		}
		g.Nodes[i] = node
	}

	if len(t.Edges) == 0 {
		g.Edges = Star(n)
		return g
	}
	g.Edges = make([]Edge, len(t.Edges))
	for i, e := range t.Edges {
		g.Edges[i] = Edge{A: int(e.A), B: int(e.B), Weight: 1}
	}
	return g
}

// ToTile converts g back into wire form. Edge weights are dropped since the
// binary format does not carry them.
func ToTile(g *Graph) (*tile.Tile, error) {
	n := g.Len()
	if n > tile.MaxCount {
		return nil, fmt.Errorf("graph has %d nodes, wire format allows %d", n, tile.MaxCount)
	}
	t := &tile.Tile{
		Positions: make([]tile.Point, n),
		Groups:    make([]uint16, n),
		Flags:     make([]uint8, n),
	}
	for i, node := range g.Nodes {
		t.Positions[i] = tile.Point{X: float32(node.X), Y: float32(node.Y)}
		t.Groups[i] = node.Group
		t.Flags[i] = node.Flags
	}
	for _, e := range g.Edges {
		if e.A < 0 || e.B < 0 || e.A >= n || e.B >= n {
			return nil, fmt.Errorf("edge (%d,%d) out of range for %d nodes", e.A, e.B, n)
		}
		t.Edges = append(t.Edges, tile.Edge{A: uint32(e.A), B: uint32(e.B)})
	}
	return t, nil
}

// DecodeBuffer decodes a NodeBuffer and converts it in one step.
func DecodeBuffer(buf []byte, labels []string) (*Graph, error) {
	t, err := tile.Decode(buf)
	if err != nil {
		return nil, err
	}
	g := FromTile(t, labels)
	for i := range g.Nodes {
		if !finite(g.Nodes[i].X) || !finite(g.Nodes[i].Y) {
			return nil, &tile.FormatError{Reason: fmt.Sprintf("node %d has non-finite position", i)}
		}
	}
	return g, nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
