package graph

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
)

// Hard clamps applied when parsing JSON tiles.
const (
	MaxJSONNodes = 20000
	MaxJSONEdges = 60000
)

// JSONTile is the JSON document served by the query and cache endpoints.
type JSONTile struct {
	Meta   TileMeta   `json:"meta"`
	Coords TileCoords `json:"coords"`
}

// TileMeta carries per-node descriptive fields, index-aligned with
// Coords.Nodes.
type TileMeta struct {
	Nodes []MetaNode `json:"nodes"`
}

// MetaNode describes one node of a JSON tile.
type MetaNode struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Title    string `json:"title,omitempty"`
	Group    uint16 `json:"group,omitempty"`
	Flags    uint8  `json:"flags,omitempty"`
}

// ParseTileMeta decodes a standalone meta document, the companion the ego
// endpoint serves for binary buffers.
func ParseTileMeta(data []byte) (*TileMeta, error) {
	var m TileMeta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode tile meta: %w", err)
	}
	return &m, nil
}

// Apply copies ids, names and titles onto the nodes of g. It fails without
// touching g unless m describes exactly g's nodes.
func (m *TileMeta) Apply(g *Graph) error {
	if len(m.Nodes) != len(g.Nodes) {
		return fmt.Errorf("tile meta describes %d nodes, graph has %d", len(m.Nodes), len(g.Nodes))
	}
	for i := range g.Nodes {
		m.Nodes[i].describe(&g.Nodes[i])
	}
	return nil
}

func (m MetaNode) describe(n *Node) {
	if m.ID != "" {
		n.ID = m.ID
	}
	n.Label = firstNonEmpty(m.Name, m.FullName)
	n.Title = m.Title
}

// TileCoords holds [x,y] node positions and [a,b,w] edges.
type TileCoords struct {
	Nodes [][]float64 `json:"nodes"`
	Edges [][]float64 `json:"edges"`
}

// ParseJSONTile decodes a JSON tile into a Graph. Counts are clamped to
// MaxJSONNodes and MaxJSONEdges. Missing coordinates read as 0, edge
// endpoints outside the node range fall back to node 0 and weights are
// clamped to [0,255].
func ParseJSONTile(data []byte) (*Graph, error) {
	var doc JSONTile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode json tile: %w", err)
	}
	return doc.Graph(), nil
}

// Graph converts the document into a Graph.
func (d *JSONTile) Graph() *Graph {
	count := min(len(d.Coords.Nodes), MaxJSONNodes)
	g := &Graph{Nodes: make([]Node, count)}
	for i := range count {
		p := d.Coords.Nodes[i]
		node := Node{
			ID:     indexID(i),
			X:      at(p, 0),
			Y:      at(p, 1),
			Radius: radiusFor(i),
		}
		if i < len(d.Meta.Nodes) {
			m := d.Meta.Nodes[i]
			m.describe(&node)
			node.Group = m.Group
			node.Flags = m.Flags
		}
		g.Nodes[i] = node
	}

	edgeCount := min(len(d.Coords.Edges), MaxJSONEdges)
	if edgeCount == 0 {
		g.Edges = Star(count)
		return g
	}
	g.Edges = make([]Edge, edgeCount)
	for i := range edgeCount {
		e := d.Coords.Edges[i]
		g.Edges[i] = Edge{
			A:      endpoint(at(e, 0), count),
			B:      endpoint(at(e, 1), count),
			Weight: int(math.Min(255, math.Max(0, at(e, 2)))),
		}
	}
	return g
}

// NewJSONTile converts g into its JSON document form.
func NewJSONTile(g *Graph) *JSONTile {
	d := &JSONTile{
		Meta:   TileMeta{Nodes: make([]MetaNode, len(g.Nodes))},
		Coords: TileCoords{Nodes: make([][]float64, len(g.Nodes)), Edges: make([][]float64, len(g.Edges))},
	}
	for i, n := range g.Nodes {
		d.Meta.Nodes[i] = MetaNode{ID: n.ID, Name: n.Label, Title: n.Title, Group: n.Group, Flags: n.Flags}
		d.Coords.Nodes[i] = []float64{n.X, n.Y}
	}
	for i, e := range g.Edges {
		d.Coords.Edges[i] = []float64{float64(e.A), float64(e.B), float64(e.Weight)}
	}
	return d
}

// MarshalJSONTile encodes g as a JSON tile.
func MarshalJSONTile(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteJSONTile(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteJSONTile writes g as a JSON tile to w.
func WriteJSONTile(g *Graph, w io.Writer) error {
	if err := json.NewEncoder(w).Encode(NewJSONTile(g)); err != nil {
		return fmt.Errorf("encode json tile: %w", err)
	}
	return nil
}

// ReadFile loads a graph from a .bin NodeBuffer or a .json tile.
func ReadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bin":
		return DecodeBuffer(data, nil)
	case ".json":
		return ParseJSONTile(data)
	default:
		return nil, fmt.Errorf("read %s: unknown tile extension", path)
	}
}

func at(v []float64, i int) float64 {
	if i < len(v) && !math.IsNaN(v[i]) {
		return v[i]
	}
	return 0
}

func endpoint(f float64, count int) int {
	i := int(f)
	if i < 0 || i >= count {
		return 0
	}
	return i
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}
