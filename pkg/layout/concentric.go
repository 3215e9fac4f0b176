package layout

import (
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/matzehuels/grandgraph/pkg/graph"
	"github.com/matzehuels/grandgraph/pkg/tile"
)

// WorldScale converts normalized layout units to world units.
const WorldScale = 480.0

// Options tunes the concentric layout. All lengths are normalized units.
type Options struct {
	MaxRings int     // caps the ring count; zero means uncapped
	Divisor  float64 // rings = ceil(sqrt(count/Divisor))
	Base     float64 // radius of the first ring
	Step     float64 // radius increment per ring
	Jitter   float64 // max per-axis offset
}

var personOpts = Options{
	MaxRings: 3,
	Divisor:  10,
	Base:     0.25,
	Step:     0.375,
	Jitter:   0.012,
}

// Company egos use more, wider rings with coarser jitter.
var companyOpts = Options{
	MaxRings: 0,
	Divisor:  14,
	Base:     140.0 / WorldScale,
	Step:     180.0 / WorldScale,
	Jitter:   30.0 / WorldScale,
}

// PersonOptions returns the defaults for a person ego graph.
func PersonOptions() Options { return personOpts }

// CompanyOptions returns the defaults for a company ego graph.
func CompanyOptions() Options { return companyOpts }

// Placement is the position of one node in normalized units.
type Placement struct {
	Index  int
	Ring   int // 0 for the focal node, 1.. for neighbor rings
	Angle  float64
	Radius float64
	X, Y   float64
}

// Scale returns the placement in world units.
func (p Placement) Scale() (x, y float64) {
	return p.X * WorldScale, p.Y * WorldScale
}

// RingCount returns how many rings hold count nodes (focal included).
func RingCount(count int, opts *Options) int {
	if opts == nil {
		opts = &personOpts
	}
	rings := int(math.Ceil(math.Sqrt(float64(count) / opts.Divisor)))
	if opts.MaxRings > 0 {
		rings = min(rings, opts.MaxRings)
	}
	return max(1, rings)
}

// Concentric lays out the focal node plus neighbors, truncated to
// tile.MaxCount nodes in total. Every ring holds ceil(n/rings) slots and the
// last ring may be partially filled.
func Concentric(neighbors int, seed uint64, opts *Options) []Placement {
	if opts == nil {
		opts = &personOpts
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	count := tile.ClampCount(neighbors)
	out := make([]Placement, 1, count)
	out[0] = Placement{}
	n := count - 1
	if n == 0 {
		return out
	}

	rings := RingCount(count, opts)
	perRing := (n + rings - 1) / rings
	for r := 0; r < rings && len(out) < count; r++ {
		radius := opts.Base + float64(r)*opts.Step
		for k := 0; k < perRing && len(out) < count; k++ {
			angle := float64(k) / float64(perRing) * 2 * math.Pi
			out = append(out, Placement{
				Index:  len(out),
				Ring:   r + 1,
				Angle:  angle,
				Radius: radius,
				X:      math.Cos(angle)*radius + jitter(rng, opts.Jitter),
				Y:      math.Sin(angle)*radius + jitter(rng, opts.Jitter),
			})
		}
	}
	return out
}

// Tile encodes placements as a NodeBuffer tile in world units, group set to
// the ring index and edges from the focal node to every neighbor.
func Tile(placements []Placement) *tile.Tile {
	n := len(placements)
	t := &tile.Tile{
		Positions: make([]tile.Point, n),
		Groups:    make([]uint16, n),
		Flags:     make([]uint8, n),
	}
	for i, p := range placements {
		x, y := p.Scale()
		t.Positions[i] = tile.Point{X: float32(x), Y: float32(y)}
		t.Groups[i] = uint16(p.Ring)
	}
	for i := 1; i < n; i++ {
		t.Edges = append(t.Edges, tile.Edge{A: 0, B: uint32(i)})
	}
	return t
}

// Graph converts placements into world-unit graph nodes with star edges.
// weights[i-1], when present, becomes the weight of the edge to node i.
func Graph(placements []Placement, labels []string, weights []int) *graph.Graph {
	g := &graph.Graph{
		Nodes: make([]graph.Node, len(placements)),
		Edges: graph.Star(len(placements)),
	}
	for i, p := range placements {
		x, y := p.Scale()
		r := float64(graph.NeighborRadius)
		if i == 0 {
			r = graph.FocalRadius
		}
		node := graph.Node{ID: strconv.Itoa(i), X: x, Y: y, Radius: r, Group: uint16(p.Ring)}
		if i < len(labels) {
			node.Label = labels[i]
		}
		g.Nodes[i] = node
	}
	for i := range g.Edges {
		if i < len(weights) && weights[i] > 0 {
			g.Edges[i].Weight = weights[i]
		}
	}
	return g
}

func jitter(rng *rand.Rand, amp float64) float64 {
	return (rng.Float64()*2 - 1) * amp
}
