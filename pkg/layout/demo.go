package layout

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/matzehuels/grandgraph/pkg/graph"
)

// DemoOptions configures the synthetic demo graph. Lengths are world units.
type DemoOptions struct {
	Limit      int // caps the node count, center included
	Radii      []float64
	Counts     []int
	BundleProb float64 // chance of linking consecutive same-ring nodes
}

var demoOpts = DemoOptions{
	Limit:      180,
	Radii:      []float64{140, 260, 420},
	Counts:     []int{18, 48, 96},
	BundleProb: 0.12,
}

// DefaultDemoOptions returns the stock demo configuration.
func DefaultDemoOptions() DemoOptions { return demoOpts }

// DemoRings returns the world radii of the demo rings. Renderers draw them
// as faint reference circles.
func DemoRings() []float64 { return append([]float64(nil), demoOpts.Radii...) }

// DecorativeWeight maps an angle to a stroke weight in [1,12]. It is purely
// cosmetic.
func DecorativeWeight(angle float64) int {
	return max(1, int(math.Round((math.Sin(angle*3)+1)*6)))
}

// Demo builds the synthetic demo graph.
func Demo(seed uint64, opts *DemoOptions) *graph.Graph {
	if opts == nil {
		opts = &demoOpts
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	g := &graph.Graph{}
	g.Nodes = append(g.Nodes, graph.Node{
		ID: "center", Radius: graph.FocalRadius, Label: "CENTER", Group: 0,
	})

	for r := 0; r < len(opts.Radii) && r < len(opts.Counts); r++ {
		radius, m := opts.Radii[r], opts.Counts[r]
		for k := 0; k < m && len(g.Nodes) < opts.Limit; k++ {
			idx := len(g.Nodes)
			a := float64(k) / float64(m) * 2 * math.Pi
			spread := 22 + rng.Float64()*18
			g.Nodes = append(g.Nodes, graph.Node{
				ID:     fmt.Sprintf("n%d", idx),
				X:      math.Cos(a) * (radius + jitter(rng, spread)),
				Y:      math.Sin(a) * (radius + jitter(rng, spread)),
				Radius: graph.NeighborRadius,
				Label:  fmt.Sprintf("#%d", idx),
				Group:  uint16(r + 1),
			})
			g.Edges = append(g.Edges, graph.Edge{A: 0, B: idx, Weight: DecorativeWeight(a)})
		}
	}

	for i := 1; i < len(g.Nodes)-1; i++ {
		if g.Nodes[i].Group == g.Nodes[i+1].Group && rng.Float64() < opts.BundleProb {
			g.Edges = append(g.Edges, graph.Edge{A: i, B: i + 1, Weight: 1})
		}
	}
	return g
}
