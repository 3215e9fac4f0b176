package layout

import (
	"math"
	"testing"

	"github.com/matzehuels/grandgraph/pkg/tile"
	"pgregory.net/rapid"
)

func TestRingCount(t *testing.T) {
	tests := []struct {
		count int
		want  int
	}{
		{1, 1},
		{10, 1},
		{11, 2},
		{25, 2},
		{40, 2},
		{41, 3},
		{1500, 3},
	}
	for _, tt := range tests {
		if got := RingCount(tt.count, nil); got != tt.want {
			t.Errorf("RingCount(%d) = %d, want %d", tt.count, got, tt.want)
		}
	}

	company := CompanyOptions()
	if got := RingCount(1500, &company); got != 11 {
		t.Errorf("company RingCount(1500) = %d, want 11", got)
	}
}

func TestConcentricSingleNode(t *testing.T) {
	p := Concentric(0, 1, nil)
	if len(p) != 1 {
		t.Fatalf("len = %d, want 1", len(p))
	}
	if p[0].X != 0 || p[0].Y != 0 || p[0].Ring != 0 {
		t.Errorf("focal = %+v, want origin", p[0])
	}
}

func TestConcentricTwentyFour(t *testing.T) {
	p := Concentric(24, 7, nil)
	if len(p) != 25 {
		t.Fatalf("len = %d, want 25", len(p))
	}
	perRing := map[int]int{}
	for _, pl := range p[1:] {
		perRing[pl.Ring]++
	}
	if len(perRing) != 2 || perRing[1] != 12 || perRing[2] != 12 {
		t.Errorf("ring populations = %v, want 12/12", perRing)
	}
	if p[1].Radius != 0.25 || p[13].Radius != 0.625 {
		t.Errorf("radii = %v, %v", p[1].Radius, p[13].Radius)
	}
}

func TestConcentricTruncates(t *testing.T) {
	p := Concentric(5000, 3, nil)
	if len(p) != tile.MaxCount {
		t.Fatalf("len = %d, want %d", len(p), tile.MaxCount)
	}
	for i, pl := range p {
		if pl.Index != i {
			t.Fatalf("placement %d has index %d", i, pl.Index)
		}
	}
}

func TestConcentricDeterministicUpToJitter(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 2000).Draw(t, "neighbors")
		s1 := rapid.Uint64().Draw(t, "seed1")
		s2 := rapid.Uint64().Draw(t, "seed2")

		a := Concentric(n, s1, nil)
		b := Concentric(n, s2, nil)
		if len(a) != len(b) {
			t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
		}
		for i := range a {
			if a[i].Ring != b[i].Ring || a[i].Angle != b[i].Angle || a[i].Radius != b[i].Radius {
				t.Fatalf("node %d: %+v vs %+v", i, a[i], b[i])
			}
			for _, p := range []Placement{a[i], b[i]} {
				ex := math.Cos(p.Angle) * p.Radius
				ey := math.Sin(p.Angle) * p.Radius
				if math.Abs(p.X-ex) > 0.012+1e-12 || math.Abs(p.Y-ey) > 0.012+1e-12 {
					t.Fatalf("node %d jitter exceeds bound: (%v,%v) vs (%v,%v)", i, p.X, p.Y, ex, ey)
				}
			}
		}
	})
}

func TestConcentricSameSeed(t *testing.T) {
	a := Concentric(100, 42, nil)
	b := Concentric(100, 42, nil)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("placement %d differs with the same seed", i)
		}
	}
}

func TestTileAndGraph(t *testing.T) {
	p := Concentric(3, 1, nil)

	tl := Tile(p)
	if tl.Count() != 4 || len(tl.Edges) != 3 {
		t.Fatalf("tile = %d nodes, %d edges", tl.Count(), len(tl.Edges))
	}
	if tl.Groups[0] != 0 || tl.Groups[1] != 1 {
		t.Errorf("groups = %v", tl.Groups)
	}
	x, _ := p[1].Scale()
	if float64(tl.Positions[1].X) != float64(float32(x)) {
		t.Errorf("x = %v, want %v", tl.Positions[1].X, x)
	}
	if _, err := tile.EncodeTile(tl); err != nil {
		t.Fatalf("EncodeTile: %v", err)
	}

	g := Graph(p, []string{"Ada", "B"}, []int{5})
	if g.Nodes[0].Label != "Ada" || g.Nodes[2].Label != "" {
		t.Errorf("labels = %q %q", g.Nodes[0].Label, g.Nodes[2].Label)
	}
	if g.Edges[0].Weight != 5 || g.Edges[1].Weight != 1 {
		t.Errorf("weights = %d %d", g.Edges[0].Weight, g.Edges[1].Weight)
	}
}
