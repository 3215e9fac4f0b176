package pipeline

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"

	"github.com/matzehuels/grandgraph/pkg/graph"
	"github.com/matzehuels/grandgraph/pkg/layout"
	"github.com/matzehuels/grandgraph/pkg/store"
	"github.com/matzehuels/grandgraph/pkg/tile"
)

// EgoSeed derives the layout jitter seed from the focal entity, so the
// same ego is always laid out identically.
func EgoSeed(kind, id string) uint64 {
	return xxhash.Sum64String(kind + ":" + id)
}

// egoOptions picks the ring parameters for the focal kind.
func egoOptions(kind string) layout.Options {
	if kind == store.KindCompany {
		return layout.CompanyOptions()
	}
	return layout.PersonOptions()
}

// BuildEgo lays out an ego result concentrically. Neighbors beyond the
// wire limit are dropped, heaviest neighbors are kept.
func BuildEgo(ego *store.Ego) *graph.Graph {
	opts := egoOptions(ego.Focal.Kind)
	placements := layout.Concentric(len(ego.Neighbors), EgoSeed(ego.Focal.Kind, ego.Focal.ID), &opts)

	g := layout.Graph(placements, ego.Labels(), ego.Weights())
	g.Nodes[0].ID = ego.Focal.ID
	g.Nodes[0].Title = ego.Focal.Title
	for i := 1; i < len(g.Nodes); i++ {
		n := ego.Neighbors[i-1]
		g.Nodes[i].ID = n.ID
		g.Nodes[i].Title = n.Title
	}
	return g
}

// EncodeEgo lays out ego and encodes it for the query endpoint. The binary
// form carries no edge section since ego edges are always the star, and no
// names; FormatMeta encodes those in the same node order.
func EncodeEgo(ego *store.Ego, format string) ([]byte, error) {
	g := BuildEgo(ego)
	switch format {
	case FormatBinary:
		t, err := graph.ToTile(g)
		if err != nil {
			return nil, err
		}
		return tile.Encode(t.Count(), t.Positions, t.Groups, t.Flags)
	case FormatJSON:
		return graph.MarshalJSONTile(g)
	case FormatMeta:
		return json.Marshal(graph.NewJSONTile(g).Meta)
	default:
		return nil, fmt.Errorf("ego graphs encode as %s, %s or %s, not %q", FormatBinary, FormatJSON, FormatMeta, format)
	}
}
