package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/grandgraph/pkg/graph"
	"github.com/matzehuels/grandgraph/pkg/observability"
	"github.com/matzehuels/grandgraph/pkg/render/nodelink"
	"github.com/matzehuels/grandgraph/pkg/render/sink"
	"github.com/matzehuels/grandgraph/pkg/tile"
)

// Render produces one artifact for g. opts must have render defaults set.
func Render(ctx context.Context, g *graph.Graph, format string, opts *Options) ([]byte, error) {
	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, format)
	start := time.Now()

	data, err := renderFormat(ctx, g, format, opts)
	hooks.OnRenderComplete(ctx, format, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return data, nil
}

func renderFormat(ctx context.Context, g *graph.Graph, format string, opts *Options) ([]byte, error) {
	switch format {
	case FormatPNG:
		return sink.RenderPNG(ctx, g, sinkOptions(opts)...)
	case FormatSVG:
		return sink.RenderSVG(ctx, g, sinkOptions(opts)...)
	case FormatDOT:
		return []byte(nodelink.ToDOT(g, nodelink.Options{Detailed: opts.Detailed})), nil
	case FormatNodelink:
		return nodelink.RenderSVG(ctx, nodelink.ToDOT(g, nodelink.Options{Detailed: opts.Detailed}))
	case FormatBinary:
		t, err := graph.ToTile(g)
		if err != nil {
			return nil, err
		}
		return tile.EncodeTile(t)
	case FormatJSON:
		return graph.MarshalJSONTile(g)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func sinkOptions(opts *Options) []sink.Option {
	out := []sink.Option{
		sink.WithSize(opts.Width, opts.Height),
		sink.WithDPR(opts.DPR),
		sink.WithTime(opts.Time),
		sink.WithLogger(opts.Logger),
	}
	if opts.Particle != nil {
		p := *opts.Particle
		if p.Seed == 0 {
			p.Seed = opts.Seed
		}
		out = append(out, sink.WithParticles(p))
	}
	return out
}
