package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/grandgraph/pkg/cache"
	"github.com/matzehuels/grandgraph/pkg/datasource"
	gerrors "github.com/matzehuels/grandgraph/pkg/errors"
	"github.com/matzehuels/grandgraph/pkg/graph"
	"github.com/matzehuels/grandgraph/pkg/layout"
	"github.com/matzehuels/grandgraph/pkg/observability"
)

// Loader resolves a query and loads its ego graph. *datasource.Source
// implements it.
type Loader interface {
	Load(ctx context.Context, query string) (*datasource.Result, error)
}

// Runner loads graphs and renders them through the frame cache. The CLI,
// the viewer and the server share one; it holds no per-run state and is
// safe for concurrent use.
type Runner struct {
	Source Loader // nil when only the demo graph is rendered
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner fills nil dependencies with a DefaultKeyer, a NullCache and
// log.Default.
func NewRunner(src Loader, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	r := &Runner{Source: src, Cache: c, Keyer: keyer, Logger: logger}
	if r.Keyer == nil {
		r.Keyer = cache.NewDefaultKeyer()
	}
	if r.Cache == nil {
		r.Cache = cache.NewNullCache()
	}
	if r.Logger == nil {
		r.Logger = log.Default()
	}
	return r
}

// Execute loads the graph for opts and renders every requested format.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	res, err := r.Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	r.Logger.Debug("graph ready", "query", res.Query, "origin", res.Origin,
		"nodes", res.Stats.NodeCount, "edges", res.Stats.EdgeCount, "duration", res.Stats.LoadTime)

	began := time.Now()
	res.Artifacts, res.CacheInfo.RenderHit, err = r.RenderWithCacheInfo(ctx, res.Graph, res.GraphHash, opts)
	if err != nil {
		return nil, err
	}
	res.Stats.RenderTime = time.Since(began)
	r.Logger.Info("rendered", "formats", opts.Formats, "cached", res.CacheInfo.RenderHit, "duration", res.Stats.RenderTime)
	return res, nil
}

// Load produces the graph without rendering it: the seeded demo graph
// when opts.Demo is set, otherwise the result of the loader's fallback
// chain.
func (r *Runner) Load(ctx context.Context, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	began := time.Now()
	res := &Result{Query: opts.Query}
	switch {
	case opts.Demo:
		res.Graph, res.Origin = layout.Demo(opts.Seed, nil), DemoQuery
	case r.Source == nil:
		return nil, gerrors.New(gerrors.ErrCodeUnsupported, "load %q: no data source configured", opts.Query)
	default:
		loaded, err := r.Source.Load(ctx, opts.Query)
		if err != nil {
			return nil, err
		}
		res.Key, res.Origin, res.Graph = loaded.Key.String(), loaded.Origin, loaded.Graph
	}
	res.Stats = Stats{
		NodeCount: len(res.Graph.Nodes),
		EdgeCount: len(res.Graph.Edges),
		LoadTime:  time.Since(began),
	}
	if data, err := graph.MarshalJSONTile(res.Graph); err == nil {
		res.GraphHash = cache.Hash(data)
	}
	return res, nil
}

// RenderWithCacheInfo renders each format in opts and reports whether
// every one came from the frame cache. Frames are keyed by graphHash so a
// graph whose content changed never reuses an old frame; an empty hash
// bypasses the cache. opts.Refresh skips cache reads but still writes
// fresh frames.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, g *graph.Graph, graphHash string, opts Options) (map[string][]byte, bool, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	opts.SetRenderDefaults()

	out := make(map[string][]byte, len(opts.Formats))
	allHit := true
	for _, format := range opts.Formats {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		var key string
		if graphHash != "" {
			key = r.Keyer.FrameKey(graphHash, opts.FrameKeyOpts(format))
		}
		if data, ok := r.cachedFrame(ctx, key, opts.Refresh); ok {
			out[format] = data
			continue
		}
		allHit = false

		data, err := Render(ctx, g, format, &opts)
		if err != nil {
			return nil, false, err
		}
		out[format] = data
		if key == "" {
			continue
		}
		if err := r.Cache.Set(ctx, key, data, cache.TTLFrame); err != nil {
			r.Logger.Debug("frame cache write failed", "format", format, "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "frame", len(data))
		}
	}
	return out, allHit, nil
}

func (r *Runner) cachedFrame(ctx context.Context, key string, refresh bool) ([]byte, bool) {
	if key == "" || refresh {
		return nil, false
	}
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, "frame")
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, "frame")
	return data, true
}
