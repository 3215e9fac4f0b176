package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/grandgraph/pkg/cache"
	"github.com/matzehuels/grandgraph/pkg/config"
	"github.com/matzehuels/grandgraph/pkg/graph"
	"github.com/matzehuels/grandgraph/pkg/particles"
	"github.com/matzehuels/grandgraph/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output    string
	formats   string
	demo      bool
	width     int
	height    int
	dpr       float64
	time      float64
	seed      uint64
	particles int // -1 uses the configured count
	detailed  bool
	noCache   bool
	refresh   bool
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{
		width:     pipeline.DefaultWidth,
		height:    pipeline.DefaultHeight,
		dpr:       1,
		seed:      pipeline.DefaultSeed,
		particles: -1,
	}

	cmd := &cobra.Command{
		Use:   "render [query | tile.json | tile.bin]",
		Short: "Render an ego graph to PNG, SVG, DOT or tiles",
		Long: `Render loads an ego graph (or reads a saved tile) and writes one file per format.

Formats:
  png       raster frame with the particle field beneath the graph
  svg       vector frame (graph layers only)
  dot       Graphviz source with pinned node positions
  nodelink  SVG rendered by Graphviz from the pinned DOT
  bin       NodeBuffer tile
  json      JSON tile

Rendered frames are cached by graph content, size and time.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.demo && len(args) == 0 {
				return errors.New("a query or --demo is required")
			}
			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			return c.runRender(cmd.Context(), arg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): png (default), svg, dot, nodelink, bin, json (comma-separated)")
	cmd.Flags().BoolVar(&opts.demo, "demo", false, "render the synthetic demo graph")
	cmd.Flags().IntVar(&opts.width, "width", opts.width, "frame width in CSS pixels")
	cmd.Flags().IntVar(&opts.height, "height", opts.height, "frame height in CSS pixels")
	cmd.Flags().Float64Var(&opts.dpr, "dpr", opts.dpr, "device pixel ratio")
	cmd.Flags().Float64VarP(&opts.time, "time", "t", 0, "animation time in seconds")
	cmd.Flags().Uint64Var(&opts.seed, "seed", opts.seed, "seed for the demo graph and particle field")
	cmd.Flags().IntVar(&opts.particles, "particles", opts.particles, "particle count; 0 disables the field (default: from config)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "include titles and groups in DOT labels")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached responses and frames")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, arg string, ro renderOpts) error {
	formats := parseFormats(ro.formats)
	if err := pipeline.ValidateFormats(formats); err != nil {
		return err
	}
	cfg, err := c.config()
	if err != nil {
		return err
	}
	popts := pipeline.Options{
		Query:    arg,
		Demo:     ro.demo,
		Seed:     ro.seed,
		Refresh:  ro.refresh,
		Formats:  formats,
		Width:    ro.width,
		Height:   ro.height,
		DPR:      ro.dpr,
		Time:     ro.time,
		Detailed: ro.detailed,
		Logger:   c.Logger,
	}
	if slices.Contains(formats, pipeline.FormatPNG) {
		if popts.Particle, err = particleOptions(cfg.View, ro.particles, ro.seed); err != nil {
			return err
		}
	}

	local := !ro.demo && isTileFile(arg)
	runner, closeFn, err := c.newRunner(ctx, ro.noCache, ro.refresh, ro.demo || local)
	if err != nil {
		return err
	}
	defer closeFn()

	spinner := newSpinner(ctx, "Rendering...")
	spinner.Start()
	var result *pipeline.Result
	if local {
		result, err = renderFile(ctx, runner, arg, popts)
	} else {
		result, err = runner.Execute(ctx, popts)
	}
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	base := baseName(result.Key)
	if local {
		base = trimTileExt(arg)
	}
	multi := len(formats) > 1
	printSuccess("Rendered %s", result.Query)
	for _, f := range formats {
		path := outputPath(ro.output, base, f, multi)
		if err := os.WriteFile(path, result.Artifacts[f], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	printStats(result.Stats.NodeCount, result.Stats.EdgeCount, result.Origin, result.CacheInfo.RenderHit)
	return nil
}

// particleOptions applies a --particles override to the configured field.
func particleOptions(v config.ViewConfig, count int, seed uint64) (*particles.Options, error) {
	if count >= 0 {
		v.Particles = count
	}
	return pipeline.ParticleOptions(v, seed)
}

// renderFile renders a saved tile without a data source.
func renderFile(ctx context.Context, runner *pipeline.Runner, path string, opts pipeline.Options) (*pipeline.Result, error) {
	start := time.Now()
	g, err := graph.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	res := &pipeline.Result{
		Query:  path,
		Origin: "file",
		Graph:  g,
		Stats: pipeline.Stats{
			NodeCount: len(g.Nodes),
			EdgeCount: len(g.Edges),
			LoadTime:  time.Since(start),
		},
	}
	if data, err := graph.MarshalJSONTile(g); err == nil {
		res.GraphHash = cache.Hash(data)
	}
	renderStart := time.Now()
	res.Artifacts, res.CacheInfo.RenderHit, err = runner.RenderWithCacheInfo(ctx, g, res.GraphHash, opts)
	if err != nil {
		return nil, err
	}
	res.Stats.RenderTime = time.Since(renderStart)
	return res, nil
}

// isTileFile reports whether arg names an existing .bin or .json file.
func isTileFile(arg string) bool {
	switch filepath.Ext(arg) {
	case ".bin", ".json":
	default:
		return false
	}
	info, err := os.Stat(arg)
	return err == nil && info.Mode().IsRegular()
}

// trimTileExt strips ".bin", ".json" and a ".tile" infix.
func trimTileExt(path string) string {
	return strings.TrimSuffix(strings.TrimSuffix(path, filepath.Ext(path)), ".tile")
}
