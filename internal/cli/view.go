package cli

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/grandgraph/internal/tui"
	"github.com/matzehuels/grandgraph/pkg/graph"
	"github.com/matzehuels/grandgraph/pkg/particles"
	"github.com/matzehuels/grandgraph/pkg/pipeline"
	"github.com/matzehuels/grandgraph/pkg/render"
)

type viewOpts struct {
	demo      bool
	seed      uint64
	particles int
	noCache   bool
	refresh   bool
}

// viewCommand opens the interactive terminal viewer.
func (c *CLI) viewCommand() *cobra.Command {
	opts := viewOpts{seed: pipeline.DefaultSeed, particles: -1}

	cmd := &cobra.Command{
		Use:   "view [query | tile.json | tile.bin]",
		Short: "Explore an ego graph in the terminal",
		Long: `View draws the ego graph in the terminal using half-block pixels and animates
the particle field beneath it.

  drag        pan
  wheel, +/-  zoom around the pointer
  hover       show the node under the pointer
  r           refit
  q, esc      quit`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.demo && len(args) == 0 {
				return errors.New("a query or --demo is required")
			}
			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			return c.runView(cmd.Context(), arg, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.demo, "demo", false, "show the synthetic demo graph")
	cmd.Flags().Uint64Var(&opts.seed, "seed", opts.seed, "seed for the demo graph and particle field")
	cmd.Flags().IntVar(&opts.particles, "particles", opts.particles, "particle count; 0 disables the field (default: from config)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass cached responses")

	return cmd
}

func (c *CLI) runView(ctx context.Context, arg string, opts viewOpts) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	popts, err := particleOptions(cfg.View, opts.particles, opts.seed)
	if err != nil {
		return err
	}

	local := !opts.demo && isTileFile(arg)
	runner, closeFn, err := c.newRunner(ctx, opts.noCache, opts.refresh, opts.demo || local)
	if err != nil {
		return err
	}
	defer closeFn()

	sceneOpts := []render.SceneOption{render.WithLogger(c.Logger)}
	if popts != nil {
		sceneOpts = append(sceneOpts, render.WithParticles(particles.New(*popts)))
	}
	scene := render.NewScene(sceneOpts...)
	c.Logger.Debug("viewer scene", "scene", scene.ID, "particles", scene.HasParticles())

	title := arg
	load := func(ctx context.Context) (*graph.Graph, error) {
		if local {
			return graph.ReadFile(arg)
		}
		res, err := runner.Load(ctx, pipeline.Options{Query: arg, Demo: opts.demo, Seed: opts.seed, Refresh: opts.refresh})
		if err != nil {
			return nil, err
		}
		return res.Graph, nil
	}
	if opts.demo {
		title = pipeline.DemoQuery
	}

	// Log lines would tear the alternate screen.
	level := c.Logger.GetLevel()
	c.Logger.SetLevel(log.FatalLevel)
	defer c.Logger.SetLevel(level)
	return tui.Run(ctx, scene, title, load)
}
