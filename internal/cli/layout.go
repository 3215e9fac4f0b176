package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/grandgraph/pkg/layout"
	"github.com/matzehuels/grandgraph/pkg/pipeline"
	"github.com/matzehuels/grandgraph/pkg/store"
)

type layoutOpts struct {
	output  string
	format  string
	db      string
	variant string
	limit   int
	demo    bool
	seed    uint64
}

// layoutCommand lays out an ego graph from the local analytical store.
func (c *CLI) layoutCommand() *cobra.Command {
	opts := layoutOpts{
		format:  pipeline.FormatJSON,
		variant: store.VariantAll,
		limit:   store.DefaultLimit,
		seed:    pipeline.DefaultSeed,
	}

	cmd := &cobra.Command{
		Use:   "layout [person:<id> | company:<id> | handle]",
		Short: "Compute a concentric ego layout from the local database",
		Long: `Layout queries the analytical store for the entity's neighbors, ranks them by
shared stints and places them on concentric rings around the focal node. The
result is written as a tile that 'render' and 'view' accept.

With --demo the synthetic demo graph is laid out instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.demo && len(args) == 0 {
				return errors.New("a query or --demo is required")
			}
			query := pipeline.DemoQuery
			if len(args) == 1 {
				query = args[0]
			}
			return c.runLayout(cmd.Context(), query, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: <query>.tile.json or <query>.bin)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "tile format: json, bin")
	cmd.Flags().StringVar(&opts.db, "db", "", "SQLite database (default: server.db from config)")
	cmd.Flags().StringVar(&opts.variant, "variant", opts.variant, "neighbor variant: all, current")
	cmd.Flags().IntVar(&opts.limit, "limit", opts.limit, "maximum number of neighbors")
	cmd.Flags().BoolVar(&opts.demo, "demo", false, "lay out the synthetic demo graph")
	cmd.Flags().Uint64Var(&opts.seed, "seed", opts.seed, "demo seed")

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, query string, opts layoutOpts) error {
	if opts.format != pipeline.FormatJSON && opts.format != pipeline.FormatBinary {
		return fmt.Errorf("invalid tile format %q (must be 'json' or 'bin')", opts.format)
	}
	prog := newProgress(c.Logger)

	var (
		key    = query
		g      = layout.Demo(opts.seed, nil)
		origin = pipeline.DemoQuery
	)
	if !opts.demo {
		st, err := c.openStore(ctx, opts.db)
		if err != nil {
			return err
		}
		defer st.Close()

		loader := &pipeline.StoreLoader{Store: st, Variant: opts.variant, Limit: opts.limit}
		res, err := loader.Load(ctx, query)
		if err != nil {
			return err
		}
		key, g, origin = res.Key.String(), res.Graph, res.Origin
	}

	data, err := pipeline.Render(ctx, g, opts.format, &pipeline.Options{})
	if err != nil {
		return err
	}
	path := outputPath(opts.output, baseName(key), opts.format, false)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	prog.done("Layout complete")

	printSuccess("Laid out %s", key)
	printFile(path)
	printStats(len(g.Nodes), len(g.Edges), origin, false)
	printNextStep("Render", "grandgraph render "+path)
	return nil
}

// openStore opens path, or the configured server database.
func (c *CLI) openStore(ctx context.Context, path string) (*store.Store, error) {
	if path == "" {
		cfg, err := c.config()
		if err != nil {
			return nil, err
		}
		path = cfg.Server.DB
	}
	if path == "" {
		return nil, errors.New("no database: pass --db or set server.db in the config")
	}
	return store.Open(ctx, path)
}
