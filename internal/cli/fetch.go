package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/grandgraph/pkg/pipeline"
)

type fetchOpts struct {
	output  string
	format  string
	noCache bool
	refresh bool
}

// fetchCommand loads one ego graph through the fallback chain and saves it.
func (c *CLI) fetchCommand() *cobra.Command {
	opts := fetchOpts{format: pipeline.FormatJSON}

	cmd := &cobra.Command{
		Use:   "fetch <query>",
		Short: "Fetch an ego graph and save it as a tile",
		Long: `Fetch resolves the query (person:<id>, company:<id>, a handle, a profile URL or a
name) and loads its ego graph through the fallback chain: API binary, API JSON,
cached binary tile, cached JSON tile. The graph is saved as a JSON tile (default)
or a NodeBuffer (-f bin).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runFetch(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: <query>.tile.json or <query>.bin)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "tile format: json, bin")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the response cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass cached responses")

	return cmd
}

func (c *CLI) runFetch(ctx context.Context, query string, opts fetchOpts) error {
	if opts.format != pipeline.FormatJSON && opts.format != pipeline.FormatBinary {
		return fmt.Errorf("invalid tile format %q (must be 'json' or 'bin')", opts.format)
	}
	runner, closeFn, err := c.newRunner(ctx, opts.noCache, opts.refresh, false)
	if err != nil {
		return err
	}
	defer closeFn()

	spinner := newSpinner(ctx, fmt.Sprintf("Loading %s...", query))
	spinner.Start()
	res, err := runner.Load(ctx, pipeline.Options{Query: query, Refresh: opts.refresh})
	if err != nil {
		spinner.StopWithError("Load failed")
		return err
	}
	spinner.Stop()

	data, err := pipeline.Render(ctx, res.Graph, opts.format, &pipeline.Options{})
	if err != nil {
		return err
	}
	path := outputPath(opts.output, baseName(res.Key), opts.format, false)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	printSuccess("Fetched %s", res.Key)
	printFile(path)
	printStats(res.Stats.NodeCount, res.Stats.EdgeCount, res.Origin, false)
	printNextStep("Render", "grandgraph render "+res.Key)
	return nil
}
