package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/grandgraph/pkg/cache"
	"github.com/matzehuels/grandgraph/pkg/datasource"
	"github.com/matzehuels/grandgraph/pkg/pipeline"
	"github.com/matzehuels/grandgraph/pkg/store"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response cache and cache tiles",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheWarmCommand())
	cmd.AddCommand(c.cacheBuildCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached responses and frames",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if cfg.Cache.RedisAddr != "" {
				printWarning("Redis entries at %s expire on their own and are not cleared", cfg.Cache.RedisAddr)
			}
			dir := cfg.Cache.Dir
			if _, err := os.Stat(dir); dir == "" || errors.Is(err, fs.ErrNotExist) {
				printInfo("Cache is empty")
				return nil
			}
			fc, err := cache.NewFileCache(dir)
			if err != nil {
				return err
			}
			n, err := fc.Clear()
			if err != nil {
				return fmt.Errorf("clear %s: %w", dir, err)
			}
			printSuccess("Cleared %d cached entries", n)
			printDetail("Directory: %s", dir)
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if cfg.Cache.Dir == "" {
				return errors.New("no cache directory configured")
			}
			fmt.Fprintln(stdout, cfg.Cache.Dir)
			return nil
		},
	}
}

// cacheWarmCommand prefetches ego graphs so later renders work offline.
func (c *CLI) cacheWarmCommand() *cobra.Command {
	var (
		parallel int
		refresh  bool
	)
	cmd := &cobra.Command{
		Use:   "warm <query>...",
		Short: "Prefetch ego graphs into the response cache",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCacheWarm(cmd.Context(), args, parallel, refresh)
		},
	}
	cmd.Flags().IntVarP(&parallel, "parallel", "p", defaultParallel, "concurrent fetches")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "re-fetch entries that are already cached")
	return cmd
}

func (c *CLI) runCacheWarm(ctx context.Context, queries []string, parallel int, refresh bool) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	ch, err := c.newCache(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer ch.Close()
	src, err := c.newSource(ctx, cfg, ch, refresh)
	if err != nil {
		return err
	}

	spinner := newSpinner(ctx, fmt.Sprintf("Warming %d queries...", len(queries)))
	spinner.Start()
	results, errs := src.LoadAll(ctx, queries, parallel)
	spinner.Stop()
	if ctx.Err() != nil {
		return ctx.Err()
	}

	failed := 0
	for i, q := range queries {
		if errs[i] != nil {
			failed++
			printError("%s: %v", q, errs[i])
			continue
		}
		r := results[i]
		printSuccess("%s → %s", q, r.Key)
		printStats(r.Graph.Len(), len(r.Graph.Edges), r.Origin, false)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d queries failed", failed, len(queries))
	}
	return nil
}

type buildOpts struct {
	db       string
	variant  string
	limit    int
	parallel int
	formats  string
}

// cacheBuildCommand exports cache tiles from the analytical store.
func (c *CLI) cacheBuildCommand() *cobra.Command {
	opts := buildOpts{
		variant:  store.VariantAll,
		limit:    store.DefaultLimit,
		parallel: defaultParallel,
		formats:  "bin,json",
	}
	cmd := &cobra.Command{
		Use:   "build <dir | mongodb://…>",
		Short: "Export ego tiles and the resolver index from the local database",
		Long: `Build writes {person,company}/<id>.{bin,json} for every entity and the resolver
index (resolver.json) to a directory, or upserts them into a MongoDB collection.
The result is what 'tiles.source' and 'serve --tiles' read.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCacheBuild(cmd.Context(), args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.db, "db", "", "SQLite database (default: server.db from config)")
	cmd.Flags().StringVar(&opts.variant, "variant", opts.variant, "neighbor variant: all, current")
	cmd.Flags().IntVar(&opts.limit, "limit", opts.limit, "maximum neighbors per tile")
	cmd.Flags().IntVarP(&opts.parallel, "parallel", "p", opts.parallel, "concurrent tile builds")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", opts.formats, "tile formats: bin, json (comma-separated)")
	return cmd
}

func (c *CLI) runCacheBuild(ctx context.Context, target string, opts buildOpts) error {
	var formats []datasource.Format
	for _, s := range strings.Split(opts.formats, ",") {
		f, err := datasource.ParseFormat(strings.TrimSpace(s))
		if err != nil {
			return err
		}
		formats = append(formats, f)
	}

	st, err := c.openStore(ctx, opts.db)
	if err != nil {
		return err
	}
	defer st.Close()

	w, err := openTileWriter(ctx, target)
	if err != nil {
		return err
	}
	defer w.Close()

	prog := newProgress(c.Logger)
	spinner := newSpinner(ctx, "Exporting tiles...")
	spinner.Start()
	stats, err := pipeline.ExportTiles(ctx, st, w, pipeline.ExportOptions{
		Variant:  opts.variant,
		Limit:    opts.limit,
		Parallel: opts.parallel,
		Formats:  formats,
	})
	if err != nil {
		spinner.StopWithError("Export failed")
		return err
	}
	spinner.Stop()
	prog.done("Exported tiles", "tiles", stats.Tiles, "entries", stats.Entries)

	printSuccess("Built %d tiles, %d index entries", stats.Tiles, stats.Entries)
	printFile(target)
	printNextStep("Serve", "grandgraph serve --tiles "+target)
	return nil
}

// openTileWriter opens a MongoDB collection for mongodb:// targets and a
// directory otherwise.
func openTileWriter(ctx context.Context, target string) (datasource.TileWriter, error) {
	if strings.HasPrefix(target, "mongodb://") || strings.HasPrefix(target, "mongodb+srv://") {
		return datasource.OpenMongoTiles(ctx, target)
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", target, err)
	}
	return datasource.NewDirTiles(target), nil
}
