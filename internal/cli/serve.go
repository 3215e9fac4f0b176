package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/grandgraph/internal/server"
	"github.com/matzehuels/grandgraph/pkg/cache"
	"github.com/matzehuels/grandgraph/pkg/datasource"
)

type serveOpts struct {
	addr    string
	db      string
	tiles   string
	noCache bool
}

// serveCommand runs the HTTP server.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve ego tiles, cache tiles and rendered frames over HTTP",
		Long: `Serve exposes the analytical store and the tile directory:

  GET /graph/ego?person_id=…|company_id=…   NodeBuffer (or &format=json)
  GET /resolve?linkedin_url=…               handle lookup
  GET /cache/resolver.json                  resolver index
  GET /cache/{person|company}/{id}.{bin|json}
  GET /render.png, /render.svg              rendered frames
  GET /ambient/pipeline                     particle pipeline description
  GET /metrics, /healthz

Ego buffers are cached in Redis when cache.redis_addr is set, otherwise in the
cache directory. server.token enables bearer authentication.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default: server.addr from config)")
	cmd.Flags().StringVar(&opts.db, "db", "", "SQLite database (default: server.db from config)")
	cmd.Flags().StringVar(&opts.tiles, "tiles", "", "tile directory (default: server.tiles_dir from config)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the ego buffer cache")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	st, err := c.openStore(ctx, opts.db)
	if err != nil {
		return err
	}
	defer st.Close()

	ch, err := c.newCache(ctx, cfg, opts.noCache)
	if err != nil {
		return err
	}
	defer ch.Close()

	// Redis may be shared with other deployments.
	keyer := cache.NewDefaultKeyer()
	if cfg.Cache.RedisAddr != "" {
		keyer = cache.NewScopedKeyer(keyer, appName+":")
	}

	var tiles datasource.Tiles
	dir := opts.tiles
	if dir == "" {
		dir = cfg.Server.TilesDir
	}
	if dir != "" {
		tiles = datasource.NewDirTiles(dir)
	}

	persons, companies, stints, err := st.Counts(ctx)
	if err != nil {
		return err
	}
	c.Logger.Info("store opened", "persons", persons, "companies", companies, "stints", stints, "tiles", dir)

	srv := server.New(server.Options{
		Config: cfg,
		Store:  st,
		Tiles:  tiles,
		Cache:  ch,
		Keyer:  keyer,
		Logger: c.Logger,
	})
	return srv.Run(ctx, opts.addr)
}
