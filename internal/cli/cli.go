// Package cli implements the grandgraph command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/grandgraph/pkg/buildinfo"
	"github.com/matzehuels/grandgraph/pkg/cache"
	"github.com/matzehuels/grandgraph/pkg/config"
	"github.com/matzehuels/grandgraph/pkg/datasource"
	"github.com/matzehuels/grandgraph/pkg/pipeline"
)

const (
	appName = "grandgraph"

	// defaultParallel bounds concurrent fetches in cache warm and build.
	defaultParallel = 4
)

const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI is the state shared by every subcommand: the logger, the config file
// location and the config once it has been loaded.
type CLI struct {
	Logger     *log.Logger
	ConfigPath string // overrides config.DefaultPath

	verbose bool
	cfg     *config.Config
}

func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

func (c *CLI) SetLogLevel(level log.Level) { c.Logger.SetLevel(level) }

// RootCommand assembles the command tree. --verbose lowers the log level to
// debug before any subcommand runs.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Grandgraph explores professional ego networks",
		Long:         `Grandgraph loads ego graphs of people and companies from a query API or pre-computed cache tiles, lays them out in concentric rings and renders them as images, Graphviz diagrams or an interactive terminal view.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	flags := root.PersistentFlags()
	flags.StringVar(&c.ConfigPath, "config", "", "config file (default: "+config.DefaultPath()+")")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "log debug output")

	root.AddCommand(c.fetchCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.dbCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) configPath() string {
	if c.ConfigPath != "" {
		return c.ConfigPath
	}
	return config.DefaultPath()
}

// config loads the configuration once per process.
func (c *CLI) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configPath())
	if err != nil {
		return nil, err
	}
	if cfg.Cache.Dir == "" {
		if dir, err := cacheDir(); err == nil {
			cfg.Cache.Dir = dir
		}
	}
	c.cfg = cfg
	return cfg, nil
}

// newCache opens the response cache: Redis when configured, else the cache
// directory. A directory that cannot be created disables caching.
func (c *CLI) newCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if cfg.Cache.RedisAddr != "" {
		return cache.NewRedisCache(ctx, cfg.Cache.RedisAddr)
	}
	if cfg.Cache.Dir == "" {
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(cfg.Cache.Dir)
	if err != nil {
		c.Logger.Debug("cache disabled", "dir", cfg.Cache.Dir, "err", err)
		return cache.NewNullCache(), nil
	}
	return fc, nil
}

// newSource builds the datasource for cfg sharing cache c.
func (c *CLI) newSource(ctx context.Context, cfg *config.Config, ch cache.Cache, refresh bool) (*datasource.Source, error) {
	return datasource.New(ctx, cfg,
		datasource.WithLogger(c.Logger),
		datasource.WithCache(ch, nil),
		datasource.WithRefresh(refresh),
	)
}

// newRunner creates a pipeline runner for CLI use. The source is only built
// when a query needs it, so demo renders work offline.
func (c *CLI) newRunner(ctx context.Context, noCache, refresh, demo bool) (*pipeline.Runner, func(), error) {
	cfg, err := c.config()
	if err != nil {
		return nil, nil, err
	}
	ch, err := c.newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() { _ = ch.Close() }

	var src pipeline.Loader
	if !demo {
		s, err := c.newSource(ctx, cfg, ch, refresh)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		src = s
	}
	return pipeline.NewRunner(src, ch, nil, c.Logger), closeFn, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/grandgraph/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatPNG}
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// outputExt maps a pipeline format to its file extension.
func outputExt(format string) string {
	switch format {
	case pipeline.FormatNodelink:
		return "nodelink.svg"
	case pipeline.FormatJSON:
		return "tile.json"
	default:
		return format
	}
}

// outputPath picks the file for one artifact. A single output honors
// -o verbatim; several outputs use it as the base name.
func outputPath(output, base, format string, multi bool) string {
	if output != "" && !multi {
		return output
	}
	if output != "" {
		base = strings.TrimSuffix(output, filepath.Ext(output))
	}
	return fmt.Sprintf("%s.%s", base, outputExt(format))
}

// baseName turns a query into a safe file stem.
func baseName(query string) string {
	r := strings.NewReplacer(":", "-", "/", "-", "\\", "-", " ", "_")
	if s := r.Replace(strings.TrimSpace(query)); s != "" {
		return s
	}
	return pipeline.DemoQuery
}
