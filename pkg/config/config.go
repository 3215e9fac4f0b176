// Package config holds the persisted settings: the query API location and
// credential, the tile cache, viewer defaults and server settings.
//
// A [Config] is loaded once at the program boundary and passed down; library
// packages never read the file or the environment themselves.
//
//	cfg, err := config.Load(config.DefaultPath())
//	src, err := datasource.New(ctx, cfg)
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	gerrors "github.com/matzehuels/grandgraph/pkg/errors"
)

// Environment overrides applied by Load.
const (
	EnvAPIBase   = "GRANDGRAPH_API_BASE"
	EnvAPIBearer = "GRANDGRAPH_API_BEARER"
)

const appName = "grandgraph"

// Config is the on-disk configuration.
type Config struct {
	API    APIConfig    `toml:"api"`
	Cache  CacheConfig  `toml:"cache"`
	Tiles  TilesConfig  `toml:"tiles"`
	View   ViewConfig   `toml:"view"`
	Server ServerConfig `toml:"server"`
}

// APIConfig locates the remote query endpoint.
type APIConfig struct {
	Base    string `toml:"base"`
	Bearer  string `toml:"bearer,omitempty"`
	Variant string `toml:"variant"`
	Limit   int    `toml:"limit"`
	Timeout string `toml:"timeout"`
}

// CacheConfig configures the local response cache.
type CacheConfig struct {
	Dir       string `toml:"dir,omitempty"`
	TTL       string `toml:"ttl"`
	RedisAddr string `toml:"redis_addr,omitempty"`
}

// TilesConfig locates the pre-computed cache tiles: an http(s) base URL, a
// directory or a mongodb:// URI. Empty means the API base.
type TilesConfig struct {
	Source string `toml:"source,omitempty"`
}

// ViewConfig holds the viewer and particle defaults.
type ViewConfig struct {
	Particles int     `toml:"particles"`
	Phase     float64 `toml:"phase"`
	Zoom      float64 `toml:"zoom"`
	Tilt      float64 `toml:"tilt"`
	PointSize float64 `toml:"point_size"`
	Alpha     float64 `toml:"alpha"`
	Blend     string  `toml:"blend"`
}

// ServerConfig configures `grandgraph serve`.
type ServerConfig struct {
	Addr     string `toml:"addr"`
	DB       string `toml:"db,omitempty"`
	TilesDir string `toml:"tiles_dir,omitempty"`
	Token    string `toml:"token,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Base:    "http://localhost:8080",
			Variant: "all",
			Limit:   1500,
			Timeout: "30s",
		},
		Cache: CacheConfig{TTL: "24h"},
		View: ViewConfig{
			Particles: 100000,
			Phase:     1,
			Zoom:      400,
			Tilt:      90,
			PointSize: 2.5,
			Alpha:     0.15,
			Blend:     "additive",
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/grandgraph/config.toml, falling back
// to ~/.config.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", appName+".toml")
	}
	return filepath.Join(home, ".config", appName, "config.toml")
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFile reads path over the defaults without environment overrides, for
// callers that write the file back.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIBase); v != "" {
		c.API.Base = v
	}
	if v := os.Getenv(EnvAPIBearer); v != "" {
		c.API.Bearer = v
	}
}

// Validate checks the API base, durations and ranges.
func (c *Config) Validate() error {
	if c.API.Base != "" {
		if err := gerrors.ValidateBaseURL(c.API.Base); err != nil {
			return fmt.Errorf("api.base: %w", err)
		}
	}
	if _, err := c.CacheTTL(); err != nil {
		return err
	}
	if _, err := c.APITimeout(); err != nil {
		return err
	}
	if c.API.Limit < 0 {
		return fmt.Errorf("api.limit must not be negative")
	}
	if c.View.Particles < 0 {
		return fmt.Errorf("view.particles must not be negative")
	}
	return nil
}

// Save writes c to path with owner-only permissions, creating parent
// directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.toml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(c); err != nil {
		tmp.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// SetAPI updates the API base and, when bearer is non-nil, the credential.
// An empty bearer clears it.
func (c *Config) SetAPI(base string, bearer *string) {
	c.API.Base = strings.TrimRight(strings.TrimSpace(base), "/")
	if bearer != nil {
		c.API.Bearer = strings.TrimSpace(*bearer)
	}
}

// CacheTTL parses cache.ttl.
func (c *Config) CacheTTL() (time.Duration, error) {
	return parseDuration("cache.ttl", c.Cache.TTL, 24*time.Hour)
}

// APITimeout parses api.timeout.
func (c *Config) APITimeout() (time.Duration, error) {
	return parseDuration("api.timeout", c.API.Timeout, 30*time.Second)
}

func parseDuration(key, s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}

// TileSource returns tiles.source, or the API base when unset.
func (c *Config) TileSource() string {
	if c.Tiles.Source != "" {
		return c.Tiles.Source
	}
	return c.API.Base
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	cp := *c
	cp.API.Bearer = redact(c.API.Bearer)
	cp.Server.Token = redact(c.Server.Token)
	return &cp
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
