package datasource

import (
	"context"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/grandgraph/pkg/cache"
	"github.com/matzehuels/grandgraph/pkg/config"
	gerrors "github.com/matzehuels/grandgraph/pkg/errors"
	"github.com/matzehuels/grandgraph/pkg/graph"
	"github.com/matzehuels/grandgraph/pkg/httputil"
	"github.com/matzehuels/grandgraph/pkg/observability"
)

// Stage names, in chain order. They appear in logs, metrics and
// [Result.Origin].
const (
	StageAPIBinary   = "api-binary"
	StageAPIJSON     = "api-json"
	StageCacheBinary = "cache-binary"
	StageCacheJSON   = "cache-json"
)

// Result is a loaded ego graph and where it came from.
type Result struct {
	Query  string
	Key    Key
	Origin string
	Graph  *graph.Graph
}

// Source resolves queries and loads ego graphs through the fallback chain
// api-binary → api-json → cache-binary → cache-json.
type Source struct {
	client   *Client
	tiles    Tiles
	resolver *Resolver
	cache    cache.Cache
	keyer    cache.Keyer
	ttl      time.Duration
	refresh  bool
	logger   *log.Logger
	stages   []Stage
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the logger. The default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(s *Source) { s.logger = l }
}

// WithClient replaces the API client built from the config.
func WithClient(c *Client) Option {
	return func(s *Source) { s.client = c }
}

// WithTiles replaces the tile store opened from the config.
func WithTiles(t Tiles) Option {
	return func(s *Source) { s.tiles = t }
}

// WithCache caches raw API responses. keyer may be nil.
func WithCache(c cache.Cache, keyer cache.Keyer) Option {
	return func(s *Source) {
		s.cache = c
		if keyer != nil {
			s.keyer = keyer
		}
	}
}

// WithRefresh bypasses cached API responses and the memoized index.
func WithRefresh(refresh bool) Option {
	return func(s *Source) { s.refresh = refresh }
}

// New builds a Source from cfg. The config is read once; later changes to
// cfg have no effect.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Source, error) {
	timeout, err := cfg.APITimeout()
	if err != nil {
		return nil, err
	}
	ttl, err := cfg.CacheTTL()
	if err != nil {
		return nil, err
	}

	s := &Source{
		cache:  cache.NewNullCache(),
		keyer:  cache.NewDefaultKeyer(),
		ttl:    ttl,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	hc := httputil.NewClient(cfg.API.Bearer)
	hc.Timeout = timeout
	if s.client == nil {
		copts := []ClientOption{
			WithHTTPClient(hc),
			WithVariant(cfg.API.Variant),
			WithLimit(cfg.API.Limit),
		}
		if memo, err := httputil.NewMemo(memoDir(cfg), ttl); err == nil {
			copts = append(copts, WithMemo(memo.Scope(cfg.TileSource()+"|")))
		} else {
			s.logger.Debug("index memo disabled", "err", err)
		}
		s.client = NewClient(cfg.API.Base, cfg.API.Bearer, copts...)
	}
	if s.tiles == nil {
		tc := s.client
		if src := cfg.TileSource(); src != s.client.Base() {
			tc = NewClient(src, cfg.API.Bearer, WithHTTPClient(hc))
		}
		t, err := OpenTiles(ctx, cfg.TileSource(), tc)
		if err != nil {
			return nil, err
		}
		s.tiles = t
	}
	s.resolver = NewResolver(s.tiles, s.client, s.logger)
	s.resolver.refresh = s.refresh
	s.stages = []Stage{
		{Name: StageAPIBinary, Load: s.apiStage(Binary)},
		{Name: StageAPIJSON, Load: s.apiStage(JSON)},
		{Name: StageCacheBinary, Load: s.tileStage(Binary)},
		{Name: StageCacheJSON, Load: s.tileStage(JSON)},
	}
	return s, nil
}

func memoDir(cfg *config.Config) string {
	if cfg.Cache.Dir == "" {
		return ""
	}
	return filepath.Join(cfg.Cache.Dir, "memo")
}

// Client returns the API client.
func (s *Source) Client() *Client { return s.client }

// Tiles returns the tile store.
func (s *Source) Tiles() Tiles { return s.tiles }

// Resolver returns the query resolver.
func (s *Source) Resolver() *Resolver { return s.resolver }

// Stages returns the fallback chain in order.
func (s *Source) Stages() []Stage { return append([]Stage(nil), s.stages...) }

// Load resolves query and loads its ego graph.
func (s *Source) Load(ctx context.Context, query string) (*Result, error) {
	key, err := s.resolver.Resolve(ctx, query)
	if err != nil {
		return nil, err
	}
	res, err := s.LoadKey(ctx, key)
	if err != nil {
		return nil, err
	}
	res.Query = query
	return res, nil
}

// LoadKey loads the ego graph of key through the fallback chain.
func (s *Source) LoadKey(ctx context.Context, key Key) (*Result, error) {
	start := time.Now()
	g, origin, err := Fallback(ctx, s.logger, key, s.stages...)
	observability.Pipeline().OnLoadComplete(ctx, key.String(), origin, g.Len(), time.Since(start), err)
	if err != nil {
		s.logger.Warn("all sources failed", "key", key)
		return nil, err
	}
	s.logger.Info("loaded graph", "key", key, "origin", origin, "nodes", g.Len())
	return &Result{Query: key.String(), Key: key, Origin: origin, Graph: g}, nil
}

// LoadAll loads several queries with at most parallel in flight. The
// returned slices are index-aligned with queries; a failed query leaves
// a nil Result and its error.
func (s *Source) LoadAll(ctx context.Context, queries []string, parallel int) ([]*Result, []error) {
	results := make([]*Result, len(queries))
	errs := make([]error, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(parallel, 1))
	for i, q := range queries {
		g.Go(func() error {
			results[i], errs[i] = s.Load(gctx, q)
			return nil
		})
	}
	_ = g.Wait()
	return results, errs
}

// Close releases the tile store and the response cache.
func (s *Source) Close() error {
	terr := s.tiles.Close()
	cerr := s.cache.Close()
	if terr != nil {
		return terr
	}
	return cerr
}

// apiStage loads from the ego endpoint. Binary buffers carry no names, so
// the binary stage also fetches the meta document; without it the graph
// keeps index ids and still renders.
func (s *Source) apiStage(f Format) func(context.Context, Key) (*graph.Graph, error) {
	return func(ctx context.Context, key Key) (*graph.Graph, error) {
		var g *graph.Graph
		fetch := func(ctx context.Context) ([]byte, error) { return s.client.Ego(ctx, key, f) }
		err := s.fetchEgo(ctx, s.egoKey(key, f.Ext()), fetch, func(data []byte) (err error) {
			g, err = decode(data, f)
			return err
		})
		if err != nil {
			return nil, err
		}
		if f == Binary {
			if err := s.nameNodes(ctx, key, g); err != nil {
				s.logger.Debug("node names unavailable", "key", key, "err", err)
			}
		}
		return g, nil
	}
}

func (s *Source) nameNodes(ctx context.Context, key Key, g *graph.Graph) error {
	fetch := func(ctx context.Context) ([]byte, error) { return s.client.EgoMeta(ctx, key) }
	return s.fetchEgo(ctx, s.egoKey(key, "meta"), fetch, func(data []byte) error {
		m, err := graph.ParseTileMeta(data)
		if err != nil {
			return gerrors.Wrap(gerrors.ErrCodeInvalidFormat, err, "decode node names")
		}
		return m.Apply(g)
	})
}

func (s *Source) tileStage(f Format) func(context.Context, Key) (*graph.Graph, error) {
	return func(ctx context.Context, key Key) (*graph.Graph, error) {
		data, err := s.tiles.Tile(ctx, key, f)
		if err != nil {
			return nil, err
		}
		return decode(data, f)
	}
}

func (s *Source) egoKey(key Key, format string) string {
	return s.keyer.EgoKey(string(key.Kind), key.ID, cache.EgoKeyOpts{
		Variant: s.client.variant,
		Limit:   s.client.limit,
		Format:  format,
	})
}

// fetchEgo passes the response body for ck to accept, reading the response
// cache first. Bodies are cached only after accept takes them; a cached
// body that accept rejects is dropped and fetched again.
func (s *Source) fetchEgo(ctx context.Context, ck string, fetch func(context.Context) ([]byte, error), accept func([]byte) error) error {
	hooks := observability.Cache()
	if !s.refresh {
		if data, ok, err := s.cache.Get(ctx, ck); err == nil && ok {
			if err := accept(data); err == nil {
				hooks.OnCacheHit(ctx, "ego")
				return nil
			}
			s.logger.Debug("dropping unreadable cached response", "key", ck)
			_ = s.cache.Delete(ctx, ck)
		}
		hooks.OnCacheMiss(ctx, "ego")
	}

	data, err := fetch(ctx)
	if err != nil {
		return err
	}
	if err := accept(data); err != nil {
		return err
	}
	if err := s.cache.Set(ctx, ck, data, s.ttl); err == nil {
		hooks.OnCacheSet(ctx, "ego", len(data))
	}
	return nil
}

func decode(data []byte, f Format) (*graph.Graph, error) {
	var (
		g   *graph.Graph
		err error
	)
	if f == JSON {
		g, err = graph.ParseJSONTile(data)
	} else {
		g, err = graph.DecodeBuffer(data, nil)
	}
	if err != nil {
		return nil, gerrors.Wrap(gerrors.ErrCodeInvalidFormat, err, "decode %s tile", f)
	}
	if g.Len() == 0 {
		return nil, gerrors.New(gerrors.ErrCodeInvalidFormat, "%s tile has no nodes", f)
	}
	return g, nil
}
