// Package server serves ego tiles, cache tiles and rendered frames over
// HTTP.
//
// Routes:
//
//	GET /graph/ego?person_id=…|company_id=…&variant=all&limit=1500[&format=json|meta]
//	GET /resolve?linkedin_url=…
//	GET /cache/resolver.json
//	GET /cache/{kind}/{id}.{bin|json}
//	GET /render.png, /render.svg ?q=…|demo=1 &w=&h=&t=&dpr=&particles=
//	GET /ambient/pipeline
//	GET /metrics, /healthz
//
// Everything except /metrics and /healthz requires the configured bearer
// token when one is set.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/grandgraph/pkg/cache"
	"github.com/matzehuels/grandgraph/pkg/config"
	"github.com/matzehuels/grandgraph/pkg/datasource"
	"github.com/matzehuels/grandgraph/pkg/pipeline"
	"github.com/matzehuels/grandgraph/pkg/store"
)

// ShutdownTimeout bounds graceful shutdown in Run.
const ShutdownTimeout = 10 * time.Second

// Options wires a Server. Store backs /graph/ego, /resolve and, unless
// Loader is set, /render.*. Tiles backs /cache/*; both may be nil, in which
// case those routes answer 501.
type Options struct {
	Config   *config.Config
	Store    *store.Store
	Tiles    datasource.Tiles
	Loader   pipeline.Loader
	Cache    cache.Cache
	Keyer    cache.Keyer
	Logger   *log.Logger
	Registry *prometheus.Registry
}

// Server is the HTTP front of the analytical store and tile cache.
type Server struct {
	cfg      *config.Config
	store    *store.Store
	tiles    datasource.Tiles
	cache    cache.Cache
	keyer    cache.Keyer
	runner   *pipeline.Runner
	logger   *log.Logger
	registry *prometheus.Registry
	metrics  *Metrics
}

// New builds a server and installs its Prometheus hooks.
func New(opts Options) *Server {
	s := &Server{
		cfg:      opts.Config,
		store:    opts.Store,
		tiles:    opts.Tiles,
		cache:    opts.Cache,
		keyer:    opts.Keyer,
		logger:   opts.Logger,
		registry: opts.Registry,
	}
	if s.cfg == nil {
		s.cfg = config.Default()
	}
	if s.cache == nil {
		s.cache = cache.NewNullCache()
	}
	if s.keyer == nil {
		s.keyer = cache.NewDefaultKeyer()
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	s.metrics = NewMetrics(s.registry)
	s.metrics.Install()

	loader := opts.Loader
	if loader == nil && s.store != nil {
		loader = &pipeline.StoreLoader{Store: s.store, Variant: s.cfg.API.Variant, Limit: s.cfg.API.Limit}
	}
	s.runner = pipeline.NewRunner(loader, s.cache, s.keyer, s.logger)
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestContext)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(requireBearer(s.cfg.Server.Token))
		r.Get("/graph/ego", s.handleEgo)
		r.Get("/resolve", s.handleResolve)
		r.Get("/cache/resolver.json", s.handleIndex)
		r.Get("/cache/{kind}/{id}.{ext}", s.handleTile)
		r.Get("/render.{ext}", s.handleRender)
		r.Get("/ambient/pipeline", s.handlePipeline)
	})
	return r
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = s.cfg.Server.Addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
