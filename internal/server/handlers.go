package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/matzehuels/grandgraph/pkg/cache"
	"github.com/matzehuels/grandgraph/pkg/datasource"
	gerrors "github.com/matzehuels/grandgraph/pkg/errors"
	"github.com/matzehuels/grandgraph/pkg/observability"
	"github.com/matzehuels/grandgraph/pkg/particles"
	"github.com/matzehuels/grandgraph/pkg/pipeline"
	"github.com/matzehuels/grandgraph/pkg/store"
)

// Content types of the tile encodings.
const (
	contentTypeBinary = "application/octet-stream"
	contentTypeJSON   = "application/json"
)

// Frame bounds accepted by /render.*.
const (
	maxFrameSide  = 4096
	maxDPR        = 4
	maxParticles  = 500000
	maxQueryLimit = store.DefaultLimit
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := gerrors.HTTPStatus(err)
	code := string(gerrors.GetCode(err))
	if code == "" {
		code = string(gerrors.ErrCodeInternal)
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "id", RequestID(r.Context()), "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorBody{Error: code, Message: gerrors.UserMessage(err)})
}

func writeBytes(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok", "store": s.store != nil, "tiles": s.tiles != nil}
	if s.store != nil {
		p, c, st, err := s.store.Counts(r.Context())
		if err != nil {
			s.writeError(w, r, gerrors.Wrap(gerrors.ErrCodeInternal, err, "store unavailable"))
			return
		}
		body["persons"], body["companies"], body["stints"] = p, c, st
	}
	writeJSON(w, http.StatusOK, body)
}

// egoQuery is the parsed query string of /graph/ego.
type egoQuery struct {
	kind    datasource.Kind
	id      string
	variant string
	limit   int
	format  string
}

func parseEgoQuery(r *http.Request) (egoQuery, error) {
	q := r.URL.Query()
	eq := egoQuery{variant: q.Get("variant"), limit: maxQueryLimit, format: pipeline.FormatBinary}

	personID, companyID := q.Get(datasource.Person.Param()), q.Get(datasource.Company.Param())
	switch {
	case personID != "" && companyID != "":
		return eq, gerrors.New(gerrors.ErrCodeInvalidInput, "pass either person_id or company_id, not both")
	case personID != "":
		eq.kind, eq.id = datasource.Person, personID
	case companyID != "":
		eq.kind, eq.id = datasource.Company, companyID
	default:
		return eq, gerrors.New(gerrors.ErrCodeInvalidInput, "person_id or company_id is required")
	}
	if err := gerrors.ValidateEntityID(eq.id); err != nil {
		return eq, err
	}
	if eq.variant == "" {
		eq.variant = store.VariantAll
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return eq, gerrors.New(gerrors.ErrCodeInvalidInput, "invalid limit %q", v)
		}
		// Zero falls back to the default; anything larger is capped.
		if n > 0 {
			eq.limit = min(n, maxQueryLimit)
		}
	}

	switch f := q.Get("format"); f {
	case "", "bin", "binary":
	case "json":
		eq.format = pipeline.FormatJSON
	case "meta":
		eq.format = pipeline.FormatMeta
	default:
		return eq, gerrors.New(gerrors.ErrCodeInvalidInput, "unknown format %q", f)
	}
	return eq, nil
}

func (s *Server) handleEgo(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, r, gerrors.New(gerrors.ErrCodeUnsupported, "no analytical store configured"))
		return
	}
	eq, err := parseEgoQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	contentType := contentTypeBinary
	if eq.format != pipeline.FormatBinary {
		contentType = contentTypeJSON
	}
	key := s.keyer.EgoKey(string(eq.kind), eq.id, cache.EgoKeyOpts{Variant: eq.variant, Limit: eq.limit, Format: eq.format})
	hooks := observability.Cache()

	if data, hit, err := s.cache.Get(ctx, key); err == nil && hit {
		hooks.OnCacheHit(ctx, "ego")
		w.Header().Set("X-Cache", "HIT")
		writeBytes(w, contentType, data)
		return
	}
	hooks.OnCacheMiss(ctx, "ego")

	ego, err := s.store.Ego(ctx, string(eq.kind), eq.id, eq.variant, eq.limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := pipeline.EncodeEgo(ego, eq.format)
	if err != nil {
		s.writeError(w, r, gerrors.Wrap(gerrors.ErrCodeInternal, err, "encode ego %s:%s", eq.kind, eq.id))
		return
	}
	if err := s.cache.Set(ctx, key, data, cache.TTLEgo); err != nil {
		s.logger.Warn("ego cache write failed", "key", key, "err", err)
	} else {
		hooks.OnCacheSet(ctx, "ego", len(data))
	}

	w.Header().Set("X-Cache", "MISS")
	writeBytes(w, contentType, data)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, r, gerrors.New(gerrors.ErrCodeUnsupported, "no analytical store configured"))
		return
	}
	handle := r.URL.Query().Get("linkedin_url")
	if err := gerrors.ValidateQuery(handle); err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.store.ResolveHandle(r.Context(), handle)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"person_id": id})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.tiles == nil {
		s.writeError(w, r, gerrors.New(gerrors.ErrCodeUnsupported, "no tile store configured"))
		return
	}
	data, err := s.tiles.Index(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeBytes(w, contentTypeJSON, data)
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	if s.tiles == nil {
		s.writeError(w, r, gerrors.New(gerrors.ErrCodeUnsupported, "no tile store configured"))
		return
	}
	kind, err := datasource.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	key, err := datasource.NewKey(kind, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ext := chi.URLParam(r, "ext")
	if ext != "bin" && ext != "json" {
		s.writeError(w, r, gerrors.New(gerrors.ErrCodeNotFound, "no tile format %q", ext))
		return
	}
	f, _ := datasource.ParseFormat(ext)

	data, err := s.tiles.Tile(r.Context(), key, f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	contentType := contentTypeBinary
	if f == datasource.JSON {
		contentType = contentTypeJSON
	}
	writeBytes(w, contentType, data)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "ext")
	if format != pipeline.FormatPNG && format != pipeline.FormatSVG {
		s.writeError(w, r, gerrors.New(gerrors.ErrCodeNotFound, "no renderer for %q", format))
		return
	}
	opts, err := s.renderOptions(r, format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, renderError(r.Context(), err))
		return
	}
	contentType := "image/png"
	if format == pipeline.FormatSVG {
		contentType = "image/svg+xml"
	}
	if res.Key != "" {
		w.Header().Set("X-Graph-Key", res.Key)
	}
	w.Header().Set("X-Graph-Origin", res.Origin)
	if res.CacheInfo.RenderHit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	writeBytes(w, contentType, res.Artifacts[format])
}

// renderError keeps coded errors and marks everything else internal.
func renderError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return gerrors.Wrap(gerrors.ErrCodeTimeout, err, "render canceled")
	}
	if gerrors.GetCode(err) != "" {
		return err
	}
	return gerrors.Wrap(gerrors.ErrCodeInternal, err, "render failed")
}

func (s *Server) renderOptions(r *http.Request, format string) (pipeline.Options, error) {
	q := r.URL.Query()
	opts := pipeline.Options{
		Query:   q.Get("q"),
		Demo:    q.Get("demo") == "1" || q.Get("demo") == "true",
		Formats: []string{format},
		Logger:  s.logger,
	}
	if !opts.Demo {
		if err := gerrors.ValidateQuery(opts.Query); err != nil {
			return opts, err
		}
	}

	var err error
	if opts.Width, err = intParam(q.Get("w"), 0, maxFrameSide); err != nil {
		return opts, err
	}
	if opts.Height, err = intParam(q.Get("h"), 0, maxFrameSide); err != nil {
		return opts, err
	}
	if opts.Time, err = floatParam(q.Get("t"), 0, 1e6); err != nil {
		return opts, err
	}
	if opts.DPR, err = floatParam(q.Get("dpr"), 0, maxDPR); err != nil {
		return opts, err
	}
	seed, err := intParam(q.Get("seed"), 0, 1<<31)
	if err != nil {
		return opts, err
	}
	opts.Seed = uint64(seed)

	count, err := intParam(q.Get("particles"), 0, maxParticles)
	if err != nil {
		return opts, err
	}
	if count > 0 {
		view := s.cfg.View
		view.Particles = max(count, particles.MinCount)
		p, err := pipeline.ParticleOptions(view, opts.Seed)
		if err != nil {
			return opts, gerrors.Wrap(gerrors.ErrCodeInvalidInput, err, "particles")
		}
		opts.Particle = p
	}
	return opts, nil
}

func intParam(s string, lo, hi int) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, gerrors.New(gerrors.ErrCodeInvalidInput, "invalid integer %q (want %d..%d)", s, lo, hi)
	}
	return n, nil
}

func floatParam(s string, lo, hi float64) (float64, error) {
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < lo || f > hi {
		return 0, gerrors.New(gerrors.ErrCodeInvalidInput, "invalid number %q", s)
	}
	return f, nil
}

// ambientResponse is the body of /ambient/pipeline.
type ambientResponse struct {
	Pipeline particles.Pipeline `json:"pipeline"`
	Seed     uint64             `json:"seed"`
}

func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	width, err := intParam(q.Get("w"), 0, maxFrameSide)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	height, err := intParam(q.Get("h"), 0, maxFrameSide)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if width == 0 {
		width = pipeline.DefaultWidth
	}
	if height == 0 {
		height = pipeline.DefaultHeight
	}

	view := s.cfg.View
	blend, err := particles.ParseBlend(view.Blend)
	if err != nil {
		s.writeError(w, r, gerrors.Wrap(gerrors.ErrCodeInternal, err, "view.blend"))
		return
	}
	u := particles.DefaultUniforms(float64(width), float64(height))
	u.Phase, u.Zoom, u.Tilt = view.Phase, view.Zoom, view.Tilt
	if view.PointSize > 0 {
		u.PointPx = view.PointSize
	}
	if view.Alpha > 0 {
		u.Alpha = view.Alpha
	}
	writeJSON(w, http.StatusOK, ambientResponse{
		Pipeline: particles.Describe(view.Particles, u, blend),
		Seed:     pipeline.DefaultSeed,
	})
}
