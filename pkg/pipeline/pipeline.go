// Package pipeline provides the resolve → load → render pipeline shared by
// the CLI, the terminal viewer and the HTTP server.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: Resolve the query and run the datasource fallback chain (or
//     build the synthetic demo graph)
//  2. Layout: Ego graphs served from the analytical store are laid out with
//     the concentric layout; loaded graphs already carry positions
//  3. Render: Generate output in the requested formats (PNG, SVG, DOT,
//     Graphviz node-link SVG, NodeBuffer, JSON tile)
//
// # Usage
//
//	runner := pipeline.NewRunner(src, cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Query:   "person:42",
//	    Formats: []string{pipeline.FormatPNG},
//	})
//	png := result.Artifacts[pipeline.FormatPNG]
//
// Building ego graphs for the query endpoint:
//
//	ego, err := st.Ego(ctx, store.KindPerson, "42", store.VariantAll, 1500)
//	buf, err := pipeline.EncodeEgo(ego, pipeline.FormatBinary)
package pipeline

import (
	"cmp"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/grandgraph/pkg/cache"
	gerrors "github.com/matzehuels/grandgraph/pkg/errors"
	"github.com/matzehuels/grandgraph/pkg/graph"
	"github.com/matzehuels/grandgraph/pkg/particles"
)

const (
	DefaultWidth  = 1200 // CSS pixels
	DefaultHeight = 800
	DefaultSeed   = uint64(42)

	// DemoQuery stands in for the query of the synthetic demo graph.
	DemoQuery = "demo"
)

const (
	FormatPNG      = "png"
	FormatSVG      = "svg"
	FormatDOT      = "dot"
	FormatNodelink = "nodelink" // Graphviz-laid-out SVG
	FormatBinary   = "bin"      // NodeBuffer
	FormatJSON     = "json"     // JSON tile

	// FormatMeta is the ego endpoint's companion to FormatBinary: node ids,
	// names and titles in buffer order. It is not a render format.
	FormatMeta = "meta"
)

// Formats lists every output format in the order the CLI documents them.
var Formats = []string{FormatPNG, FormatSVG, FormatDOT, FormatNodelink, FormatBinary, FormatJSON}

// Options drives one pipeline run. The JSON form is accepted by the
// server's render endpoint.
type Options struct {
	Query   string `json:"query,omitempty"`
	Demo    bool   `json:"demo,omitempty"`
	Seed    uint64 `json:"seed,omitempty"`
	Refresh bool   `json:"refresh,omitempty"`

	Formats  []string           `json:"formats,omitempty"`
	Width    int                `json:"width,omitempty"`
	Height   int                `json:"height,omitempty"`
	DPR      float64            `json:"dpr,omitempty"`
	Time     float64            `json:"time,omitempty"`
	Detailed bool               `json:"detailed,omitempty"` // DOT labels carry titles and groups
	Particle *particles.Options `json:"particles,omitempty"`

	Logger *log.Logger `json:"-"`

	validated bool
}

// Result is what a run produced. Key is empty for the demo graph; Origin
// names the fallback stage that produced Graph. GraphHash is the SHA-256
// of Graph's JSON tile and keys the frame cache.
type Result struct {
	Query     string
	Key       string
	Origin    string
	Graph     *graph.Graph
	GraphHash string
	Artifacts map[string][]byte // by format
	Stats     Stats
	CacheInfo CacheInfo
}

type Stats struct {
	NodeCount  int
	EdgeCount  int
	LoadTime   time.Duration
	RenderTime time.Duration
}

type CacheInfo struct {
	RenderHit bool // every artifact came from the frame cache
}

// ValidateFormat rejects names outside Formats.
func ValidateFormat(format string) error {
	if slices.Contains(Formats, format) {
		return nil
	}
	return gerrors.New(gerrors.ErrCodeInvalidInput, "invalid format %q (want one of %s)", format, strings.Join(Formats, ", "))
}

func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAndSetDefaults requires a query unless Demo is set, fills in
// the frame defaults and validates formats and sizes. Repeated calls are
// no-ops.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	switch {
	case o.Demo:
		o.Query = DemoQuery
	case o.Query == "":
		return gerrors.New(gerrors.ErrCodeInvalidInput, "query is required unless demo is set")
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	o.SetRenderDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if min(o.Width, o.Height) < 0 || o.DPR < 0 {
		return gerrors.New(gerrors.ErrCodeInvalidInput, "frame size must not be negative")
	}
	o.validated = true
	return nil
}

// SetRenderDefaults fills zero render fields: PNG at DefaultWidth by
// DefaultHeight, DPR 1, and a discarding logger.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatPNG}
	}
	o.Width = cmp.Or(o.Width, DefaultWidth)
	o.Height = cmp.Or(o.Height, DefaultHeight)
	o.DPR = cmp.Or(o.DPR, 1)
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
}

// FrameKeyOpts is the part of o that changes the bytes of format.
func (o *Options) FrameKeyOpts(format string) cache.FrameKeyOpts {
	k := cache.FrameKeyOpts{
		Format:   format,
		Width:    o.Width,
		Height:   o.Height,
		DPR:      o.DPR,
		Time:     o.Time,
		Seed:     o.Seed,
		Demo:     o.Demo,
		Detailed: o.Detailed,
	}
	if o.Particle != nil {
		k.Particles = o.Particle.Count
	}
	return k
}
