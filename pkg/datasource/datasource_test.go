package datasource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/grandgraph/pkg/cache"
	"github.com/matzehuels/grandgraph/pkg/config"
	gerrors "github.com/matzehuels/grandgraph/pkg/errors"
	"github.com/matzehuels/grandgraph/pkg/graph"
	"github.com/matzehuels/grandgraph/pkg/httputil"
	"github.com/matzehuels/grandgraph/pkg/tile"
)

func binaryTile(t *testing.T, count int) []byte {
	t.Helper()
	pos := make([]tile.Point, count)
	for i := range pos {
		pos[i] = tile.Point{X: float32(i * 10), Y: float32(-i * 5)}
	}
	buf, err := tile.Encode(count, pos, make([]uint16, count), make([]uint8, count))
	require.NoError(t, err)
	return buf
}

func jsonTile(t *testing.T, labels ...string) []byte {
	t.Helper()
	g := &graph.Graph{}
	for i, l := range labels {
		g.Nodes = append(g.Nodes, graph.Node{ID: l, X: float64(i), Y: float64(i), Label: l})
	}
	g.Edges = graph.Star(len(labels))
	data, err := graph.MarshalJSONTile(g)
	require.NoError(t, err)
	return data
}

func testConfig(t *testing.T, base string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.API.Base = base
	cfg.Cache.Dir = t.TempDir()
	return cfg
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(&strings.Builder{}, log.Options{Level: log.DebugLevel})
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		in   string
		want Key
		ok   bool
	}{
		{"person:42", Key{Person, "42"}, true},
		{" company:acme-1 ", Key{Company, "acme-1"}, true},
		{"team:1", Key{}, false},
		{"person:", Key{}, false},
		{"person:../etc", Key{}, false},
		{"42", Key{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseKey(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseKey(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestKeyTilePath(t *testing.T) {
	k := Key{Company, "7"}
	if got := k.TilePath(Binary); got != "company/7.bin" {
		t.Errorf("TilePath(Binary) = %q", got)
	}
	if got := k.TilePath(JSON); got != "company/7.json" {
		t.Errorf("TilePath(JSON) = %q", got)
	}
	if got := k.Kind.Param(); got != "company_id" {
		t.Errorf("Param() = %q", got)
	}
}

func TestHandle(t *testing.T) {
	tests := map[string]string{
		"https://www.linkedin.com/in/Jane-Doe/":     "jane-doe",
		"linkedin.com/in/bob?trk=x":                 "bob",
		"HTTPS://LINKEDIN.COM/IN/Caf%C3%A9#section": "café",
		"Jane Doe":                                  "",
		"https://example.com/in/jane":               "",
	}
	for in, want := range tests {
		if got := Handle(in); got != want {
			t.Errorf("Handle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIndexLookup(t *testing.T) {
	ix, err := ParseIndex([]byte(`{
		"peopleByLinkedIn": {"Legacy": "person:1"},
		"peopleByHandle": {"jane-doe": "person:2"},
		"peopleByName": {"Jane Doe": "3"},
		"companiesByName": {"ACME": "company:9", "Initech": "10"}
	}`))
	require.NoError(t, err)

	tests := []struct {
		query string
		want  Key
		ok    bool
	}{
		{"legacy", Key{Person, "1"}, true},
		{"https://linkedin.com/in/Jane-Doe", Key{Person, "2"}, true},
		{"  jane doe ", Key{Person, "3"}, true},
		{"acme", Key{Company, "9"}, true},
		{"initech", Key{Company, "10"}, true},
		{"nobody", Key{}, false},
	}
	for _, tt := range tests {
		got, ok := ix.Lookup(tt.query)
		require.Equal(t, tt.ok, ok, tt.query)
		require.Equal(t, tt.want, got, tt.query)
	}
}

func TestIndexBuildRoundTrip(t *testing.T) {
	ix := NewIndex()
	ix.AddPerson("5", "https://linkedin.com/in/ada/", "Ada Lovelace")
	ix.AddCompany("8", "Analytical Engines")
	data, err := ix.Marshal()
	require.NoError(t, err)

	back, err := ParseIndex(data)
	require.NoError(t, err)
	require.Equal(t, 3, back.Len())
	k, ok := back.Lookup("linkedin.com/in/ADA")
	require.True(t, ok)
	require.Equal(t, "person:5", k.String())
}

func TestFallback(t *testing.T) {
	ctx := context.Background()
	key := Key{Person, "1"}
	fail := func(msg string) Stage {
		return Stage{Name: msg, Load: func(context.Context, Key) (*graph.Graph, error) {
			return nil, errors.New(msg + " failed")
		}}
	}
	ok := Stage{Name: "ok", Load: func(context.Context, Key) (*graph.Graph, error) {
		return &graph.Graph{Nodes: []graph.Node{{ID: "0"}}}, nil
	}}
	var ran bool
	never := Stage{Name: "never", Load: func(context.Context, Key) (*graph.Graph, error) {
		ran = true
		return nil, nil
	}}

	g, origin, err := Fallback(ctx, quietLogger(), key, fail("a"), ok, never)
	require.NoError(t, err)
	require.Equal(t, "ok", origin)
	require.Equal(t, 1, g.Len())
	require.False(t, ran, "chain must short-circuit")

	_, _, err = Fallback(ctx, quietLogger(), key, fail("a"), fail("b"), never)
	require.True(t, gerrors.Is(err, gerrors.ErrCodeNotFound))
	require.Contains(t, err.Error(), "a failed")
	require.Contains(t, err.Error(), "b failed")
	require.Contains(t, err.Error(), "never: ")

	var se *StageError
	require.ErrorAs(t, err, &se)
}

func TestFallbackCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Fallback(ctx, quietLogger(), Key{Person, "1"}, Stage{Name: "x", Load: func(context.Context, Key) (*graph.Graph, error) {
		t.Fatal("stage ran after cancel")
		return nil, nil
	}})
	require.ErrorIs(t, err, context.Canceled)
}

// TestSourceFallsBackToCacheJSON covers the full chain: binary fetch fails,
// JSON fetch returns garbage, the binary tile is corrupt, and the JSON tile
// finally loads.
func TestSourceFallsBackToCacheJSON(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/graph/ego", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("person_id") != "7" {
			t.Errorf("person_id = %q", r.URL.Query().Get("person_id"))
		}
		if r.URL.Query().Get("format") == "json" {
			w.Write([]byte("{not json"))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	})
	mux.HandleFunc("/cache/person/7.bin", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte{1, 2, 3})
	})
	mux.HandleFunc("/cache/person/7.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write(jsonTile(t, "focal", "a", "b"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src, err := New(context.Background(), testConfig(t, srv.URL), WithLogger(quietLogger()))
	require.NoError(t, err)
	defer src.Close()

	res, err := src.Load(context.Background(), "person:7")
	require.NoError(t, err)
	require.Equal(t, StageCacheJSON, res.Origin)
	require.Equal(t, 3, res.Graph.Len())
	require.Equal(t, "focal", res.Graph.Nodes[0].Label)
	require.Len(t, res.Graph.Edges, 2)
	require.EqualValues(t, 2, hits.Load())
}

func TestSourceResolvesHandleAndSendsBearer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cache/resolver.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"peopleByLinkedIn": {"jane": "person:7"}, "peopleByName": {}, "companiesByName": {}}`))
	})
	mux.HandleFunc("/graph/ego", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write(binaryTile(t, 4))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.API.Bearer = "s3cret"
	src, err := New(context.Background(), cfg, WithLogger(quietLogger()))
	require.NoError(t, err)
	defer src.Close()

	res, err := src.Load(context.Background(), "https://www.linkedin.com/in/Jane/")
	require.NoError(t, err)
	require.Equal(t, Key{Person, "7"}, res.Key)
	require.Equal(t, StageAPIBinary, res.Origin)
	require.Equal(t, 4, res.Graph.Len())
	require.Equal(t, 30.0, res.Graph.Nodes[3].X)
	require.Equal(t, -15.0, res.Graph.Nodes[3].Y)
}

func TestSourceRemoteHandleResolve(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cache/resolver.json", http.NotFound)
	mux.HandleFunc("/resolve", func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Query().Get("linkedin_url"), "/in/grace") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"person_id": 99}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src, err := New(context.Background(), testConfig(t, srv.URL), WithLogger(quietLogger()))
	require.NoError(t, err)
	defer src.Close()

	key, err := src.Resolver().Resolve(context.Background(), "linkedin.com/in/grace")
	require.NoError(t, err)
	require.Equal(t, "person:99", key.String())

	_, err = src.Resolver().Resolve(context.Background(), "Nobody In Particular")
	require.True(t, gerrors.Is(err, gerrors.ErrCodeNotFound))
}

func TestSourceNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	src, err := New(context.Background(), testConfig(t, srv.URL), WithLogger(quietLogger()))
	require.NoError(t, err)
	defer src.Close()

	_, err = src.Load(context.Background(), "company:3")
	require.Error(t, err)
	require.True(t, gerrors.Is(err, gerrors.ErrCodeNotFound))
	for _, stage := range []string{StageAPIBinary, StageAPIJSON, StageCacheBinary, StageCacheJSON} {
		require.Contains(t, err.Error(), stage)
	}
}

func TestSourceResponseCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("format") == "meta" {
			w.Write([]byte(`{"nodes": [{"id": "1", "name": "Ada"}, {"id": "2", "name": "Brian"}]}`))
			return
		}
		w.Write(binaryTile(t, 2))
	}))
	defer srv.Close()

	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	src, err := New(context.Background(), testConfig(t, srv.URL), WithLogger(quietLogger()), WithCache(fc, nil))
	require.NoError(t, err)
	defer src.Close()

	for range 3 {
		res, err := src.Load(context.Background(), "person:1")
		require.NoError(t, err)
		require.Equal(t, StageAPIBinary, res.Origin)
		require.Equal(t, "Brian", res.Graph.Nodes[1].Label)
	}
	require.EqualValues(t, 2, hits.Load())
}

func TestSourceNamesBinaryNodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("format") {
		case "meta":
			w.Write([]byte(`{"nodes": [{"id": "42", "name": "Ada Lovelace"}, {"id": "7", "name": "Bob Smith", "title": "CTO"}, {"id": "9"}]}`))
		case "":
			w.Write(binaryTile(t, 3))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	src, err := New(context.Background(), testConfig(t, srv.URL), WithLogger(quietLogger()))
	require.NoError(t, err)
	defer src.Close()

	res, err := src.Load(context.Background(), "person:42")
	require.NoError(t, err)
	require.Equal(t, StageAPIBinary, res.Origin)
	require.Equal(t, "42", res.Graph.Nodes[0].ID)
	require.Equal(t, "Bob Smith", res.Graph.Nodes[1].Label)
	require.Equal(t, "CTO", res.Graph.Nodes[1].Title)
	require.Equal(t, "9", res.Graph.Nodes[2].DisplayLabel())
	require.Equal(t, 10.0, res.Graph.Nodes[1].X)
}

func TestSourceBinaryWithoutNames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") == "meta" {
			w.Write([]byte(`{"nodes": [{"id": "42", "name": "only one"}]}`))
			return
		}
		w.Write(binaryTile(t, 3))
	}))
	defer srv.Close()

	src, err := New(context.Background(), testConfig(t, srv.URL), WithLogger(quietLogger()))
	require.NoError(t, err)
	defer src.Close()

	res, err := src.Load(context.Background(), "person:42")
	require.NoError(t, err)
	require.Equal(t, StageAPIBinary, res.Origin)
	require.Equal(t, "0", res.Graph.Nodes[0].ID)
	require.Empty(t, res.Graph.Nodes[1].Label)
}

func TestSourceDoesNotCacheUnreadableResponses(t *testing.T) {
	var binaryHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/graph/ego", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("format") {
		case "json":
			w.Write(jsonTile(t, "focal", "a"))
		case "":
			if binaryHits.Add(1) == 1 {
				w.Write([]byte("<html>gateway</html>"))
				return
			}
			w.Write(binaryTile(t, 2))
		default:
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	src, err := New(context.Background(), testConfig(t, srv.URL), WithLogger(quietLogger()), WithCache(fc, nil))
	require.NoError(t, err)
	defer src.Close()

	res, err := src.Load(context.Background(), "person:5")
	require.NoError(t, err)
	require.Equal(t, StageAPIJSON, res.Origin)

	res, err = src.Load(context.Background(), "person:5")
	require.NoError(t, err)
	require.Equal(t, StageAPIBinary, res.Origin)
	require.EqualValues(t, 2, binaryHits.Load())
}

func TestSourceDropsUnreadableCachedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "" {
			http.NotFound(w, r)
			return
		}
		w.Write(binaryTile(t, 2))
	}))
	defer srv.Close()

	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	src, err := New(context.Background(), testConfig(t, srv.URL), WithLogger(quietLogger()), WithCache(fc, nil))
	require.NoError(t, err)
	defer src.Close()

	ck := src.egoKey(Key{Person, "5"}, Binary.Ext())
	require.NoError(t, fc.Set(context.Background(), ck, []byte{1, 2, 3}, time.Hour))

	res, err := src.Load(context.Background(), "person:5")
	require.NoError(t, err)
	require.Equal(t, StageAPIBinary, res.Origin)

	data, ok, err := fc.Get(context.Background(), ck)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, data, tile.Size(2))
}

func TestSourceDirTiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	dir := NewDirTiles(t.TempDir())
	ctx := context.Background()
	require.NoError(t, dir.PutTile(ctx, Key{Company, "4"}, Binary, binaryTile(t, 6)))

	cfg := testConfig(t, srv.URL)
	cfg.Tiles.Source = dir.Dir()
	src, err := New(ctx, cfg, WithLogger(quietLogger()))
	require.NoError(t, err)
	defer src.Close()

	res, err := src.Load(ctx, "company:4")
	require.NoError(t, err)
	require.Equal(t, StageCacheBinary, res.Origin)
	require.Equal(t, 6, res.Graph.Len())
}

func TestDirTiles(t *testing.T) {
	ctx := context.Background()
	tiles := NewDirTiles(t.TempDir())
	key := Key{Person, "12"}

	_, err := tiles.Tile(ctx, key, JSON)
	require.True(t, gerrors.Is(err, gerrors.ErrCodeNotFound))
	_, err = tiles.Index(ctx)
	require.True(t, gerrors.Is(err, gerrors.ErrCodeNotFound))

	require.NoError(t, tiles.PutTile(ctx, key, JSON, []byte(`{}`)))
	require.NoError(t, tiles.PutIndex(ctx, []byte(`{"peopleByName":{}}`)))

	data, err := tiles.Tile(ctx, key, JSON)
	require.NoError(t, err)
	require.Equal(t, `{}`, string(data))
	require.FileExists(t, tiles.Path(key, JSON))

	data, err = tiles.Index(ctx)
	require.NoError(t, err)
	require.Contains(t, string(data), "peopleByName")
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		code      int
		want      gerrors.Code
		retryable bool
	}{
		{http.StatusOK, "", false},
		{http.StatusNotFound, gerrors.ErrCodeNotFound, false},
		{http.StatusUnauthorized, gerrors.ErrCodeUnauthorized, false},
		{http.StatusForbidden, gerrors.ErrCodeUnauthorized, false},
		{http.StatusBadGateway, gerrors.ErrCodeNetwork, true},
		{http.StatusTeapot, gerrors.ErrCodeNetwork, false},
	}
	for _, tt := range tests {
		err := checkStatus(tt.code, "/graph/ego")
		if tt.want == "" {
			require.NoError(t, err)
			continue
		}
		require.Equal(t, tt.want, gerrors.GetCode(err), "status %d", tt.code)
		require.Equal(t, tt.retryable, httputil.IsRetryable(err), "status %d", tt.code)
	}
}

func TestEgoURL(t *testing.T) {
	c := NewClient("http://api.test/", "", WithVariant("strong"), WithLimit(50))
	got := c.EgoURL(Key{Company, "3"}, JSON)
	require.Equal(t, "http://api.test/graph/ego?company_id=3&format=json&limit=50&variant=strong", got)
}

func TestOpenTiles(t *testing.T) {
	ctx := context.Background()
	tiles, err := OpenTiles(ctx, "https://tiles.test", nil)
	require.NoError(t, err)
	require.IsType(t, &HTTPTiles{}, tiles)

	tiles, err = OpenTiles(ctx, t.TempDir(), nil)
	require.NoError(t, err)
	require.IsType(t, &DirTiles{}, tiles)

	_, err = OpenTiles(ctx, "", nil)
	require.True(t, gerrors.Is(err, gerrors.ErrCodeInvalidInput))
}
