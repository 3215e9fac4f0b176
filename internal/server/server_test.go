package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/grandgraph/pkg/cache"
	"github.com/matzehuels/grandgraph/pkg/config"
	"github.com/matzehuels/grandgraph/pkg/datasource"
	"github.com/matzehuels/grandgraph/pkg/graph"
	"github.com/matzehuels/grandgraph/pkg/observability"
	"github.com/matzehuels/grandgraph/pkg/store"
	"github.com/matzehuels/grandgraph/pkg/tile"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Import(ctx, &store.Dataset{
		Persons: []store.Person{
			{ID: "1", Name: "Ada", Handles: []string{"https://www.linkedin.com/in/ada-l"}},
			{ID: "2", Name: "Brian"},
			{ID: "3", Name: "Carol"},
		},
		Companies: []store.Company{{ID: "10", Name: "Acme"}},
		Stints: []store.Stint{
			{PersonID: "1", CompanyID: "10"},
			{PersonID: "2", CompanyID: "10"},
			{PersonID: "3", CompanyID: "10", End: "2020-01-01"},
		},
	}))
	return st
}

type testServer struct {
	*httptest.Server
	dir   string
	cache *cache.FileCache
}

func newTestServer(t *testing.T, token string) *testServer {
	t.Helper()
	t.Cleanup(observability.Reset)

	dir := t.TempDir()
	fc, err := cache.NewFileCache(filepath.Join(dir, "cache"))
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Server.Token = token
	srv := New(Options{
		Config:   cfg,
		Store:    testStore(t),
		Tiles:    datasource.NewDirTiles(filepath.Join(dir, "tiles")),
		Cache:    fc,
		Logger:   log.New(io.Discard),
		Registry: prometheus.NewRegistry(),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, dir: dir, cache: fc}
}

func (ts *testServer) get(t *testing.T, path string, header ...string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	require.NoError(t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestEgoBinary(t *testing.T) {
	ts := newTestServer(t, "")

	resp, body := ts.get(t, "/graph/ego?person_id=1&variant=all&limit=1500")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))
	require.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	require.Len(t, body, tile.Size(3))

	decoded, err := tile.Decode(body)
	require.NoError(t, err)
	require.Equal(t, 3, decoded.Count())
	require.Equal(t, tile.Point{}, decoded.Positions[0])

	resp, cached := ts.get(t, "/graph/ego?person_id=1&variant=all&limit=1500")
	require.Equal(t, "HIT", resp.Header.Get("X-Cache"))
	require.Equal(t, body, cached)
}

func TestEgoJSONAndVariants(t *testing.T) {
	ts := newTestServer(t, "")

	resp, body := ts.get(t, "/graph/ego?company_id=10&format=json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	g, err := graph.ParseJSONTile(body)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 4)
	require.Equal(t, "Acme", g.Nodes[0].Label)

	_, body = ts.get(t, "/graph/ego?person_id=1&variant=current")
	require.Len(t, body, tile.Size(2))

	// A person without colleagues still gets the focal node.
	_, body = ts.get(t, "/graph/ego?person_id=3&variant=current")
	require.Len(t, body, tile.Size(1))
}

func TestEgoErrors(t *testing.T) {
	ts := newTestServer(t, "")

	tests := []struct {
		path   string
		status int
		code   string
	}{
		{"/graph/ego", http.StatusBadRequest, "INVALID_INPUT"},
		{"/graph/ego?person_id=1&company_id=10", http.StatusBadRequest, "INVALID_INPUT"},
		{"/graph/ego?person_id=../etc", http.StatusBadRequest, "INVALID_INPUT"},
		{"/graph/ego?person_id=1&limit=-3", http.StatusBadRequest, "INVALID_INPUT"},
		{"/graph/ego?person_id=1&variant=past", http.StatusBadRequest, "INVALID_INPUT"},
		{"/graph/ego?person_id=1&format=xml", http.StatusBadRequest, "INVALID_INPUT"},
		{"/graph/ego?person_id=404", http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		resp, body := ts.get(t, tt.path)
		require.Equal(t, tt.status, resp.StatusCode, tt.path)
		var e errorBody
		require.NoError(t, json.Unmarshal(body, &e), tt.path)
		require.Equal(t, tt.code, e.Error, tt.path)
		require.NotEmpty(t, e.Message, tt.path)
	}
}

func TestResolve(t *testing.T) {
	ts := newTestServer(t, "")

	resp, body := ts.get(t, "/resolve?linkedin_url=https://linkedin.com/in/ADA-L/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"person_id":"1"}`, string(body))

	resp, _ = ts.get(t, "/resolve?linkedin_url=nobody")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ts.get(t, "/resolve")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestResolveMatchesDatasourceClient(t *testing.T) {
	ts := newTestServer(t, "")
	client := datasource.NewClient(ts.URL, "")

	key, err := client.ResolveHandle(context.Background(), "https://linkedin.com/in/ada-l")
	require.NoError(t, err)
	require.Equal(t, "person:1", key.String())

	data, err := client.Ego(context.Background(), key, datasource.Binary)
	require.NoError(t, err)
	_, err = tile.Decode(data)
	require.NoError(t, err)

	meta, err := client.EgoMeta(context.Background(), key)
	require.NoError(t, err)
	m, err := graph.ParseTileMeta(meta)
	require.NoError(t, err)
	require.Len(t, m.Nodes, 3)
	require.Equal(t, "Ada", m.Nodes[0].Name)
}

func TestSourceLoadsNamedBinaryEgo(t *testing.T) {
	ts := newTestServer(t, "")
	cfg := config.Default()
	cfg.API.Base = ts.URL
	cfg.Cache.Dir = t.TempDir()
	src, err := datasource.New(context.Background(), cfg, datasource.WithLogger(log.New(io.Discard)))
	require.NoError(t, err)
	defer src.Close()

	res, err := src.Load(context.Background(), "person:1")
	require.NoError(t, err)
	require.Equal(t, datasource.StageAPIBinary, res.Origin)
	require.Equal(t, 3, res.Graph.Len())
	require.Equal(t, "1", res.Graph.Nodes[0].ID)
	require.Equal(t, "Ada", res.Graph.Nodes[0].DisplayLabel())

	names := []string{res.Graph.Nodes[1].Label, res.Graph.Nodes[2].Label}
	require.ElementsMatch(t, []string{"Brian", "Carol"}, names)
	ids := []string{res.Graph.Nodes[1].ID, res.Graph.Nodes[2].ID}
	require.ElementsMatch(t, []string{"2", "3"}, ids)
}

func TestCacheTiles(t *testing.T) {
	ts := newTestServer(t, "")
	tiles := filepath.Join(ts.dir, "tiles")
	require.NoError(t, os.MkdirAll(filepath.Join(tiles, "person"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tiles, "person", "7.json"), []byte(`{"coords":{"nodes":[[0,0]]}}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tiles, "resolver.json"), []byte(`{"peopleByHandle":{"x":"7"}}`), 0o644))

	resp, body := ts.get(t, "/cache/person/7.json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.Contains(t, string(body), "coords")

	resp, body = ts.get(t, "/cache/resolver.json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "peopleByHandle")

	resp, _ = ts.get(t, "/cache/person/7.bin")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ts.get(t, "/cache/team/7.bin")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.get(t, "/cache/person/7.png")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRender(t *testing.T) {
	ts := newTestServer(t, "")

	resp, body := ts.get(t, "/render.png?q=person:1&w=64&h=48")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	require.Equal(t, "person:1", resp.Header.Get("X-Graph-Key"))
	require.Equal(t, "store", resp.Header.Get("X-Graph-Origin"))
	require.True(t, strings.HasPrefix(string(body), "\x89PNG"))

	resp, body = ts.get(t, "/render.svg?demo=1&w=64&h=48")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	require.Contains(t, string(body), "<svg")

	resp, _ = ts.get(t, "/render.svg?demo=1&w=64&h=48")
	require.Equal(t, "HIT", resp.Header.Get("X-Cache"))

	resp, _ = ts.get(t, "/render.gif?demo=1")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ts.get(t, "/render.png?q=person:1&w=99999")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.get(t, "/render.png?q=person:404")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAmbientPipeline(t *testing.T) {
	ts := newTestServer(t, "")

	resp, body := ts.get(t, "/ambient/pipeline?w=800&h=600")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Pipeline struct {
			Vertex    string `json:"vertex"`
			Fragment  string `json:"fragment"`
			Primitive string `json:"primitive"`
			Count     int    `json:"count"`
			Defaults  struct {
				ViewW float64 `json:"view_w"`
			} `json:"defaults"`
		} `json:"pipeline"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	require.Equal(t, "points", got.Pipeline.Primitive)
	require.NotEmpty(t, got.Pipeline.Vertex)
	require.NotEmpty(t, got.Pipeline.Fragment)
	require.Equal(t, config.Default().View.Particles, got.Pipeline.Count)
	require.Equal(t, 800.0, got.Pipeline.Defaults.ViewW)
}

func TestBearerAndMetrics(t *testing.T) {
	ts := newTestServer(t, "s3cret")

	resp, _ := ts.get(t, "/graph/ego?person_id=1")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("WWW-Authenticate"))

	resp, _ = ts.get(t, "/graph/ego?person_id=1", "Authorization", "Bearer wrong")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	const id = "8f14e45f-ceea-467f-a0e6-1b2c3d4e5f60"
	resp, _ = ts.get(t, "/graph/ego?person_id=1", "Authorization", "Bearer s3cret", RequestIDHeader, id)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, id, resp.Header.Get(RequestIDHeader))

	resp, _ = ts.get(t, "/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	resp, body := ts.get(t, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	text := string(body)
	require.Contains(t, text, `grandgraph_http_requests_total{method="GET",route="/graph/ego",status="2xx"} 1`)
	require.Contains(t, text, `grandgraph_http_requests_total{method="GET",route="/graph/ego",status="4xx"} 2`)
	require.Contains(t, text, `grandgraph_cache_events_total{event="miss",kind="ego"} 1`)
}
