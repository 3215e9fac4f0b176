package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/grandgraph/pkg/config"
	"github.com/matzehuels/grandgraph/pkg/datasource"
	"github.com/matzehuels/grandgraph/pkg/graph"
)

const testDataset = `{
  "persons": [
    {"id": "1", "name": "Ada", "title": "Engineer", "handles": ["https://www.linkedin.com/in/ada"]},
    {"id": "2", "name": "Brian"},
    {"id": "3", "name": "Chen"}
  ],
  "companies": [{"id": "10", "name": "Acme"}],
  "stints": [
    {"person_id": "1", "company_id": "10"},
    {"person_id": "2", "company_id": "10"},
    {"person_id": "3", "company_id": "10", "end": "2020-01"}
  ]
}`

// execute runs one command line against a fresh CLI.
func execute(t *testing.T, cfgPath string, args ...string) error {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	return root.ExecuteContext(context.Background())
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", []string{"png"}},
		{"svg", []string{"svg"}},
		{"png, dot,json", []string{"png", "dot", "json"}},
	}
	for _, tt := range tests {
		got := parseFormats(tt.input)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("parseFormats(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		output, base, format string
		multi                bool
		want                 string
	}{
		{"", "person-1", "png", false, "person-1.png"},
		{"", "person-1", "json", false, "person-1.tile.json"},
		{"", "demo", "nodelink", true, "demo.nodelink.svg"},
		{"frame.png", "person-1", "png", false, "frame.png"},
		{"out/frame.png", "person-1", "svg", true, "out/frame.svg"},
	}
	for _, tt := range tests {
		if got := outputPath(tt.output, tt.base, tt.format, tt.multi); got != tt.want {
			t.Errorf("outputPath(%q, %q, %q, %v) = %q, want %q", tt.output, tt.base, tt.format, tt.multi, got, tt.want)
		}
	}
}

func TestBaseName(t *testing.T) {
	if got := baseName("person:42"); got != "person-42" {
		t.Errorf("baseName = %q", got)
	}
	if got := baseName(""); got != "demo" {
		t.Errorf("baseName(\"\") = %q", got)
	}
	if got := trimTileExt("dir/person-1.tile.json"); got != "dir/person-1" {
		t.Errorf("trimTileExt = %q", got)
	}
}

func TestCommandsEndToEnd(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv(config.EnvAPIBase, "")
	t.Setenv(config.EnvAPIBearer, "")
	cfgPath := filepath.Join(dir, "config.toml")
	db := filepath.Join(dir, "graph.sqlite")

	dataset := filepath.Join(dir, "dataset.json")
	if err := os.WriteFile(dataset, []byte(testDataset), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := execute(t, cfgPath, "db", "import", dataset, "--db", db); err != nil {
		t.Fatalf("db import: %v", err)
	}

	tilePath := filepath.Join(dir, "ada.tile.json")
	if err := execute(t, cfgPath, "layout", "ada", "--db", db, "-o", tilePath); err != nil {
		t.Fatalf("layout: %v", err)
	}
	g, err := graph.ReadFile(tilePath)
	if err != nil {
		t.Fatalf("read layout: %v", err)
	}
	if len(g.Nodes) != 3 || g.Nodes[0].ID != "1" {
		t.Fatalf("layout nodes = %d, center %q", len(g.Nodes), g.Nodes[0].ID)
	}

	out := filepath.Join(dir, "out", "ada")
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := execute(t, cfgPath, "render", tilePath, "-f", "dot,bin", "-o", out); err != nil {
		t.Fatalf("render tile: %v", err)
	}
	dot, err := os.ReadFile(out + ".dot")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(dot), "graph") {
		t.Errorf("dot output looks wrong: %q", dot)
	}
	if _, err := os.Stat(out + ".bin"); err != nil {
		t.Errorf("bin output missing: %v", err)
	}

	demo := filepath.Join(dir, "demo.svg")
	if err := execute(t, cfgPath, "render", "--demo", "-f", "svg", "-o", demo, "--no-cache"); err != nil {
		t.Fatalf("render demo: %v", err)
	}
	if svg, err := os.ReadFile(demo); err != nil || !strings.Contains(string(svg), "<svg") {
		t.Errorf("demo svg: err=%v", err)
	}

	tiles := filepath.Join(dir, "tiles")
	if err := execute(t, cfgPath, "cache", "build", tiles, "--db", db, "-f", "bin"); err != nil {
		t.Fatalf("cache build: %v", err)
	}
	index, err := datasource.NewDirTiles(tiles).Index(context.Background())
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	ix, err := datasource.ParseIndex(index)
	if err != nil {
		t.Fatal(err)
	}
	if key, ok := ix.Lookup("ada"); !ok || key.String() != "person:1" {
		t.Errorf("Lookup(ada) = %v, %v", key, ok)
	}
	if _, err := os.Stat(filepath.Join(tiles, "company", "10.bin")); err != nil {
		t.Errorf("company tile missing: %v", err)
	}
}

func TestConfigSetAPI(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvAPIBearer, "from-env")
	cfgPath := filepath.Join(dir, "config.toml")

	if err := execute(t, cfgPath, "config", "set-api", "https://api.example.test/", "--bearer", "secret"); err != nil {
		t.Fatalf("set-api: %v", err)
	}
	cfg, err := config.LoadFile(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.Base != "https://api.example.test" || cfg.API.Bearer != "secret" {
		t.Errorf("api = %+v", cfg.API)
	}

	if err := execute(t, cfgPath, "config", "set-api", "https://other.test"); err != nil {
		t.Fatal(err)
	}
	if cfg, _ = config.LoadFile(cfgPath); cfg.API.Bearer != "secret" {
		t.Errorf("bearer changed without --bearer: %q", cfg.API.Bearer)
	}
	info, err := os.Stat(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config mode = %o, want 600", perm)
	}
}

func TestCommandErrors(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	tests := []struct {
		name string
		args []string
	}{
		{"render without query", []string{"render"}},
		{"render bad format", []string{"render", "--demo", "-f", "gif"}},
		{"view without query", []string{"view"}},
		{"layout without db", []string{"layout", "person:1"}},
		{"fetch bad format", []string{"fetch", "person:1", "-f", "png"}},
		{"completion bad shell", []string{"completion", "tcsh"}},
		{"set-api without scheme", []string{"config", "set-api", "api.example.test"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := execute(t, cfgPath, tt.args...); err == nil {
				t.Errorf("%v: expected error", tt.args)
			}
		})
	}
}
