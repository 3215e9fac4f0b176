package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(EnvAPIBase, "")
	t.Setenv(EnvAPIBearer, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Limit != 1500 || cfg.View.Particles != 100000 || cfg.View.Tilt != 90 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv(EnvAPIBase, "")
	t.Setenv(EnvAPIBearer, "")
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := Default()
	token := "s3cret-token"
	cfg.SetAPI(" https://graph.example.com/ ", &token)
	cfg.View.Zoom = 250
	cfg.Tiles.Source = "mongodb://localhost:27017/tiles"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("mode = %o, want 600", perm)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.API.Base != "https://graph.example.com" || got.API.Bearer != token {
		t.Errorf("api = %+v", got.API)
	}
	if got.View.Zoom != 250 || got.View.Tilt != 90 {
		t.Errorf("view = %+v", got.View)
	}
	if got.TileSource() != "mongodb://localhost:27017/tiles" {
		t.Errorf("TileSource = %q", got.TileSource())
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvAPIBase, "https://env.example.com")
	t.Setenv(EnvAPIBearer, "envtoken")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.Base != "https://env.example.com" || cfg.API.Bearer != "envtoken" {
		t.Errorf("api = %+v", cfg.API)
	}
	if cfg.TileSource() != cfg.API.Base {
		t.Error("TileSource should fall back to the API base")
	}
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[cache]\nttl = \"soon\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for bad ttl")
	}
	if err := os.WriteFile(path, []byte("not toml ["), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestDurations(t *testing.T) {
	cfg := Default()
	cfg.Cache.TTL = ""
	if d, _ := cfg.CacheTTL(); d != 24*time.Hour {
		t.Errorf("CacheTTL = %v", d)
	}
	cfg.API.Timeout = "5s"
	if d, _ := cfg.APITimeout(); d != 5*time.Second {
		t.Errorf("APITimeout = %v", d)
	}
	cfg.API.Timeout = "-1s"
	if err := cfg.Validate(); err == nil {
		t.Error("negative timeout accepted")
	}
	cfg.API.Timeout = ""
	cfg.API.Base = "graph.example.com"
	if err := cfg.Validate(); err == nil {
		t.Error("base URL without scheme accepted")
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := DefaultPath(); got != "/tmp/xdg/grandgraph/config.toml" {
		t.Errorf("DefaultPath = %q", got)
	}
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.API.Bearer = "abcdefgh"
	cfg.Server.Token = "xy"
	r := cfg.Redacted()
	if r.API.Bearer != "ab****gh" || r.Server.Token != "****" {
		t.Errorf("redacted = %q / %q", r.API.Bearer, r.Server.Token)
	}
	if cfg.API.Bearer != "abcdefgh" {
		t.Error("Redacted mutated the original")
	}
}
