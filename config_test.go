package tola

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSiteConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadSiteConfig(filepath.Join(t.TempDir(), "tola.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OutputDir != "public" || cfg.Serve.Port != 8080 {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestWriteThenLoadSiteConfigRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tola.toml")
	cfg := DefaultSiteConfig()
	cfg.Title = "Example Site"
	cfg.Serve.Port = 9999

	if err := WriteSiteConfig(path, cfg); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, err := LoadSiteConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Title != "Example Site" || loaded.Serve.Port != 9999 {
		t.Fatalf("expected round trip to preserve overrides, got %+v", loaded)
	}
}

func TestLoadSiteConfigPartialFilePreservesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tola.toml")
	os.WriteFile(path, []byte("title = \"Partial\"\n"), 0644)

	cfg, err := LoadSiteConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Title != "Partial" {
		t.Fatalf("expected title override, got %q", cfg.Title)
	}
	if cfg.OutputDir != "public" {
		t.Fatalf("expected default output_dir to survive, got %q", cfg.OutputDir)
	}
}
