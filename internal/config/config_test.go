package config_test

import (
	"path/filepath"
	"strings"
	"testing"

	"netback/internal/config"
)

func TestConfigRoundtrip(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig("/data/netback")

	var sb strings.Builder
	m := &config.Manager{}
	if err := m.Write(&sb, cfg); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := m.Read(strings.NewReader(sb.String()))
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if got.BaseDir != cfg.BaseDir {
		t.Errorf("base dir mismatch: %q", got.BaseDir)
	}
	if got.Retention.MaxVersionsPerDevice != config.DefaultRetention {
		t.Errorf("retention mismatch: %d", got.Retention.MaxVersionsPerDevice)
	}
	if got.Blobs.Type != "filesystem" || got.Blobs.Root != "/data/netback/snapshots" {
		t.Errorf("blob config mismatch: %+v", got.Blobs)
	}
	if got.Fetch.Command != config.DefaultFetchCommand {
		t.Errorf("fetch command mismatch: %q", got.Fetch.Command)
	}
}

func TestReadAppliesDefaults(t *testing.T) {
	t.Parallel()

	partial := `
base_dir = "/data/netback"

[store]
type = "sqlite"
data_dir = "/data/netback/db"
`
	m := &config.Manager{}
	cfg, err := m.Read(strings.NewReader(partial))
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if cfg.Retention.MaxVersionsPerDevice != config.DefaultRetention {
		t.Errorf("expected default retention, got %d", cfg.Retention.MaxVersionsPerDevice)
	}
	if cfg.Fetch.Command != config.DefaultFetchCommand {
		t.Errorf("expected default fetch command, got %q", cfg.Fetch.Command)
	}
	if cfg.Fetch.TimeoutSeconds != config.DefaultFetchTimeoutSeconds {
		t.Errorf("expected default timeout, got %d", cfg.Fetch.TimeoutSeconds)
	}
}

func TestInit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "netback.toml")
	cfg := config.NewConfig(dir)

	if err := config.Init(path, cfg); err != nil {
		t.Fatalf("init: %v", err)
	}

	got, err := config.ReadFromFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got.BaseDir != dir {
		t.Errorf("base dir mismatch: %q", got.BaseDir)
	}

	if err := config.Init(path, cfg); err == nil {
		t.Fatal("expected error when config already exists")
	}
}
