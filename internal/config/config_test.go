package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/keepsakehq/keepsake/core/internal/errors"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sync.Interval != 30*time.Second {
		t.Errorf("expected default sync interval, got %v", cfg.Sync.Interval)
	}
	if cfg.Server.ListenAddr != ":8090" {
		t.Errorf("expected default listen addr, got %q", cfg.Server.ListenAddr)
	}
}

func TestLoadParsesYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keepsake.yaml")
	content := []byte(`
data_dir: /tmp/keepsake-test
server:
  listen_addr: ":9191"
sync:
  interval: 10s
  batch_size: 5
gateway:
  endpoint: https://api.example.com
logging:
  level: debug
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/tmp/keepsake-test" {
		t.Errorf("data_dir not applied: %q", cfg.DataDir)
	}
	if cfg.Server.ListenAddr != ":9191" {
		t.Errorf("listen_addr not applied: %q", cfg.Server.ListenAddr)
	}
	if cfg.Sync.Interval != 10*time.Second {
		t.Errorf("sync interval not applied: %v", cfg.Sync.Interval)
	}
	if cfg.Sync.BatchSize != 5 {
		t.Errorf("batch size not applied: %d", cfg.Sync.BatchSize)
	}
	if cfg.Sync.MaxRetries != 3 {
		t.Errorf("unset field should keep default, got %d", cfg.Sync.MaxRetries)
	}
	if cfg.Gateway.Endpoint != "https://api.example.com" {
		t.Errorf("gateway endpoint not applied: %q", cfg.Gateway.Endpoint)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level not applied: %q", cfg.Logging.Level)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keepsake.yaml")
	if err := os.WriteFile(path, []byte("data_dir: /from-file\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	t.Setenv("KEEPSAKE_DATA_DIR", "/from-env")
	t.Setenv("KEEPSAKE_SYNC_INTERVAL", "45s")
	t.Setenv("KEEPSAKE_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/from-env" {
		t.Errorf("env should win over file, got %q", cfg.DataDir)
	}
	if cfg.Sync.Interval != 45*time.Second {
		t.Errorf("env sync interval not applied: %v", cfg.Sync.Interval)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("env log level not applied: %q", cfg.Logging.Level)
	}
}

func TestMalformedEnvValueIsIgnored(t *testing.T) {
	t.Setenv("KEEPSAKE_SYNC_INTERVAL", "not-a-duration")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sync.Interval != 30*time.Second {
		t.Errorf("malformed override should keep default, got %v", cfg.Sync.Interval)
	}
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("sync: [unclosed"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	_, err := Load(path)
	if !apperrors.Is(err, apperrors.ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Sync.BatchSize = 0
	if err := cfg.Validate(); !apperrors.Is(err, apperrors.ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid for zero batch size, got %v", err)
	}

	cfg = Default()
	cfg.DataDir = ""
	if err := cfg.Validate(); !apperrors.Is(err, apperrors.ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid for empty data dir, got %v", err)
	}
}

func TestPosterDirDefaultsUnderDataDir(t *testing.T) {
	t.Setenv("KEEPSAKE_DATA_DIR", "/srv/keepsake")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Media.PosterDir != filepath.Join("/srv/keepsake", "posters") {
		t.Errorf("poster dir should default under the final data dir, got %q", cfg.Media.PosterDir)
	}
}

func TestPosterDirFromFileIsKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keepsake.yaml")
	content := []byte("media:\n  poster_dir: /var/cache/posters\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Media.PosterDir != "/var/cache/posters" {
		t.Errorf("configured poster dir not applied: %q", cfg.Media.PosterDir)
	}
}
