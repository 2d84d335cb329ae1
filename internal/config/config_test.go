package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValidAfterNormalize(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize default config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if !cfg.DemoMode() {
		t.Fatal("default config should run in demo mode")
	}
}

func TestLoadParsesFileAndExpandsPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
log_dir = "` + filepath.Join(dir, "logs") + `"
credentials_dir = "` + filepath.Join(dir, "creds") + `"
sessions_dir = "` + filepath.Join(dir, "sessions") + `"

[distribution]
mode = "live"

[distribution.platforms]
spotify = false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be reported as existing")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.DemoMode() {
		t.Fatal("mode live should disable demo mode")
	}
	if cfg.PlatformEnabled("spotify") {
		t.Fatal("spotify should be disabled")
	}
	if !cfg.PlatformEnabled("apple") {
		t.Fatal("apple should remain enabled")
	}
	if !filepath.IsAbs(cfg.Paths.LogDir) {
		t.Fatalf("log dir should be absolute, got %q", cfg.Paths.LogDir)
	}
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := Default()
	cfg.Distribution.Mode = "dry-run"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "distribution.mode") {
		t.Fatalf("expected mode validation error, got %v", err)
	}
}

func TestValidateRejectsUnknownPlatform(t *testing.T) {
	cfg := Default()
	cfg.Distribution.Platforms["myspace"] = true
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "unknown platform") {
		t.Fatalf("expected platform validation error, got %v", err)
	}
}

func TestVaultBackendRequiresToken(t *testing.T) {
	cfg := Default()
	cfg.Secrets.Backend = BackendVault
	cfg.Secrets.VaultToken = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "vault_token") {
		t.Fatalf("expected vault token validation error, got %v", err)
	}
	cfg.Secrets.VaultToken = "root"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("vault backend with token should validate: %v", err)
	}
}

func TestStatusEndpointDefaultsToAPIBind(t *testing.T) {
	cfg := Default()
	cfg.Paths.APIBind = "127.0.0.1:9999"
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := "http://127.0.0.1:9999/api/status/summary"
	if cfg.Distribution.StatusEndpoint != want {
		t.Fatalf("expected status endpoint %q, got %q", want, cfg.Distribution.StatusEndpoint)
	}
}
