package testsupport

import (
	"path/filepath"
	"testing"

	"airlift/internal/config"
)

// NewConfig returns a validated configuration rooted in a per-test temp
// directory. The returned config runs in demo mode with every platform
// enabled; tests flip individual fields as needed.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Paths.CredentialsDir = filepath.Join(root, "credentials")
	cfg.Paths.SessionsDir = filepath.Join(root, "sessions")
	cfg.Distribution.Mode = config.ModeDemo
	cfg.Distribution.LoginTimeout = 1
	cfg.Distribution.UploadTimeout = 1
	// Point demo-mode pushes at a closed port so nothing leaks off-host.
	cfg.Distribution.StatusEndpoint = "http://127.0.0.1:1/api/status/summary"

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure test directories: %v", err)
	}
	return &cfg
}
