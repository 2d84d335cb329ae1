package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	content := fmt.Sprintf(`[paths]
log_dir = %q
credentials_dir = %q
sessions_dir = %q

[distribution]
mode = "demo"
status_endpoint = "http://127.0.0.1:1/api/status/summary"

[logging]
format = "json"
level = "error"
`,
		filepath.Join(root, "logs"),
		filepath.Join(root, "credentials"),
		filepath.Join(root, "sessions"),
	)

	path := filepath.Join(root, "airlift.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigValidate(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCommand(t, "--config", cfgPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "valid") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	if out, err := runCommand(t, "config", "init", "--path", target); err != nil {
		t.Fatalf("config init: %v\n%s", err, out)
	}
	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("second init should refuse to overwrite")
	}
}

func TestDispatchCommandDemoMode(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCommand(t, "--config", cfgPath,
		"dispatch", "--asset", "ep1", "--file", "/nowhere/ep1.mp3")
	if err != nil {
		t.Fatalf("dispatch: %v\n%s", err, out)
	}
	if !strings.Contains(out, "demo_simulated") {
		t.Fatalf("demo dispatch output missing simulated status:\n%s", out)
	}
	for _, name := range []string{"Spotify", "Apple", "SoundCloud", "Audiomack"} {
		if !strings.Contains(out, name) {
			t.Fatalf("output missing platform %s:\n%s", name, out)
		}
	}
}

func TestDispatchRequiresAsset(t *testing.T) {
	cfgPath := writeTestConfig(t)
	if _, err := runCommand(t, "--config", cfgPath, "dispatch", "--file", "/x.mp3"); err == nil {
		t.Fatal("dispatch without --asset should fail")
	}
}

func TestStatusCommandJSON(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCommand(t, "--config", cfgPath, "status", "--json")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	if !strings.Contains(out, `"no_logs"`) {
		t.Fatalf("fresh status should report no_logs platforms:\n%s", out)
	}
}

func TestSecretsRoundTripCLI(t *testing.T) {
	cfgPath := writeTestConfig(t)

	if out, err := runCommand(t, "--config", cfgPath, "secrets", "set", "spotify", "CLIENT_ID", "abc"); err != nil {
		t.Fatalf("secrets set: %v\n%s", err, out)
	}
	out, err := runCommand(t, "--config", cfgPath, "secrets", "get", "spotify", "CLIENT_ID")
	if err != nil {
		t.Fatalf("secrets get: %v\n%s", err, out)
	}
	if strings.TrimSpace(out) != "abc" {
		t.Fatalf("secrets get = %q", out)
	}

	out, err = runCommand(t, "--config", cfgPath, "secrets", "keys", "spotify")
	if err != nil {
		t.Fatalf("secrets keys: %v\n%s", err, out)
	}
	if strings.TrimSpace(out) != "CLIENT_ID" {
		t.Fatalf("secrets keys = %q", out)
	}
}

func TestReconcileCommandConverges(t *testing.T) {
	cfgPath := writeTestConfig(t)

	// Seed an audit tail so the expectation matches immediately.
	if out, err := runCommand(t, "--config", cfgPath,
		"dispatch", "--asset", "ep1", "--file", "/nowhere/ep1.mp3", "--platform", "spotify"); err != nil {
		t.Fatalf("seed dispatch: %v\n%s", err, out)
	}

	out, err := runCommand(t, "--config", cfgPath,
		"reconcile", "--expect", "spotify=demo_simulated", "--attempts", "2", "--interval", "10ms")
	if err != nil {
		t.Fatalf("reconcile: %v\n%s", err, out)
	}
	if !strings.Contains(out, "converged after 1 attempt") {
		t.Fatalf("unexpected reconcile output:\n%s", out)
	}
}
