package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/comicpress/pkg/buildinfo"
)

func newTestCLI(t *testing.T) (*CLI, *bytes.Buffer) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("COMICPRESS_CONFIG", "")

	var out bytes.Buffer
	c := New(&bytes.Buffer{}, LogInfo)
	c.Out = &out
	return c, &out
}

func execute(t *testing.T, c *CLI, args ...string) error {
	t.Helper()
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	return root.ExecuteContext(context.Background())
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		verbose, quiet bool
		want           log.Level
	}{
		{false, false, LogInfo},
		{true, false, LogDebug},
		{false, true, LogWarn},
		{true, true, LogDebug},
	}
	for _, tt := range tests {
		if got := logLevel(tt.verbose, tt.quiet); got != tt.want {
			t.Errorf("logLevel(%v, %v) = %v, want %v", tt.verbose, tt.quiet, got, tt.want)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	c, out := newTestCLI(t)
	if err := execute(t, c, "version"); err != nil {
		t.Fatalf("version error: %v", err)
	}
	if !strings.Contains(out.String(), buildinfo.Version) {
		t.Errorf("version output = %q, want it to contain %q", out.String(), buildinfo.Version)
	}
}

func TestRootCommandLoadsConfigDevices(t *testing.T) {
	c, out := newTestCLI(t)

	cfg := filepath.Join(t.TempDir(), "config.toml")
	data := `
[[device]]
id = "boox"
name = "Boox Note Air"
width = 1404
height = 1872
palette = 16
formats = ["epub", "cbz"]
`
	if err := os.WriteFile(cfg, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := execute(t, c, "--config", cfg, "devices"); err != nil {
		t.Fatalf("devices error: %v", err)
	}
	for _, want := range []string{"boox", "Boox Note Air", "1404x1872", "kobo-forma", "kindle-pw3"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("devices output missing %q", want)
		}
	}
}

func TestRootCommandMissingConfig(t *testing.T) {
	c, _ := newTestCLI(t)
	err := execute(t, c, "--config", filepath.Join(t.TempDir(), "missing.toml"), "devices")
	if err == nil {
		t.Error("expected error for a missing --config file")
	}
}

func TestCachePathCommand(t *testing.T) {
	c, out := newTestCLI(t)
	if err := execute(t, c, "cache", "path"); err != nil {
		t.Fatalf("cache path error: %v", err)
	}
	want, _ := cacheDir()
	if got := strings.TrimSpace(out.String()); got != want {
		t.Errorf("cache path = %q, want %q", got, want)
	}
}

func TestCacheClearCommand(t *testing.T) {
	c, out := newTestCLI(t)
	dir, _ := cacheDir()
	if err := os.MkdirAll(filepath.Join(dir, "ab"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ab", "abcdef.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := execute(t, c, "cache", "clear"); err != nil {
		t.Fatalf("cache clear error: %v", err)
	}
	if !strings.Contains(out.String(), "Cleared 1 cached pages") {
		t.Errorf("cache clear output = %q", out.String())
	}
}

func TestCompletionCommand(t *testing.T) {
	c, out := newTestCLI(t)
	if err := execute(t, c, "completion", "bash"); err != nil {
		t.Fatalf("completion error: %v", err)
	}
	if !strings.Contains(out.String(), appName) {
		t.Error("bash completion should mention the command name")
	}
}
