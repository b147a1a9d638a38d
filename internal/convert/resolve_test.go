package convert

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/valet-cli/valet/internal/config"
)

func fakeProbe(present ...string) Prober {
	set := make(map[string]bool, len(present))
	for _, name := range present {
		set[name] = true
	}
	return func(_ config.Config, cmd string) bool { return set[cmd] }
}

func TestResolve_BuiltinsResolveImmediately(t *testing.T) {
	cfg := config.DefaultConfig()
	for _, tool := range []Tool{ToolData, ToolImaging, ToolGoldmark, ToolSips, ToolAFConvert, ToolTextutil} {
		got, ok := resolveWith(cfg, []Tool{tool}, fakeProbe())
		if !ok || got != tool {
			t.Errorf("resolveWith([%v]) = %v, %v; want the tool itself without probing", tool, got, ok)
		}
	}
}

func TestResolve_ExternalNeedsProbe(t *testing.T) {
	cfg := config.DefaultConfig()

	if _, ok := resolveWith(cfg, []Tool{ToolFFmpeg}, fakeProbe()); ok {
		t.Error("ffmpeg resolved without being present")
	}
	got, ok := resolveWith(cfg, []Tool{ToolFFmpeg}, fakeProbe("ffmpeg"))
	if !ok || got != ToolFFmpeg {
		t.Errorf("resolveWith = %v, %v; want ffmpeg", got, ok)
	}
}

func TestResolve_PreservesPriorityOrder(t *testing.T) {
	cfg := config.DefaultConfig()

	// Both present: first candidate wins.
	got, ok := resolveWith(cfg, []Tool{ToolPandoc, ToolFFmpeg}, fakeProbe("pandoc", "ffmpeg"))
	if !ok || got != ToolPandoc {
		t.Errorf("resolveWith = %v, want pandoc (first in list)", got)
	}

	// First absent: fall through to the next.
	got, ok = resolveWith(cfg, []Tool{ToolPandoc, ToolFFmpeg}, fakeProbe("ffmpeg"))
	if !ok || got != ToolFFmpeg {
		t.Errorf("resolveWith = %v, want ffmpeg", got)
	}
}

func TestResolve_MagickLegacyFallback(t *testing.T) {
	cfg := config.DefaultConfig()

	if got, ok := resolveWith(cfg, []Tool{ToolMagick}, fakeProbe("convert")); !ok || got != ToolMagick {
		t.Errorf("magick should resolve via the legacy convert binary, got %v, %v", got, ok)
	}
	if _, ok := resolveWith(cfg, []Tool{ToolMagick}, fakeProbe()); ok {
		t.Error("magick resolved with neither entry point present")
	}
}

func TestResolve_EmptyAndMisses(t *testing.T) {
	cfg := config.DefaultConfig()

	if _, ok := resolveWith(cfg, nil, fakeProbe("ffmpeg")); ok {
		t.Error("empty candidate list must not resolve")
	}
	if _, ok := resolveWith(cfg, []Tool{ToolFFmpeg, ToolPandoc}, fakeProbe()); ok {
		t.Error("nothing present must not resolve")
	}
}

func TestAvailable_LocalBinDir(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BaseDir = t.TempDir()
	if err := os.MkdirAll(cfg.BinDir(), 0o755); err != nil {
		t.Fatal(err)
	}

	name := "valet-test-tool-zzz"
	if Available(cfg, name) {
		t.Fatalf("%s should not be available yet", name)
	}

	path := filepath.Join(cfg.BinDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if !Available(cfg, name) {
		t.Error("executable in the managed bin dir should be available")
	}

	// Re-checked on every call: removing the file flips the answer back.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if Available(cfg, name) {
		t.Error("availability must not be cached across calls")
	}
}

func TestAvailable_NonExecutableIgnored(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BaseDir = t.TempDir()
	if err := os.MkdirAll(cfg.BinDir(), 0o755); err != nil {
		t.Fatal(err)
	}
	name := "valet-test-plain-file"
	if err := os.WriteFile(filepath.Join(cfg.BinDir(), name), []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if Available(cfg, name) {
		t.Error("non-executable file must not count as available")
	}
}
