package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valet-cli/valet/internal/config"
	verrors "github.com/valet-cli/valet/internal/errors"
	"github.com/valet-cli/valet/internal/logging"
)

// testConfig returns a default config rooted in a temp dir.
func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BaseDir = t.TempDir()
	return cfg
}

// chatResponse wraps content in a minimal chat completion payload.
func chatResponse(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id": "chatcmpl-test", "object": "chat.completion", "created": 1, "model": "test",
		"choices": []map[string]any{{
			"index": 0, "finish_reason": "stop",
			"message": map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

// fakeLLMConfig returns a config pointing at a stub chat endpoint that
// always replies with content.
func fakeLLMConfig(t *testing.T, content string) config.Config {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatResponse(content))
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(t)
	cfg.Provider = "custom"
	cfg.Endpoint = srv.URL
	return cfg
}

// runApp runs the CLI with captured stdout.
func runApp(t *testing.T, cfg config.Config, args ...string) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	app := newCLIApp(cfg, logging.Nop())
	err := app.Run(append([]string{"valet"}, args...))

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	return buf.String(), err
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCLIConvert(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "records.json")
	if err := os.WriteFile(input, []byte(`[{"name":"a","n":1}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runApp(t, cfg, "convert", input, "csv")
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}

	if !strings.Contains(out, "Converted:") {
		t.Errorf("output missing conversion report: %q", out)
	}
	if !strings.Contains(out, "records.csv") {
		t.Errorf("output missing output path: %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "records.csv")); err != nil {
		t.Errorf("output file missing: %v", err)
	}
}

func TestCLIConvert_MissingArgs(t *testing.T) {
	_, err := runApp(t, testConfig(t), "convert")
	if err == nil {
		t.Fatal("expected error for missing arguments")
	}
	if !strings.Contains(err.Error(), "INVALID_REQUEST") {
		t.Errorf("error = %v, want INVALID_REQUEST", err)
	}
}

func TestCLIConvert_MissingFile(t *testing.T) {
	_, err := runApp(t, testConfig(t), "convert", filepath.Join(t.TempDir(), "absent.json"), "csv")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "FILE_NOT_FOUND") {
		t.Errorf("error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestCLIOrganize_Preview(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "photo.jpg"))
	touch(t, filepath.Join(dir, "report.pdf"))

	out, err := runApp(t, cfg, "organize", dir)
	if err != nil {
		t.Fatalf("organize failed: %v", err)
	}

	if !strings.Contains(out, "This is a preview") {
		t.Errorf("output missing preview notice: %q", out)
	}
	// Preview must not touch the files.
	if _, err := os.Stat(filepath.Join(dir, "photo.jpg")); err != nil {
		t.Error("preview moved photo.jpg")
	}
	if _, err := os.Stat(filepath.Join(dir, "report.pdf")); err != nil {
		t.Error("preview moved report.pdf")
	}
}

func TestCLIOrganize_Confirm(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "photo.jpg"))
	touch(t, filepath.Join(dir, "report.pdf"))

	out, err := runApp(t, cfg, "organize", dir, "--confirm")
	if err != nil {
		t.Fatalf("organize failed: %v", err)
	}

	if !strings.Contains(out, "Moved 2 file(s)") {
		t.Errorf("output = %q, want moved count 2", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "Images", "photo.jpg")); err != nil {
		t.Error("photo.jpg not moved into Images/")
	}
	if _, err := os.Stat(filepath.Join(dir, "Documents", "report.pdf")); err != nil {
		t.Error("report.pdf not moved into Documents/")
	}
}

func TestCLIOrganize_EmptyDir(t *testing.T) {
	out, err := runApp(t, testConfig(t), "organize", t.TempDir())
	if err != nil {
		t.Fatalf("organize failed: %v", err)
	}
	if !strings.Contains(out, "No files to move") {
		t.Errorf("output = %q, want empty-folder notice", out)
	}
}

func TestCLIOrganize_MissingDir(t *testing.T) {
	_, err := runApp(t, testConfig(t), "organize", filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
	if !strings.Contains(err.Error(), "INVALID_REQUEST") {
		t.Errorf("error = %v, want INVALID_REQUEST", err)
	}
}

func TestCLIDispatch(t *testing.T) {
	cfg := fakeLLMConfig(t, `{"action":"none","explanation":"nothing to do"}`)

	out, err := runApp(t, cfg, "dispatch", "convert", "turn photo.png into a jpg")
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	// stdout carries exactly one JSON line.
	line := strings.TrimSpace(out)
	if strings.Contains(line, "\n") {
		t.Fatalf("expected a single line, got %q", out)
	}
	var plan map[string]any
	if err := json.Unmarshal([]byte(line), &plan); err != nil {
		t.Fatalf("stdout is not valid JSON: %v\n%q", err, out)
	}
	if plan["action"] != "none" {
		t.Errorf("action = %v, want none", plan["action"])
	}
}

func TestCLIDispatch_FallbackStillEmitsJSON(t *testing.T) {
	cfg := fakeLLMConfig(t, "I would rather chat about the weather.")

	out, err := runApp(t, cfg, "dispatch", "organize", "sort my downloads")
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	var plan map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &plan); err != nil {
		t.Fatalf("stdout is not valid JSON: %v\n%q", err, out)
	}
	if plan["action"] != "none" {
		t.Errorf("action = %v, want none fallback", plan["action"])
	}
}

func TestCLIDispatch_UnknownAgent(t *testing.T) {
	cfg := fakeLLMConfig(t, `{"action":"none"}`)

	_, err := runApp(t, cfg, "dispatch", "butler", "do something")
	if err == nil {
		t.Fatal("expected error for unknown agent")
	}
	if !strings.Contains(err.Error(), "INVALID_REQUEST") {
		t.Errorf("error = %v, want INVALID_REQUEST", err)
	}
}

func TestCLIExecute(t *testing.T) {
	out, err := runApp(t, testConfig(t), "execute", `{"action":"none","explanation":"all done"}`)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !strings.Contains(out, "all done") {
		t.Errorf("output = %q, want explanation", out)
	}
}

func TestCLIExecute_MalformedPlan(t *testing.T) {
	_, err := runApp(t, testConfig(t), "execute", `{"action":`)
	if err == nil {
		t.Fatal("expected error for malformed plan")
	}
	if !strings.Contains(err.Error(), "INVALID_PLAN") {
		t.Errorf("error = %v, want INVALID_PLAN", err)
	}
}

func TestCLIInstall_UnknownTool(t *testing.T) {
	_, err := runApp(t, testConfig(t), "install", "netcat")
	if err == nil {
		t.Fatal("expected error for unknown tool")
	}
	if !strings.Contains(err.Error(), "INVALID_REQUEST") {
		t.Errorf("error = %v, want INVALID_REQUEST", err)
	}
}

func TestIsCLIModeCommands(t *testing.T) {
	for _, name := range []string{"convert", "organize", "summarize", "rename", "ask", "install", "dispatch", "execute"} {
		if !cliCommands[name] {
			t.Errorf("%s should be a known CLI command", name)
		}
	}
	if cliCommands["serve"] {
		t.Error("serve should not be a known CLI command")
	}
}

func TestExitCode(t *testing.T) {
	// Handled errors exit 1.
	if got := exitCode(outputError(verrors.NewInvalidRequest("bad"))); got != 1 {
		t.Errorf("handled error exit code = %d, want 1", got)
	}

	// Flag-parsing errors are not ExitCoders and exit 2.
	_, err := runApp(t, testConfig(t), "convert", "--bogus")
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
	if got := exitCode(err); got != 2 {
		t.Errorf("parse error exit code = %d, want 2", got)
	}
}

func TestHumanSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}

	for _, tt := range tests {
		if got := humanSize(tt.in); got != tt.want {
			t.Errorf("humanSize(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrintOrganizePlanCapsListing(t *testing.T) {
	plan := map[string][]string{
		"Images": {"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg", "f.jpg", "g.jpg"},
	}

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	printOrganizePlan(plan)
	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	out := buf.String()
	if !strings.Contains(out, "move 7 file(s) into 1 folder(s)") {
		t.Errorf("output missing totals: %q", out)
	}
	if !strings.Contains(out, "... and 2 more") {
		t.Errorf("output missing capped listing marker: %q", out)
	}
	if strings.Contains(out, "f.jpg") {
		t.Errorf("listing should stop after %d files: %q", previewFilesPerFolder, out)
	}
}
