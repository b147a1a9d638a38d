package agent

import (
	"context"
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

func TestParseAgent(t *testing.T) {
	for _, name := range []string{"convert", "organize", "summarize", "rename", "command"} {
		if _, err := ParseAgent(name); err != nil {
			t.Errorf("ParseAgent(%q) failed: %v", name, err)
		}
	}
	if _, err := ParseAgent("  Convert "); err != nil {
		t.Errorf("ParseAgent should normalize case and whitespace: %v", err)
	}
	if _, err := ParseAgent("bogus_agent"); !verrors.Is(err, verrors.ErrInvalidRequest) {
		t.Errorf("err = %v, want INVALID_REQUEST", err)
	}
}

func TestLoadPrompt_AllAgents(t *testing.T) {
	for _, a := range Agents() {
		prompt := loadPrompt(string(a))
		if len(prompt) < 50 {
			t.Errorf("prompt for %q is suspiciously short (%d chars)", a, len(prompt))
		}
		if !strings.Contains(prompt, "JSON") {
			t.Errorf("prompt for %q does not mention JSON output", a)
		}
	}
}

func TestLoadPrompt_UnknownAgentFallback(t *testing.T) {
	prompt := loadPrompt("nonexistent_agent_xyz")
	if !strings.Contains(prompt, "nonexistent_agent_xyz") || !strings.Contains(prompt, "JSON") {
		t.Errorf("fallback prompt = %q, want the agent name and a JSON instruction", prompt)
	}
}

func TestLoadPrompt_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "convert.md"), []byte("custom prompt"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(agentsDirEnv, dir)

	if got := loadPrompt("convert"); got != "custom prompt" {
		t.Errorf("loadPrompt = %q, want the override file content", got)
	}
}

func TestLoadPrompt_BadEnvFallsBack(t *testing.T) {
	t.Setenv(agentsDirEnv, "/nonexistent/path/agents")
	if got := loadPrompt("convert"); len(got) < 50 {
		t.Errorf("expected the embedded prompt despite a bad override dir, got %q", got)
	}
}

func TestBuildContext_Query(t *testing.T) {
	ctx := buildContext(AgentConvert, "make this a pdf", nil)
	if !strings.Contains(ctx, "make this a pdf") {
		t.Error("context should carry the query")
	}
}

func TestBuildContext_FileBlock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.txt")
	if err := os.WriteFile(path, []byte("world"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx := buildContext(AgentConvert, "convert it", []string{path})
	if !strings.Contains(ctx, "FILE:") || !strings.Contains(ctx, "hello.txt") {
		t.Errorf("context missing file block:\n%s", ctx)
	}
	if !strings.Contains(ctx, "5 bytes") {
		t.Errorf("context missing file size:\n%s", ctx)
	}
}

func TestBuildContext_FolderBlock(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.txt", ".hidden"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	ctx := buildContext(AgentOrganize, "sort by type", []string{dir})
	if !strings.Contains(ctx, "FOLDER:") || !strings.Contains(ctx, "a.png") {
		t.Errorf("context missing folder listing:\n%s", ctx)
	}
	if strings.Contains(ctx, ".hidden") {
		t.Error("hidden entries must be excluded from folder listings")
	}
}

func TestBuildContext_MissingPathNoted(t *testing.T) {
	ctx := buildContext(AgentConvert, "convert it", []string{"/no/such/file.txt"})
	if !strings.Contains(ctx, "not found") {
		t.Errorf("missing path should be noted:\n%s", ctx)
	}
}

func TestParsePlanReply(t *testing.T) {
	t.Run("plain json", func(t *testing.T) {
		res := parsePlanReply(`{"action": "convert", "input_file": "/tmp/a.png", "target_format": "jpg", "explanation": "ok"}`)
		if !res.Ok() {
			t.Fatal("expected a parsed plan")
		}
		if res.Plan().Action != ActionConvert || res.Plan().TargetFormat != "jpg" {
			t.Errorf("plan = %+v", res.Plan())
		}
	})

	t.Run("fenced json", func(t *testing.T) {
		res := parsePlanReply("```json\n{\"action\": \"none\", \"explanation\": \"nothing\"}\n```")
		if !res.Ok() || res.Plan().Action != ActionNone {
			t.Errorf("fenced JSON should parse, got ok=%v plan=%+v", res.Ok(), res.Plan())
		}
	})

	t.Run("plain text falls back", func(t *testing.T) {
		res := parsePlanReply("Unclear request, please rephrase.")
		if res.Ok() {
			t.Fatal("plain text must not parse as a plan")
		}
		plan := res.Plan()
		if plan.Action != ActionNone {
			t.Errorf("fallback action = %q, want none", plan.Action)
		}
		if !strings.Contains(plan.Explanation, "Unclear request") {
			t.Errorf("fallback explanation = %q", plan.Explanation)
		}
	})

	t.Run("unknown action falls back", func(t *testing.T) {
		res := parsePlanReply(`{"action": "teleport", "explanation": "impossible"}`)
		if res.Ok() {
			t.Error("unknown action must not count as a parsed plan")
		}
	})

	t.Run("fallback explanation truncated", func(t *testing.T) {
		res := parsePlanReply(strings.Repeat("x", 1000))
		if got := len(res.Plan().Explanation); got > fallbackExplanationCap {
			t.Errorf("explanation length = %d, want <= %d", got, fallbackExplanationCap)
		}
	})
}

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

// fakeLLM returns a config pointing at a stub chat endpoint and a counter of
// requests it served.
func fakeLLM(t *testing.T, reply string) (config.Config, *int) {
	t.Helper()
	calls := new(int)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		fmt.Fprint(w, chatResponse(reply))
	}))
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.Provider = "custom"
	cfg.Endpoint = srv.URL
	cfg.BaseDir = t.TempDir()
	return cfg, calls
}

func TestDispatch_UnknownAgentNeverCallsLLM(t *testing.T) {
	cfg, calls := fakeLLM(t, chatResponse("should not be reached"))
	d := NewDispatcher(cfg, logging.Nop())

	_, err := d.Dispatch(context.Background(), "bogus_agent", "do something", nil)
	if !verrors.Is(err, verrors.ErrInvalidRequest) {
		t.Fatalf("err = %v, want INVALID_REQUEST", err)
	}
	if *calls != 0 {
		t.Errorf("LLM saw %d calls, want 0 for an unknown agent", *calls)
	}
}

func TestDispatch_ValidAgentsReturnPlans(t *testing.T) {
	cfg, _ := fakeLLM(t, `{"action": "none", "explanation": "test"}`)
	d := NewDispatcher(cfg, logging.Nop())

	for _, a := range Agents() {
		res, err := d.Dispatch(context.Background(), string(a), "test query", nil)
		if err != nil {
			t.Fatalf("Dispatch(%q): %v", a, err)
		}
		line, err := res.Plan().MarshalLine()
		if err != nil {
			t.Fatal(err)
		}
		var parsed map[string]any
		if err := json.Unmarshal([]byte(line), &parsed); err != nil {
			t.Errorf("dispatch output for %q is not valid JSON: %v", a, err)
		}
		if parsed["action"] != "none" {
			t.Errorf("action = %v, want none", parsed["action"])
		}
	}
}

func TestDispatch_NonJSONReplyStillYieldsValidJSON(t *testing.T) {
	cfg, _ := fakeLLM(t, "I can't help with that.")
	d := NewDispatcher(cfg, logging.Nop())

	res, err := d.Dispatch(context.Background(), "convert", "asdfghjkl", nil)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Ok() {
		t.Error("expected a fallback result")
	}
	line, err := res.Plan().MarshalLine()
	if err != nil {
		t.Fatal(err)
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(line), &parsed); err != nil {
		t.Fatalf("fallback output is not valid JSON: %v", err)
	}
	if parsed["action"] != "none" || parsed["explanation"] == "" {
		t.Errorf("fallback plan = %v", parsed)
	}
}
