package convert

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderMarkdown(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "notes.md")
	md := "# Heading\n\nSome *emphasis* and a [link](https://example.com).\n"
	if err := os.WriteFile(src, []byte(md), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "notes.html")

	if err := RenderMarkdown(src, out); err != nil {
		t.Fatalf("RenderMarkdown: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	html := string(data)
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>notes</title>",
		"<h1>Heading</h1>",
		"<em>emphasis</em>",
		`<a href="https://example.com">link</a>`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("output missing %q:\n%s", want, html)
		}
	}
}

func TestRenderMarkdown_TitleEscaped(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a<b>.md")
	if err := os.WriteFile(src, []byte("text"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out.html")

	if err := RenderMarkdown(src, out); err != nil {
		t.Fatalf("RenderMarkdown: %v", err)
	}
	data, _ := os.ReadFile(out)
	if strings.Contains(string(data), "<title>a<b></title>") {
		t.Error("title must be HTML-escaped")
	}
}

func TestRenderMarkdown_MissingInput(t *testing.T) {
	if err := RenderMarkdown("/no/such/file.md", filepath.Join(t.TempDir(), "out.html")); err == nil {
		t.Error("expected an error for a missing input file")
	}
}
