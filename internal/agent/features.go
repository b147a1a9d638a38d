package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	verrors "github.com/valet-cli/valet/internal/errors"
)

// renameBatchCap bounds how many files one rename request covers.
const renameBatchCap = 30

// SummarizeFiles reads the given files (capped per file) and returns the
// model's summary. Unreadable files are skipped; all unreadable is an error.
func (r *Runner) SummarizeFiles(ctx context.Context, paths []string) (string, error) {
	plan := &Plan{Action: ActionSummarize, Files: paths, Style: "brief"}
	return r.runSummarize(ctx, plan)
}

// SuggestRenames asks the model for old-path -> new-filename suggestions.
// Image files are attached as vision input so names can reflect content.
// Suggestions equal to the current name are dropped.
func (r *Runner) SuggestRenames(ctx context.Context, paths []string) (map[string]string, error) {
	var files []string
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			files = append(files, p)
		}
	}
	if len(files) == 0 {
		return nil, verrors.NewInvalidRequest("no valid files to rename")
	}
	if len(files) > renameBatchCap {
		files = files[:renameBatchCap]
	}

	names := make([]string, len(files))
	for i, p := range files {
		names[i] = filepath.Base(p)
	}
	images := imagePaths(files)

	var b strings.Builder
	b.WriteString("SYSTEM: File renamer. Output ONLY a valid JSON map of \"old_name\": \"new_name\" pairs.\n")
	fmt.Fprintf(&b, "FILES: %s\n", strings.Join(names, ", "))
	b.WriteString("TASK: Suggest clean, descriptive names. Keep extensions. Use underscores for spaces, 2-4 words.\n")
	if len(images) > 0 {
		b.WriteString("The images are attached; name them after what you SEE in them.\n")
	}

	reply := r.llm.Complete(ctx, b.String(), images)
	cleaned := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(reply, "```json", ""), "```", ""))

	var suggestions map[string]string
	if err := json.Unmarshal([]byte(cleaned), &suggestions); err != nil {
		return nil, verrors.NewInvalidPlan("rename suggestions did not parse: " + head(reply, 200))
	}

	renames := make(map[string]string)
	for _, p := range files {
		old := filepath.Base(p)
		if newName, ok := suggestions[old]; ok && newName != old && newName != "" {
			renames[p] = newName
		}
	}
	return renames, nil
}

// Ask sends a free-form coding request and runs the returned code block.
// A reply without a recognizable block is returned as text instead.
func (r *Runner) Ask(ctx context.Context, query string, paths []string) (string, error) {
	prompt := fmt.Sprintf("Write code for: %s", query)
	if len(paths) > 0 {
		prompt += fmt.Sprintf("\nFiles: %s", strings.Join(paths, ", "))
	}
	prompt += "\nOutput ONLY a ```python or ```bash block."

	reply := r.llm.Complete(ctx, prompt, nil)
	lang, code := ExtractCodeBlock(reply)
	if lang == "" {
		return reply, nil
	}
	return r.runCode(ctx, &Plan{Action: ActionRun, Language: lang, Code: code})
}

// ExtractCodeBlock pulls the first fenced python/bash/sh block out of a
// model reply. sh normalizes to bash. Returns empty strings when no block is
// found.
func ExtractCodeBlock(reply string) (lang, code string) {
	for _, candidate := range []string{"python", "bash", "sh"} {
		marker := "```" + candidate
		_, rest, found := strings.Cut(reply, marker)
		if !found {
			continue
		}
		body, _, _ := strings.Cut(rest, "```")
		body = strings.TrimSpace(body)
		if body == "" {
			continue
		}
		if candidate == "sh" {
			candidate = "bash"
		}
		return candidate, body
	}
	return "", ""
}
