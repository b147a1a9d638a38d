package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/valet-cli/valet/internal/config"
	"github.com/valet-cli/valet/internal/convert"
	verrors "github.com/valet-cli/valet/internal/errors"
	"github.com/valet-cli/valet/internal/llm"
	"github.com/valet-cli/valet/internal/run"
)

// summarizeByteCap bounds how much of each file is sent to the model.
const summarizeByteCap = 4000

// styleInstructions maps summarize styles to their prompt openers. Unknown
// styles fall back to brief.
var styleInstructions = map[string]string{
	"brief":      "Summarize these files in 3 bullet points.",
	"detailed":   "Write a thorough summary, one paragraph per file.",
	"comparison": "Compare and contrast these files: shared themes, key differences, and which one to read first.",
	"explain":    "Explain the content of these files in plain language for a non-expert.",
}

// Runner executes plans. Each action maps to one side-effecting routine and
// returns a short human-readable report.
type Runner struct {
	cfg    config.Config
	log    *zap.Logger
	engine *convert.Engine
	llm    *llm.Client
	exec   *run.Executor
}

func NewRunner(cfg config.Config, log *zap.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		log:    log,
		engine: convert.NewEngine(cfg, log),
		llm:    llm.New(cfg, log),
		exec:   run.NewExecutor(cfg, log),
	}
}

// ExecuteJSON parses a plan document and runs it. Malformed JSON is an
// InvalidPlan error, an unrecognized action an UnknownAction error.
func (r *Runner) ExecuteJSON(ctx context.Context, planJSON string) (string, error) {
	var plan Plan
	if err := json.Unmarshal([]byte(planJSON), &plan); err != nil {
		return "", verrors.NewInvalidPlan("invalid JSON: " + err.Error())
	}
	return r.Execute(ctx, &plan)
}

// Execute dispatches on the plan's action.
func (r *Runner) Execute(ctx context.Context, plan *Plan) (string, error) {
	r.log.Info("executing plan", zap.String("action", string(plan.Action)))
	switch plan.Action {
	case ActionNone:
		if plan.Explanation != "" {
			return plan.Explanation, nil
		}
		return "Nothing to do.", nil
	case ActionConvert:
		return r.runConvert(ctx, plan)
	case ActionResize:
		return r.runResize(plan)
	case ActionOrganize:
		return r.runOrganize(plan)
	case ActionSummarize:
		return r.runSummarize(ctx, plan)
	case ActionRename:
		return r.runRename(plan)
	case ActionRun:
		return r.runCode(ctx, plan)
	default:
		return "", verrors.NewUnknownAction(string(plan.Action))
	}
}

func (r *Runner) runConvert(ctx context.Context, plan *Plan) (string, error) {
	if plan.InputFile == "" || plan.TargetFormat == "" {
		return "", verrors.NewInvalidPlan("convert plan missing input_file or target_format")
	}
	res, err := r.engine.Convert(ctx, plan.InputFile, plan.TargetFormat)
	if err != nil {
		return "", err
	}
	if res.EmptyOutput {
		return fmt.Sprintf("Output: %s (warning: file is empty)", res.OutputPath), nil
	}
	return fmt.Sprintf("Output: %s (%d bytes)", res.OutputPath, res.Size), nil
}

func (r *Runner) runResize(plan *Plan) (string, error) {
	if plan.InputFile == "" || plan.Width <= 0 {
		return "", verrors.NewInvalidPlan("resize plan missing input_file or a positive width")
	}
	ext := filepath.Ext(plan.InputFile)
	out := fmt.Sprintf("%s_%dx%d%s", strings.TrimSuffix(plan.InputFile, ext), plan.Width, plan.Height, ext)
	if err := convert.ResizeImage(plan.InputFile, out, plan.Width, plan.Height); err != nil {
		return "", err
	}
	return fmt.Sprintf("Output: %s", out), nil
}

// runOrganize moves each named file into its target subfolder. Missing
// sources and occupied destinations are skipped, not errors; the report
// carries the counts.
func (r *Runner) runOrganize(plan *Plan) (string, error) {
	if plan.Folder == "" || len(plan.Moves) == 0 {
		return "", verrors.NewInvalidPlan("organize plan missing folder or plan map")
	}
	moved, skipped, err := ApplyMoves(plan.Folder, plan.Moves)
	if err != nil {
		return "", err
	}
	report := fmt.Sprintf("Moved %d file(s).", moved)
	if skipped > 0 {
		report += fmt.Sprintf(" Skipped %d.", skipped)
	}
	return report, nil
}

func (r *Runner) runSummarize(ctx context.Context, plan *Plan) (string, error) {
	if len(plan.Files) == 0 {
		return "", verrors.NewInvalidPlan("summarize plan has no files")
	}
	var blocks []string
	for _, path := range plan.Files {
		content, err := readHead(path, summarizeByteCap)
		if err != nil {
			r.log.Warn("skipping unreadable file", zap.String("path", path), zap.Error(err))
			continue
		}
		blocks = append(blocks, fmt.Sprintf("FILE: %s\n%s", filepath.Base(path), content))
	}
	if len(blocks) == 0 {
		return "", verrors.NewInvalidPlan("no readable files to summarize")
	}

	instruction, ok := styleInstructions[plan.Style]
	if !ok {
		instruction = styleInstructions["brief"]
	}
	prompt := instruction + "\n\n" + strings.Join(blocks, "\n\n")
	return r.llm.Complete(ctx, prompt, nil), nil
}

func (r *Runner) runRename(plan *Plan) (string, error) {
	if len(plan.Renames) == 0 {
		return "No renames needed.", nil
	}
	renamed, skipped := 0, 0
	for oldPath, newName := range plan.Renames {
		newPath := filepath.Join(filepath.Dir(oldPath), newName)
		if _, err := os.Stat(oldPath); err != nil {
			r.log.Warn("rename source missing", zap.String("path", oldPath))
			skipped++
			continue
		}
		if _, err := os.Stat(newPath); err == nil {
			r.log.Warn("rename destination exists", zap.String("path", newPath))
			skipped++
			continue
		}
		if err := os.Rename(oldPath, newPath); err != nil {
			r.log.Warn("rename failed", zap.String("path", oldPath), zap.Error(err))
			skipped++
			continue
		}
		renamed++
	}
	report := fmt.Sprintf("Renamed %d file(s).", renamed)
	if skipped > 0 {
		report += fmt.Sprintf(" Skipped %d.", skipped)
	}
	return report, nil
}

func (r *Runner) runCode(ctx context.Context, plan *Plan) (string, error) {
	if strings.TrimSpace(plan.Code) == "" {
		return "", verrors.NewInvalidPlan("run plan has no code")
	}

	var res run.Result
	switch strings.ToLower(plan.Language) {
	case "python":
		res = r.exec.Script(ctx, plan.Code)
	case "bash", "sh", "shell":
		res = r.exec.Shell(ctx, plan.Code)
	default:
		return "", verrors.NewInvalidPlan(fmt.Sprintf("unknown language %q", plan.Language))
	}

	switch res.State {
	case run.StateBlocked:
		return "", verrors.NewBlocked(res.Rule.Reason)
	case run.StateTimedOut:
		return "", verrors.NewTimeout(int(run.CommandTimeout / time.Second))
	case run.StateFailed:
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = "command failed"
		}
		return "", verrors.NewConversionFailed(msg)
	}
	return strings.TrimSpace(res.Stdout), nil
}

// ApplyMoves executes a folder -> filenames map under root, creating target
// folders as needed. Returns moved and skipped counts; only setup failures
// (an uncreatable target folder) are errors.
func ApplyMoves(root string, moves map[string][]string) (moved, skipped int, err error) {
	for folder, files := range moves {
		destDir := filepath.Join(root, folder)
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return moved, skipped, verrors.NewInternal(err)
		}
		for _, name := range files {
			src := filepath.Join(root, name)
			dst := filepath.Join(destDir, name)
			if _, err := os.Stat(src); err != nil {
				skipped++
				continue
			}
			if _, err := os.Stat(dst); err == nil {
				skipped++
				continue
			}
			if err := os.Rename(src, dst); err != nil {
				skipped++
				continue
			}
			moved++
		}
	}
	return moved, skipped, nil
}

// readHead reads at most limit bytes of a file as text.
func readHead(path string, limit int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, int64(limit)))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
